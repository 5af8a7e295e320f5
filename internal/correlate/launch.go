package correlate

import (
	"encoding/json"

	"github.com/secopsden/trailguard/internal/models"
)

// Stage names reported to the Diag sink.
const (
	stageLaunch     = "launch"
	stageAssumption = "assumption"
	stageSecretRead = "secret-read"
)

// launchEventBody is the subset of a RunInstances CloudTrail event body the
// launch extractor needs. Every level is optional on the wire: failed
// launches legitimately carry no response elements or instance items.
type launchEventBody struct {
	EventName        string `json:"eventName"`
	ResponseElements *struct {
		InstancesSet *struct {
			Items []launchInstanceItem `json:"items"`
		} `json:"instancesSet"`
	} `json:"responseElements"`
}

type launchInstanceItem struct {
	InstanceID         string `json:"instanceId"`
	IamInstanceProfile *struct {
		Arn string `json:"arn"`
	} `json:"iamInstanceProfile"`
	TagSet *struct {
		Items []launchTag `json:"items"`
	} `json:"tagSet"`
}

type launchTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ExtractLaunchFacts parses instance-launch records into a mapping of
// instance ID to LaunchFact. The tenant is recovered from the first
// instance tag whose key equals tenantTagKey; the tag value is taken
// exactly, with no transformation.
//
// A fact is materialized only when instance ID, instance profile ARN and
// tenant ID are all present; records missing any of them are skipped via
// diag and never stored partially. Duplicate instance IDs within one batch
// resolve to the last parsed record.
func ExtractLaunchFacts(records []models.TrailRecord, tenantTagKey string, diag Diag) map[string]models.LaunchFact {
	facts := make(map[string]models.LaunchFact)

	for _, rec := range records {
		var body launchEventBody
		if err := json.Unmarshal([]byte(rec.CloudTrailEvent), &body); err != nil {
			diag.RecordMalformed(stageLaunch, rec.EventID, err)
			continue
		}
		if body.EventName != models.EventNameRunInstances {
			diag.RecordSkipped(stageLaunch, rec.EventID, "not a RunInstances event")
			continue
		}
		if body.ResponseElements == nil || body.ResponseElements.InstancesSet == nil {
			diag.RecordSkipped(stageLaunch, rec.EventID, "no instance data in response")
			continue
		}
		items := body.ResponseElements.InstancesSet.Items
		if len(items) == 0 {
			diag.RecordSkipped(stageLaunch, rec.EventID, "empty instance set")
			continue
		}

		inst := items[0]
		if inst.InstanceID == "" {
			diag.RecordSkipped(stageLaunch, rec.EventID, "missing instance ID")
			continue
		}
		if inst.IamInstanceProfile == nil || inst.IamInstanceProfile.Arn == "" {
			diag.RecordSkipped(stageLaunch, rec.EventID, "missing IAM instance profile")
			continue
		}

		tenantID := tagValue(inst, tenantTagKey)
		if tenantID == "" {
			diag.RecordSkipped(stageLaunch, rec.EventID, "missing tenant tag "+tenantTagKey)
			continue
		}

		facts[inst.InstanceID] = models.LaunchFact{
			InstanceID: inst.InstanceID,
			RoleArn:    inst.IamInstanceProfile.Arn,
			TenantID:   tenantID,
		}
	}

	return facts
}

// tagValue returns the value of the first tag on inst whose key equals key,
// or "" when no such tag exists.
func tagValue(inst launchInstanceItem, key string) string {
	if inst.TagSet == nil {
		return ""
	}
	for _, tag := range inst.TagSet.Items {
		if tag.Key == key {
			return tag.Value
		}
	}
	return ""
}
