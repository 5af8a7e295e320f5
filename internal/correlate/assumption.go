package correlate

import (
	"encoding/json"

	"github.com/secopsden/trailguard/internal/models"
)

// assumeEventBody is the subset of an AssumeRole CloudTrail event body the
// assumption extractor needs.
type assumeEventBody struct {
	EventName         string `json:"eventName"`
	RequestParameters *struct {
		RoleArn string `json:"roleArn"`
	} `json:"requestParameters"`
	ResponseElements *struct {
		Credentials *struct {
			SessionToken string `json:"sessionToken"`
			AccessKeyID  string `json:"accessKeyId"`
		} `json:"credentials"`
	} `json:"responseElements"`
}

// ExtractAssumptionFacts parses role-assumption records into a mapping of
// session token to AssumptionFact, restricted to assumptions of a role in
// roleArns. Records that fail to decode or lack the requested role or the
// issued credentials are skipped via diag.
func ExtractAssumptionFacts(records []models.TrailRecord, roleArns map[string]struct{}, diag Diag) map[string]models.AssumptionFact {
	facts := make(map[string]models.AssumptionFact)

	for _, rec := range records {
		var body assumeEventBody
		if err := json.Unmarshal([]byte(rec.CloudTrailEvent), &body); err != nil {
			diag.RecordMalformed(stageAssumption, rec.EventID, err)
			continue
		}
		if body.EventName != models.EventNameAssumeRole {
			diag.RecordSkipped(stageAssumption, rec.EventID, "not an AssumeRole event")
			continue
		}
		if body.RequestParameters == nil || body.RequestParameters.RoleArn == "" {
			diag.RecordSkipped(stageAssumption, rec.EventID, "missing requested role ARN")
			continue
		}
		if _, interesting := roleArns[body.RequestParameters.RoleArn]; !interesting {
			continue
		}
		if body.ResponseElements == nil || body.ResponseElements.Credentials == nil {
			diag.RecordSkipped(stageAssumption, rec.EventID, "missing issued credentials")
			continue
		}

		creds := body.ResponseElements.Credentials
		if creds.SessionToken == "" || creds.AccessKeyID == "" {
			diag.RecordSkipped(stageAssumption, rec.EventID, "incomplete credentials block")
			continue
		}

		facts[creds.SessionToken] = models.AssumptionFact{
			SessionID:   creds.SessionToken,
			AccessKeyID: creds.AccessKeyID,
		}
	}

	return facts
}
