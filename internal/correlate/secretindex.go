package correlate

import (
	"encoding/json"
	"sort"

	"github.com/secopsden/trailguard/internal/models"
)

// secretEventBody is the subset of a GetParameter CloudTrail event body the
// secret-read extractor needs.
type secretEventBody struct {
	EventName         string `json:"eventName"`
	RequestParameters *struct {
		Name string `json:"name"`
	} `json:"requestParameters"`
}

// BuildSecretAccessIndex parses secret-read records into a mapping of
// tenant ID to the ordered list of secret names accessed under that
// tenant, for every tenant in tenantIDs the matcher associates with the
// name. One record fans out to every matching tenant, so a name containing
// two tenant identifiers lands in both lists. Duplicates are retained and
// list order is event order.
//
// This is an O(records x |tenantIDs|) scan per batch. Fine at audit-log
// scale (hundreds to low thousands of records per run); a trie-backed
// matcher would be needed before pointing this at larger volumes.
func BuildSecretAccessIndex(records []models.TrailRecord, tenantIDs map[string]struct{}, m Matcher, diag Diag) map[string][]string {
	tenants := sortedKeys(tenantIDs)
	index := make(map[string][]string)

	for _, rec := range records {
		var body secretEventBody
		if err := json.Unmarshal([]byte(rec.CloudTrailEvent), &body); err != nil {
			diag.RecordMalformed(stageSecretRead, rec.EventID, err)
			continue
		}
		if body.EventName != models.EventNameGetParameter {
			diag.RecordSkipped(stageSecretRead, rec.EventID, "not a GetParameter event")
			continue
		}
		if body.RequestParameters == nil || body.RequestParameters.Name == "" {
			diag.RecordSkipped(stageSecretRead, rec.EventID, "missing parameter name")
			continue
		}

		name := body.RequestParameters.Name
		for _, tenant := range tenants {
			if m.Match(name, tenant) {
				index[tenant] = append(index[tenant], name)
			}
		}
	}

	return index
}

// sortedKeys returns the keys of set in lexicographic order.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
