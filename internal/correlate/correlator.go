package correlate

import (
	"sort"

	"github.com/secopsden/trailguard/internal/models"
)

// RoleArnsOfInterest returns the set of role ARNs carried by launchFacts.
// It is the filter fed to ExtractAssumptionFacts.
func RoleArnsOfInterest(launchFacts map[string]models.LaunchFact) map[string]struct{} {
	arns := make(map[string]struct{}, len(launchFacts))
	for _, f := range launchFacts {
		arns[f.RoleArn] = struct{}{}
	}
	return arns
}

// TenantIDsOfInterest returns the set of tenant IDs carried by launchFacts.
// It is the filter fed to BuildSecretAccessIndex.
func TenantIDsOfInterest(launchFacts map[string]models.LaunchFact) map[string]struct{} {
	tenants := make(map[string]struct{}, len(launchFacts))
	for _, f := range launchFacts {
		tenants[f.TenantID] = struct{}{}
	}
	return tenants
}

// Correlate produces one CorrelationVerdict per launch fact and a run-level
// exploited flag that is true iff at least one instance is flagged.
//
// For each instance, every secret name recorded under the instance's own
// tenant is tested against every other tenant identifier observed in
// launchFacts (own tenant excluded) using m. Each hit is appended in
// discovery order: outer loop over the tenant's access list, inner loop
// over the other tenant IDs in lexicographic order, no deduplication.
//
// Instances are evaluated in lexicographic instance-ID order so two runs
// over identical inputs yield identical verdict lists (Go map iteration
// order is randomized and cannot serve as the documented evaluation
// order).
//
// Correlate performs no I/O and cannot fail: upstream extraction never
// materializes a fact with missing fields, so it is total over its inputs.
// Assumption facts are deliberately not consulted; gating verdicts on the
// assumed credential's access key is a documented extension point.
func Correlate(launchFacts map[string]models.LaunchFact, index map[string][]string, m Matcher) ([]models.CorrelationVerdict, bool) {
	tenants := sortedKeys(TenantIDsOfInterest(launchFacts))

	instanceIDs := make([]string, 0, len(launchFacts))
	for id := range launchFacts {
		instanceIDs = append(instanceIDs, id)
	}
	sort.Strings(instanceIDs)

	verdicts := make([]models.CorrelationVerdict, 0, len(instanceIDs))
	exploited := false

	for _, id := range instanceIDs {
		fact := launchFacts[id]
		verdict := models.CorrelationVerdict{
			InstanceID: fact.InstanceID,
			RoleArn:    fact.RoleArn,
			TenantID:   fact.TenantID,
		}

		for _, name := range index[fact.TenantID] {
			for _, other := range tenants {
				if other == fact.TenantID {
					continue
				}
				if m.Match(name, other) {
					verdict.MismatchedSecretNames = append(verdict.MismatchedSecretNames, name)
				}
			}
		}

		if verdict.Flagged() {
			exploited = true
		}
		verdicts = append(verdicts, verdict)
	}

	return verdicts, exploited
}
