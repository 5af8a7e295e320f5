package models

// LaunchFact ties a launched instance to the IAM role it was provisioned
// with and the tenant it belongs to. A fact is materialized only when all
// three fields were present in the launch record; partial facts are dropped
// during extraction, never stored with empty fields.
//
// Within one snapshot an instance ID maps to exactly one LaunchFact. When a
// snapshot contains more than one launch record for the same instance ID,
// the last parsed record wins.
type LaunchFact struct {
	InstanceID string `json:"instance_id"`
	RoleArn    string `json:"role_arn"`
	TenantID   string `json:"tenant_id"`
}

// AssumptionFact records a single issued temporary credential for a role of
// interest, keyed by the session token CloudTrail reports.
//
// Assumption facts are extracted and surfaced in the report summary but do
// not currently gate verdicts. The intended tightening, checking that the
// access key which performed a secret read was issued by an assumption of
// the instance's role, is an extension point; see Correlate.
type AssumptionFact struct {
	SessionID   string `json:"session_id"`
	AccessKeyID string `json:"access_key_id"`
}

// CorrelationVerdict is the per-instance outcome of a correlation run. An
// instance is flagged if and only if MismatchedSecretNames is non-empty:
// at least one secret name recorded under its own tenant's access list
// matches a different tenant's identifier.
//
// MismatchedSecretNames preserves discovery order and retains duplicates
// (a name can match via more than one foreign tenant identifier, or occur
// more than once in the underlying log).
type CorrelationVerdict struct {
	InstanceID            string   `json:"instance_id"`
	RoleArn               string   `json:"role_arn"`
	TenantID              string   `json:"tenant_id"`
	MismatchedSecretNames []string `json:"mismatched_secret_names,omitempty"`
}

// Flagged reports whether this verdict records cross-tenant secret access.
func (v CorrelationVerdict) Flagged() bool {
	return len(v.MismatchedSecretNames) > 0
}
