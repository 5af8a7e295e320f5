package models

// Event names of interest in the CloudTrail streams trailguard analyzes.
// Collections handed to the extractors are believed, but not guaranteed, to
// be homogeneous; extractors filter by event name themselves rather than
// trust collection membership.
const (
	EventNameRunInstances = "RunInstances"
	EventNameAssumeRole   = "AssumeRole"
	EventNameGetParameter = "GetParameter"
)

// DefaultTenantTagKey is the instance tag whose value identifies the tenant
// (environment) an instance was provisioned for. Overridable via config or
// the --tenant-tag flag.
const DefaultTenantTagKey = "isolation.dev/tenant-id"

// TrailRecord is a single CloudTrail LookupEvents envelope. The interesting
// payload is CloudTrailEvent, a separately JSON-encoded event body that
// extractors decode per record. The JSON field names match the LookupEvents
// wire shape so previously captured snapshots load unchanged.
//
// TrailRecords are produced by the snapshot/collector layer and consumed
// read-only by the extraction core.
// EventTime stays a string: snapshots captured by other tooling carry
// timestamps in formats encoding/json cannot parse into time.Time, and
// nothing in the core depends on the value.
type TrailRecord struct {
	EventID         string `json:"EventId"`
	EventName       string `json:"EventName"`
	EventTime       string `json:"EventTime,omitempty"`
	Username        string `json:"Username,omitempty"`
	AccessKeyID     string `json:"AccessKeyId,omitempty"`
	CloudTrailEvent string `json:"CloudTrailEvent"`
}
