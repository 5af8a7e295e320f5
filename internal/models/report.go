package models

import "time"

// AnalysisSummary aggregates counts across one correlation run.
type AnalysisSummary struct {
	InstancesEvaluated int `json:"instances_evaluated"`
	InstancesFlagged   int `json:"instances_flagged"`
	TenantsObserved    int `json:"tenants_observed"`
	SecretReadsIndexed int `json:"secret_reads_indexed"`
	AssumptionsMatched int `json:"assumptions_matched"`
	RecordsSkipped     int `json:"records_skipped"`

	// Exploited is true iff at least one instance is flagged. A false value
	// with InstancesEvaluated > 0 is a genuine clean result; missing input
	// never reaches this point (it aborts the run instead).
	Exploited bool `json:"exploited"`
}

// AnalysisReport is the top-level output of a detection run.
type AnalysisReport struct {
	ReportID     string               `json:"report_id"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Profile      string               `json:"profile"`
	AccountID    string               `json:"account_id,omitempty"`
	Region       string               `json:"region"`
	LookbackDays int                  `json:"lookback_days"`
	TenantTagKey string               `json:"tenant_tag_key"`
	MatchMode    string               `json:"match_mode"`
	Summary      AnalysisSummary      `json:"summary"`
	Verdicts     []CorrelationVerdict `json:"verdicts"`
}
