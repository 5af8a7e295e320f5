package engine

import (
	"context"

	"github.com/secopsden/trailguard/internal/models"
)

// ReportFormat controls the CLI output format.
type ReportFormat string

const (
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatTable ReportFormat = "table"
)

// DetectOptions configures a single detection run.
// It is the sole input to Engine.RunDetection.
type DetectOptions struct {
	// Profile is the named AWS profile to use when fetching. Empty means
	// the default credential chain. Unused for snapshot-only runs.
	Profile string

	// Region is the region whose CloudTrail is queried when fetching.
	// Empty means the profile's home region.
	Region string

	// DaysBack is the CloudTrail lookback window in days for fetching.
	// Defaults to 90 when zero.
	DaysBack int

	// SnapshotDir is the directory holding (or receiving) the three event
	// files for this run.
	SnapshotDir string

	// Fetch permits collecting missing event streams from CloudTrail and
	// persisting them to SnapshotDir. When false, an incomplete snapshot
	// is a precondition failure rather than a trigger to go to the network.
	Fetch bool

	// TenantTagKey is the instance tag identifying the owning tenant.
	// Defaults to models.DefaultTenantTagKey when empty.
	TenantTagKey string

	// MatchMode selects the tenant/secret-name matching strategy:
	// "substring" (default) or "exact-segment".
	MatchMode string

	// ReportFormat controls how the CLI renders the returned report.
	ReportFormat ReportFormat
}

// Engine is the central orchestration interface. It coordinates snapshot
// availability, CloudTrail collection, fact extraction, and correlation,
// returning a fully populated AnalysisReport.
//
// Engine must not decode CloudTrail bodies or apply matching logic itself;
// it delegates to the snapshot store, the trail collector, and the
// correlate package.
type Engine interface {
	RunDetection(ctx context.Context, opts DetectOptions) (*models.AnalysisReport, error)
}
