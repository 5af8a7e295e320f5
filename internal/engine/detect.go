package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/secopsden/trailguard/internal/correlate"
	"github.com/secopsden/trailguard/internal/models"
	"github.com/secopsden/trailguard/internal/providers/aws/common"
	"github.com/secopsden/trailguard/internal/providers/aws/trail"
	"github.com/secopsden/trailguard/internal/snapshot"
)

// DetectEngine implements Engine. It ensures a complete event snapshot is
// available (loading it, or fetching and persisting it when permitted),
// enforces input preconditions, runs the three extractors, correlates, and
// assembles the report.
//
// AWS is touched only when fetching; a run over a complete snapshot needs
// no credentials at all.
type DetectEngine struct {
	provider  common.AWSClientProvider
	collector trail.EventCollector
	log       *zap.Logger

	// clientFactory builds region-scoped clients when --region differs
	// from the profile's home region. Replaceable in tests.
	clientFactory common.ClientFactory
}

// NewDetectEngine constructs a DetectEngine wired to the supplied provider
// and collector.
func NewDetectEngine(provider common.AWSClientProvider, collector trail.EventCollector, log *zap.Logger) *DetectEngine {
	return &DetectEngine{
		provider:      provider,
		collector:     collector,
		log:           log,
		clientFactory: common.NewClientSet,
	}
}

// RunDetection implements Engine.
func (e *DetectEngine) RunDetection(ctx context.Context, opts DetectOptions) (*models.AnalysisReport, error) {
	matcher, err := correlate.MatcherForMode(opts.MatchMode)
	if err != nil {
		return nil, err
	}
	tagKey := opts.TenantTagKey
	if tagKey == "" {
		tagKey = models.DefaultTenantTagKey
	}
	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = 90
	}

	store := snapshot.NewStore(opts.SnapshotDir)
	snap, accountID, region, err := e.ensureSnapshot(ctx, store, opts, daysBack)
	if err != nil {
		return nil, err
	}

	// Empty collections abort here: a run over missing input must fail
	// loudly, never report "not exploited".
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	diag := correlate.NewZapDiag(e.log)

	launchFacts := correlate.ExtractLaunchFacts(snap.LaunchRecords, tagKey, diag)
	roleArns := correlate.RoleArnsOfInterest(launchFacts)
	tenantIDs := correlate.TenantIDsOfInterest(launchFacts)

	assumptions := correlate.ExtractAssumptionFacts(snap.AssumeRecords, roleArns, diag)
	index := correlate.BuildSecretAccessIndex(snap.SecretReadRecords, tenantIDs, matcher, diag)

	verdicts, exploited := correlate.Correlate(launchFacts, index, matcher)

	flagged := 0
	for _, v := range verdicts {
		if v.Flagged() {
			flagged++
		}
	}
	indexed := 0
	for _, names := range index {
		indexed += len(names)
	}

	report := &models.AnalysisReport{
		ReportID:     uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		Profile:      profileDisplayName(opts.Profile),
		AccountID:    accountID,
		Region:       region,
		LookbackDays: daysBack,
		TenantTagKey: tagKey,
		MatchMode:    matcher.Mode(),
		Summary: models.AnalysisSummary{
			InstancesEvaluated: len(verdicts),
			InstancesFlagged:   flagged,
			TenantsObserved:    len(tenantIDs),
			SecretReadsIndexed: indexed,
			AssumptionsMatched: len(assumptions),
			RecordsSkipped:     diag.Skipped(),
			Exploited:          exploited,
		},
		Verdicts: verdicts,
	}

	e.log.Info("detection run complete",
		zap.String("report_id", report.ReportID),
		zap.Int("instances", len(verdicts)),
		zap.Int("flagged", flagged),
		zap.Bool("exploited", exploited),
	)
	return report, nil
}

// ensureSnapshot returns the snapshot for this run. A complete snapshot
// directory is loaded as-is; an incomplete one is fetched from CloudTrail
// and persisted when opts.Fetch allows it, and is otherwise a precondition
// failure naming the missing files.
//
// The returned accountID and region are empty for snapshot-only runs,
// which never load AWS credentials.
func (e *DetectEngine) ensureSnapshot(
	ctx context.Context,
	store *snapshot.Store,
	opts DetectOptions,
	daysBack int,
) (*snapshot.Snapshot, string, string, error) {
	missing := store.Missing()
	if len(missing) == 0 {
		e.log.Info("using existing snapshot", zap.String("dir", store.Dir()))
		snap, err := store.Load()
		if err != nil {
			return nil, "", "", err
		}
		return snap, "", opts.Region, nil
	}

	if !opts.Fetch {
		return nil, "", "", &snapshot.PreconditionError{Missing: missing}
	}

	profile, err := e.provider.LoadProfile(ctx, opts.Profile)
	if err != nil {
		return nil, "", "", fmt.Errorf("load profile %q: %w", opts.Profile, err)
	}

	region := opts.Region
	client := profile.Clients.CloudTrail
	if region == "" {
		region = profile.Region
	} else if region != profile.Region {
		regional := e.provider.ConfigForRegion(profile, region)
		client = e.clientFactory(regional).CloudTrail
	}

	e.log.Info("fetching events from CloudTrail",
		zap.String("profile", profile.ProfileName),
		zap.String("region", region),
		zap.Int("days", daysBack),
	)
	snap, err := e.collector.CollectAll(ctx, client, daysBack)
	if err != nil {
		return nil, "", "", fmt.Errorf("collect events for profile %q: %w", profile.ProfileName, err)
	}
	if err := store.Save(snap); err != nil {
		return nil, "", "", err
	}
	return snap, profile.AccountID, region, nil
}

func profileDisplayName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}
