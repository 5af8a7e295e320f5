package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/secopsden/trailguard/internal/config"
	"github.com/secopsden/trailguard/internal/engine"
	"github.com/secopsden/trailguard/internal/models"
	"github.com/secopsden/trailguard/internal/output"
	"github.com/secopsden/trailguard/internal/providers/aws/common"
	"github.com/secopsden/trailguard/internal/providers/aws/trail"
	"github.com/secopsden/trailguard/internal/snapshot"
	"github.com/secopsden/trailguard/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trailguard",
		Short: "trailguard detects cross-tenant secret access in CloudTrail logs",
	}
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging (per-record skip diagnostics)")
	root.AddCommand(newDetectCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// newLogger builds the CLI logger. Log output goes to stderr so report
// output on stdout stays machine-consumable.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func newDetectCmd() *cobra.Command {
	var (
		profile      string
		region       string
		days         int
		snapshotDir  string
		fetch        bool
		tenantTag    string
		matchMode    string
		reportFmt    string
		summary      bool
		outputPath   string
		colored      bool
		failOnDetect bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect cross-tenant secret access in a CloudTrail event snapshot",
		Long: `Detect joins instance-launch, role-assumption and secret-read CloudTrail
events into per-instance verdicts of cross-tenant secret access. It runs
over the snapshot directory; with --fetch, missing event streams are
collected from CloudTrail first and persisted for later runs.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			log := newLogger(verbose)
			defer log.Sync() //nolint:errcheck // stderr sync failure is unactionable

			cfg, err := config.NewFileLoader("").Load()
			if err != nil {
				return err
			}
			applyConfigDefaults(cmd, cfg, &profile, &region, &snapshotDir, &tenantTag, &matchMode, &days)

			provider := common.NewDefaultAWSClientProvider()
			collector := trail.NewDefaultEventCollector(log)
			eng := engine.NewDetectEngine(provider, collector, log)

			report, err := eng.RunDetection(cmd.Context(), engine.DetectOptions{
				Profile:      profile,
				Region:       region,
				DaysBack:     days,
				SnapshotDir:  snapshotDir,
				Fetch:        fetch,
				TenantTagKey: tenantTag,
				MatchMode:    matchMode,
				ReportFormat: engine.ReportFormat(reportFmt),
			})
			if err != nil {
				return fmt.Errorf("detection failed: %w", err)
			}

			if outputPath != "" {
				if err := writeReportToFile(outputPath, report); err != nil {
					return err
				}
			}

			switch {
			case summary:
				output.RenderSummary(cmd.OutOrStdout(), report)
			case reportFmt == "json":
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			default:
				output.RenderTable(cmd.OutOrStdout(), report, output.TableOptions{Colored: colored})
			}

			if failOnDetect && report.Summary.Exploited {
				// Exit directly so no error text reaches main's stderr path;
				// the report itself is the explanation.
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name used when fetching (default: environment / default profile)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region whose CloudTrail is queried when fetching (default: profile home region)")
	cmd.Flags().IntVar(&days, "days", 0, "Lookback window in days for CloudTrail queries (default 90)")
	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", ".", "Directory holding the three event snapshot files")
	cmd.Flags().BoolVar(&fetch, "fetch", false, "Fetch missing event streams from CloudTrail and persist them")
	cmd.Flags().StringVar(&tenantTag, "tenant-tag", "", "Instance tag key identifying the owning tenant (default "+models.DefaultTenantTagKey+")")
	cmd.Flags().StringVar(&matchMode, "match", "", `Tenant matching strategy: "substring" (default, compatible) or "exact-segment"`)
	cmd.Flags().StringVar(&reportFmt, "report", "table", "Output format: json or table")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print compact counters-only summary")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write full JSON report to this file path (in addition to stdout output)")
	cmd.Flags().BoolVar(&colored, "color", false, "Colorize verdict status in table output")
	cmd.Flags().BoolVar(&failOnDetect, "fail-on-detect", true, "Exit with code 1 when cross-tenant access is found (CI gate)")

	return cmd
}

func newFetchCmd() *cobra.Command {
	var (
		profile     string
		region      string
		days        int
		snapshotDir string
		force       bool
	)

	cmd := &cobra.Command{
		Use:          "fetch",
		Short:        "Fetch the three CloudTrail event streams into a snapshot directory",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			log := newLogger(verbose)
			defer log.Sync() //nolint:errcheck

			cfg, err := config.NewFileLoader("").Load()
			if err != nil {
				return err
			}
			var tenantTag, matchMode string
			applyConfigDefaults(cmd, cfg, &profile, &region, &snapshotDir, &tenantTag, &matchMode, &days)

			return runFetch(cmd, log, profile, region, days, snapshotDir, force)
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name (default: environment / default profile)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region whose CloudTrail is queried (default: profile home region)")
	cmd.Flags().IntVar(&days, "days", 0, "Lookback window in days (default 90)")
	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", ".", "Directory receiving the snapshot files")
	cmd.Flags().BoolVar(&force, "force", false, "Re-fetch even when a complete snapshot already exists")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// applyConfigDefaults fills unset flag values from the config file.
// Explicitly passed flags always win.
func applyConfigDefaults(
	cmd *cobra.Command,
	cfg *config.Config,
	profile, region, snapshotDir, tenantTag, matchMode *string,
	days *int,
) {
	if *profile == "" {
		*profile = cfg.AWS.DefaultProfile
	}
	if *region == "" {
		*region = cfg.AWS.DefaultRegion
	}
	if !cmd.Flags().Changed("snapshot-dir") && cfg.Analysis.SnapshotDir != "" {
		*snapshotDir = cfg.Analysis.SnapshotDir
	}
	if *tenantTag == "" {
		*tenantTag = cfg.Analysis.TenantTagKey
	}
	if *matchMode == "" {
		*matchMode = cfg.Analysis.MatchMode
	}
	if *days == 0 && cfg.Analysis.Days > 0 {
		*days = cfg.Analysis.Days
	}
}

// runFetch collects the three event streams and persists them to
// snapshotDir. A complete snapshot is left untouched unless force is set.
func runFetch(cmd *cobra.Command, log *zap.Logger, profile, region string, days int, snapshotDir string, force bool) error {
	store := snapshot.NewStore(snapshotDir)
	if !force && len(store.Missing()) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Snapshot in %s is complete; use --force to re-fetch.\n", store.Dir())
		return nil
	}

	provider := common.NewDefaultAWSClientProvider()
	collector := trail.NewDefaultEventCollector(log)

	profileCfg, err := provider.LoadProfile(cmd.Context(), profile)
	if err != nil {
		return err
	}
	client := profileCfg.Clients.CloudTrail
	if region != "" && region != profileCfg.Region {
		client = common.NewClientSet(provider.ConfigForRegion(profileCfg, region)).CloudTrail
	}

	snap, err := collector.CollectAll(cmd.Context(), client, days)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	if err := store.Save(snap); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved snapshot to %s (launch=%d assume=%d secret-read=%d)\n",
		store.Dir(), len(snap.LaunchRecords), len(snap.AssumeRecords), len(snap.SecretReadRecords))
	return nil
}

// printJSON writes the report as indented JSON to w.
func printJSON(w io.Writer, report *models.AnalysisReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// writeReportToFile serialises report as indented JSON and writes it to
// path, creating or overwriting the file. It does not affect stdout output.
func writeReportToFile(path string, report *models.AnalysisReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}
