package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	cloudtrailsvc "github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/spf13/cobra"

	"github.com/secopsden/trailguard/internal/providers/aws/common"
	"github.com/secopsden/trailguard/internal/snapshot"
)

// DoctorResult is the structured output of trailguard doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable
// table (default).
type DoctorResult struct {
	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		RegionsOK   bool   `json:"regions_ok"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	CloudTrail struct {
		Reachable bool   `json:"reachable"`
		Error     string `json:"error,omitempty"`
	} `json:"cloudtrail"`

	Snapshot struct {
		Dir      string   `json:"dir"`
		Complete bool     `json:"complete"`
		Missing  []string `json:"missing,omitempty"`
	} `json:"snapshot"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			profile, _ := cmd.Flags().GetString("profile")
			snapshotDir, _ := cmd.Flags().GetString("snapshot-dir")
			result, err := runDoctor(
				context.Background(),
				common.NewDefaultAWSClientProvider(),
				snapshot.NewStore(snapshotDir),
				cmd.OutOrStdout(),
				format,
				profile,
			)
			if err != nil {
				// Rendering failure, let Cobra/main handle it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	cmd.Flags().String("profile", "", "AWS profile to use (default: credential chain)")
	cmd.Flags().String("snapshot-dir", ".", "Snapshot directory to inspect")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode
// error). Callers must inspect result.OverallHealthy; runDoctor never
// returns an error for an unhealthy environment.
func runDoctor(ctx context.Context, provider common.AWSClientProvider, store *snapshot.Store, w io.Writer, format, profile string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, provider, store, profile)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a
// DoctorResult. It performs no rendering; callers decide presentation.
//
// A complete local snapshot makes the environment healthy even without
// AWS access, since detection over an existing snapshot is fully offline.
func collectDoctorResult(ctx context.Context, provider common.AWSClientProvider, store *snapshot.Store, profile string) DoctorResult {
	var result DoctorResult

	// AWS: credentials -> STS account ID -> region discovery -> CloudTrail probe.
	if profile != "" {
		result.AWS.Profile = profile
	}
	profileCfg, err := provider.LoadProfile(ctx, profile)
	if err != nil {
		result.AWS.Error = err.Error()
		result.CloudTrail.Error = "skipped"
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
		if _, err := provider.GetActiveRegions(ctx, profileCfg); err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.RegionsOK = true
		}

		_, err := profileCfg.Clients.CloudTrail.DescribeTrails(ctx, &cloudtrailsvc.DescribeTrailsInput{})
		if err != nil {
			result.CloudTrail.Error = err.Error()
		} else {
			result.CloudTrail.Reachable = true
		}
	}

	// Snapshot: which event files are present.
	result.Snapshot.Dir = store.Dir()
	result.Snapshot.Missing = store.Missing()
	result.Snapshot.Complete = len(result.Snapshot.Missing) == 0

	awsHealthy := result.AWS.Credentials && result.AWS.RegionsOK && result.CloudTrail.Reachable
	result.OverallHealthy = awsHealthy || result.Snapshot.Complete

	return result
}

// renderDoctorTable writes the human-readable diagnostic output to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
		doctorPrint(w, "Regions API", "FAIL", "skipped")
		doctorPrint(w, "CloudTrail API", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		if result.AWS.RegionsOK {
			doctorPrint(w, "Regions API", "OK", "")
		} else {
			doctorPrint(w, "Regions API", "FAIL", result.AWS.Error)
		}
		if result.CloudTrail.Reachable {
			doctorPrint(w, "CloudTrail API", "OK", "")
		} else {
			doctorPrint(w, "CloudTrail API", "FAIL", result.CloudTrail.Error)
		}
	}

	fmt.Fprintf(w, "\nSnapshot (%s):\n", result.Snapshot.Dir)
	if result.Snapshot.Complete {
		doctorPrint(w, "Event files", "OK", "all three streams present")
	} else {
		for _, name := range result.Snapshot.Missing {
			doctorPrint(w, "Event files", "MISSING", name)
		}
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
