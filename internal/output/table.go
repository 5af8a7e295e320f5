// Package output renders analysis reports for humans. All rendering stays
// out of the correlation core; the core hands over verdicts, this package
// decides how they look.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/secopsden/trailguard/internal/models"
)

// ANSI color codes for verdict output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiGreen   = "\033[0;32m"
)

// Verdict status labels.
const (
	statusFlagged = "FLAGGED"
	statusClean   = "CLEAN"
)

// TableOptions controls how RenderTable renders a report.
type TableOptions struct {
	// Colored wraps status labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// MaxSecretNameLen truncates long secret names in the detail listing.
	// Zero means no truncation.
	MaxSecretNameLen int
}

// colorStatus wraps a verdict status with ANSI codes when colored is true.
func colorStatus(status string, colored bool) string {
	if !colored {
		return status
	}
	switch status {
	case statusFlagged:
		return ansiBoldRed + status + ansiReset
	case statusClean:
		return ansiGreen + status + ansiReset
	default:
		return status
	}
}

// ShortenName truncates name to at most max runes, appending "..." when
// truncated. max <= 0 disables truncation; otherwise it is treated as at
// least 4 to guarantee space for the ellipsis.
func ShortenName(name string, max int) string {
	if max <= 0 {
		return name
	}
	if max < 4 {
		max = 4
	}
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	return string(runes[:max-3]) + "..."
}

// RenderTable writes a header line, a per-instance verdict table, and a
// mismatch detail listing for flagged instances to w.
func RenderTable(w io.Writer, report *models.AnalysisReport, opts TableOptions) {
	s := report.Summary
	fmt.Fprintf(w,
		"Profile: %-20s  Region: %-15s  Instances: %d  Flagged: %d  Skipped records: %d\n",
		report.Profile,
		report.Region,
		s.InstancesEvaluated,
		s.InstancesFlagged,
		s.RecordsSkipped,
	)

	if len(report.Verdicts) == 0 {
		fmt.Fprintln(w, "No instances evaluated.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-20s  %-24s  %-10s  %s\n", "INSTANCE ID", "TENANT", "STATUS", "MISMATCHES")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, v := range report.Verdicts {
		status := statusClean
		if v.Flagged() {
			status = statusFlagged
		}
		fmt.Fprintf(w, "%-20s  %-24s  %-10s  %d\n",
			v.InstanceID,
			v.TenantID,
			colorStatus(status, opts.Colored),
			len(v.MismatchedSecretNames),
		)
	}

	for _, v := range report.Verdicts {
		if !v.Flagged() {
			continue
		}
		fmt.Fprintf(w, "\nInstance %s (tenant %s, role %s) accessed secrets outside its tenant:\n",
			v.InstanceID, v.TenantID, v.RoleArn)
		for _, name := range v.MismatchedSecretNames {
			fmt.Fprintf(w, "  - %s\n", ShortenName(name, opts.MaxSecretNameLen))
		}
	}

	fmt.Fprintln(w)
	if s.Exploited {
		fmt.Fprintf(w, "%s: cross-tenant secret access detected on %d instance(s).\n",
			colorStatus(statusFlagged, opts.Colored), s.InstancesFlagged)
	} else {
		fmt.Fprintln(w, "No cross-tenant secret access found in this snapshot.")
	}
}

// RenderSummary writes a compact counters-only view of the report to w.
func RenderSummary(w io.Writer, report *models.AnalysisReport) {
	s := report.Summary
	fmt.Fprintf(w, "Report:    %s\n", report.ReportID)
	fmt.Fprintf(w, "Profile:   %s\n", report.Profile)
	if report.AccountID != "" {
		fmt.Fprintf(w, "Account:   %s\n", report.AccountID)
	}
	fmt.Fprintf(w, "Match:     %s (tag %s)\n", report.MatchMode, report.TenantTagKey)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Instances evaluated:   %d\n", s.InstancesEvaluated)
	fmt.Fprintf(w, "Instances flagged:     %d\n", s.InstancesFlagged)
	fmt.Fprintf(w, "Tenants observed:      %d\n", s.TenantsObserved)
	fmt.Fprintf(w, "Secret reads indexed:  %d\n", s.SecretReadsIndexed)
	fmt.Fprintf(w, "Assumptions matched:   %d\n", s.AssumptionsMatched)
	fmt.Fprintf(w, "Records skipped:       %d\n", s.RecordsSkipped)
	fmt.Fprintln(w)
	if s.Exploited {
		fmt.Fprintln(w, "RESULT: VULNERABILITY EXPLOITED")
	} else {
		fmt.Fprintln(w, "RESULT: no exploitation found")
	}
}
