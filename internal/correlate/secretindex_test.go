package correlate

import (
	"reflect"
	"testing"

	"github.com/secopsden/trailguard/internal/models"
)

// secretBody builds a GetParameter event body for name. An empty name
// omits the request parameters entirely.
func secretBody(name string) map[string]any {
	body := map[string]any{"eventName": models.EventNameGetParameter}
	if name != "" {
		body["requestParameters"] = map[string]any{"name": name}
	}
	return body
}

func tenantSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestBuildSecretAccessIndex_SingleTenantMatch(t *testing.T) {
	records := []models.TrailRecord{
		trailRecord(t, "e-1", secretBody("/envA/db-password")),
	}
	index := BuildSecretAccessIndex(records, tenantSet("envA", "envB"), SubstringMatcher{}, NopDiag{})
	if !reflect.DeepEqual(index["envA"], []string{"/envA/db-password"}) {
		t.Errorf("unexpected envA list: %v", index["envA"])
	}
	if len(index["envB"]) != 0 {
		t.Errorf("expected no envB entries, got %v", index["envB"])
	}
}

func TestBuildSecretAccessIndex_FanOutToEveryContainedTenant(t *testing.T) {
	// A name containing two tenant identifiers must land in both lists.
	records := []models.TrailRecord{
		trailRecord(t, "e-1", secretBody("/envA/copied-from-envB/token")),
	}
	index := BuildSecretAccessIndex(records, tenantSet("envA", "envB"), SubstringMatcher{}, NopDiag{})
	for _, tenant := range []string{"envA", "envB"} {
		if !reflect.DeepEqual(index[tenant], []string{"/envA/copied-from-envB/token"}) {
			t.Errorf("expected fan-out entry for %s, got %v", tenant, index[tenant])
		}
	}
}

func TestBuildSecretAccessIndex_NoTenantMatchContributesNothing(t *testing.T) {
	records := []models.TrailRecord{
		trailRecord(t, "e-1", secretBody("/shared/ami-key")),
	}
	index := BuildSecretAccessIndex(records, tenantSet("envA", "envB"), SubstringMatcher{}, NopDiag{})
	if len(index) != 0 {
		t.Errorf("expected empty index, got %v", index)
	}
}

func TestBuildSecretAccessIndex_OrderAndDuplicatesPreserved(t *testing.T) {
	records := []models.TrailRecord{
		trailRecord(t, "e-1", secretBody("/envA/first")),
		trailRecord(t, "e-2", secretBody("/envA/second")),
		trailRecord(t, "e-3", secretBody("/envA/first")),
	}
	index := BuildSecretAccessIndex(records, tenantSet("envA"), SubstringMatcher{}, NopDiag{})
	want := []string{"/envA/first", "/envA/second", "/envA/first"}
	if !reflect.DeepEqual(index["envA"], want) {
		t.Errorf("expected event-ordered list with duplicates %v, got %v", want, index["envA"])
	}
}

func TestBuildSecretAccessIndex_SkipsNonSecretReadEvents(t *testing.T) {
	records := []models.TrailRecord{
		trailRecord(t, "e-1", map[string]any{"eventName": "PutParameter"}),
		trailRecord(t, "e-2", secretBody("")),
		{EventID: "e-3", CloudTrailEvent: "???"},
	}
	index := BuildSecretAccessIndex(records, tenantSet("envA"), SubstringMatcher{}, NopDiag{})
	if len(index) != 0 {
		t.Errorf("expected empty index, got %v", index)
	}
}

func TestBuildSecretAccessIndex_ExactSegmentRejectsSubstringOverlap(t *testing.T) {
	// "env" is a substring of "envA"; exact-segment matching must not
	// associate envA's secret with tenant "env".
	records := []models.TrailRecord{
		trailRecord(t, "e-1", secretBody("/envA/db-password")),
	}
	index := BuildSecretAccessIndex(records, tenantSet("env", "envA"), ExactSegmentMatcher{}, NopDiag{})
	if len(index["env"]) != 0 {
		t.Errorf("exact-segment matcher associated substring tenant: %v", index["env"])
	}
	if !reflect.DeepEqual(index["envA"], []string{"/envA/db-password"}) {
		t.Errorf("unexpected envA list: %v", index["envA"])
	}
}

func TestMatcherForMode(t *testing.T) {
	tests := []struct {
		mode     string
		wantMode string
		wantErr  bool
	}{
		{"", MatchModeSubstring, false},
		{MatchModeSubstring, MatchModeSubstring, false},
		{MatchModeExactSegment, MatchModeExactSegment, false},
		{"regex", "", true},
	}
	for _, tt := range tests {
		m, err := MatcherForMode(tt.mode)
		if tt.wantErr {
			if err == nil {
				t.Errorf("MatcherForMode(%q): expected error", tt.mode)
			}
			continue
		}
		if err != nil {
			t.Errorf("MatcherForMode(%q): %v", tt.mode, err)
			continue
		}
		if m.Mode() != tt.wantMode {
			t.Errorf("MatcherForMode(%q) = %q, want %q", tt.mode, m.Mode(), tt.wantMode)
		}
	}
}
