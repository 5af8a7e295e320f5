package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cloudtrailsvc "github.com/aws/aws-sdk-go-v2/service/cloudtrail"

	"github.com/secopsden/trailguard/internal/providers/aws/common"
	"github.com/secopsden/trailguard/internal/snapshot"
)

// ── AWS mocks ─────────────────────────────────────────────────────────────────

type mockAWSProvider struct {
	profileResult *common.ProfileConfig
	profileErr    error
	regionsResult []string
	regionsErr    error
	lastProfile   string // records the profile name passed to LoadProfile
}

func (m *mockAWSProvider) LoadProfile(_ context.Context, profile string) (*common.ProfileConfig, error) {
	m.lastProfile = profile
	return m.profileResult, m.profileErr
}

func (m *mockAWSProvider) GetActiveRegions(_ context.Context, _ *common.ProfileConfig) ([]string, error) {
	return m.regionsResult, m.regionsErr
}

func (m *mockAWSProvider) ConfigForRegion(_ *common.ProfileConfig, _ string) aws.Config {
	return aws.Config{}
}

// mockTrailClient satisfies common.CloudTrailClient. DescribeTrails fails with
// describeErr when set.
type mockTrailClient struct {
	describeErr error
}

func (c *mockTrailClient) LookupEvents(_ context.Context, _ *cloudtrailsvc.LookupEventsInput, _ ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.LookupEventsOutput, error) {
	return &cloudtrailsvc.LookupEventsOutput{}, nil
}

func (c *mockTrailClient) DescribeTrails(_ context.Context, _ *cloudtrailsvc.DescribeTrailsInput, _ ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.DescribeTrailsOutput, error) {
	if c.describeErr != nil {
		return nil, c.describeErr
	}
	return &cloudtrailsvc.DescribeTrailsOutput{}, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func goodMockAWS() *mockAWSProvider {
	return &mockAWSProvider{
		profileResult: &common.ProfileConfig{
			ProfileName: "default",
			AccountID:   "123456789012",
			Region:      "us-east-1",
			Clients:     &common.ClientSet{CloudTrail: &mockTrailClient{}},
		},
		regionsResult: []string{"us-east-1", "eu-west-1"},
	}
}

// writeCompleteSnapshot drops minimal versions of all three event files into
// dir so the store reports a complete snapshot.
func writeCompleteSnapshot(t *testing.T, dir string) {
	t.Helper()
	for _, name := range []string{
		snapshot.LaunchEventsFile,
		snapshot.AssumeRoleEventsFile,
		snapshot.SecretReadEventsFile,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// runDoctorTo runs runDoctor against an empty temp snapshot directory and
// returns the captured output, the DoctorResult, and any rendering error.
func runDoctorTo(t *testing.T, provider common.AWSClientProvider, format, profile string) (string, DoctorResult, error) {
	t.Helper()
	var buf bytes.Buffer
	result, err := runDoctor(context.Background(), provider, snapshot.NewStore(t.TempDir()), &buf, format, profile)
	return buf.String(), result, err
}

// ── table format tests ────────────────────────────────────────────────────────

func TestDoctorAllOK(t *testing.T) {
	out, result, err := runDoctorTo(t, goodMockAWS(), "table", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy {
		t.Error("expected OverallHealthy=true")
	}
	for _, want := range []string{
		"Credentials: OK",
		"STS Identity: OK",
		"Regions API: OK",
		"CloudTrail API: OK",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

func TestDoctorCredentialsFail(t *testing.T) {
	provider := &mockAWSProvider{profileErr: errors.New("no credentials configured")}
	out, result, err := runDoctorTo(t, provider, "table", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false")
	}
	if !strings.Contains(out, "Credentials: FAIL") {
		t.Errorf("expected 'Credentials: FAIL'; got:\n%s", out)
	}
	if !strings.Contains(out, "CloudTrail API: FAIL (skipped)") {
		t.Errorf("expected CloudTrail check skipped; got:\n%s", out)
	}
}

func TestDoctorRegionsFail(t *testing.T) {
	provider := goodMockAWS()
	provider.regionsResult = nil
	provider.regionsErr = errors.New("EC2 API error")
	out, result, err := runDoctorTo(t, provider, "table", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false")
	}
	if !strings.Contains(out, "Credentials: OK") {
		t.Errorf("expected 'Credentials: OK'; got:\n%s", out)
	}
	if !strings.Contains(out, "Regions API: FAIL") {
		t.Errorf("expected 'Regions API: FAIL'; got:\n%s", out)
	}
}

func TestDoctorCloudTrailFail(t *testing.T) {
	provider := goodMockAWS()
	provider.profileResult.Clients = &common.ClientSet{
		CloudTrail: &mockTrailClient{describeErr: errors.New("AccessDenied")},
	}
	out, result, err := runDoctorTo(t, provider, "table", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false")
	}
	if !strings.Contains(out, "CloudTrail API: FAIL (AccessDenied)") {
		t.Errorf("expected CloudTrail failure with cause; got:\n%s", out)
	}
}

func TestDoctorCompleteSnapshotIsHealthyOffline(t *testing.T) {
	dir := t.TempDir()
	writeCompleteSnapshot(t, dir)

	provider := &mockAWSProvider{profileErr: errors.New("no credentials configured")}
	var buf bytes.Buffer
	result, err := runDoctor(context.Background(), provider, snapshot.NewStore(dir), &buf, "table", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy {
		t.Error("expected OverallHealthy=true: complete snapshot works without AWS access")
	}
	if !strings.Contains(buf.String(), "all three streams present") {
		t.Errorf("expected complete snapshot line; got:\n%s", buf.String())
	}
}

func TestDoctorListsMissingSnapshotFiles(t *testing.T) {
	out, _, err := runDoctorTo(t, goodMockAWS(), "table", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	for _, name := range []string{
		snapshot.LaunchEventsFile,
		snapshot.AssumeRoleEventsFile,
		snapshot.SecretReadEventsFile,
	} {
		if !strings.Contains(out, name) {
			t.Errorf("expected missing file %q to be listed; got:\n%s", name, out)
		}
	}
}

func TestDoctorForwardsProfileFlag(t *testing.T) {
	provider := goodMockAWS()
	if _, _, err := runDoctorTo(t, provider, "table", "audit"); err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if provider.lastProfile != "audit" {
		t.Errorf("expected LoadProfile to receive %q, got %q", "audit", provider.lastProfile)
	}
}

// ── JSON format tests ─────────────────────────────────────────────────────────

func TestDoctorJSONFormat(t *testing.T) {
	out, result, err := runDoctorTo(t, goodMockAWS(), "json", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}

	var decoded DoctorResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if decoded.AWS.AccountID != "123456789012" {
		t.Errorf("expected account ID in JSON, got %q", decoded.AWS.AccountID)
	}
	if decoded.OverallHealthy != result.OverallHealthy {
		t.Error("JSON output disagrees with returned result")
	}
	if decoded.Snapshot.Complete {
		t.Error("expected snapshot incomplete in empty temp dir")
	}
}
