package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
aws:
  default_profile: audit
  default_region: eu-central-1
analysis:
  tenant_tag_key: platform.example.com/tenant
  match_mode: exact-segment
  snapshot_dir: /var/lib/trailguard
  days: 30
`), 0o644))

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "audit", cfg.AWS.DefaultProfile)
	assert.Equal(t, "eu-central-1", cfg.AWS.DefaultRegion)
	assert.Equal(t, "platform.example.com/tenant", cfg.Analysis.TenantTagKey)
	assert.Equal(t, "exact-segment", cfg.Analysis.MatchMode)
	assert.Equal(t, "/var/lib/trailguard", cfg.Analysis.SnapshotDir)
	assert.Equal(t, 30, cfg.Analysis.Days)
}

func TestFileLoader_MissingFileYieldsZeroConfig(t *testing.T) {
	cfg, err := NewFileLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestFileLoader_InvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aws: ["), 0o644))

	_, err := NewFileLoader(path).Load()
	assert.Error(t, err)
}
