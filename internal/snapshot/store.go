// Package snapshot persists and loads the materialized CloudTrail event
// snapshot a detection run operates on.
//
// The snapshot is the explicit boundary between ingestion and the
// correlation core: the engine asks the store what is available and either
// loads it or triggers a fetch, instead of individual code paths probing
// the filesystem as a side channel. The core itself never touches disk.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/secopsden/trailguard/internal/models"
)

// File names for the three captured event streams. They match the original
// capture format so existing snapshot directories remain loadable.
const (
	LaunchEventsFile     = "run_instances_events.json"
	AssumeRoleEventsFile = "assume_role_events.json"
	SecretReadEventsFile = "get_parameter_events.json"
)

// Snapshot holds the three event collections for one analysis run. It is a
// closed, static input: nothing is appended to it once loaded.
type Snapshot struct {
	LaunchRecords     []models.TrailRecord
	AssumeRecords     []models.TrailRecord
	SecretReadRecords []models.TrailRecord
}

// PreconditionError reports input collections that are absent or empty.
// Detection aborts on it rather than producing a misleading "not
// exploited" verdict over partial input.
type PreconditionError struct {
	// Missing names the unusable collections by file name.
	Missing []string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("snapshot incomplete: missing or empty %s", strings.Join(e.Missing, ", "))
}

// Validate returns a PreconditionError when any of the three collections
// is empty, nil otherwise.
func (s *Snapshot) Validate() error {
	var missing []string
	if len(s.LaunchRecords) == 0 {
		missing = append(missing, LaunchEventsFile)
	}
	if len(s.AssumeRecords) == 0 {
		missing = append(missing, AssumeRoleEventsFile)
	}
	if len(s.SecretReadRecords) == 0 {
		missing = append(missing, SecretReadEventsFile)
	}
	if len(missing) > 0 {
		return &PreconditionError{Missing: missing}
	}
	return nil
}

// Store reads and writes snapshots under a single directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily
// on first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the snapshot directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Missing returns the names of snapshot files not present in the store
// directory. An empty result means a complete snapshot is available and
// fetching can be skipped.
func (s *Store) Missing() []string {
	var missing []string
	for _, name := range []string{LaunchEventsFile, AssumeRoleEventsFile, SecretReadEventsFile} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// Load reads all three event files into a Snapshot. It fails on the first
// unreadable or undecodable file; per-record validity is the extractors'
// concern, not the store's.
func (s *Store) Load() (*Snapshot, error) {
	var snap Snapshot
	for _, part := range []struct {
		file string
		dest *[]models.TrailRecord
	}{
		{LaunchEventsFile, &snap.LaunchRecords},
		{AssumeRoleEventsFile, &snap.AssumeRecords},
		{SecretReadEventsFile, &snap.SecretReadRecords},
	} {
		records, err := s.loadFile(part.file)
		if err != nil {
			return nil, err
		}
		*part.dest = records
	}
	return &snap, nil
}

// Save writes all three collections as indented JSON, creating the store
// directory if needed. Existing files are overwritten.
func (s *Store) Save(snap *Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir %q: %w", s.dir, err)
	}
	for _, part := range []struct {
		file    string
		records []models.TrailRecord
	}{
		{LaunchEventsFile, snap.LaunchRecords},
		{AssumeRoleEventsFile, snap.AssumeRecords},
		{SecretReadEventsFile, snap.SecretReadRecords},
	} {
		if err := s.saveFile(part.file, part.records); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadFile(name string) ([]models.TrailRecord, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file %q: %w", path, err)
	}
	var records []models.TrailRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot file %q: %w", path, err)
	}
	return records, nil
}

func (s *Store) saveFile(name string, records []models.TrailRecord) error {
	path := filepath.Join(s.dir, name)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot file %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot file %q: %w", path, err)
	}
	return nil
}
