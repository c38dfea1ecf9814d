package driverstore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Promote merges a completed staging run into the driver's extracted
// directory. Files are overwritten in place and nothing in the destination
// is deleted. On success the staging directory is removed unless keep is
// set, which leaves it behind for inspection.
func (s *Store) Promote(driverUUID, runID string, keep bool) (int, error) {
	staging, err := s.StagingDir(driverUUID, runID)
	if err != nil {
		return 0, err
	}
	extracted, err := s.ExtractedDir(driverUUID)
	if err != nil {
		return 0, err
	}

	if _, err := os.Stat(staging); err != nil {
		return 0, fmt.Errorf("staging directory missing: %w", err)
	}
	if err := os.MkdirAll(extracted, 0o755); err != nil {
		return 0, fmt.Errorf("creating extracted directory: %w", err)
	}

	promoted := 0
	err = filepath.WalkDir(staging, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(staging, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		dst := filepath.Join(extracted, rel)

		if d.IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", dst, err)
			}
			return nil
		}

		if err := copyFile(path, dst); err != nil {
			return err
		}
		promoted++
		return nil
	})
	if err != nil {
		return promoted, fmt.Errorf("promoting staging run %s: %w", runID, err)
	}

	if !keep {
		if err := os.RemoveAll(staging); err != nil {
			return promoted, fmt.Errorf("removing staging directory: %w", err)
		}
		// Prune the _staging parent when no other runs remain.
		_ = os.Remove(filepath.Dir(staging))
	}
	return promoted, nil
}
