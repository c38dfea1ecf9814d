package driverstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePaths(t *testing.T) {
	s := New("/var/lib/spoolsmith")

	assert.Equal(t,
		filepath.Join("/var/lib/spoolsmith", "drv-a3f5b8c9d2e1", "payload", "payload.zip"),
		s.PayloadPath("drv-a3f5b8c9d2e1"))
	assert.Equal(t,
		filepath.Join("/var/lib/spoolsmith", "drv-a3f5b8c9d2e1", "payload", "payload.zip.part"),
		s.PartPath("drv-a3f5b8c9d2e1"))
}

func TestStagingDirPerRun(t *testing.T) {
	s := New(t.TempDir())

	a, err := s.StagingDir("printer-hp-4515x", NewRunID())
	require.NoError(t, err)
	b, err := s.StagingDir("printer-hp-4515x", NewRunID())
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "each run must get its own staging directory")
	assert.Contains(t, a, filepath.Join("printer-hp-4515x", "_staging"))
}

func TestStagingDirRejectsBadUUID(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.StagingDir("ab", "run1")
	assert.ErrorIs(t, err, ErrInvalidDriverUUID)

	_, err = s.ExtractedDir("../../etc")
	assert.ErrorIs(t, err, ErrInvalidDriverUUID)
}

func TestNewRunIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewRunID()
		assert.Len(t, id, 16)
		assert.False(t, seen[id], "run IDs must not repeat")
		seen[id] = true
	}
}
