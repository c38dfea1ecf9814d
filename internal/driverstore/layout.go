package driverstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const (
	payloadDirName   = "payload"
	payloadFileName  = "payload.zip"
	stagingDirName   = "_staging"
	extractedDirName = "extracted"
)

// Store represents a driver store rooted at a single directory.
type Store struct {
	root string
}

// New returns a Store rooted at root. The root directory is created on first
// write, not here, so constructing a Store is side-effect free.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the store root directory.
func (s *Store) Root() string {
	return s.root
}

// PayloadPath returns the final cache location for a payload with the given
// content address: <root>/<address>/payload/payload.zip.
func (s *Store) PayloadPath(address string) string {
	return filepath.Join(s.root, address, payloadDirName, payloadFileName)
}

// PartPath returns the temp-file sibling used while a payload download is in
// flight. A rename from here to PayloadPath is the only way a final payload
// file comes into existence.
func (s *Store) PartPath(address string) string {
	return s.PayloadPath(address) + ".part"
}

// StagingDir returns the run-scoped extraction workspace for one attempt:
// <root>/<uuid>/_staging/<run-id>. The caller owns the directory exclusively
// for the lifetime of the run.
func (s *Store) StagingDir(driverUUID, runID string) (string, error) {
	if err := ValidateDriverUUID(driverUUID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, driverUUID, stagingDirName, runID), nil
}

// ExtractedDir returns the semi-persistent extraction target for a driver:
// <root>/<uuid>/extracted. Content in this directory survives across runs
// and is overwritten in place, never cleared.
func (s *Store) ExtractedDir(driverUUID string) (string, error) {
	if err := ValidateDriverUUID(driverUUID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, driverUUID, extractedDirName), nil
}

// EnsureRoot creates the store root if it does not yet exist.
func (s *Store) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating driver store root: %w", err)
	}
	return nil
}

// NewRunID generates a fresh identifier for one staging run. Concurrent or
// retried installs of the same driver never share a staging directory.
func NewRunID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; if it somehow
		// does, a zero run ID would still be unique per store lifetime
		// only by accident, so fail loudly.
		panic(fmt.Sprintf("driverstore: reading random run id: %v", err))
	}
	return hex.EncodeToString(b[:])
}
