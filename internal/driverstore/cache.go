package driverstore

import (
	"errors"
	"fmt"
	"os"

	"github.com/spoolsmith/spoolsmith/internal/integrity"
)

// CacheResult describes the outcome of a payload cache lookup.
type CacheResult struct {
	// Hit is true when a verified payload already exists at Path.
	Hit bool

	// Path is the final payload location for the content address,
	// regardless of whether the lookup hit.
	Path string

	// Purged is true when a stale file was found at Path and deleted
	// because it no longer hashed to the expected digest.
	Purged bool
}

// Lookup checks whether a previously fetched payload for expectedDigest is
// present and still intact. A present file is always re-hashed; a corrupt
// entry is deleted and reported as a miss. Cache corruption never silently
// persists.
func (s *Store) Lookup(expectedDigest string) (CacheResult, error) {
	address, err := ContentAddress(expectedDigest)
	if err != nil {
		return CacheResult{}, err
	}
	path := s.PayloadPath(address)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return CacheResult{Path: path}, nil
		}
		return CacheResult{}, fmt.Errorf("checking cached payload: %w", err)
	}

	if err := integrity.VerifyFile(path, expectedDigest); err != nil {
		if errors.Is(err, integrity.ErrDigestMismatch) {
			// VerifyFile already removed the poisoned entry.
			return CacheResult{Path: path, Purged: true}, nil
		}
		return CacheResult{}, err
	}
	return CacheResult{Hit: true, Path: path}, nil
}
