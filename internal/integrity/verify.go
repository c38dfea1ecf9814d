// Package integrity provides streaming cryptographic verification of payload
// files. Files are hashed in bounded chunks so verification never loads a
// whole payload into memory.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// chunkSize bounds the read buffer used while hashing (256 KiB).
const chunkSize = 256 * 1024

// ErrDigestMismatch indicates a file hashed to a value other than the
// expected digest. It is distinct from I/O errors so callers can purge the
// offending file rather than retry.
var ErrDigestMismatch = errors.New("digest mismatch")

// MismatchError carries the evidence of a failed verification. It wraps
// ErrDigestMismatch for errors.Is classification.
type MismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("digest mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

func (e *MismatchError) Unwrap() error { return ErrDigestMismatch }

// HashFile streams the file at path through SHA-256 and returns the
// lowercase hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFile hashes the file at path and compares it with expectedDigest
// (case-insensitive). On mismatch the file is deleted before the
// *MismatchError is returned, so a stale or poisoned file can never satisfy
// a later cache lookup.
func VerifyFile(path, expectedDigest string) error {
	actual, err := HashFile(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expectedDigest) {
		mismatch := &MismatchError{
			Path:     path,
			Expected: strings.ToLower(expectedDigest),
			Actual:   actual,
		}
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("%w (additionally failed to remove file: %v)", mismatch, rmErr)
		}
		return mismatch
	}
	return nil
}
