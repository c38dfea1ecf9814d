package driverstore

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// addressPrefix tags content-address directories so they are
	// distinguishable from driver UUID directories under the store root.
	addressPrefix = "drv-"

	// addressDigestChars is the number of leading digest characters used
	// in a content address. Twelve hex characters (48 bits) is plenty to
	// avoid collisions within a single driver store.
	addressDigestChars = 12

	// sha256HexLength is the length of a hex-encoded SHA-256 digest.
	sha256HexLength = 64
)

var (
	hexRe        = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	driverUUIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)
)

// ContentAddress derives the directory-safe cache address for a payload from
// its expected SHA-256 digest. Identical digests always yield identical
// addresses, which is what makes the payload cache content-addressed.
func ContentAddress(expectedDigest string) (string, error) {
	if err := ValidateDigest(expectedDigest); err != nil {
		return "", err
	}
	return addressPrefix + strings.ToLower(expectedDigest[:addressDigestChars]), nil
}

// ValidateDigest checks that a digest is a well-formed hex-encoded SHA-256
// value. Validation happens before any network or filesystem activity, so a
// malformed digest can never produce a malformed store path.
func ValidateDigest(digest string) error {
	if len(digest) != sha256HexLength {
		return fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidDigest, sha256HexLength, len(digest))
	}
	if !hexRe.MatchString(digest) {
		return fmt.Errorf("%w: digest contains non-hex characters", ErrInvalidDigest)
	}
	return nil
}

// ValidateDriverUUID checks an installation's extraction namespace
// identifier. The pattern is deliberately restrictive: the UUID becomes a
// directory name component, so anything that could be interpreted as a path
// (dots, separators, short strings) is rejected.
func ValidateDriverUUID(uuid string) error {
	if uuid == "." || uuid == ".." {
		return fmt.Errorf("%w: %q is a reserved path component", ErrInvalidDriverUUID, uuid)
	}
	if !driverUUIDRe.MatchString(uuid) {
		return fmt.Errorf("%w: %q must be 8-64 characters of [A-Za-z0-9_-]", ErrInvalidDriverUUID, uuid)
	}
	return nil
}
