package driverstore

import "errors"

var (
	// ErrInvalidDigest indicates a malformed expected-digest value.
	// Fatal: never retried.
	ErrInvalidDigest = errors.New("invalid payload digest")

	// ErrInvalidDriverUUID indicates a driver UUID that fails the
	// restrictive namespace pattern. Fatal: never retried.
	ErrInvalidDriverUUID = errors.New("invalid driver uuid")

	// ErrSourceRootMissing indicates the effective materialization source
	// root does not exist or is not a directory.
	ErrSourceRootMissing = errors.New("materialize source root missing")
)
