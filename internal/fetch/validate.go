package fetch

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL indicates a payload URL that fails strict validation.
// Fatal: never retried.
var ErrInvalidURL = errors.New("invalid payload URL")

var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"s3":    true,
}

// ValidateURL strictly validates a payload URL before any network activity:
// it must parse as an absolute URL with an allowed scheme and a host, and
// must not contain a doubled scheme, the fingerprint of naive string
// concatenation upstream (e.g. "https://https://host/x").
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}
	if !allowedSchemes[u.Scheme] {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	if strings.Count(raw, "://") > 1 {
		return nil, fmt.Errorf("%w: %q contains a doubled scheme", ErrInvalidURL, raw)
	}
	return u, nil
}
