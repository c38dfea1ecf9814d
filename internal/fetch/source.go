package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Source opens a payload stream for a URL. The HTTP source handles http and
// https; an S3 source can be registered for s3 URLs.
type Source interface {
	// Open returns the payload body and the declared content length
	// (-1 when unknown). The returned reader must be closed by the caller.
	Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error)
}

var (
	// ErrEmptyBody indicates a response that was formally successful but
	// carried no payload (declared length zero or nothing streamed).
	ErrEmptyBody = errors.New("empty payload body")

	// ErrHTTPStatus indicates a response status outside the strict
	// success contract.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// StatusError carries the offending status code. It wraps ErrHTTPStatus.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

func (e *StatusError) Unwrap() error { return ErrHTTPStatus }

// HTTPSource fetches payloads over http/https.
type HTTPSource struct {
	Client *http.Client
}

// Open implements Source. The success contract is strict: only 2xx statuses
// are accepted, and 204/205 are rejected outright; they are "successful"
// responses that by definition carry no payload, and accepting them is how
// empty driver packages once slipped through. A declared zero content
// length fails the same way.
func (s *HTTPSource) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("requesting payload: %w", err)
	}

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusResetContent {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("status %d: %w", resp.StatusCode, ErrEmptyBody)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, 0, &StatusError{Code: resp.StatusCode}
	}
	if resp.ContentLength == 0 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("declared content length 0: %w", ErrEmptyBody)
	}

	return resp.Body, resp.ContentLength, nil
}
