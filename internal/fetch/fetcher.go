// Package fetch downloads driver payloads into the content-addressed store
// with bounded retries, strict success criteria, and atomic placement.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spoolsmith/spoolsmith/internal/driverstore"
	"github.com/spoolsmith/spoolsmith/internal/integrity"
	"github.com/spoolsmith/spoolsmith/internal/metrics"
	"github.com/spoolsmith/spoolsmith/internal/util/retry"
)

const (
	// Progress cadence bounds: a progress callback fires at most once per
	// interval or per chunk of bytes, whichever comes first, so large
	// downloads cannot flood the event channel.
	progressInterval = 500 * time.Millisecond
	progressBytes    = 1 << 20

	copyBufSize = 256 * 1024
)

// ProgressFunc receives download progress. total is -1 when the source did
// not declare a length; percent is then 0.
type ProgressFunc func(written, total int64, percent float64)

// Result describes a completed fetch.
type Result struct {
	// Path is the verified payload location in the store.
	Path string

	// FromCache is true when a verified payload already existed and no
	// download happened.
	FromCache bool

	// BytesWritten is the number of payload bytes streamed to disk
	// (zero on cache hit).
	BytesWritten int64
}

// Fetcher resolves (URL, expected digest) pairs to verified payload files.
type Fetcher struct {
	store   *driverstore.Store
	sources map[string]Source

	maxRetries   int
	initialDelay time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithSource registers a Source for a URL scheme (e.g. "s3").
func WithSource(scheme string, src Source) Option {
	return func(f *Fetcher) {
		f.sources[scheme] = src
	}
}

// WithRetryBudget overrides the download attempt budget.
func WithRetryBudget(maxRetries int, initialDelay time.Duration) Option {
	return func(f *Fetcher) {
		f.maxRetries = maxRetries
		f.initialDelay = initialDelay
	}
}

// New creates a Fetcher over the given store. http and https are handled by
// the built-in HTTP source.
func New(store *driverstore.Store, opts ...Option) *Fetcher {
	httpSrc := &HTTPSource{}
	f := &Fetcher{
		store: store,
		sources: map[string]Source{
			"http":  httpSrc,
			"https": httpSrc,
		},
		maxRetries:   2,
		initialDelay: time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns a verified local payload file for the URL. Validation
// failures are fatal; network and status failures consume the retry budget
// with exponential backoff; a digest mismatch purges the file and is fatal.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, expectedDigest string, progress ProgressFunc) (Result, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return Result{}, err
	}
	if err := driverstore.ValidateDigest(expectedDigest); err != nil {
		return Result{}, err
	}

	source, ok := f.sources[u.Scheme]
	if !ok {
		return Result{}, fmt.Errorf("%w: no source registered for scheme %q", ErrInvalidURL, u.Scheme)
	}

	cache, err := f.store.Lookup(expectedDigest)
	if err != nil {
		return Result{}, err
	}
	if cache.Hit {
		metrics.CacheHitsTotal.Inc()
		return Result{Path: cache.Path, FromCache: true}, nil
	}

	address, err := driverstore.ContentAddress(expectedDigest)
	if err != nil {
		return Result{}, err
	}
	finalPath := f.store.PayloadPath(address)
	partPath := f.store.PartPath(address)

	var written int64
	attempt := func() error {
		n, err := f.download(ctx, source, rawURL, expectedDigest, partPath, finalPath, progress)
		written = n
		return err
	}

	err = retry.WithExponentialBackoff(ctx, attempt,
		retry.WithMaxRetries(f.maxRetries),
		retry.WithInitialDelay(f.initialDelay),
	)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(u.Scheme, "failure").Inc()
		return Result{}, fmt.Errorf("fetching %s: %w", rawURL, err)
	}

	metrics.DownloadsTotal.WithLabelValues(u.Scheme, "success").Inc()
	return Result{Path: finalPath, BytesWritten: written}, nil
}

// download performs one attempt: stream to the .part file, enforce the
// acceptance criteria, verify the digest, then atomically rename. A reader
// can never observe a partially written file at the final path.
func (f *Fetcher) download(ctx context.Context, source Source, rawURL, expectedDigest, partPath, finalPath string, progress ProgressFunc) (int64, error) {
	body, declared, err := source.Open(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(partPath), 0o755); err != nil {
		return 0, retry.Fatal(fmt.Errorf("creating payload directory: %w", err))
	}

	part, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, retry.Fatal(fmt.Errorf("creating part file: %w", err))
	}

	written, copyErr := copyWithProgress(ctx, part, body, declared, progress)

	if copyErr == nil {
		copyErr = part.Sync()
	}
	if closeErr := part.Close(); closeErr != nil && copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && written == 0 {
		copyErr = fmt.Errorf("zero bytes written: %w", ErrEmptyBody)
	}

	if copyErr != nil {
		// Partial downloads never survive an attempt.
		_ = os.Remove(partPath)
		return written, copyErr
	}

	if err := integrity.VerifyFile(partPath, expectedDigest); err != nil {
		if errors.Is(err, integrity.ErrDigestMismatch) {
			metrics.VerifyFailuresTotal.Inc()
			// The server returned a complete but wrong payload.
			// Retrying cannot help.
			return written, retry.Fatal(err)
		}
		_ = os.Remove(partPath)
		return written, err
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		_ = os.Remove(partPath)
		return written, retry.Fatal(fmt.Errorf("publishing payload: %w", err))
	}

	if progress != nil {
		progress(written, written, 100)
	}
	return written, nil
}

// copyWithProgress streams body to dst, reporting progress at a bounded
// cadence and honoring context cancellation between chunks.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, copyBufSize)

	var written, lastReported int64
	lastTime := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			w, writeErr := dst.Write(buf[:n])
			written += int64(w)
			if writeErr != nil {
				return written, fmt.Errorf("writing payload: %w", writeErr)
			}
			if w < n {
				return written, io.ErrShortWrite
			}

			if progress != nil &&
				(written-lastReported >= progressBytes || time.Since(lastTime) >= progressInterval) {
				progress(written, total, percentOf(written, total))
				lastReported = written
				lastTime = time.Now()
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("reading payload: %w", readErr)
		}
	}
}

func percentOf(written, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(written) / float64(total) * 100
}
