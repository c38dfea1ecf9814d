// Package archive unpacks driver payload archives into an isolated directory
// tree. Extraction is all-or-nothing with respect to safety: a single entry
// that would escape the destination root aborts the whole operation before
// anything else is trusted.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

var (
	// ErrArchiveNotFound indicates the archive path does not exist or
	// cannot be opened.
	ErrArchiveNotFound = errors.New("archive not found")

	// ErrArchiveCorrupt indicates the archive failed to parse as a zip.
	ErrArchiveCorrupt = errors.New("archive corrupt")

	// ErrPathTraversal indicates an entry attempted to escape the
	// destination root. The whole extraction is aborted.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrCancelled indicates the shared cancel flag was set. This is a
	// distinct outcome, not a failure of the archive or the filesystem.
	ErrCancelled = errors.New("extraction cancelled")
)

// TraversalError carries the offending entry name and the path it resolved
// to, as evidence for diagnostics. It wraps ErrPathTraversal.
type TraversalError struct {
	Entry    string
	Resolved string
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("path traversal detected: entry %q resolves to %q", e.Entry, e.Resolved)
}

func (e *TraversalError) Unwrap() error { return ErrPathTraversal }

// Stats reports what an extraction wrote.
type Stats struct {
	Files        int
	Dirs         int
	BytesWritten int64
	Elapsed      time.Duration
}

// ProgressFunc is invoked after each entry with (entries done, entries total).
type ProgressFunc func(done, total int)

// Options configures an extraction run.
type Options struct {
	// Cancel is polled before each entry. When it flips true the
	// extraction stops and returns ErrCancelled. May be nil.
	Cancel *atomic.Bool

	// Progress, when non-nil, receives per-entry progress callbacks.
	Progress ProgressFunc
}

// largeEntryThreshold switches to the large copy buffer (8 MiB entries).
const largeEntryThreshold = 8 << 20

const (
	smallBufSize = 64 * 1024
	largeBufSize = 1 << 20
)

// Extract unpacks the zip archive at archivePath into destRoot. Every entry
// path is validated before any write: a component equal to ".." or anything
// that would make the entry absolute rejects the whole archive. After each
// path join, the canonicalized candidate is re-checked to still be a
// descendant of the canonicalized destination root.
func Extract(archivePath, destRoot string, opts Options) (Stats, error) {
	start := time.Now()

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Stats{}, fmt.Errorf("%w: %s", ErrArchiveNotFound, archivePath)
		}
		return Stats{}, fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return Stats{}, fmt.Errorf("creating destination root: %w", err)
	}
	canonicalRoot, err := filepath.EvalSymlinks(destRoot)
	if err != nil {
		return Stats{}, fmt.Errorf("resolving destination root: %w", err)
	}

	var stats Stats
	total := len(reader.File)

	for i, entry := range reader.File {
		if opts.Cancel != nil && opts.Cancel.Load() {
			return stats, ErrCancelled
		}

		rel, err := sanitizeEntryName(entry.Name)
		if err != nil {
			return stats, err
		}
		target := filepath.Join(destRoot, rel)

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return stats, fmt.Errorf("creating directory %s: %w", target, err)
			}
			stats.Dirs++
		} else {
			n, err := extractFile(entry, target)
			if err != nil {
				return stats, err
			}
			stats.Files++
			stats.BytesWritten += n
		}

		// Defense in depth: after creation, confirm the canonical path is
		// still inside the canonical root. Catches tricks the lexical
		// check cannot see, such as symlinked intermediate directories.
		if err := verifyContained(canonicalRoot, target, entry.Name); err != nil {
			return stats, err
		}

		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}

// sanitizeEntryName validates an archive entry name and returns the safe
// relative path to extract it to.
func sanitizeEntryName(name string) (string, error) {
	// Zip names use forward slashes, but hostile archives may carry
	// backslashes hoping a Windows extractor treats them as separators.
	normalized := strings.ReplaceAll(name, `\`, "/")

	if strings.HasPrefix(normalized, "/") || filepath.IsAbs(normalized) || hasDrivePrefix(normalized) {
		return "", &TraversalError{Entry: name, Resolved: normalized}
	}

	for part := range strings.SplitSeq(normalized, "/") {
		if part == ".." {
			return "", &TraversalError{Entry: name, Resolved: normalized}
		}
	}

	return filepath.FromSlash(normalized), nil
}

// hasDrivePrefix reports whether the name starts with a Windows drive
// letter, e.g. "C:/evil".
func hasDrivePrefix(name string) bool {
	if len(name) < 2 {
		return false
	}
	c := name[0]
	return name[1] == ':' && ((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'))
}

// verifyContained checks that target canonicalizes to a descendant of root.
func verifyContained(canonicalRoot, target, entryName string) error {
	canonical, err := filepath.EvalSymlinks(target)
	if err != nil {
		return fmt.Errorf("resolving extracted path %s: %w", target, err)
	}
	rel, err := filepath.Rel(canonicalRoot, canonical)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &TraversalError{Entry: entryName, Resolved: canonical}
	}
	return nil
}

// extractFile streams one archive entry to target, returning bytes written.
// The copy buffer size adapts to the declared entry size.
func extractFile(entry *zip.File, target string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("creating parent of %s: %w", target, err)
	}

	src, err := entry.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: opening entry %s: %v", ErrArchiveCorrupt, entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", target, err)
	}

	bufSize := smallBufSize
	if entry.UncompressedSize64 >= largeEntryThreshold {
		bufSize = largeBufSize
	}

	n, err := io.CopyBuffer(dst, src, make([]byte, bufSize))
	if err != nil {
		dst.Close()
		return n, fmt.Errorf("writing %s: %w", target, err)
	}
	if err := dst.Close(); err != nil {
		return n, fmt.Errorf("closing %s: %w", target, err)
	}
	return n, nil
}
