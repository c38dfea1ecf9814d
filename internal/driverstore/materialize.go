package driverstore

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Layout hints tell the materializer where the true driver root sits inside
// an extracted tree.
type Layout string

const (
	// LayoutFlat means the extracted root itself is the driver directory.
	LayoutFlat Layout = "flat"

	// LayoutNested means the extracted root contains a single named
	// subdirectory that is the driver directory.
	LayoutNested Layout = "nested"
)

// MaterializeResult reports what a merge wrote into the driver store.
type MaterializeResult struct {
	FilesCopied int
	// TopLevel lists the first-level entry names of the effective source
	// root, for diagnostics.
	TopLevel []string
}

// Materialize merges an extracted driver tree into the store root. Files are
// overwritten in place; destination content with no counterpart in the
// source is left untouched; the driver store accumulates across installs.
//
// With LayoutNested, subdir names the directory inside extractedRoot that
// holds the actual driver files; with LayoutFlat, subdir is ignored.
func (s *Store) Materialize(extractedRoot string, layout Layout, subdir string) (MaterializeResult, error) {
	src := extractedRoot
	if layout == LayoutNested {
		src = filepath.Join(extractedRoot, subdir)
	}

	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return MaterializeResult{}, fmt.Errorf("%w: %s", ErrSourceRootMissing, src)
		}
		return MaterializeResult{}, fmt.Errorf("checking source root: %w", err)
	}
	if !info.IsDir() {
		return MaterializeResult{}, fmt.Errorf("%w: %s is not a directory", ErrSourceRootMissing, src)
	}

	if err := s.EnsureRoot(); err != nil {
		return MaterializeResult{}, err
	}

	var result MaterializeResult

	entries, err := os.ReadDir(src)
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("reading source root: %w", err)
	}
	for _, e := range entries {
		result.TopLevel = append(result.TopLevel, e.Name())
	}
	sort.Strings(result.TopLevel)

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		dst := filepath.Join(s.root, rel)

		if d.IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", dst, err)
			}
			return nil
		}

		if err := copyFile(path, dst); err != nil {
			return err
		}
		result.FilesCopied++
		return nil
	})
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("materializing driver files: %w", err)
	}

	return result, nil
}

// copyFile copies src over dst, replacing any existing file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", dst, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dst, err)
	}
	return nil
}
