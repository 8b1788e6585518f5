// Package adapter contains the file system, spec file, rendering and report
// adapters for the spekt CLI.
package adapter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	m "spekt.dev/pkg/spekt/internal/model"
)

// SourceFSAdapter abstracts the file system operations the workflow needs to
// discover spec files, so the domain can be tested without touching disk.
type SourceFSAdapter interface {
	// Get resolves path patterns into the spec files they name, sorted.
	// Files whose path matches any exclude regex are skipped.
	Get(ctx context.Context, paths []m.Path, exclude ...string) ([]m.Path, error)

	// Walk traverses the provided root path. When recursive is false the
	// implementation limits itself to the root directory.
	Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error

	// HashFile returns a stable fingerprint for the file at path.
	HashFile(path m.Path) (string, error)

	// FileInfo returns metadata for a path.
	FileInfo(path m.Path) (os.FileInfo, error)
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFSAdapter implements SourceFSAdapter on the local disk.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Get accepts Go-style patterns: "./..." scans recursively, a directory is
// scanned without descending, a file is taken as is. No paths means "./...".
func (a *LocalSourceFSAdapter) Get(ctx context.Context, paths []m.Path, exclude ...string) ([]m.Path, error) {
	filters, err := compileExcludes(exclude)
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		paths = []m.Path{"./..."}
	}

	seen := map[m.Path]bool{}

	var out []m.Path

	for _, pattern := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		root, recursive := splitPattern(string(pattern))

		info, err := a.FileInfo(m.Path(root))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", pattern, err)
		}

		if !info.IsDir() {
			if !seen[m.Path(root)] && !excluded(root, filters) {
				seen[m.Path(root)] = true
				out = append(out, m.Path(root))
			}

			continue
		}

		err = a.Walk(m.Path(root), recursive, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() || !strings.HasSuffix(path, m.SpecFileSuffix) || excluded(path, filters) {
				return nil
			}

			if !seen[m.Path(path)] {
				seen[m.Path(path)] = true
				out = append(out, m.Path(path))
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out, nil
}

func splitPattern(pattern string) (string, bool) {
	if pattern == "..." {
		return ".", true
	}

	if root, ok := strings.CutSuffix(pattern, "/..."); ok {
		if root == "" {
			root = "."
		}

		return root, true
	}

	return pattern, false
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}

		out = append(out, re)
	}

	return out, nil
}

func excluded(path string, filters []*regexp.Regexp) bool {
	for _, re := range filters {
		if re.MatchString(path) || re.MatchString(filepath.Base(path)) {
			return true
		}
	}

	return false
}

// Walk iterates over files under root, optionally descending into subdirectories.
func (a *LocalSourceFSAdapter) Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && path != rootStr {
			if !recursive || strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
		}

		return fn(path, info, nil)
	})
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}
