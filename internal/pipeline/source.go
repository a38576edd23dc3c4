package pipeline

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
)

// Source is one input document.
type Source interface {
	// Name is the document's base name as reported in the digest.
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource reads a document from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return filepath.Base(s.Path) }

func (s FileSource) Open() (io.ReadCloser, error) { return os.Open(s.Path) }

// BytesSource holds an uploaded document in memory.
type BytesSource struct {
	Filename string
	Data     []byte
}

func (s BytesSource) Name() string { return filepath.Base(s.Filename) }

func (s BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// Discover lists regular files directly inside dir whose base name matches
// any of patterns, sorted by name. A missing dir yields no sources.
func Discover(dir string, patterns []string) ([]Source, error) {
	matchers, err := compilePatterns(patterns)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read input folder: %w", err)
	}

	var sources []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !matchAny(matchers, e.Name()) {
			continue
		}
		sources = append(sources, FileSource{Path: filepath.Join(dir, e.Name())})
	}
	return sources, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(matchers []glob.Glob, name string) bool {
	for _, g := range matchers {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

func hashSource(src Source) (string, error) {
	rc, err := src.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
