package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ledongthuc/pdf"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

// DefaultPatterns selects the file types a directory import picks up.
var DefaultPatterns = []string{"**/*.txt", "**/*.md", "**/*.pdf"}

// Dir streams documents from files under a root directory matched by
// doublestar glob patterns. File contents are read lazily, one document
// per Next call, so large trees do not sit in memory at once.
type Dir struct {
	root  string
	paths []string
	pos   int
}

func NewDir(root string, patterns []string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open directory", err)
	}
	if !info.IsDir() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open directory",
			fmt.Errorf("%s is not a directory", root))
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidConfig, "glob pattern",
				fmt.Errorf("%q: %w", pattern, err))
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)
	return &Dir{root: root, paths: paths}, nil
}

func (s *Dir) Next(ctx context.Context) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	if s.pos >= len(s.paths) {
		return domain.Document{}, io.EOF
	}
	rel := s.paths[s.pos]
	s.pos++

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	text, err := readText(full)
	if err != nil {
		return domain.Document{}, domain.WrapError(domain.ErrInvalidInput, "read document",
			fmt.Errorf("%s: %w", rel, err))
	}

	return domain.Document{
		ID:   docID(rel),
		Text: text,
		Meta: domain.Metadata{
			Source: rel,
			Title:  strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)),
		},
	}, nil
}

func (s *Dir) Len() int {
	return len(s.paths)
}

func readText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extractPDF(path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// docID turns a relative path into a stable document id: separators
// become underscores and the extension is dropped, so re-importing the
// same tree overwrites rather than duplicates.
func docID(rel string) string {
	id := strings.TrimSuffix(rel, filepath.Ext(rel))
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, " ", "_")
	return id
}
