package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

// JSONFile streams documents from a corpus file holding a JSON array of
// objects with "id", "doc" and optional "meta" fields. The whole file is
// parsed up front so malformed corpora fail before any embedding happens.
type JSONFile struct {
	docs []domain.Document
	pos  int
}

func NewJSONFile(path string) (*JSONFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open corpus", err)
	}

	var docs []domain.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse corpus",
			fmt.Errorf("%s: %w", path, err))
	}
	for i, d := range docs {
		if strings.TrimSpace(d.ID) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse corpus",
				fmt.Errorf("%s: entry %d has no id", path, i))
		}
		if strings.TrimSpace(d.Text) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse corpus",
				fmt.Errorf("%s: entry %d (%s) has no text", path, i, d.ID))
		}
	}
	return &JSONFile{docs: docs}, nil
}

func (s *JSONFile) Next(ctx context.Context) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	if s.pos >= len(s.docs) {
		return domain.Document{}, io.EOF
	}
	doc := s.docs[s.pos]
	s.pos++
	return doc, nil
}

// Len reports how many documents the corpus holds, for progress display.
func (s *JSONFile) Len() int {
	return len(s.docs)
}
