package chunking

import (
	"fmt"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

// Splitter cuts document text into fixed-size overlapping chunks. Offsets
// are rune offsets so multi-byte text chunks cleanly.
type Splitter struct {
	size    int
	overlap int
}

func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "chunking",
			fmt.Errorf("chunk size must be positive, got %d", size))
	}
	if overlap < 0 || overlap >= size {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "chunking",
			fmt.Errorf("overlap must be in [0, size), got overlap=%d size=%d", overlap, size))
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split covers the full text with no gaps: each chunk after the first
// starts size-overlap runes after the previous one, and the final chunk
// may be shorter than size. Chunk ids are deterministic, so re-splitting
// the same document always yields the same ids.
func (s *Splitter) Split(docID, text string) []domain.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.size - s.overlap
	out := make([]domain.Chunk, 0, len(runes)/step+1)
	for start, i := 0, 0; start < len(runes); start, i = start+step, i+1 {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, domain.Chunk{
			ID:         fmt.Sprintf("%s_chunk%d", docID, i),
			DocumentID: docID,
			Index:      i,
			Start:      start,
			End:        end,
			Text:       string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return out
}
