package chunking

import (
	"strings"
	"testing"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

func TestNewSplitterRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap above size", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSplitter(tc.size, tc.overlap)
			if err == nil {
				t.Fatalf("expected error for size=%d overlap=%d", tc.size, tc.overlap)
			}
			if !domain.IsKind(err, domain.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSplitOffsetsAndCount(t *testing.T) {
	// size=500, overlap=100, len=1200 -> starts 0, 400, 800.
	s, err := NewSplitter(500, 100)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	text := strings.Repeat("x", 1200)
	chunks := s.Split("doc-1", text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantStarts := []int{0, 400, 800}
	for i, c := range chunks {
		if c.Start != wantStarts[i] {
			t.Fatalf("chunk %d start = %d, want %d", i, c.Start, wantStarts[i])
		}
	}
	if chunks[2].End != 1200 || len([]rune(chunks[2].Text)) != 400 {
		t.Fatalf("final chunk should be the 400-rune tail, got end=%d len=%d", chunks[2].End, len(chunks[2].Text))
	}
}

func TestSplitCoversFullTextWithExactOverlap(t *testing.T) {
	s, err := NewSplitter(7, 3)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := s.Split("d", text)

	// No gaps: each chunk starts size-overlap after the previous one and
	// consecutive chunks share exactly overlap runes.
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if cur.Start != prev.Start+4 {
			t.Fatalf("chunk %d start = %d, want %d", i, cur.Start, prev.Start+4)
		}
		if cur.Start >= prev.End {
			t.Fatalf("gap between chunk %d and %d", i-1, i)
		}
		shared := prev.End - cur.Start
		if i < len(chunks) && prev.End-prev.Start == 7 && shared != 3 {
			t.Fatalf("expected overlap 3, got %d", shared)
		}
	}

	// Reconstruct: concatenating the non-overlapping suffixes restores the text.
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for i := 1; i < len(chunks); i++ {
		r := []rune(chunks[i].Text)
		skip := chunks[i-1].End - chunks[i].Start
		rebuilt.WriteString(string(r[skip:]))
	}
	if rebuilt.String() != text {
		t.Fatalf("chunks do not cover text: got %q", rebuilt.String())
	}
}

func TestSplitDeterministicIDs(t *testing.T) {
	s, _ := NewSplitter(10, 2)
	a := s.Split("doc-9", "some text that spans multiple chunks here")
	b := s.Split("doc-9", "some text that spans multiple chunks here")
	if len(a) != len(b) {
		t.Fatalf("runs differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("chunk ids not deterministic: %s vs %s", a[i].ID, b[i].ID)
		}
	}
	if a[0].ID != "doc-9_chunk0" {
		t.Fatalf("unexpected id format: %s", a[0].ID)
	}
}

func TestSplitEmptyText(t *testing.T) {
	s, _ := NewSplitter(10, 2)
	if got := s.Split("doc", ""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
}
