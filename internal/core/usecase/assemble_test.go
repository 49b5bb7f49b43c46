package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

func TestAssembleContextDropsWholeFragmentsOverBudget(t *testing.T) {
	// Two fragments that each render to 80 chars with their citation
	// marker; a 100-char budget keeps only the first, untruncated.
	first := hit("a_chunk0", "a.txt", strings.Repeat("x", 80-len("[1] source=a.txt\n")-2), 0.9)
	second := hit("a_chunk1", "a.txt", strings.Repeat("y", 80-len("[2] source=a.txt\n")-2), 0.8)

	block := AssembleContext([]domain.ScoredRecord{first, second}, 100)

	if got := utf8.RuneCountInString(block.Text); got > 100 {
		t.Fatalf("assembled context exceeds budget: %d chars", got)
	}
	if !strings.Contains(block.Text, first.Record.Text) {
		t.Fatalf("first fragment missing from context: %q", block.Text)
	}
	if strings.Contains(block.Text, "y") {
		t.Fatalf("second fragment must be dropped whole, got %q", block.Text)
	}
}

func TestAssembleContextDedupesByChunkID(t *testing.T) {
	h := hit("a_chunk0", "a.txt", "same text", 0.9)
	block := AssembleContext([]domain.ScoredRecord{h, h, h}, 0)

	if got := strings.Count(block.Text, "same text"); got != 1 {
		t.Fatalf("duplicate chunk kept %d times", got)
	}
	if len(block.Sources) != 1 || block.Sources[0] != "a.txt" {
		t.Fatalf("unexpected sources: %v", block.Sources)
	}
}

func TestAssembleContextPreservesRankOrderAndMarkers(t *testing.T) {
	block := AssembleContext([]domain.ScoredRecord{
		hit("a", "one.txt", "alpha", 0.9),
		hit("b", "two.txt", "beta", 0.7),
	}, 0)

	iAlpha := strings.Index(block.Text, "alpha")
	iBeta := strings.Index(block.Text, "beta")
	if iAlpha < 0 || iBeta < 0 || iAlpha > iBeta {
		t.Fatalf("fragments out of rank order: %q", block.Text)
	}
	if !strings.Contains(block.Text, "[1] source=one.txt") || !strings.Contains(block.Text, "[2] source=two.txt") {
		t.Fatalf("citation markers missing: %q", block.Text)
	}
	if len(block.Sources) != 2 {
		t.Fatalf("expected both sources, got %v", block.Sources)
	}
}

func TestAssembleContextEmptyInput(t *testing.T) {
	block := AssembleContext(nil, 100)
	if block.Text != "" || len(block.Sources) != 0 {
		t.Fatalf("expected empty block, got %+v", block)
	}
}
