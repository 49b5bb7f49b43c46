package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

// AssembleContext concatenates retrieved fragments in rank order into a
// bounded context block. Fragments repeated across overlapping retrieval
// results are dropped by chunk id, every kept fragment is prefixed with a
// citation marker, and assembly stops before the running total would
// exceed maxChars: a fragment is never split, it is either in or out.
// maxChars <= 0 means unbounded.
func AssembleContext(hits []domain.ScoredRecord, maxChars int) domain.ContextBlock {
	var (
		builder    strings.Builder
		sources    []string
		seenChunks = make(map[string]struct{}, len(hits))
		seenSrc    = make(map[string]struct{})
		total      int
		n          int
	)

	for _, hit := range hits {
		if _, ok := seenChunks[hit.Record.ChunkID]; ok {
			continue
		}
		seenChunks[hit.Record.ChunkID] = struct{}{}

		n++
		fragment := fmt.Sprintf("[%d] source=%s\n%s\n\n", n, hit.Record.Meta.Source, hit.Record.Text)
		size := utf8.RuneCountInString(fragment)
		if maxChars > 0 && total+size > maxChars {
			break
		}
		builder.WriteString(fragment)
		total += size

		if _, ok := seenSrc[hit.Record.Meta.Source]; !ok {
			seenSrc[hit.Record.Meta.Source] = struct{}{}
			sources = append(sources, hit.Record.Meta.Source)
		}
	}

	return domain.ContextBlock{
		Text:    strings.TrimRight(builder.String(), "\n"),
		Sources: sources,
	}
}
