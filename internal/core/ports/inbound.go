package ports

import (
	"context"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

// DocumentImporter is the inbound contract for populating the vector store.
type DocumentImporter interface {
	Import(ctx context.Context, source DocumentSource, corpus string) (domain.ImportReport, error)
}

// QueryService is the inbound contract for answering a question over the
// imported corpus with one or more LLM providers.
type QueryService interface {
	Ask(ctx context.Context, question string, k int, providers []string) (*domain.QueryResult, error)
}
