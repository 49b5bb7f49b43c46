package ports

import (
	"context"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

// Embedder converts text into fixed-dimensionality vectors. Local and
// remote variants implement the same contract; callers never branch on
// which one they hold.
type Embedder interface {
	// Embed returns one vector per input text, order preserved.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// ID identifies the provider/model pair, e.g. "local/nomic-embed-text".
	ID() string
}

// Chunker splits document text into overlapping chunks with stable ids.
type Chunker interface {
	Split(docID, text string) []domain.Chunk
}

// VectorStore wraps a persistent vector index.
type VectorStore interface {
	// Upsert writes records keyed by chunk id and reports how many were
	// written. Re-upserting a chunk id replaces its record.
	Upsert(ctx context.Context, records []domain.StoredRecord) (int, error)
	// Query returns up to k records ranked descending by cosine similarity.
	Query(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.ScoredRecord, error)
}

// AnswerGenerator is one chat-completion provider in the fan-out set.
type AnswerGenerator interface {
	ID() string
	// MaxContextChars is the provider's context budget; 0 means unbounded.
	MaxContextChars() int
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// DocumentSource streams documents into the importer. Next returns io.EOF
// when the source is exhausted.
type DocumentSource interface {
	Next(ctx context.Context) (domain.Document, error)
}

// ImportCatalog persists import run records. Optional: the importer works
// without one.
type ImportCatalog interface {
	CreateRun(ctx context.Context, run *domain.ImportRun) error
	FinishRun(ctx context.Context, run *domain.ImportRun) error
}
