package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kamdev/ragpipe/internal/core/domain"
	"github.com/kamdev/ragpipe/internal/core/ports"
)

const defaultSystemPrompt = "You are a helpful assistant. Answer using only the provided context. " +
	"If the context does not contain the answer, say so."

// QueryOptions tune retrieval and assembly. Zero values fall back to
// sensible defaults.
type QueryOptions struct {
	// DefaultK is used when the caller passes k <= 0.
	DefaultK int
	// MinScore drops hits scoring below it; 0 keeps everything.
	MinScore float64
	// MaxContextChars bounds the assembled context; 0 means unbounded.
	MaxContextChars int
	SystemPrompt    string
}

// QueryUseCase answers a question over the imported corpus: embed the
// question, retrieve the nearest chunks, assemble a bounded context and
// fan the prompt out to the requested providers.
type QueryUseCase struct {
	embedder   ports.Embedder
	store      ports.VectorStore
	dispatcher *Dispatcher
	opts       QueryOptions
	logger     *slog.Logger
}

var _ ports.QueryService = (*QueryUseCase)(nil)

func NewQueryUseCase(
	embedder ports.Embedder,
	store ports.VectorStore,
	dispatcher *Dispatcher,
	opts QueryOptions,
	logger *slog.Logger,
) *QueryUseCase {
	if opts.DefaultK <= 0 {
		opts.DefaultK = 3
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	return &QueryUseCase{
		embedder:   embedder,
		store:      store,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
	}
}

// Retrieve embeds the question and returns the k nearest chunks, ranked
// descending. An empty store yields an empty slice, not an error.
func (uc *QueryUseCase) Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredRecord, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("empty question"))
	}
	if k <= 0 {
		k = uc.opts.DefaultK
	}

	vector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	hits, err := uc.store.Query(ctx, vector, k, domain.SearchFilter{})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if uc.opts.MinScore > 0 {
		kept := hits[:0]
		for _, h := range hits {
			if h.Score >= uc.opts.MinScore {
				kept = append(kept, h)
			}
		}
		hits = kept
	}
	return hits, nil
}

// Ask runs the full pipeline. When retrieval comes back empty the LLM
// fan-out is skipped entirely and the result carries no answers.
func (uc *QueryUseCase) Ask(ctx context.Context, question string, k int, providers []string) (*domain.QueryResult, error) {
	hits, err := uc.Retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		uc.logger.Info("no relevant context found", slog.String("question", question))
		return &domain.QueryResult{Answers: map[string]domain.ProviderResult{}}, nil
	}

	block := AssembleContext(hits, uc.opts.MaxContextChars)
	prompt := buildPrompt(block, question)

	answers, err := uc.dispatcher.Dispatch(ctx, uc.opts.SystemPrompt, prompt, providers)
	if err != nil {
		return nil, err
	}
	return &domain.QueryResult{Answers: answers, Sources: hits}, nil
}

func buildPrompt(block domain.ContextBlock, question string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(block.Text)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
