package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedChunker splits text into fixed-size rune windows without overlap,
// enough to drive the importer.
type fixedChunker struct {
	size int
}

func (c fixedChunker) Split(docID, text string) []domain.Chunk {
	runes := []rune(text)
	var chunks []domain.Chunk
	for i := 0; i*c.size < len(runes); i++ {
		start := i * c.size
		end := min(start+c.size, len(runes))
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s_chunk%d", docID, i),
			DocumentID: docID,
			Index:      i,
			Start:      start,
			End:        end,
			Text:       string(runes[start:end]),
		})
	}
	return chunks
}

type fakeEmbedder struct {
	id string
	// failOn makes Embed fail for any batch containing this substring.
	failOn    string
	queryErr  error
	batches   int
	dimension int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.batches++
	dim := e.dimension
	if dim == 0 {
		dim = 2
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if e.failOn != "" && strings.Contains(t, e.failOn) {
			return nil, domain.WrapError(domain.ErrProviderUnavailable, "embed", fmt.Errorf("forced failure"))
		}
		vec := make([]float32, dim)
		vec[0] = float32(len(t))
		out[i] = vec
	}
	return out, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.queryErr != nil {
		return nil, e.queryErr
	}
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *fakeEmbedder) ID() string {
	if e.id == "" {
		return "fake/embedder"
	}
	return e.id
}

type fakeStore struct {
	mu        sync.Mutex
	records   map[string]domain.StoredRecord
	upsertErr error
	hits      []domain.ScoredRecord
	queryErr  error
	queriedK  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]domain.StoredRecord{}}
}

func (s *fakeStore) Upsert(_ context.Context, records []domain.StoredRecord) (int, error) {
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.ChunkID] = r
	}
	return len(records), nil
}

func (s *fakeStore) Query(_ context.Context, _ []float32, k int, _ domain.SearchFilter) ([]domain.ScoredRecord, error) {
	s.queriedK = k
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if k < len(s.hits) {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

type fakeGenerator struct {
	id       string
	maxChars int
	err      error
	reply    string
	calls    int
}

func (g *fakeGenerator) ID() string           { return g.id }
func (g *fakeGenerator) MaxContextChars() int { return g.maxChars }

func (g *fakeGenerator) Generate(ctx context.Context, _, _ string) (string, error) {
	g.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

// sliceSource streams a fixed set of documents.
type sliceSource struct {
	docs []domain.Document
	pos  int
	err  error
}

func (s *sliceSource) Next(_ context.Context) (domain.Document, error) {
	if s.pos >= len(s.docs) {
		if s.err != nil {
			return domain.Document{}, s.err
		}
		return domain.Document{}, io.EOF
	}
	doc := s.docs[s.pos]
	s.pos++
	return doc, nil
}

type fakeCatalog struct {
	created  []*domain.ImportRun
	finished []*domain.ImportRun
}

func (c *fakeCatalog) CreateRun(_ context.Context, run *domain.ImportRun) error {
	copied := *run
	c.created = append(c.created, &copied)
	return nil
}

func (c *fakeCatalog) FinishRun(_ context.Context, run *domain.ImportRun) error {
	copied := *run
	c.finished = append(c.finished, &copied)
	return nil
}

func hit(chunkID, source, text string, score float64) domain.ScoredRecord {
	return domain.ScoredRecord{
		Score: score,
		Record: domain.StoredRecord{
			ChunkID:    chunkID,
			DocumentID: "doc-1",
			Text:       text,
			Meta:       domain.Metadata{Source: source},
		},
	}
}
