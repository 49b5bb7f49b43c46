package chromem

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

const (
	metaChunkID  = "chunk_id"
	metaDocID    = "doc_id"
	metaSource   = "source"
	metaTitle    = "title"
	metaEmbedder = "embedder"
)

// Store adapts an embedded chromem-go database to the VectorStore port.
// chromem ranks by cosine similarity and keys documents by id, which gives
// idempotent upsert for free. Persistence is a directory on disk; an
// in-memory variant backs tests.
type Store struct {
	db         *chromemgo.DB
	collection *chromemgo.Collection

	// dimPath is a sidecar file next to the persistent directory holding
	// the established vector size, so a re-opened store keeps rejecting
	// wrong-dimension upserts. Empty for in-memory stores.
	dimPath string

	mu         sync.Mutex
	vectorSize int
}

func NewPersistent(path, collection string) (*Store, error) {
	db, err := chromemgo.NewPersistentDB(path, false)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "open chromem db", err)
	}
	store, err := newStore(db, collection)
	if err != nil {
		return nil, err
	}
	store.dimPath = strings.TrimRight(path, "/") + ".dim"
	store.vectorSize = readDimension(store.dimPath)
	return store, nil
}

func NewInMemory(collection string) (*Store, error) {
	return newStore(chromemgo.NewDB(), collection)
}

func newStore(db *chromemgo.DB, collection string) (*Store, error) {
	col, err := db.GetOrCreateCollection(collection, nil, noEmbedding)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "open chromem collection", err)
	}
	return &Store{db: db, collection: col}, nil
}

// noEmbedding guards against accidental use of chromem's built-in remote
// embedding: every record arriving here must already carry its vector.
func noEmbedding(_ context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("record without precomputed embedding: %.40q", text)
}

func (s *Store) Upsert(ctx context.Context, records []domain.StoredRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	dim := len(records[0].Vector)
	if dim == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chromem upsert",
			fmt.Errorf("record %s has empty vector", records[0].ChunkID))
	}
	for _, r := range records {
		if len(r.Vector) != dim {
			return 0, domain.WrapError(domain.ErrDimensionMismatch, "chromem upsert",
				fmt.Errorf("record %s has dimension %d, batch started with %d", r.ChunkID, len(r.Vector), dim))
		}
	}
	if err := s.establishDimension(dim); err != nil {
		return 0, err
	}

	docs := make([]chromemgo.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, chromemgo.Document{
			ID:        r.ChunkID,
			Content:   r.Text,
			Embedding: r.Vector,
			Metadata: map[string]string{
				metaChunkID:  r.ChunkID,
				metaDocID:    r.DocumentID,
				metaSource:   r.Meta.Source,
				metaTitle:    r.Meta.Title,
				metaEmbedder: r.Embedder,
			},
		})
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, domain.WrapError(domain.ErrStoreUnavailable, "chromem upsert", err)
	}
	return len(docs), nil
}

func (s *Store) Query(
	ctx context.Context,
	vector []float32,
	k int,
	filter domain.SearchFilter,
) ([]domain.ScoredRecord, error) {
	if k <= 0 {
		return nil, nil
	}
	// chromem rejects nResults above the collection size.
	if count := s.collection.Count(); count == 0 {
		return nil, nil
	} else if k > count {
		k = count
	}

	var where map[string]string
	if filter.Source != "" {
		where = map[string]string{metaSource: filter.Source}
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, k, where, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "chromem query", err)
	}

	out := make([]domain.ScoredRecord, 0, len(results))
	for _, r := range results {
		out = append(out, domain.ScoredRecord{
			Score: float64(r.Similarity),
			Record: domain.StoredRecord{
				ChunkID:    r.ID,
				DocumentID: r.Metadata[metaDocID],
				Text:       r.Content,
				Embedder:   r.Metadata[metaEmbedder],
				Meta: domain.Metadata{
					Source: r.Metadata[metaSource],
					Title:  r.Metadata[metaTitle],
				},
			},
		})
	}
	return out, nil
}

// Count reports how many records the store holds.
func (s *Store) Count() int {
	return s.collection.Count()
}

func (s *Store) establishDimension(dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vectorSize == 0 {
		s.vectorSize = dim
		if s.dimPath != "" {
			// Best effort: a lost sidecar degrades to the pre-open behavior.
			_ = os.WriteFile(s.dimPath, []byte(strconv.Itoa(dim)), 0o644)
		}
		return nil
	}
	if s.vectorSize != dim {
		return domain.WrapError(domain.ErrDimensionMismatch, "chromem upsert",
			fmt.Errorf("store established with dimension %d, got %d", s.vectorSize, dim))
	}
	return nil
}

func readDimension(path string) int {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	dim, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || dim <= 0 {
		return 0
	}
	return dim
}
