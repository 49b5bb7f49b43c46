package domain

import "time"

// SearchFilter narrows a vector store query by metadata.
type SearchFilter struct {
	Source string
}

// ScoredRecord is one retrieval hit, ranked descending by Score.
type ScoredRecord struct {
	Record StoredRecord `json:"record"`
	Score  float64      `json:"score"`
}

// ContextBlock is the assembled, bounded context handed to LLM providers.
type ContextBlock struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// Answer is one provider's generated response.
type Answer struct {
	Provider string `json:"provider"`
	Text     string `json:"text"`
}

// ProviderResult records the per-provider outcome of a fan-out dispatch:
// exactly one of Answer or Err is set.
type ProviderResult struct {
	Answer *Answer `json:"answer,omitempty"`
	Err    error   `json:"-"`
}

// QueryResult is the full outcome of one RAG query.
type QueryResult struct {
	Answers map[string]ProviderResult `json:"answers"`
	Sources []ScoredRecord            `json:"sources"`
}

// ImportReport aggregates one import run. Batches that failed to embed are
// counted in ChunksFailed and skipped; the run itself keeps going.
type ImportReport struct {
	ChunksWritten int           `json:"chunks_written"`
	ChunksFailed  int           `json:"chunks_failed"`
	Documents     int           `json:"documents"`
	Duration      time.Duration `json:"duration"`
}

type ImportRunStatus string

const (
	RunRunning  ImportRunStatus = "running"
	RunFinished ImportRunStatus = "finished"
	RunFailed   ImportRunStatus = "failed"
)

// ImportRun is the catalog record of one import invocation.
type ImportRun struct {
	ID            string          `json:"id"`
	Corpus        string          `json:"corpus"`
	Embedder      string          `json:"embedder"`
	Status        ImportRunStatus `json:"status"`
	ChunksWritten int             `json:"chunks_written"`
	ChunksFailed  int             `json:"chunks_failed"`
	Error         string          `json:"error,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at,omitempty"`
}
