package domain

// Metadata describes where a document came from. It travels with every
// chunk into the vector store and back out for attribution.
type Metadata struct {
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
}

// Document is an immutable unit of source text supplied by an ingestion
// source. ID must be stable across import runs so that re-imports upsert
// instead of duplicating.
type Document struct {
	ID   string   `json:"id"`
	Text string   `json:"doc"`
	Meta Metadata `json:"meta"`
}

// Chunk is a contiguous slice of a document, the unit of embedding and
// retrieval. Offsets are rune offsets into the document text.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
}

// StoredRecord is what the vector store persists per chunk. ChunkID is the
// upsert key: writing the same ChunkID twice replaces the record.
type StoredRecord struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Vector     []float32 `json:"vector,omitempty"`
	Text       string    `json:"text"`
	Meta       Metadata  `json:"meta"`
	// Embedder tags the provider/model that produced Vector. Informational:
	// the pipeline does not reject cross-provider queries, it only makes
	// mixed stores diagnosable.
	Embedder string `json:"embedder,omitempty"`
}
