package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kamdev/ragpipe/internal/core/domain"
	"github.com/kamdev/ragpipe/internal/infrastructure/resilience"
)

// pointNamespace makes qdrant point ids a pure function of the chunk id,
// so re-importing the same corpus replaces points instead of appending.
var pointNamespace = uuid.MustParse("8c9e6cbe-33a4-4b54-9a1e-5f3b8f8d2f41")

// Client adapts a remote qdrant instance to the VectorStore port over its
// REST API. The collection is created lazily with cosine distance; its
// vector size is fixed on first upsert and every later write is checked
// against it.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	mu         sync.Mutex
	ensured    bool
	vectorSize int
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Upsert(ctx context.Context, records []domain.StoredRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	dim := len(records[0].Vector)
	if dim == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "qdrant upsert",
			fmt.Errorf("record %s has empty vector", records[0].ChunkID))
	}
	// Validate the whole batch before any network write so a mismatch
	// leaves the store unchanged.
	for _, r := range records {
		if len(r.Vector) != dim {
			return 0, domain.WrapError(domain.ErrDimensionMismatch, "qdrant upsert",
				fmt.Errorf("record %s has dimension %d, batch started with %d", r.ChunkID, len(r.Vector), dim))
		}
	}
	if err := c.checkEstablishedDimension(dim); err != nil {
		return 0, err
	}

	if err := c.ensureCollection(ctx, dim); err != nil {
		return 0, err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}
	points := make([]point, 0, len(records))
	for _, r := range records {
		points = append(points, point{
			ID:     uuid.NewSHA1(pointNamespace, []byte(r.ChunkID)).String(),
			Vector: r.Vector,
			Payload: map[string]any{
				"chunk_id": r.ChunkID,
				"doc_id":   r.DocumentID,
				"source":   r.Meta.Source,
				"title":    r.Meta.Title,
				"text":     r.Text,
				"embedder": r.Embedder,
			},
		})
	}

	err := c.execute(ctx, "qdrant.upsert", func(callCtx context.Context) error {
		url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
		return c.do(callCtx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert")
	})
	if err != nil {
		return 0, err
	}
	return len(points), nil
}

func (c *Client) Query(
	ctx context.Context,
	vector []float32,
	k int,
	filter domain.SearchFilter,
) ([]domain.ScoredRecord, error) {
	if k <= 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if filter.Source != "" {
		reqBody["filter"] = map[string]any{
			"must": []map[string]any{
				{"key": "source", "match": map[string]any{"value": filter.Source}},
			},
		}
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := c.execute(ctx, "qdrant.search", func(callCtx context.Context) error {
		url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
		return c.do(callCtx, http.MethodPost, url, reqBody, &searchResp, "search")
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.ScoredRecord, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.ScoredRecord{
			Score: r.Score,
			Record: domain.StoredRecord{
				ChunkID:    payloadString(r.Payload, "chunk_id"),
				DocumentID: payloadString(r.Payload, "doc_id"),
				Text:       payloadString(r.Payload, "text"),
				Embedder:   payloadString(r.Payload, "embedder"),
				Meta: domain.Metadata{
					Source: payloadString(r.Payload, "source"),
					Title:  payloadString(r.Payload, "title"),
				},
			},
		})
	}
	return out, nil
}

func (c *Client) checkEstablishedDimension(dim int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ensured && c.vectorSize != dim {
		return domain.WrapError(domain.ErrDimensionMismatch, "qdrant upsert",
			fmt.Errorf("store established with dimension %d, got %d", c.vectorSize, dim))
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.mu.Lock()
	if c.ensured && c.vectorSize == vectorSize {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err := c.execute(ctx, "qdrant.ensure_collection", func(callCtx context.Context) error {
		url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
		err := c.do(callCtx, http.MethodPut, url, reqBody, nil, "ensure collection")
		// 409 means the collection already exists, typically from an
		// earlier run against the same store.
		var statusErr *statusError
		if asStatusError(err, &statusErr) && statusErr.code == http.StatusConflict {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.ensured = true
	c.vectorSize = vectorSize
	c.mu.Unlock()
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, payload, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{
			operation: operation,
			code:      resp.StatusCode,
			status:    resp.Status,
			body:      strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
