package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kamdev/ragpipe/internal/core/ports"
	"github.com/kamdev/ragpipe/internal/observability/metrics"
)

const serviceName = "ragpipe-api"

type Router struct {
	queryService ports.QueryService
	metrics      *metrics.PipelineMetrics
}

func NewRouter(queryService ports.QueryService, m *metrics.PipelineMetrics) *Router {
	return &Router{queryService: queryService, metrics: m}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/rag/query", rt.queryRAG)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Question  string   `json:"question"`
	K         int      `json:"k"`
	Providers []string `json:"providers"`
}

type providerAnswer struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

type sourceRef struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"doc_id"`
	Source     string  `json:"source"`
	Score      float64 `json:"score"`
}

type queryResponse struct {
	Answers map[string]providerAnswer `json:"answers"`
	Sources []sourceRef               `json:"sources"`
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	result, err := rt.queryService.Ask(r.Context(), req.Question, req.K, req.Providers)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordQuery(serviceName, len(result.Sources), time.Since(start))
		rt.metrics.RecordDispatch(serviceName, result.Answers)
	}

	resp := queryResponse{
		Answers: make(map[string]providerAnswer, len(result.Answers)),
		Sources: make([]sourceRef, 0, len(result.Sources)),
	}
	for provider, pr := range result.Answers {
		switch {
		case pr.Err != nil:
			resp.Answers[provider] = providerAnswer{Error: errorKindLabel(pr.Err)}
		case pr.Answer != nil:
			resp.Answers[provider] = providerAnswer{Text: pr.Answer.Text}
		}
	}
	for _, s := range result.Sources {
		resp.Sources = append(resp.Sources, sourceRef{
			ChunkID:    s.Record.ChunkID,
			DocumentID: s.Record.DocumentID,
			Source:     s.Record.Meta.Source,
			Score:      s.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
