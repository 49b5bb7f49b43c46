package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

// PipelineMetrics covers both halves of the pipeline: import throughput
// and query behavior, plus the HTTP surface when serving.
type PipelineMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	chunksTotal    *prometheus.CounterVec
	importDuration *prometheus.HistogramVec

	queryTotal      *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	retrievedChunks *prometheus.HistogramVec
	dispatchTotal   *prometheus.CounterVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ragpipe",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chunksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Subsystem: "import",
			Name:      "chunks_total",
			Help:      "Total chunks processed by an import, by outcome.",
		},
		[]string{"service", "outcome"},
	)
	importDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Import run duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total RAG queries by retrieval outcome.",
		},
		[]string{"service", "outcome"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "End-to-end RAG query duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Subsystem: "query",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	dispatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Subsystem: "llm",
			Name:      "dispatch_total",
			Help:      "Per-provider fan-out outcomes.",
		},
		[]string{"service", "provider", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chunksTotal,
		importDuration,
		queryTotal,
		queryDuration,
		retrievedChunks,
		dispatchTotal,
	)

	return &PipelineMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		chunksTotal:     chunksTotal,
		importDuration:  importDuration,
		queryTotal:      queryTotal,
		queryDuration:   queryDuration,
		retrievedChunks: retrievedChunks,
		dispatchTotal:   dispatchTotal,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *PipelineMetrics) RecordImport(service string, report domain.ImportReport) {
	m.chunksTotal.WithLabelValues(service, "written").Add(float64(report.ChunksWritten))
	m.chunksTotal.WithLabelValues(service, "failed").Add(float64(report.ChunksFailed))
	m.importDuration.WithLabelValues(service).Observe(report.Duration.Seconds())
}

func (m *PipelineMetrics) RecordQuery(service string, sourceCount int, duration time.Duration) {
	outcome := "hit"
	if sourceCount == 0 {
		outcome = "no_context"
	}
	m.queryTotal.WithLabelValues(service, outcome).Inc()
	m.retrievedChunks.WithLabelValues(service).Observe(float64(sourceCount))
	m.queryDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RecordDispatch(service string, results map[string]domain.ProviderResult) {
	for provider, r := range results {
		outcome := "success"
		if r.Err != nil {
			outcome = "error"
		}
		m.dispatchTotal.WithLabelValues(service, provider, outcome).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}
