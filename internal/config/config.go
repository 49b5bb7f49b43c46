package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	APIPort  string
	LogLevel string

	PostgresDSN string

	OllamaURL        string
	OllamaEmbedModel string

	OpenAIBaseURL    string
	OpenAIEmbedModel string

	// EmbedProvider selects which embedder writes and queries the store:
	// "local" (Ollama) or "remote" (OpenAI-compatible).
	EmbedProvider string

	VectorStore      string // "chromem" or "qdrant"
	QdrantURL        string
	QdrantCollection string
	ChromemPath      string

	ProvidersFile string

	ChunkSize       int
	ChunkOverlap    int
	BatchSize       int
	RAGTopK         int
	RAGMinScore     float64
	ContextMaxChars int
}

func Load() Config {
	cfg := Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		OpenAIBaseURL:    mustEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIEmbedModel: mustEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),

		EmbedProvider: mustEnv("EMBED_PROVIDER", "local"),

		VectorStore:      mustEnv("VECTOR_STORE", "chromem"),
		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", "documents"),
		ChromemPath:      mustEnv("CHROMEM_PATH", ""),

		ProvidersFile: mustEnv("PROVIDERS_FILE", ""),

		ChunkSize:       mustEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap:    mustEnvInt("CHUNK_OVERLAP", 50),
		BatchSize:       mustEnvInt("BATCH_SIZE", 64),
		RAGTopK:         mustEnvInt("RAG_TOP_K", 3),
		RAGMinScore:     mustEnvFloat("RAG_MIN_SCORE", 0),
		ContextMaxChars: mustEnvInt("CONTEXT_MAX_CHARS", 0),
	}
	if cfg.ChromemPath == "" {
		cfg.ChromemPath = defaultChromemPath(cfg.EmbedProvider, cfg.EmbedModel())
	}
	return cfg
}

// ApplyEmbedOverride switches the embedding provider and model after Load,
// re-deriving the store path unless one was pinned explicitly.
func (c *Config) ApplyEmbedOverride(provider, model string) {
	if provider != "" {
		c.EmbedProvider = provider
	}
	if model != "" {
		switch c.EmbedProvider {
		case "remote":
			c.OpenAIEmbedModel = model
		default:
			c.OllamaEmbedModel = model
		}
	}
	if os.Getenv("CHROMEM_PATH") == "" {
		c.ChromemPath = defaultChromemPath(c.EmbedProvider, c.EmbedModel())
	}
}

// EmbedModel resolves the embedding model for the selected provider.
func (c Config) EmbedModel() string {
	if c.EmbedProvider == "remote" {
		return c.OpenAIEmbedModel
	}
	return c.OllamaEmbedModel
}

// defaultChromemPath ties the on-disk store to the embedder that filled
// it, so switching models never mixes incompatible vectors in one index.
func defaultChromemPath(provider, model string) string {
	sanitized := strings.NewReplacer("/", "-", ":", "-", " ", "-").Replace(model)
	return fmt.Sprintf("./data/chromem_%s-%s", provider, sanitized)
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
