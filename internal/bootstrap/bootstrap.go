package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kamdev/ragpipe/internal/config"
	"github.com/kamdev/ragpipe/internal/core/domain"
	"github.com/kamdev/ragpipe/internal/core/ports"
	"github.com/kamdev/ragpipe/internal/core/usecase"
	"github.com/kamdev/ragpipe/internal/infrastructure/catalog/postgres"
	"github.com/kamdev/ragpipe/internal/infrastructure/chunking"
	"github.com/kamdev/ragpipe/internal/infrastructure/llm/ollama"
	"github.com/kamdev/ragpipe/internal/infrastructure/llm/openai"
	"github.com/kamdev/ragpipe/internal/infrastructure/resilience"
	"github.com/kamdev/ragpipe/internal/infrastructure/vector/chromem"
	"github.com/kamdev/ragpipe/internal/infrastructure/vector/qdrant"
	"github.com/kamdev/ragpipe/internal/observability/metrics"
)

// App holds the wired pipeline. Construction fails fast on configuration
// that can never work; reaching actual backends is deferred to first use.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Metrics    *metrics.PipelineMetrics
	Embedder   ports.Embedder
	Store      ports.VectorStore
	Dispatcher *usecase.Dispatcher
	Importer   *usecase.ImportUseCase
	Query      *usecase.QueryUseCase

	catalog *postgres.Catalog
}

func New(ctx context.Context, cfg config.Config, providers *config.Providers, logger *slog.Logger) (*App, error) {
	executor := resilience.NewExecutor(resilience.Config{})

	chunker, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	localClient := ollama.New(cfg.OllamaURL, executor)

	embedder, err := buildEmbedder(cfg, localClient, executor)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(cfg, executor)
	if err != nil {
		return nil, err
	}
	generators, err := buildGenerators(cfg, providers, localClient, executor)
	if err != nil {
		return nil, err
	}
	dispatcher := usecase.NewDispatcher(logger, generators...)

	var (
		catalog     *postgres.Catalog
		catalogPort ports.ImportCatalog
	)
	if cfg.PostgresDSN != "" {
		catalog, err = postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := catalog.EnsureSchema(ctx); err != nil {
			_ = catalog.Close()
			return nil, err
		}
		catalogPort = catalog
	}

	importer := usecase.NewImportUseCase(chunker, embedder, store, catalogPort, cfg.BatchSize, logger)
	query := usecase.NewQueryUseCase(embedder, store, dispatcher, usecase.QueryOptions{
		DefaultK:        cfg.RAGTopK,
		MinScore:        cfg.RAGMinScore,
		MaxContextChars: cfg.ContextMaxChars,
	}, logger)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics.NewPipelineMetrics("ragpipe"),
		Embedder:   embedder,
		Store:      store,
		Dispatcher: dispatcher,
		Importer:   importer,
		Query:      query,
		catalog:    catalog,
	}, nil
}

func (a *App) Close() error {
	if a.catalog != nil {
		return a.catalog.Close()
	}
	return nil
}

func buildEmbedder(cfg config.Config, localClient *ollama.Client, executor *resilience.Executor) (ports.Embedder, error) {
	switch cfg.EmbedProvider {
	case "local":
		return ollama.NewEmbedder(localClient, cfg.OllamaEmbedModel), nil
	case "remote":
		client, err := openai.New(os.Getenv("OPENAI_API_KEY"), openai.Options{
			BaseURL:            cfg.OpenAIBaseURL,
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, err
		}
		return openai.NewEmbedder(client, cfg.OpenAIEmbedModel), nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidConfig, "build embedder",
			fmt.Errorf("unknown embed provider %q", cfg.EmbedProvider))
	}
}

func buildStore(cfg config.Config, executor *resilience.Executor) (ports.VectorStore, error) {
	switch cfg.VectorStore {
	case "chromem":
		return chromem.NewPersistent(cfg.ChromemPath, "documents")
	case "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor), nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidConfig, "build vector store",
			fmt.Errorf("unknown vector store %q", cfg.VectorStore))
	}
}

func buildGenerators(
	cfg config.Config,
	providers *config.Providers,
	localClient *ollama.Client,
	executor *resilience.Executor,
) ([]ports.AnswerGenerator, error) {
	out := make([]ports.AnswerGenerator, 0, len(providers.Providers))
	for _, spec := range providers.Providers {
		switch spec.Kind {
		case "local":
			client := localClient
			if spec.BaseURL != "" {
				client = ollama.New(spec.BaseURL, executor)
			}
			out = append(out, ollama.NewGenerator(client, spec.Name, spec.Model, spec.MaxContextChars))
		case "remote":
			key := os.Getenv(spec.APIKeyEnv)
			if key == "" {
				return nil, domain.WrapError(domain.ErrInvalidConfig, "build providers",
					fmt.Errorf("provider %q: env %s is not set", spec.Name, spec.APIKeyEnv))
			}
			baseURL := spec.BaseURL
			if baseURL == "" {
				baseURL = cfg.OpenAIBaseURL
			}
			client, err := openai.New(key, openai.Options{
				BaseURL:            baseURL,
				ResilienceExecutor: executor,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, openai.NewGenerator(client, spec.Name, spec.Model, spec.MaxContextChars))
		default:
			return nil, domain.WrapError(domain.ErrInvalidConfig, "build providers",
				fmt.Errorf("provider %q has unknown kind %q", spec.Name, spec.Kind))
		}
	}
	return out, nil
}
