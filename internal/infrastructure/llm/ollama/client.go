package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kamdev/ragpipe/internal/core/domain"
	"github.com/kamdev/ragpipe/internal/infrastructure/resilience"
)

// Client talks to a local Ollama server. It backs both the local embedding
// provider and the local chat provider; callers only ever see the port
// interfaces.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type Embedder struct {
	client *Client
	model  string
}

func NewEmbedder(client *Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

func (e *Embedder) ID() string {
	return "local/" + e.model
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "embed",
				fmt.Errorf("text %d is empty", i))
		}
	}

	request := map[string]any{
		"model": e.model,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	err := e.client.execute(ctx, "ollama.embed", func(callCtx context.Context) error {
		return e.client.postJSON(callCtx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed",
			fmt.Errorf("vectors/texts mismatch: %d/%d", len(response.Embeddings), len(texts)))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrProviderUnavailable, "embed query",
			fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

// Generator is the local chat-completion provider.
type Generator struct {
	client          *Client
	name            string
	model           string
	maxContextChars int
}

func NewGenerator(client *Client, name, model string, maxContextChars int) *Generator {
	return &Generator{
		client:          client,
		name:            name,
		model:           model,
		maxContextChars: maxContextChars,
	}
}

func (g *Generator) ID() string { return g.name }

func (g *Generator) MaxContextChars() int { return g.maxContextChars }

func (g *Generator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	request := map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"stream": false,
	}
	var response struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}

	err := g.client.execute(ctx, "ollama.chat", func(callCtx context.Context) error {
		return g.client.postJSON(callCtx, "/api/chat", request, &response, "chat")
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Message.Content), nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, fn, classifyError)
	} else {
		err = fn(ctx)
	}
	return wrapProviderError(operation, err)
}
