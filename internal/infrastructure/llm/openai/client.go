package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kamdev/ragpipe/internal/core/domain"
	"github.com/kamdev/ragpipe/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Client talks to an OpenAI-compatible API. The key is injected by the
// caller (read from an env var in config), never stored in configuration
// files. A client-side limiter keeps bursts under the account rate limit
// instead of bouncing off 429s.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
}

type Options struct {
	BaseURL            string
	RequestsPerSecond  float64
	Burst              int
	ResilienceExecutor *resilience.Executor
}

func New(apiKey string, options Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "openai client",
			fmt.Errorf("missing API key"))
	}
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := options.Burst
	if burst <= 0 {
		burst = 5
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   options.ResilienceExecutor,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

type Embedder struct {
	client *Client
	model  string
}

func NewEmbedder(client *Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

func (e *Embedder) ID() string {
	return "remote/" + e.model
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
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}

	err := e.client.execute(ctx, "openai.embed", func(callCtx context.Context) error {
		return e.client.postJSON(callCtx, "/embeddings", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	if len(response.Data) != len(texts) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed",
			fmt.Errorf("vectors/texts mismatch: %d/%d", len(response.Data), len(texts)))
	}

	// The API documents data[] in input order, but index is authoritative.
	out := make([][]float32, len(texts))
	for _, d := range response.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
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

// Generator is the remote chat-completion provider.
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
	}
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	err := g.client.execute(ctx, "openai.chat", func(callCtx context.Context) error {
		return g.client.postJSON(callCtx, "/chat/completions", request, &response, "chat")
	})
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrProviderUnavailable, "chat",
			fmt.Errorf("no choices in response"))
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	call := func(callCtx context.Context) error {
		if err := c.limiter.Wait(callCtx); err != nil {
			return err
		}
		return fn(callCtx)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyError)
	} else {
		err = call(ctx)
	}
	return wrapProviderError(operation, err)
}
