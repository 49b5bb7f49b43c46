package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/kamdev/ragpipe/internal/core/domain"
	"github.com/kamdev/ragpipe/internal/core/ports"
)

// Dispatcher fans a prompt out to a set of answer generators concurrently
// and joins all outcomes. One provider failing never suppresses the
// others: the result map carries an entry per requested provider, each
// holding either an answer or that provider's error.
type Dispatcher struct {
	generators map[string]ports.AnswerGenerator
	logger     *slog.Logger
}

func NewDispatcher(logger *slog.Logger, generators ...ports.AnswerGenerator) *Dispatcher {
	byID := make(map[string]ports.AnswerGenerator, len(generators))
	for _, g := range generators {
		byID[g.ID()] = g
	}
	return &Dispatcher{generators: byID, logger: logger}
}

// Providers lists the configured generator ids in stable order.
func (d *Dispatcher) Providers() []string {
	ids := make([]string, 0, len(d.generators))
	for id := range d.generators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch runs Generate on every requested provider concurrently. The
// prompt already carries the assembled context, so its size alone is
// checked against each provider's budget. An unknown provider id is a
// configuration error and fails the whole call; an empty providerIDs
// slice selects all configured providers. When ctx is cancelled
// mid-flight the call returns ctx.Err() and partial answers are
// discarded.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	systemPrompt, prompt string,
	providerIDs []string,
) (map[string]domain.ProviderResult, error) {
	if len(providerIDs) == 0 {
		providerIDs = d.Providers()
	}
	selected := make([]ports.AnswerGenerator, 0, len(providerIDs))
	for _, id := range providerIDs {
		gen, ok := d.generators[id]
		if !ok {
			return nil, domain.WrapError(domain.ErrInvalidConfig, "dispatch",
				fmt.Errorf("unknown provider %q", id))
		}
		selected = append(selected, gen)
	}

	promptSize := utf8.RuneCountInString(prompt)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]domain.ProviderResult, len(selected))
	)
	for _, gen := range selected {
		wg.Add(1)
		go func(gen ports.AnswerGenerator) {
			defer wg.Done()
			result := d.generate(ctx, gen, systemPrompt, prompt, promptSize)
			mu.Lock()
			results[gen.ID()] = result
			mu.Unlock()
		}(gen)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Dispatcher) generate(
	ctx context.Context,
	gen ports.AnswerGenerator,
	systemPrompt, prompt string,
	promptSize int,
) domain.ProviderResult {
	if budget := gen.MaxContextChars(); budget > 0 && promptSize > budget {
		err := domain.WrapError(domain.ErrContextTooLong, "dispatch",
			fmt.Errorf("provider %s: prompt %d chars over budget %d", gen.ID(), promptSize, budget))
		d.logger.Warn("provider skipped", slog.String("provider", gen.ID()), slog.Int("prompt_chars", promptSize), slog.Int("budget", budget))
		return domain.ProviderResult{Err: err}
	}

	text, err := gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		d.logger.Warn("provider failed",
			slog.String("provider", gen.ID()),
			slog.String("error", err.Error()))
		return domain.ProviderResult{Err: err}
	}
	return domain.ProviderResult{Answer: &domain.Answer{Provider: gen.ID(), Text: text}}
}
