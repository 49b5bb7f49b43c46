package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

// ProviderSpec declares one answer generator in the fan-out set. API keys
// never live in the file: APIKeyEnv names the environment variable to
// read the key from at startup.
type ProviderSpec struct {
	Name            string `yaml:"name"`
	Kind            string `yaml:"kind"` // "local" or "remote"
	Model           string `yaml:"model"`
	BaseURL         string `yaml:"base_url,omitempty"`
	APIKeyEnv       string `yaml:"api_key_env,omitempty"`
	MaxContextChars int    `yaml:"max_context_chars,omitempty"`
}

type Providers struct {
	Providers []ProviderSpec `yaml:"providers"`
}

// DefaultProviders is the fan-out set used when no providers file is
// configured: the local model, plus the remote one when its key is set.
func DefaultProviders() *Providers {
	p := &Providers{
		Providers: []ProviderSpec{
			{Name: "local", Kind: "local", Model: "llama3.1:8b"},
		},
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		p.Providers = append(p.Providers, ProviderSpec{
			Name:      "remote",
			Kind:      "remote",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		})
	}
	return p
}

func LoadProviders(path string) (*Providers, error) {
	if path == "" {
		return DefaultProviders(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "read providers file", err)
	}
	var p Providers
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "parse providers file",
			fmt.Errorf("%s: %w", path, err))
	}
	if err := p.validate(); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "validate providers file",
			fmt.Errorf("%s: %w", path, err))
	}
	return &p, nil
}

func (p *Providers) validate() error {
	if len(p.Providers) == 0 {
		return fmt.Errorf("no providers declared")
	}
	seen := make(map[string]struct{}, len(p.Providers))
	for i, spec := range p.Providers {
		if spec.Name == "" {
			return fmt.Errorf("provider %d has no name", i)
		}
		if _, ok := seen[spec.Name]; ok {
			return fmt.Errorf("duplicate provider name %q", spec.Name)
		}
		seen[spec.Name] = struct{}{}
		if spec.Kind != "local" && spec.Kind != "remote" {
			return fmt.Errorf("provider %q has unknown kind %q", spec.Name, spec.Kind)
		}
		if spec.Model == "" {
			return fmt.Errorf("provider %q has no model", spec.Name)
		}
		if spec.Kind == "remote" && spec.APIKeyEnv == "" {
			return fmt.Errorf("remote provider %q needs api_key_env", spec.Name)
		}
	}
	return nil
}
