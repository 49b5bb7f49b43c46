package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 || cfg.RAGTopK != 3 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg)
	}
	if cfg.VectorStore != "chromem" || cfg.EmbedProvider != "local" {
		t.Fatalf("unexpected store defaults: %+v", cfg)
	}
	if cfg.ChromemPath != "./data/chromem_local-nomic-embed-text" {
		t.Fatalf("unexpected derived store path: %s", cfg.ChromemPath)
	}
}

func TestLoadDerivesStorePathFromRemoteModel(t *testing.T) {
	t.Setenv("EMBED_PROVIDER", "remote")
	cfg := Load()
	if cfg.ChromemPath != "./data/chromem_remote-text-embedding-3-small" {
		t.Fatalf("unexpected derived store path: %s", cfg.ChromemPath)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "900")
	t.Setenv("RAG_MIN_SCORE", "0.35")
	t.Setenv("CHROMEM_PATH", "/tmp/store")
	cfg := Load()
	if cfg.ChunkSize != 900 || cfg.RAGMinScore != 0.35 || cfg.ChromemPath != "/tmp/store" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestApplyEmbedOverrideRederivesStorePath(t *testing.T) {
	cfg := Load()
	cfg.ApplyEmbedOverride("remote", "text-embedding-3-large")
	if cfg.EmbedProvider != "remote" || cfg.EmbedModel() != "text-embedding-3-large" {
		t.Fatalf("override not applied: %+v", cfg)
	}
	if cfg.ChromemPath != "./data/chromem_remote-text-embedding-3-large" {
		t.Fatalf("store path not re-derived: %s", cfg.ChromemPath)
	}
}

func TestApplyEmbedOverrideKeepsPinnedPath(t *testing.T) {
	t.Setenv("CHROMEM_PATH", "/var/lib/ragpipe")
	cfg := Load()
	cfg.ApplyEmbedOverride("remote", "")
	if cfg.ChromemPath != "/var/lib/ragpipe" {
		t.Fatalf("pinned path must survive overrides, got %s", cfg.ChromemPath)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "lots")
	cfg := Load()
	if cfg.ChunkSize != 500 {
		t.Fatalf("malformed env must fall back to default, got %d", cfg.ChunkSize)
	}
}

func TestLoadProvidersFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	doc := `
providers:
  - name: local
    kind: local
    model: llama3.1:8b
  - name: remote
    kind: remote
    model: gpt-4o-mini
    api_key_env: OPENAI_API_KEY
    max_context_chars: 48000
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProviders(path)
	if err != nil {
		t.Fatalf("LoadProviders() error = %v", err)
	}
	if len(p.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(p.Providers))
	}
	remote := p.Providers[1]
	if remote.APIKeyEnv != "OPENAI_API_KEY" || remote.MaxContextChars != 48000 {
		t.Fatalf("unexpected remote spec: %+v", remote)
	}
}

func TestLoadProvidersRejectsBadSpecs(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"unknown kind", "providers:\n  - name: x\n    kind: cloud\n    model: m\n"},
		{"missing model", "providers:\n  - name: x\n    kind: local\n"},
		{"remote without key env", "providers:\n  - name: x\n    kind: remote\n    model: m\n"},
		{"duplicate names", "providers:\n  - name: x\n    kind: local\n    model: m\n  - name: x\n    kind: local\n    model: m\n"},
		{"empty", "providers: []\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "providers.yaml")
			if err := os.WriteFile(path, []byte(tc.doc), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadProviders(path)
			if !domain.IsKind(err, domain.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadProvidersDefaultsWithoutFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	p, err := LoadProviders("")
	if err != nil {
		t.Fatalf("LoadProviders() error = %v", err)
	}
	if len(p.Providers) != 1 || p.Providers[0].Name != "local" {
		t.Fatalf("expected the local default only, got %+v", p.Providers)
	}
}
