package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kamdev/ragpipe/internal/bootstrap"
	"github.com/kamdev/ragpipe/internal/config"
	"github.com/kamdev/ragpipe/internal/core/domain"
	"github.com/kamdev/ragpipe/internal/core/ports"
	"github.com/kamdev/ragpipe/internal/infrastructure/source"
	"github.com/kamdev/ragpipe/internal/observability/logging"
)

func newImportCommand(root *rootOptions) *cobra.Command {
	var (
		corpusPath string
		dirPath    string
		patterns   []string
		chunkSize  int
		overlap    int
		batchSize  int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Chunk, embed and store a document corpus",
		Example: `  ragpipe import --corpus ./corpus.json
  ragpipe import --dir ./docs --pattern '**/*.md'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.loadConfig()
			if cmd.Flags().Changed("chunk-size") {
				cfg.ChunkSize = chunkSize
			}
			if cmd.Flags().Changed("overlap") {
				cfg.ChunkOverlap = overlap
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.BatchSize = batchSize
			}

			src, label, err := buildSource(corpusPath, dirPath, patterns)
			if err != nil {
				return err
			}

			logger := logging.NewTextLogger(cfg.LogLevel)
			providers, err := config.LoadProviders(cfg.ProvidersFile)
			if err != nil {
				return err
			}
			app, err := bootstrap.New(cmd.Context(), cfg, providers, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Importer.Import(cmd.Context(), withProgress(src), label)
			app.Metrics.RecordImport("ragpipe", report)

			fmt.Fprintf(cmd.OutOrStdout(),
				"\nimported %d documents: %d chunks written, %d failed in %s\n",
				report.Documents, report.ChunksWritten, report.ChunksFailed,
				report.Duration.Round(10*time.Millisecond))
			if err != nil {
				return fmt.Errorf("import aborted: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusPath, "corpus", "", "path to a JSON corpus file")
	cmd.Flags().StringVar(&dirPath, "dir", "", "directory to import recursively")
	cmd.Flags().StringSliceVar(&patterns, "pattern", nil, "glob patterns for --dir (default txt, md and pdf)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 500, "chunk size in characters")
	cmd.Flags().IntVar(&overlap, "overlap", 50, "chunk overlap in characters")
	cmd.Flags().IntVar(&batchSize, "batch-size", 64, "embedding batch size")
	return cmd
}

func buildSource(corpusPath, dirPath string, patterns []string) (ports.DocumentSource, string, error) {
	switch {
	case corpusPath != "" && dirPath != "":
		return nil, "", domain.WrapError(domain.ErrInvalidConfig, "import",
			fmt.Errorf("--corpus and --dir are mutually exclusive"))
	case corpusPath != "":
		src, err := source.NewJSONFile(corpusPath)
		return src, corpusPath, err
	case dirPath != "":
		src, err := source.NewDir(dirPath, patterns)
		return src, dirPath, err
	default:
		return nil, "", domain.WrapError(domain.ErrInvalidConfig, "import",
			fmt.Errorf("either --corpus or --dir is required"))
	}
}

// sized is implemented by sources that know their document count up front.
type sized interface {
	Len() int
}

func withProgress(src ports.DocumentSource) ports.DocumentSource {
	s, ok := src.(sized)
	if !ok {
		return src
	}
	return &progressSource{
		inner: src,
		bar:   progressbar.Default(int64(s.Len()), "importing"),
	}
}

type progressSource struct {
	inner ports.DocumentSource
	bar   *progressbar.ProgressBar
}

func (s *progressSource) Next(ctx context.Context) (domain.Document, error) {
	doc, err := s.inner.Next(ctx)
	if err == nil {
		_ = s.bar.Add(1)
	}
	return doc, err
}
