package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamdev/ragpipe/internal/bootstrap"
	"github.com/kamdev/ragpipe/internal/config"
	"github.com/kamdev/ragpipe/internal/core/domain"
	"github.com/kamdev/ragpipe/internal/observability/logging"
)

func newQueryCommand(root *rootOptions) *cobra.Command {
	var (
		question  string
		topK      int
		providers []string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Answer a question over the imported corpus",
		Example: `  ragpipe query -q "What is chunk overlap for?"
  ragpipe query -q "..." --llm local --llm remote --top-k 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(question) == "" {
				return domain.WrapError(domain.ErrInvalidInput, "query",
					fmt.Errorf("-q is required"))
			}

			cfg := root.loadConfig()
			logger := logging.NewTextLogger(cfg.LogLevel)
			providerSpecs, err := config.LoadProviders(cfg.ProvidersFile)
			if err != nil {
				return err
			}
			app, err := bootstrap.New(cmd.Context(), cfg, providerSpecs, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Query.Ask(cmd.Context(), question, topK, providers)
			if err != nil {
				return err
			}
			printResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "question to answer")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve (default from RAG_TOP_K)")
	cmd.Flags().StringArrayVar(&providers, "llm", nil, "provider to ask, repeatable (default: all configured)")
	return cmd
}

func printResult(cmd *cobra.Command, result *domain.QueryResult) {
	out := cmd.OutOrStdout()
	if len(result.Answers) == 0 {
		fmt.Fprintln(out, "no relevant context found in the store")
		return
	}

	names := make([]string, 0, len(result.Answers))
	for name := range result.Answers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := result.Answers[name]
		fmt.Fprintf(out, "--- %s ---\n", name)
		if r.Err != nil {
			fmt.Fprintf(out, "error: %v\n\n", domain.Kind(r.Err))
			continue
		}
		fmt.Fprintf(out, "%s\n\n", r.Answer.Text)
	}

	if len(result.Sources) > 0 {
		fmt.Fprintln(out, "sources:")
		for i, s := range result.Sources {
			fmt.Fprintf(out, "  [%d] %s (%s, score %.3f)\n",
				i+1, s.Record.Meta.Source, s.Record.ChunkID, s.Score)
		}
	}
}
