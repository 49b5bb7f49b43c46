package cli

import (
	"github.com/spf13/cobra"

	"github.com/kamdev/ragpipe/internal/config"
)

type rootOptions struct {
	logLevel      string
	verbose       bool
	providersFile string
	embedProvider string
	embedModel    string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ragpipe",
		Short: "Retrieval-augmented answering over a local document corpus",
		Long: "ragpipe imports documents into a vector store and answers questions " +
			"over them by retrieving relevant chunks and fanning the prompt out " +
			"to one or more LLM providers.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "shorthand for --log-level debug")
	cmd.PersistentFlags().StringVar(&opts.providersFile, "providers", "", "path to the providers YAML file")
	cmd.PersistentFlags().StringVar(&opts.embedProvider, "embed-provider", "", "embedding provider: local or remote")
	cmd.PersistentFlags().StringVar(&opts.embedModel, "embed-model", "", "embedding model override")

	cmd.AddCommand(
		newImportCommand(opts),
		newQueryCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// loadConfig merges env configuration with the persistent flags.
func (o *rootOptions) loadConfig() config.Config {
	cfg := config.Load()
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	if o.providersFile != "" {
		cfg.ProvidersFile = o.providersFile
	}
	cfg.ApplyEmbedOverride(o.embedProvider, o.embedModel)
	return cfg
}
