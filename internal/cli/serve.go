package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/kamdev/ragpipe/internal/adapters/http"
	"github.com/kamdev/ragpipe/internal/bootstrap"
	"github.com/kamdev/ragpipe/internal/config"
	"github.com/kamdev/ragpipe/internal/observability/logging"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query pipeline over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.loadConfig()
			if port != "" {
				cfg.APIPort = port
			}

			logger := logging.NewJSONLogger("ragpipe-api", cfg.LogLevel)
			slog.SetDefault(logger)

			providers, err := config.LoadProviders(cfg.ProvidersFile)
			if err != nil {
				return err
			}
			app, err := bootstrap.New(cmd.Context(), cfg, providers, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			router := httpadapter.NewRouter(app.Query, app.Metrics).Handler()
			server := &http.Server{
				Addr:         ":" + cfg.APIPort,
				Handler:      router,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("api listening", slog.String("port", cfg.APIPort))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("api shutdown", slog.String("error", err.Error()))
				return err
			}
			logger.Info("api stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on (default from API_PORT)")
	return cmd
}
