package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dgallion1/docdigest/internal/api"
	"github.com/dgallion1/docdigest/internal/embed"
	"github.com/dgallion1/docdigest/internal/pipeline"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve digests over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), cmd)
		},
	}
	cmd.Flags().String("port", "", "listen port (default 8090)")
	return cmd
}

func (a *app) serve(ctx context.Context, cmd *cobra.Command) error {
	cfg := *a.cfg
	log := newLogger(cmd.OutOrStdout(), cfg.Log)

	stats := embed.NewStats(time.Hour)
	provider, err := buildProvider(cfg, log, stats)
	if err != nil {
		log.Error("embedding provider unavailable", "error", err)
		return err
	}
	defer provider.Close()

	p := pipeline.New(cfg, pipeline.Deps{Provider: provider, Log: log})
	srv := api.NewServer(p, provider, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting docdigest", "port", cfg.Server.Port, "provider", provider.Name())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	return nil
}
