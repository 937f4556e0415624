package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/httpapi"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	cmd.Flags().String("port", "", "Listen port (overrides PORT)")
	return cmd
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.pipeline.Close()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		env.cfg.Port = port
	}

	app := &httpapi.App{
		Svc:     env.pipeline,
		Health:  env.pipeline.Media,
		Log:     env.log,
		Timeout: env.cfg.FinalizeTimeout,
	}
	srv := &http.Server{
		Addr:         ":" + env.cfg.Port,
		Handler:      httpapi.NewRouter(app, env.pipeline.MediaDir),
		ReadTimeout:  env.cfg.HTTPReadTimeout,
		WriteTimeout: env.cfg.HTTPWriteTimeout,
		IdleTimeout:  env.cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		env.log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	env.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
