package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"resume-pipeline/internal/shared/server"
	"resume-pipeline/internal/shared/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API; with the local queue it also runs the workers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	workerDone := make(chan struct{})
	if rt.cfg.QueueType == "local" {
		w, err := rt.app.Worker()
		if err != nil {
			return err
		}
		go func() {
			defer close(workerDone)
			_ = w.Run(ctx)
		}()
	} else {
		close(workerDone)
	}

	srv := server.NewHTTPServer(server.Addr(rt.cfg.Port), rt.app.Router)
	errCh := make(chan error, 1)
	go func() {
		telemetry.Info("http.listening", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			stop()
			<-workerDone
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout)
	defer cancel()
	telemetry.Info("http.shutdown", map[string]any{"timeout": rt.cfg.ShutdownTimeout.String()})
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Warn("http.shutdown_failed", map[string]any{"error": err.Error()})
	}
	<-workerDone
	return nil
}
