package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"resume-pipeline/internal/shared/telemetry"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume pipeline tasks from the configured queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorker(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	if rt.cfg.QueueType == "local" {
		telemetry.Warn("worker.local_queue", map[string]any{
			"hint": "the local queue is only fed by this process; use serve or QUEUE=sqs",
		})
	}

	w, err := rt.app.Worker()
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
