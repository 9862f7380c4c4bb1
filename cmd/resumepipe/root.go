package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"resume-pipeline/internal/bootstrap"
	"resume-pipeline/internal/shared/config"
	"resume-pipeline/internal/shared/telemetry"
)

const app = "resumepipe"

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "resumepipe extracts, scores and serves uploaded resumes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		telemetry.Error("command.failed", map[string]any{"error": err.Error()})
	}
	telemetry.Sync()
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a YAML config file; environment variables take precedence")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", true, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// session holds what a subcommand set up and must release.
type session struct {
	cfg      config.Config
	app      *bootstrap.App
	shutdown []func(context.Context) error
}

// setup installs the logger and builds the app from configuration. mutate may
// adjust the config before Build.
func setup(ctx context.Context, mutate func(*config.Config)) (*session, error) {
	logger, err := telemetry.NewLogger(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}
	restore := telemetry.SetLogger(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		restore()
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	telemetry.Debug("config.loaded", map[string]any{
		"env":             cfg.Env,
		"object_store":    cfg.ObjectStoreType,
		"queue":           cfg.QueueType,
		"activity_driver": cfg.ActivityDriver,
	})

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TracingOptions{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.ServiceName,
		Protocol:    cfg.OTLPProtocol,
		Sampler:     cfg.TraceSampler,
		SamplerArg:  cfg.TraceSamplerArg,
	})
	if err != nil {
		restore()
		return nil, err
	}

	built, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		_ = shutdownTracing(context.Background())
		restore()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &session{
		cfg: cfg,
		app: built,
		shutdown: []func(context.Context) error{
			func(context.Context) error { restore(); return nil },
			shutdownTracing,
			built.Close,
		},
	}, nil
}

// close releases everything setup acquired, in reverse order.
func (r *session) close(ctx context.Context) {
	for i := len(r.shutdown) - 1; i >= 0; i-- {
		if err := r.shutdown[i](ctx); err != nil {
			telemetry.Warn("shutdown.failed", map[string]any{"error": err.Error()})
		}
	}
}
