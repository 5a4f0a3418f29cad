package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kralicky/streamrelay/pkg/auth"
	"github.com/kralicky/streamrelay/pkg/config"
	"github.com/kralicky/streamrelay/pkg/events"
	"github.com/kralicky/streamrelay/pkg/metrics"
	"github.com/kralicky/streamrelay/pkg/process"
	"github.com/kralicky/streamrelay/pkg/server"
	"github.com/kralicky/streamrelay/pkg/supervisor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// BuildServeCmd represents the serve command
func BuildServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server.",
		Long: `
Runs the relay server. Streams are started, listed and stopped through the
relay API, using relayctl or any other client of the relay.v1.Relay service.

Every setting can also be provided in a config file (--config), or through an
environment variable named after the flag with a STREAMRELAY_ prefix, e.g.
STREAMRELAY_GRACE_PERIOD=10s. The token can also be set with BOT_TOKEN.

On SIGINT or SIGTERM, every running stream is stopped before exiting.
`[1:],
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	config.AddFlags(cmd.Flags())
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	streamMetrics := metrics.NewCollectors()
	if err := streamMetrics.Register(registry); err != nil {
		return err
	}
	defer streamMetrics.Subscribe(bus)()

	launcher := &process.ExecLauncher{
		Command: cfg.FFmpeg,
		Output:  cfg.OutputConfig,
		Options: process.Options{
			KillTimeout: cfg.KillTimeout,
		},
	}
	sup := supervisor.New(launcher, supervisor.Options{
		GracePeriod:  cfg.GracePeriod,
		Profile:      cfg.Profile,
		ReapInterval: cfg.ReapInterval,
		Events:       bus,
	})

	middlewares := []auth.Middleware{
		auth.NewMiddleware(auth.NewTokenAuthenticator(cfg.Token)),
	}
	if cfg.CaCertFile != "" {
		middlewares = append(middlewares, auth.NewMiddleware(auth.NewCertAuthenticator()))
	}
	srv := server.NewServer(sup, server.Options{
		ListenAddress:   cfg.ListenAddress,
		CertFile:        cfg.CertFile,
		KeyFile:         cfg.KeyFile,
		CaCertFile:      cfg.CaCertFile,
		AuthMiddlewares: middlewares,
	})

	slog.With(
		"ffmpeg", cfg.FFmpeg,
		"gracePeriod", cfg.GracePeriod,
		"logDir", cfg.Dir,
	).Info("starting stream relay")

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	if cfg.MetricsAddress != "" {
		eg.Go(func() error {
			return metrics.ListenAndServe(ctx, cfg.MetricsAddress, registry)
		})
	}
	eg.Go(func() error {
		sup.Run(ctx)
		return nil
	})
	err := eg.Wait()

	if outcomes := sup.StopAll(); len(outcomes) > 0 {
		slog.Info("stopped remaining streams on shutdown", "count", len(outcomes))
	}
	return err
}
