package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gabrier01/tcpscan01/internal/api"
	"github.com/gabrier01/tcpscan01/internal/config"
	"github.com/gabrier01/tcpscan01/internal/metrics"
	"github.com/gabrier01/tcpscan01/internal/scanning"
	"github.com/gabrier01/tcpscan01/internal/scheduler"
)

func newWatchCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Repeat the scan on a schedule",
		Long: `Run the scan once immediately and then on a cron schedule until
interrupted. With --listen, liveness, the state of the scan job and
Prometheus metrics are served over HTTP.`,
		Example: `  tcpscan watch -H example.com -p 22,80,443 --schedule "@every 10m"
  tcpscan watch -H example.com -p 22 --schedule "*/5 * * * *" --listen 127.0.0.1:9115`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().String("schedule", config.Default().Watch.Schedule,
		"cron expression or descriptor such as @every 5m")
	cmd.Flags().String("listen", "", "serve status and metrics on this address")
	bindFlags(v, cmd.Flags())

	return cmd
}

// runWatch scans on cfg.Watch.Schedule until ctx is cancelled. Every run
// uses a fresh scanner; metrics accumulate across runs.
func runWatch(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	logger, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		return err
	}

	m := metrics.NewPrometheusMetrics().WithRuntimeCollectors()
	sched := scheduler.NewScheduler(logger)
	id, err := sched.AddJob(cfg.Host, cfg.Watch.Schedule, func(ctx context.Context) (*scanning.Summary, error) {
		summary, err := newScanner(cfg, stdout, logger, m).Run(ctx)
		if werr := writeMetrics(cfg, m, logger); werr != nil && err == nil {
			err = werr
		}
		return summary, err
	})
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}

	first := make(chan struct{})
	go func() {
		defer close(first)
		_ = sched.RunNow(id)
	}()
	defer func() {
		sched.Stop()
		<-first
	}()

	if cfg.Watch.ListenAddr == "" {
		<-ctx.Done()
		return nil
	}

	apiCfg := api.DefaultConfig()
	apiCfg.ListenAddr = cfg.Watch.ListenAddr
	apiCfg.Version = version
	return api.New(apiCfg, sched, m, logger).Start(ctx)
}
