package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vango-dev/cells/internal/config"
	"github.com/vango-dev/cells/internal/dev"
	cerrors "github.com/vango-dev/cells/internal/errors"
	"github.com/vango-dev/cells/pkg/cells"
	"github.com/vango-dev/cells/pkg/probe"
	"github.com/vango-dev/cells/pkg/server"
	"github.com/vango-dev/cells/pkg/sheet"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		configDir string
		debug     bool
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "serve [sheet.yaml]",
		Short: "Serve a sheet over HTTP",
		Long: `Serve a sheet over HTTP with live WebSocket watches.

Settings come from cells.json in the config directory; flags override
them. Without a sheet argument the sheet named in cells.json is served.

Endpoints:
  GET  /cells, /cells/{name}   read cells
  PUT  /cells/{name}           write a cell
  POST /update                 write several cells atomically
  GET  /watch/{name}           WebSocket change stream
  GET  /metrics                Prometheus metrics

Examples:
  cells serve order.yaml
  cells serve --config ./deploy --addr :9090
  cells serve order.yaml --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(configDir, args, addr, debug)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cmd.ErrOrStderr(), cfg, watch)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from cells.json)")
	cmd.Flags().StringVarP(&configDir, "config", "c", ".", "Directory containing cells.json")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log transaction boundaries")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the sheet when its file changes")

	return cmd
}

// loadServeConfig loads cells.json from dir and applies the command line.
func loadServeConfig(dir string, args []string, addr string, debug bool) (*config.Config, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return nil, err
		}
		cfg.Sheet = abs
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if debug {
		cfg.Debug = true
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Sheet == "" {
		return nil, cerrors.New("C061").
			WithDetail("No sheet to serve").
			WithSuggestion("Pass a sheet file or set \"sheet\" in " + config.ConfigFileName)
	}
	return cfg, nil
}

func runServe(ctx context.Context, logOut io.Writer, cfg *config.Config, watch bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(logOut, cfg.LogLevel(), cfg.Log.Format)

	var (
		probes []cells.Probe
		reg    *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		probes = append(probes, probe.NewMetrics(
			probe.WithNamespace(cfg.Metrics.Namespace),
			probe.WithRegistry(reg),
		))
	}
	if cfg.Tracing.Enabled {
		tp, err := newTracerProvider(logOut, true)
		if err != nil {
			return err
		}
		defer tp.Shutdown(context.Background())
		probes = append(probes, probe.NewTracer(
			probe.WithTracerName(cfg.Tracing.TracerName),
			probe.WithTracerProvider(tp),
		))
	}

	s, err := loadSheet(cfg, logger, probes)
	if err != nil {
		return err
	}

	srv := server.New(s, &server.Config{
		Addr:            cfg.Server.Addr,
		MetricsPath:     cfg.Server.MetricsPath,
		WatchBuffer:     cfg.Server.WatchBuffer,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		Registry:        reg,
		Logger:          logger,
	})

	if watch {
		w := dev.NewWatcher(dev.WatcherConfig{Paths: []string{cfg.SheetPath()}})
		w.OnChange(func(c dev.Change) {
			if c.Op == dev.ChangeRemove {
				return
			}
			next, err := loadSheet(cfg, logger, probes)
			if err != nil {
				logger.Error("sheet reload failed", "error", cerrors.FromError(err, "C006").FormatCompact())
				return
			}
			srv.Reload(next)
		})
		go func() {
			if err := w.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("sheet watcher failed", "error", err)
			}
		}()
		defer w.Stop()
	}

	if err := srv.Run(ctx); err != nil {
		return cerrors.New("C081").Wrap(err)
	}
	return nil
}

// loadSheet loads the configured sheet on a fresh runtime reporting to
// probes.
func loadSheet(cfg *config.Config, logger *slog.Logger, probes []cells.Probe) (*sheet.Sheet, error) {
	rt := cells.NewRuntime(
		cells.WithLogger(logger),
		cells.WithProbe(cells.Probes(probes...)),
		cells.WithDebug(cfg.Debug),
	)
	return sheet.Load(cfg.SheetPath(), sheet.WithRuntime(rt), sheet.WithLogger(logger))
}
