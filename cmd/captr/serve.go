package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/loykin/captr"
	"github.com/loykin/captr/internal/config"
	"github.com/loykin/captr/internal/logger"
	"github.com/loykin/captr/internal/metrics"
)

func createServeCommand(gf *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the captr daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(gf)
		},
	}
	cmd.Flags().StringVarP(&gf.ConfigPath, "config", "c", "", "path to TOML config file")
	return cmd
}

func runServe(gf *GlobalFlags) error {
	cfg, err := config.Load(gf.ConfigPath)
	if err != nil {
		return err
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Color)

	mgr := captr.New()
	if cfg.CheckpointInterval > 0 {
		mgr.SetCheckpoint(cfg.CheckpointInterval)
	}
	if cfg.GracefulTimeout > 0 {
		mgr.SetGrace(cfg.GracefulTimeout)
	}
	if cfg.Mirror.Dir != "" || cfg.Mirror.StdoutPath != "" || cfg.Mirror.StderrPath != "" {
		mgr.SetMirror(cfg.Mirror)
	}

	if cfg.History.DSN != "" {
		sink, err := captr.NewHistorySink(cfg.History.DSN)
		if err != nil {
			return err
		}
		defer closeSink(sink)
		mgr.SetHistorySinks(sink)
		slog.Info("history sink enabled", "dsn", cfg.History.DSN)
	}

	if cfg.Metrics.Enabled {
		if err := captr.RegisterMetricsDefault(); err != nil {
			return err
		}
		sampler := metrics.NewSampler(cfg.Metrics.Interval, mgr.TrackedProcs)
		if err := sampler.Register(prometheus.DefaultRegisterer); err != nil {
			return err
		}
		sampler.Start()
		defer sampler.Stop()
		go func() {
			if err := captr.ServeMetrics(cfg.Metrics.Listen); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
		slog.Info("metrics enabled", "listen", cfg.Metrics.Listen)
	}

	srv, err := captr.NewHTTPServer(cfg.Listen, cfg.BasePath, mgr)
	if err != nil {
		return err
	}
	slog.Info("captr daemon listening", "addr", cfg.Listen, "base_path", cfg.BasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("http server shutdown", "error", err)
	}
	mgr.Shutdown()
	return nil
}

func closeSink(s captr.HistorySink) {
	type closer interface{ Close() error }
	if c, ok := s.(closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("history sink close", "error", err)
		}
	}
}
