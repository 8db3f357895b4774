package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/voicetray/vigil/internal/config"
	"github.com/voicetray/vigil/internal/logger"
	"github.com/voicetray/vigil/internal/logstore"
	"github.com/voicetray/vigil/internal/logstore/factory"
	"github.com/voicetray/vigil/internal/manager"
	"github.com/voicetray/vigil/internal/metrics"
	"github.com/voicetray/vigil/internal/server"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var cfgPath string
	var autostart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the supervision daemon",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(cfgPath, autostart)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "vigil.toml", "path to config file")
	cmd.Flags().BoolVar(&autostart, "autostart", false, "start both services on boot")
	return cmd
}

func runServe(cfgPath string, autostart bool) error {
	fc, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger.Setup(fc.LogLevel, fc.LogColor)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var sink logstore.Sink
	if fc.StoreDSN != "" {
		sink, err = factory.NewFromDSN(fc.StoreDSN)
		if err != nil {
			return fmt.Errorf("open log store: %w", err)
		}
		defer func() { _ = sink.Close() }()
	}

	mgr := manager.New(fc.ManagerConfig(), sink)
	httpSrv := server.NewServer(fc.Listen, fc.BasePath, mgr, sink)
	slog.Info("vigil daemon started", "listen", fc.Listen, "base_path", fc.BasePath)

	if autostart {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := mgr.StartAll(ctx); err != nil {
			slog.Error("autostart failed", "error", err)
		}
		cancel()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	slog.Info("shutting down", "signal", s.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	return mgr.Shutdown(ctx)
}
