package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bluepond-io/aquamon/internal/bridge"
	"github.com/bluepond-io/aquamon/internal/config"
	"github.com/bluepond-io/aquamon/internal/lib/logger/sl"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dryRun := flag.Bool("dry-run", false, "log lines instead of sending")
	flag.Parse()

	cfg := config.MustLoadBridge(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	log.Info("starting aquamon bridge",
		slog.String("env", cfg.Env),
		slog.String("device", cfg.Device.Path),
		slog.Bool("dry_run", *dryRun),
	)

	source, err := openSource(log, &cfg.Device)
	if err != nil {
		log.Error("failed to open sensor device", sl.Err(err))
		os.Exit(1)
	}

	// Use LogForwarder for dry-run mode, HTTPForwarder otherwise
	var forwarder bridge.Forwarder
	if *dryRun {
		forwarder = bridge.NewLogForwarder(log)
		log.Info("dry-run mode: lines will be logged instead of sent")
	} else {
		forwarder = bridge.NewHTTPForwarder(log, &cfg.Forward)
	}

	var spool bridge.Spool
	if cfg.Spool.Enabled && !*dryRun {
		sqliteSpool, err := bridge.NewSQLiteSpool(log, cfg.Spool.Path)
		if err != nil {
			log.Error("failed to create spool", sl.Err(err))
			os.Exit(1)
		}
		spool = sqliteSpool
		log.Info("spool enabled", slog.String("path", cfg.Spool.Path))
	}

	selector := bridge.NewSelector(log, cfg.Forward.Endpoints, forwarder.Probe)

	runner := bridge.NewRunner(log, cfg, source, forwarder, selector, spool)

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	runner.Start(ctx)
	runner.Stop()

	if spool != nil {
		if err := spool.Close(); err != nil {
			log.Error("failed to close spool", sl.Err(err))
		}
	}

	log.Info("bridge stopped")
}

// openSource opens the configured device, falling back to probing the
// candidate list when the node is absent (USB re-enumeration moves the
// sensor between ttyUSB/ttyACM numbers).
func openSource(log *slog.Logger, cfg *config.DeviceConfig) (bridge.LineSource, error) {
	if _, err := os.Stat(cfg.Path); err == nil {
		return bridge.OpenDevice(cfg.Path)
	}

	log.Warn("configured device not found, probing candidates",
		slog.String("device", cfg.Path),
		slog.Int("candidates", len(cfg.Candidates)),
	)

	source, path, err := bridge.DetectDevice(log, cfg.Candidates, cfg.ProbeTimeout)
	if err != nil {
		return nil, err
	}

	log.Info("using detected device", slog.String("device", path))
	return source, nil
}
