package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluepond-io/aquamon/internal/api"
	"github.com/bluepond-io/aquamon/internal/config"
	"github.com/bluepond-io/aquamon/internal/lib/logger/sl"
	"github.com/bluepond-io/aquamon/internal/sensor"
	"github.com/bluepond-io/aquamon/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoadAPI(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	log.Info("starting aquamon API",
		slog.String("env", cfg.Env),
		slog.String("address", cfg.HTTP.Address),
		slog.String("data_file", cfg.Store.Path),
	)

	st, err := store.NewFileStore(log, cfg.Store.Path, store.DefaultCapacity)
	if err != nil {
		log.Error("failed to open reading store", sl.Err(err))
		os.Exit(1)
	}

	server := api.NewServer(log, &cfg.HTTP, sensor.New(), st)
	server.AddChecker(api.NewStoreHealthChecker(st.Size))

	if err := server.Start(); err != nil {
		log.Error("failed to start API server", sl.Err(err))
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("received signal, shutting down", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop API server", sl.Err(err))
	}

	log.Info("API stopped")
}
