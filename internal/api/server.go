package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bluepond-io/aquamon/internal/config"
	"github.com/bluepond-io/aquamon/internal/lib/logger/sl"
	"github.com/bluepond-io/aquamon/internal/sensor"
	"github.com/bluepond-io/aquamon/internal/store"
)

// Server is the readings REST service. It owns the HTTP listener; the
// store and parser are injected.
type Server struct {
	log      *slog.Logger
	cfg      *config.HTTPConfig
	parser   *sensor.Parser
	store    store.ReadingStore
	server   *http.Server
	checkers []HealthChecker
}

func NewServer(log *slog.Logger, cfg *config.HTTPConfig, parser *sensor.Parser, st store.ReadingStore) *Server {
	return &Server{
		log:    log,
		cfg:    cfg,
		parser: parser,
		store:  st,
	}
}

func (s *Server) AddChecker(checker HealthChecker) {
	s.checkers = append(s.checkers, checker)
}

// Router builds the chi router. Exposed separately from Start so tests can
// drive it through httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Route("/api/readings", func(r chi.Router) {
		r.Post("/", s.handleCreateReading)
		r.Get("/", s.handleListReadings)
		r.Get("/latest", s.handleLatestReading)
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info("starting API server", slog.String("address", s.cfg.Address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("API server error", sl.Err(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
