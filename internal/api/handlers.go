package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bluepond-io/aquamon/internal/lib/logger/sl"
	"github.com/bluepond-io/aquamon/internal/model"
	"github.com/bluepond-io/aquamon/internal/sensor"
	"github.com/bluepond-io/aquamon/internal/severity"
)

// Error kinds exposed on the wire.
const (
	kindMalformedStructure  = "malformed_structure"
	kindUnexpectedKey       = "unexpected_key"
	kindInvalidNumericValue = "invalid_numeric_value"
	kindPersistenceFailure  = "persistence_failure"
	kindInvalidRequest      = "invalid_request"
	kindNoReadings          = "no_readings"
)

type createReadingRequest struct {
	Data string `json:"data"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type latestReadingResponse struct {
	model.Reading
	Severity string `json:"severity"`
}

// handleCreateReading ingests one raw sensor line: parse, then append.
// A parse failure leaves the store untouched and reports the failure kind.
func (s *Server) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	var req createReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: kindInvalidRequest, Detail: "body must be JSON with a \"data\" field"})
		return
	}

	reading, err := s.parser.Parse(req.Data)
	if err != nil {
		s.log.Warn("rejected sensor line",
			slog.String("line", req.Data),
			sl.Err(err),
		)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: parseErrorKind(err), Detail: err.Error()})
		return
	}

	stored, err := s.store.Append(reading)
	if err != nil {
		s.log.Error("failed to persist reading", sl.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: kindPersistenceFailure, Detail: err.Error()})
		return
	}

	s.log.Info("reading stored",
		slog.Float64("ph", stored.PH),
		slog.Float64("temperature", stored.Temperature),
		slog.String("water_level", stored.WaterLevel),
		slog.Int("tds", stored.TDS),
	)

	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.All())
}

func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	reading, ok := s.store.Latest()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: kindNoReadings})
		return
	}

	writeJSON(w, http.StatusOK, latestReadingResponse{
		Reading:  reading,
		Severity: severity.ForWaterLevel(reading.WaterLevel),
	})
}

func parseErrorKind(err error) string {
	switch {
	case errors.Is(err, sensor.ErrUnexpectedKey):
		return kindUnexpectedKey
	case errors.Is(err, sensor.ErrInvalidNumericValue):
		return kindInvalidNumericValue
	default:
		return kindMalformedStructure
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
