package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluepond-io/aquamon/internal/config"
	"github.com/bluepond-io/aquamon/internal/model"
	"github.com/bluepond-io/aquamon/internal/sensor"
	"github.com/bluepond-io/aquamon/internal/store"
)

func newTestServer(t *testing.T, st store.ReadingStore) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := sensor.NewWithClock(func() time.Time {
		return time.UnixMilli(1700000000000)
	})
	return NewServer(log, &config.HTTPConfig{Address: ":0"}, parser, st)
}

func postLine(t *testing.T, handler http.Handler, line string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"data":%q}`, line)
	req := httptest.NewRequest(http.MethodPost, "/api/readings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateReading_Valid(t *testing.T) {
	st := store.NewMemoryStore(store.DefaultCapacity)
	handler := newTestServer(t, st).Router()

	rec := postLine(t, handler, "pH:6.20,temp:23.20,water:medium,tds:652")
	require.Equal(t, http.StatusCreated, rec.Code)

	var got model.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 6.20, got.PH)
	assert.Equal(t, 23.20, got.Temperature)
	assert.Equal(t, "medium", got.WaterLevel)
	assert.Equal(t, 652, got.TDS)
	assert.Equal(t, int64(1700000000000), got.CapturedAt)

	assert.Equal(t, 1, st.Size())
}

func TestCreateReading_ParseFailureLeavesStoreUntouched(t *testing.T) {
	st := store.NewMemoryStore(store.DefaultCapacity)
	handler := newTestServer(t, st).Router()

	cases := map[string]struct {
		line string
		kind string
	}{
		"three fields":  {"pH:6.20,temp:23.20,water:medium", "malformed_structure"},
		"lowercase key": {"ph:6.20,temp:23.20,water:medium,tds:652", "unexpected_key"},
		"non-numeric":   {"pH:abc,temp:23.20,water:medium,tds:652", "invalid_numeric_value"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := postLine(t, handler, tc.line)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.kind, resp["error"])
		})
	}

	assert.Equal(t, 0, st.Size(), "rejected lines must not be appended")
}

func TestCreateReading_InvalidBody(t *testing.T) {
	handler := newTestServer(t, store.NewMemoryStore(store.DefaultCapacity)).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/readings", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request", resp["error"])
}

type failingStore struct {
	*store.MemoryStore
}

func (s *failingStore) Append(r model.Reading) (model.Reading, error) {
	return model.Reading{}, fmt.Errorf("%w: disk full", store.ErrPersistenceFailure)
}

func TestCreateReading_PersistenceFailure(t *testing.T) {
	st := &failingStore{store.NewMemoryStore(store.DefaultCapacity)}
	handler := newTestServer(t, st).Router()

	rec := postLine(t, handler, "pH:6.20,temp:23.20,water:medium,tds:652")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "persistence_failure", resp["error"])
}

func TestListReadings(t *testing.T) {
	st := store.NewMemoryStore(store.DefaultCapacity)
	handler := newTestServer(t, st).Router()

	req := httptest.NewRequest(http.MethodGet, "/api/readings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var empty []model.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Empty(t, empty)

	postLine(t, handler, "pH:6.20,temp:23.20,water:low,tds:100")
	postLine(t, handler, "pH:6.40,temp:23.50,water:high,tds:200")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var all []model.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 2)
	assert.Equal(t, "low", all[0].WaterLevel)
	assert.Equal(t, "high", all[1].WaterLevel)
}

func TestLatestReading(t *testing.T) {
	st := store.NewMemoryStore(store.DefaultCapacity)
	handler := newTestServer(t, st).Router()

	req := httptest.NewRequest(http.MethodGet, "/api/readings/latest", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no_readings", resp["error"])

	postLine(t, handler, "pH:6.20,temp:23.20,water:low,tds:100")
	postLine(t, handler, "pH:6.40,temp:23.50,water:medium,tds:200")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var latest struct {
		model.Reading
		Severity string `json:"severity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	assert.Equal(t, 6.40, latest.PH)
	assert.Equal(t, "medium", latest.WaterLevel)
	assert.Equal(t, "yellow", latest.Severity)
}

func TestHealthEndpoints(t *testing.T) {
	st := store.NewMemoryStore(store.DefaultCapacity)
	srv := newTestServer(t, st)
	srv.AddChecker(NewStoreHealthChecker(st.Size))
	handler := srv.Router()

	for _, path := range []string{"/health", "/ready", "/live"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, StatusHealthy, health.Status)
	require.Len(t, health.Components, 1)
	assert.Equal(t, "store", health.Components[0].Name)
}
