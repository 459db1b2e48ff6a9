package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/zoneradar/internal/backfill"
	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/models"
	"github.com/navid-fn/zoneradar/internal/price"
	"github.com/navid-fn/zoneradar/internal/storage"
	"github.com/navid-fn/zoneradar/pkg/faulttolerance"
)

type stubConnector struct{}

func (stubConnector) Name() models.Exchange       { return models.ExchangeBinance }
func (stubConnector) RangeCapable() bool          { return true }
func (stubConnector) Symbol(symbol string) string { return symbol }

func (stubConnector) Fetch(ctx context.Context, symbol string, start, end int64, limit int) ([]drivers.RawTrade, error) {
	return nil, nil
}

func (stubConnector) Normalize(raw drivers.RawTrade) *models.Trade { return nil }

// brokenStore rejects job creation, standing in for a broken database.
type brokenStore struct {
	*storage.MemoryStore
}

func (s *brokenStore) CreateJob(ctx context.Context, job *models.BackfillJob) error {
	return errors.New("connection refused")
}

func newTestRouter(t *testing.T, store storage.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lookup := func(e models.Exchange) (drivers.Connector, error) {
		if e != models.ExchangeBinance {
			return nil, errors.New("unsupported exchange")
		}
		return stubConnector{}, nil
	}
	cfg := backfill.Config{
		WindowSize:    time.Minute,
		MaxConcurrent: 1,
		Retry:         faulttolerance.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, Name: "test"},
	}
	engine := backfill.NewEngine(store, lookup, logger, cfg)
	t.Cleanup(engine.Close)

	svc := NewZoneService(store, price.NewResolver(nil, time.Second, logger), nil)
	return NewRouter(NewHandler(engine, svc))
}

func postBackfill(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/backfill", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateBackfillAccepted(t *testing.T) {
	router := newTestRouter(t, storage.NewMemoryStore())

	w := postBackfill(router, `{"symbol":"btcusdt","exchange":"binance","start_ts":1000,"end_ts":2000}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateBackfillBadRequest(t *testing.T) {
	router := newTestRouter(t, storage.NewMemoryStore())

	cases := []struct {
		name string
		body string
	}{
		{"missing fields", `{"symbol":"BTCUSDT"}`},
		{"unknown exchange", `{"symbol":"BTCUSDT","exchange":"nasdaq","start_ts":1000,"end_ts":2000}`},
		{"end before start", `{"symbol":"BTCUSDT","exchange":"binance","start_ts":2000,"end_ts":1000}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := postBackfill(router, tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestCreateBackfillStorageFault(t *testing.T) {
	router := newTestRouter(t, &brokenStore{MemoryStore: storage.NewMemoryStore()})

	w := postBackfill(router, `{"symbol":"BTCUSDT","exchange":"binance","start_ts":1000,"end_ts":2000}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Storage faults must map to 500, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetBackfillNotFound(t *testing.T) {
	router := newTestRouter(t, storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/backfill/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
}
