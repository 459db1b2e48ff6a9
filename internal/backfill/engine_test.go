package backfill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/models"
	"github.com/navid-fn/zoneradar/internal/storage"
	"github.com/navid-fn/zoneradar/pkg/faulttolerance"
)

type fakeRecord struct {
	id    string
	price float64
	ts    int64
}

// fakeConnector records every fetch window and can be told to fail one
// window start permanently.
type fakeConnector struct {
	rangeCapable bool
	failStart    int64
	failCalls    int
	windows      [][2]int64
}

func (c *fakeConnector) Name() models.Exchange      { return models.ExchangeBinance }
func (c *fakeConnector) RangeCapable() bool         { return c.rangeCapable }
func (c *fakeConnector) Symbol(symbol string) string { return symbol }

func (c *fakeConnector) Fetch(ctx context.Context, symbol string, start, end int64, limit int) ([]drivers.RawTrade, error) {
	c.windows = append(c.windows, [2]int64{start, end})
	if c.failStart != 0 && start == c.failStart {
		c.failCalls++
		return nil, drivers.Transport(c.Name(), "fetch", fmt.Errorf("upstream down"))
	}
	return []drivers.RawTrade{{
		Exchange:  c.Name(),
		Symbol:    symbol,
		FetchedAt: drivers.NowMs(),
		Record:    fakeRecord{id: fmt.Sprintf("n%d", len(c.windows)), price: 100, ts: start},
	}}, nil
}

func (c *fakeConnector) Normalize(raw drivers.RawTrade) *models.Trade {
	rec, ok := raw.Record.(fakeRecord)
	if !ok {
		return nil
	}
	return &models.Trade{
		TradeID:   drivers.GenerateTradeID(raw.Exchange, raw.Symbol, rec.id, rec.price, 1, rec.ts),
		Exchange:  raw.Exchange,
		Symbol:    raw.Symbol,
		Price:     rec.price,
		Quantity:  1,
		Side:      models.SideBuy,
		Timestamp: rec.ts,
	}
}

func testEngine(t *testing.T, store storage.Store, conn drivers.Connector) *Engine {
	t.Helper()
	lookup := func(e models.Exchange) (drivers.Connector, error) {
		if e != conn.Name() {
			return nil, fmt.Errorf("unsupported exchange: %s", e)
		}
		return conn, nil
	}
	cfg := Config{
		WindowSize:    time.Minute,
		WindowLimit:   1000,
		Pacing:        0,
		MaxConcurrent: 2,
		Retry: faulttolerance.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
			Multiplier:  1,
			Name:        "test",
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(store, lookup, logger, cfg)
}

func TestJobRunsToCompletion(t *testing.T) {
	store := storage.NewMemoryStore()
	conn := &fakeConnector{rangeCapable: true}
	engine := testEngine(t, store, conn)
	defer engine.Close()

	windowMs := time.Minute.Milliseconds()
	start := int64(1_000_000)
	end := start + 3*windowMs - 1 // exactly three windows

	id, err := engine.Create(context.Background(), "BTCUSDT", models.ExchangeBinance, start, end)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	engine.Wait()

	job, err := engine.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != models.JobDone {
		t.Fatalf("Expected done, got %s (%s)", job.Status, job.Message)
	}
	if job.CursorTs <= end {
		t.Errorf("Cursor %d must have advanced past end %d", job.CursorTs, end)
	}

	want := [][2]int64{
		{start, start + windowMs - 1},
		{start + windowMs, start + 2*windowMs - 1},
		{start + 2*windowMs, end},
	}
	if len(conn.windows) != len(want) {
		t.Fatalf("Expected %d windows, got %d: %v", len(want), len(conn.windows), conn.windows)
	}
	for i, w := range want {
		if conn.windows[i] != w {
			t.Errorf("Window %d: expected %v, got %v", i, w, conn.windows[i])
		}
	}
	if store.TradeCount() != 3 {
		t.Errorf("Expected 3 trades inserted, got %d", store.TradeCount())
	}
}

func TestWindowFailureFailsJobAtCheckpoint(t *testing.T) {
	store := storage.NewMemoryStore()
	windowMs := time.Minute.Milliseconds()
	start := int64(1_000_000)
	end := start + 5*windowMs - 1

	// Third window fails permanently.
	conn := &fakeConnector{rangeCapable: true, failStart: start + 2*windowMs}
	engine := testEngine(t, store, conn)
	defer engine.Close()

	id, err := engine.Create(context.Background(), "BTCUSDT", models.ExchangeBinance, start, end)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	engine.Wait()

	job, _ := engine.Get(context.Background(), id)
	if job.Status != models.JobFailed {
		t.Fatalf("Expected failed, got %s", job.Status)
	}
	if !strings.Contains(job.Message, "window") {
		t.Errorf("Failure message should identify the window, got %q", job.Message)
	}
	// Checkpoint covers the two completed windows; a re-run resumes at the
	// failing one.
	if want := start + 2*windowMs; job.CursorTs != want {
		t.Errorf("Expected cursor %d, got %d", want, job.CursorTs)
	}
	if conn.failCalls != 2 {
		t.Errorf("Expected 2 attempts on the failing window, got %d", conn.failCalls)
	}
	if store.TradeCount() != 2 {
		t.Errorf("Expected 2 trades from the completed windows, got %d", store.TradeCount())
	}
}

func TestSnapshotOnlyFetchesLatest(t *testing.T) {
	store := storage.NewMemoryStore()
	conn := &fakeConnector{rangeCapable: false}
	engine := testEngine(t, store, conn)
	defer engine.Close()

	windowMs := time.Minute.Milliseconds()
	start := int64(1_000_000)
	end := start + 2*windowMs - 1

	id, err := engine.Create(context.Background(), "BTCUSDT", models.ExchangeBinance, start, end)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	engine.Wait()

	for i, w := range conn.windows {
		if w != [2]int64{0, 0} {
			t.Errorf("Snapshot fetch %d should pass zero bounds, got %v", i, w)
		}
	}
	if job, _ := engine.Get(context.Background(), id); job.Status != models.JobDone {
		t.Errorf("Expected done, got %s", job.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := testEngine(t, store, &fakeConnector{rangeCapable: true})
	defer engine.Close()

	ctx := context.Background()
	cases := []struct {
		name     string
		symbol   string
		exchange models.Exchange
		start    int64
		end      int64
	}{
		{"empty symbol", "", models.ExchangeBinance, 1000, 2000},
		{"end before start", "BTCUSDT", models.ExchangeBinance, 2000, 1000},
		{"zero start", "BTCUSDT", models.ExchangeBinance, 0, 2000},
		{"unknown exchange", "BTCUSDT", models.ExchangeKraken, 1000, 2000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Create(ctx, tc.symbol, tc.exchange, tc.start, tc.end)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Rejection must carry ErrInvalid, got %v", err)
			}
		})
	}

	if jobs, _ := engine.List(ctx, 10); len(jobs) != 0 {
		t.Errorf("Invalid requests must not persist jobs, found %d", len(jobs))
	}
}

// failingStore rejects job creation, standing in for a broken database.
type failingStore struct {
	*storage.MemoryStore
}

func (s *failingStore) CreateJob(ctx context.Context, job *models.BackfillJob) error {
	return errors.New("connection refused")
}

func TestCreateStorageFaultIsNotInvalid(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	engine := testEngine(t, store, &fakeConnector{rangeCapable: true})
	defer engine.Close()

	_, err := engine.Create(context.Background(), "BTCUSDT", models.ExchangeBinance, 1000, 2000)
	if err == nil {
		t.Fatal("Expected an error from the failing store")
	}
	if errors.Is(err, ErrInvalid) {
		t.Errorf("Persistence faults must not look like bad requests, got %v", err)
	}
}
