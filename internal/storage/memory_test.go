package storage

import (
	"context"
	"testing"

	"github.com/navid-fn/zoneradar/internal/models"
)

func trade(id, symbol string, exchange models.Exchange, price, qty float64, ts int64) *models.Trade {
	return &models.Trade{
		TradeID:   id,
		Exchange:  exchange,
		Symbol:    symbol,
		Price:     price,
		Quantity:  qty,
		Side:      models.SideBuy,
		Timestamp: ts,
	}
}

func TestInsertIdempotence(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	batch := []*models.Trade{trade("t1", "BTCUSDT", models.ExchangeBinance, 100, 1, 1000)}

	if err := store.InsertTrades(ctx, batch); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.InsertTrades(ctx, batch); err != nil {
		t.Fatalf("Duplicate insert should be a no-op, got: %v", err)
	}

	if store.TradeCount() != 1 {
		t.Errorf("Expected exactly 1 stored trade, got %d", store.TradeCount())
	}
}

func TestSymbolIndexMonotonicity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Inserts arrive out of timestamp order; the watermark must only
	// ever move forward.
	inserts := []int64{5000, 2000, 9000, 1000, 9000, 3000}
	var highWater int64
	for i, ts := range inserts {
		err := store.InsertTrades(ctx, []*models.Trade{
			trade(string(rune('a'+i)), "ETHUSDT", models.ExchangeKraken, 100, 1, ts),
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if ts > highWater {
			highWater = ts
		}

		seen, err := store.LastSeen(ctx, "ETHUSDT")
		if err != nil {
			t.Fatalf("LastSeen failed: %v", err)
		}
		if seen != highWater {
			t.Errorf("After ts=%d expected watermark %d, got %d", ts, highWater, seen)
		}
	}
}

func TestQueryTradesFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seed := []*models.Trade{
		trade("t1", "BTCUSDT", models.ExchangeBinance, 100, 1, 1000),
		trade("t2", "BTCUSDT", models.ExchangeKraken, 101, 1, 2000),
		trade("t3", "BTCUSDT", models.ExchangeBinance, 102, 1, 3000),
		trade("t4", "ETHUSDT", models.ExchangeBinance, 10, 1, 3000),
	}
	if err := store.InsertTrades(ctx, seed); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.QueryTrades(ctx, "BTCUSDT", []models.Exchange{models.ExchangeBinance}, 2000)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].TradeID != "t3" {
		t.Errorf("Expected only t3, got %d trades", len(got))
	}

	// Empty exchange set means all venues.
	got, err = store.QueryTrades(ctx, "BTCUSDT", nil, 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 BTCUSDT trades, got %d", len(got))
	}
}

func TestJobLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := &models.BackfillJob{
		ID:       "job-1",
		Symbol:   "BTCUSDT",
		Exchange: models.ExchangeBinance,
		StartTs:  0,
		EndTs:    1000,
		CursorTs: 0,
		Status:   models.JobPending,
	}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	job.Status = models.JobRunning
	job.CursorTs = 500
	if err := store.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}

	loaded, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if loaded.Status != models.JobRunning || loaded.CursorTs != 500 {
		t.Errorf("Checkpoint not persisted: %+v", loaded)
	}

	if _, err := store.GetJob(ctx, "missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	jobs, err := store.ListJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("Expected 1 job, got %d", len(jobs))
	}
}
