// Package storage provides database persistence for trades, the per-symbol
// high-water mark, and backfill job rows.
package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/navid-fn/zoneradar/internal/models"
)

// ErrNotFound is returned for point lookups that match nothing.
var ErrNotFound = errors.New("storage: not found")

// Store defines the persistence contract. Implementations must be safe for
// concurrent use; InsertTrades in particular is invoked by concurrent
// backfill runners and the stream ingester without external locking.
type Store interface {
	// InsertTrades persists a batch idempotently: a trade whose ID already
	// exists is silently skipped, never an error. It also advances the
	// symbol index for every symbol in the batch.
	InsertTrades(ctx context.Context, trades []*models.Trade) error

	// QueryTrades returns trades for one symbol across the given venues
	// with timestamp >= sinceTs. No ordering is guaranteed.
	QueryTrades(ctx context.Context, symbol string, exchanges []models.Exchange, sinceTs int64) ([]*models.Trade, error)

	// LastSeen returns the symbol-index watermark, zero when unknown.
	LastSeen(ctx context.Context, symbol string) (int64, error)

	CreateJob(ctx context.Context, job *models.BackfillJob) error
	GetJob(ctx context.Context, id string) (*models.BackfillJob, error)
	ListJobs(ctx context.Context, limit int) ([]*models.BackfillJob, error)

	// UpdateJob checkpoints cursor, status, and message for one job row.
	UpdateJob(ctx context.Context, job *models.BackfillJob) error
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm DB handle in the Store contract.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) InsertTrades(ctx context.Context, trades []*models.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	now := time.Now()
	latest := make(map[string]int64, 4)
	for _, t := range trades {
		t.InsertedAt = now
		if t.Timestamp > latest[t.Symbol] {
			latest[t.Symbol] = t.Timestamp
		}
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trade_id"}},
			DoNothing: true,
		}).
		Create(trades).Error
	if err != nil {
		return err
	}

	for symbol, ts := range latest {
		if err := s.advanceSymbolIndex(ctx, symbol, ts); err != nil {
			return err
		}
	}
	return nil
}

// advanceSymbolIndex moves the watermark forward, never backward.
func (s *gormStore) advanceSymbolIndex(ctx context.Context, symbol string, ts int64) error {
	entry := models.SymbolIndex{Symbol: symbol, LastSeenTs: ts, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_seen_ts": gorm.Expr("GREATEST(symbol_index.last_seen_ts, EXCLUDED.last_seen_ts)"),
				"updated_at":   time.Now(),
			}),
		}).
		Create(&entry).Error
}

func (s *gormStore) QueryTrades(ctx context.Context, symbol string, exchanges []models.Exchange, sinceTs int64) ([]*models.Trade, error) {
	var trades []*models.Trade
	query := s.db.WithContext(ctx).
		Where("symbol = ? AND timestamp >= ?", symbol, sinceTs)
	if len(exchanges) > 0 {
		query = query.Where("exchange IN ?", exchanges)
	}
	if err := query.Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

func (s *gormStore) LastSeen(ctx context.Context, symbol string) (int64, error) {
	var entry models.SymbolIndex
	err := s.db.WithContext(ctx).First(&entry, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return entry.LastSeenTs, nil
}

func (s *gormStore) CreateJob(ctx context.Context, job *models.BackfillJob) error {
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *gormStore) GetJob(ctx context.Context, id string) (*models.BackfillJob, error) {
	var job models.BackfillJob
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *gormStore) ListJobs(ctx context.Context, limit int) ([]*models.BackfillJob, error) {
	var jobs []*models.BackfillJob
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *gormStore) UpdateJob(ctx context.Context, job *models.BackfillJob) error {
	job.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Model(&models.BackfillJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"cursor_ts":  job.CursorTs,
			"status":     job.Status,
			"message":    job.Message,
			"updated_at": job.UpdatedAt,
		}).Error
}
