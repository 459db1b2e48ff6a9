package storage

import (
	"context"
	"sync"
	"time"

	"github.com/navid-fn/zoneradar/internal/models"
)

// MemoryStore is an in-memory Store used by unit tests and local runs
// without a database. It honors the same idempotency and monotonicity
// contracts as the gorm implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	trades   map[string]*models.Trade
	lastSeen map[string]int64
	jobs     map[string]*models.BackfillJob
	order    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trades:   make(map[string]*models.Trade),
		lastSeen: make(map[string]int64),
		jobs:     make(map[string]*models.BackfillJob),
	}
}

func (s *MemoryStore) InsertTrades(ctx context.Context, trades []*models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, t := range trades {
		if _, exists := s.trades[t.TradeID]; exists {
			continue
		}
		cp := *t
		cp.InsertedAt = now
		s.trades[t.TradeID] = &cp
		if t.Timestamp > s.lastSeen[t.Symbol] {
			s.lastSeen[t.Symbol] = t.Timestamp
		}
	}
	return nil
}

func (s *MemoryStore) QueryTrades(ctx context.Context, symbol string, exchanges []models.Exchange, sinceTs int64) ([]*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := make(map[models.Exchange]bool, len(exchanges))
	for _, e := range exchanges {
		allowed[e] = true
	}

	var out []*models.Trade
	for _, t := range s.trades {
		if t.Symbol != symbol || t.Timestamp < sinceTs {
			continue
		}
		if len(allowed) > 0 && !allowed[t.Exchange] {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) LastSeen(ctx context.Context, symbol string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen[symbol], nil
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *models.BackfillJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *job
	s.jobs[job.ID] = &cp
	s.order = append(s.order, job.ID)
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id string) (*models.BackfillJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *MemoryStore) ListJobs(ctx context.Context, limit int) ([]*models.BackfillJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.BackfillJob
	for _, id := range s.order {
		cp := *s.jobs[id]
		out = append(out, &cp)
	}
	// Newest first, matching the gorm implementation.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, job *models.BackfillJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	stored.CursorTs = job.CursorTs
	stored.Status = job.Status
	stored.Message = job.Message
	stored.UpdatedAt = time.Now()
	job.UpdatedAt = stored.UpdatedAt
	return nil
}

// TradeCount reports the number of stored trades. Test helper.
func (s *MemoryStore) TradeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trades)
}
