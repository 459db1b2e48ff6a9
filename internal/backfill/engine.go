// Package backfill orchestrates historical trade ingestion. One engine
// schedules many jobs; each job walks its time range in fixed windows,
// fetching through a venue connector and persisting through the idempotent
// trade store. The persisted job row is the single source of truth for
// progress: the runner checkpoints after every window, so a killed process
// loses at most one window of uncommitted work and a re-run is safe.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/models"
	"github.com/navid-fn/zoneradar/internal/storage"
	"github.com/navid-fn/zoneradar/pkg/faulttolerance"
)

// ErrInvalid marks a Create rejection caused by the request itself, as
// opposed to a persistence fault. The API layer maps it to a client error.
var ErrInvalid = errors.New("backfill: invalid request")

// ConnectorLookup resolves a venue name to its adapter. Injected so tests
// can substitute fakes for the registry.
type ConnectorLookup func(models.Exchange) (drivers.Connector, error)

// Config holds engine tuning knobs.
type Config struct {
	// WindowSize is the span of one fetch-and-insert unit.
	WindowSize time.Duration

	// WindowLimit is the per-fetch record cap passed to connectors.
	WindowLimit int

	// Pacing is the politeness delay inserted between windows.
	Pacing time.Duration

	// MaxConcurrent bounds the number of jobs running at once.
	MaxConcurrent int

	// Retry configures the per-window fetch retry budget.
	Retry faulttolerance.RetryConfig
}

// DefaultConfig returns the production engine configuration.
func DefaultConfig() Config {
	return Config{
		WindowSize:    time.Hour,
		WindowLimit:   1000,
		Pacing:        250 * time.Millisecond,
		MaxConcurrent: 4,
		Retry:         faulttolerance.DefaultRetryConfig("backfill"),
	}
}

// Engine creates and runs backfill jobs.
type Engine struct {
	store     storage.Store
	lookup    ConnectorLookup
	logger    *slog.Logger
	retryLog  *logrus.Logger
	cfg       Config
	sem       chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	activeMu  sync.Mutex
	activeIDs map[string]bool
}

// NewEngine creates an engine. Runners it launches are detached from any
// request context; Close stops them.
func NewEngine(store storage.Store, lookup ConnectorLookup, logger *slog.Logger, cfg Config) *Engine {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = time.Hour
	}
	if cfg.WindowLimit <= 0 {
		cfg.WindowLimit = 1000
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:     store,
		lookup:    lookup,
		logger:    logger,
		retryLog:  logrus.New(),
		cfg:       cfg,
		sem:       make(chan struct{}, cfg.MaxConcurrent),
		ctx:       ctx,
		cancel:    cancel,
		activeIDs: make(map[string]bool),
	}
}

// Create persists a pending job and schedules it to run asynchronously.
// It returns the job id as soon as the row exists; progress is observable
// only through the persisted row.
func (e *Engine) Create(ctx context.Context, symbol string, exchange models.Exchange, startTs, endTs int64) (string, error) {
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", ErrInvalid)
	}
	if startTs <= 0 || endTs <= 0 || endTs < startTs {
		return "", fmt.Errorf("%w: time range [%d, %d]", ErrInvalid, startTs, endTs)
	}
	if _, err := e.lookup(exchange); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	job := &models.BackfillJob{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Exchange:  exchange,
		StartTs:   startTs,
		EndTs:     endTs,
		CursorTs:  startTs,
		Status:    models.JobPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := e.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	e.wg.Add(1)
	go e.run(job.ID)

	return job.ID, nil
}

// Get returns the persisted job row.
func (e *Engine) Get(ctx context.Context, id string) (*models.BackfillJob, error) {
	return e.store.GetJob(ctx, id)
}

// List returns the most recent jobs.
func (e *Engine) List(ctx context.Context, limit int) ([]*models.BackfillJob, error) {
	if limit <= 0 {
		limit = 50
	}
	return e.store.ListJobs(ctx, limit)
}

// Wait blocks until every scheduled runner has finished. Used by the CLI
// and by tests.
func (e *Engine) Wait() { e.wg.Wait() }

// Close stops all runners and waits for them to exit.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

// run is the detached runner for one job. Errors never escape it: every
// failure path ends in a terminal persisted status.
func (e *Engine) run(id string) {
	defer e.wg.Done()

	// Bound concurrent runners.
	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-e.ctx.Done():
		return
	}

	// Single writer per job id.
	e.activeMu.Lock()
	if e.activeIDs[id] {
		e.activeMu.Unlock()
		e.logger.Warn("Job already has an active runner", "job", id)
		return
	}
	e.activeIDs[id] = true
	e.activeMu.Unlock()
	defer func() {
		e.activeMu.Lock()
		delete(e.activeIDs, id)
		e.activeMu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Job runner panicked", "job", id, "panic", r)
			e.failJob(id, fmt.Sprintf("runner panic: %v", r))
		}
	}()

	job, err := e.store.GetJob(e.ctx, id)
	if err != nil {
		e.logger.Error("Failed to load job", "job", id, "error", err)
		return
	}
	if job.Status.Terminal() {
		return
	}

	connector, err := e.lookup(job.Exchange)
	if err != nil {
		e.failJob(id, err.Error())
		return
	}

	job.Status = models.JobRunning
	if err := e.store.UpdateJob(e.ctx, job); err != nil {
		e.logger.Error("Failed to mark job running", "job", id, "error", err)
		return
	}

	e.logger.Info("Backfill started",
		"job", id, "symbol", job.Symbol, "exchange", job.Exchange,
		"start", job.StartTs, "end", job.EndTs, "rangeCapable", connector.RangeCapable())

	retryer := faulttolerance.NewRetryer(e.cfg.Retry, e.retryLog)
	windowMs := e.cfg.WindowSize.Milliseconds()

	for job.CursorTs <= job.EndTs {
		if e.ctx.Err() != nil {
			// Process shutdown: leave the checkpoint as-is; re-running the
			// job resumes from the persisted cursor.
			return
		}

		w0 := job.CursorTs
		w1 := w0 + windowMs - 1
		if w1 > job.EndTs {
			w1 = job.EndTs
		}

		var raws []drivers.RawTrade
		err := retryer.Execute(e.ctx, func() error {
			var fetchErr error
			if connector.RangeCapable() {
				raws, fetchErr = connector.Fetch(e.ctx, job.Symbol, w0, w1, e.cfg.WindowLimit)
			} else {
				// Snapshot-only venues cannot serve historical windows;
				// each tick grabs whatever recent prints are available.
				raws, fetchErr = connector.Fetch(e.ctx, job.Symbol, 0, 0, e.cfg.WindowLimit)
			}
			return fetchErr
		})
		if err != nil {
			// A window that exhausts its retries fails the whole job
			// visibly; silently skipping would masquerade as done.
			e.logger.Error("Window fetch failed", "job", id, "window_start", w0, "window_end", w1, "error", err)
			job.Status = models.JobFailed
			job.Message = fmt.Sprintf("window [%d, %d]: %v", w0, w1, err)
			if uerr := e.store.UpdateJob(e.ctx, job); uerr != nil {
				e.logger.Error("Failed to persist job failure", "job", id, "error", uerr)
			}
			return
		}

		trades := make([]*models.Trade, 0, len(raws))
		for _, raw := range raws {
			if t := connector.Normalize(raw); t != nil {
				trades = append(trades, t)
			}
		}

		// Best-effort ingestion: a storage error must not abort the window.
		if err := e.store.InsertTrades(e.ctx, trades); err != nil {
			e.logger.Error("Insert failed, continuing", "job", id, "trades", len(trades), "error", err)
		}

		job.CursorTs = w1 + 1
		job.Message = fmt.Sprintf("ingested through %d", w1)
		if err := e.store.UpdateJob(e.ctx, job); err != nil {
			e.logger.Error("Failed to checkpoint cursor", "job", id, "error", err)
		}

		if e.cfg.Pacing > 0 && job.CursorTs <= job.EndTs {
			select {
			case <-e.ctx.Done():
				return
			case <-time.After(e.cfg.Pacing):
			}
		}
	}

	job.Status = models.JobDone
	job.Message = ""
	if err := e.store.UpdateJob(e.ctx, job); err != nil {
		e.logger.Error("Failed to mark job done", "job", id, "error", err)
		return
	}
	e.logger.Info("Backfill finished", "job", id, "symbol", job.Symbol, "exchange", job.Exchange)
}

func (e *Engine) failJob(id, message string) {
	job, err := e.store.GetJob(context.Background(), id)
	if err != nil {
		return
	}
	if job.Status.Terminal() {
		return
	}
	job.Status = models.JobFailed
	job.Message = message
	if err := e.store.UpdateJob(context.Background(), job); err != nil {
		e.logger.Error("Failed to persist job failure", "job", id, "error", err)
	}
}
