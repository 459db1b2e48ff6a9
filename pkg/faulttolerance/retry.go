// Package faulttolerance provides shared retry helpers for upstream calls.
package faulttolerance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryConfig holds configuration for the retry mechanism.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts, including the first
	BaseDelay   time.Duration // Delay before the second attempt
	MaxDelay    time.Duration // Cap on the backoff delay
	Multiplier  float64       // Backoff multiplier; 1.0 gives fixed backoff
	Name        string        // Name for logging
}

// DefaultRetryConfig returns the retry configuration used for connector
// window fetches: three attempts with short exponential backoff.
func DefaultRetryConfig(name string) RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Name:        name,
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func() error

// Retryer executes functions with bounded retry and backoff.
type Retryer struct {
	config RetryConfig
	logger *logrus.Logger
}

// NewRetryer creates a new retryer, filling unset config fields with
// defaults.
func NewRetryer(config RetryConfig, logger *logrus.Logger) *Retryer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 500 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier < 1.0 {
		config.Multiplier = 2.0
	}
	if config.Name == "" {
		config.Name = "Retryer"
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Retryer{config: config, logger: logger}
}

// Execute runs fn until it succeeds, the attempt budget is exhausted, or
// the context is cancelled.
func (r *Retryer) Execute(ctx context.Context, fn RetryableFunc) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				r.logger.Infof("[%s] Operation succeeded on attempt %d", r.config.Name, attempt)
			}
			return nil
		}
		lastErr = err

		if attempt == r.config.MaxAttempts {
			r.logger.Errorf("[%s] All %d attempts failed, last error: %v", r.config.Name, attempt, err)
			break
		}

		delay := r.calculateDelay(attempt)
		r.logger.Warnf("[%s] Attempt %d failed: %v. Retrying in %v...", r.config.Name, attempt, err, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", r.config.MaxAttempts, lastErr)
}

// calculateDelay returns the backoff delay for the given attempt number.
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.BaseDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	return time.Duration(delay)
}
