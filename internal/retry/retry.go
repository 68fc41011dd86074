// Package retry runs calls to external model providers with bounded retries, honouring
// provider-supplied retry delays when an error carries one.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Schedule decides how long to wait when the provider gave no hint.
type Schedule int

const (
	// Exponential waits InitialDelay * 2^attempt after every failure.
	Exponential Schedule = iota
	// Dynamic waits InitialDelay * 2^attempt for rate-limit errors and InitialDelay otherwise.
	Dynamic
)

// HintFunc extracts a provider-supplied wait from err.
type HintFunc func(err error) (time.Duration, bool)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes one retry strategy. MaxRetries counts the retries after the first attempt.
type Policy struct {
	Name         string
	MaxRetries   int
	InitialDelay time.Duration
	Schedule     Schedule
	// ParseHint is consulted first on every failure. A hinted delay is padded by HintPadding.
	ParseHint   HintFunc
	HintPadding time.Duration
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
	Sleep   SleepFunc
	Logger  *slog.Logger
}

// OCRPolicy is three attempts with 2s and 4s waits between them.
func OCRPolicy() Policy {
	return Policy{
		Name:         "ocr",
		MaxRetries:   2,
		InitialDelay: 2 * time.Second,
		Schedule:     Exponential,
	}
}

// GenerationPolicy retries five times, preferring the provider's RetryInfo delay.
func GenerationPolicy() Policy {
	return Policy{
		Name:         "generation",
		MaxRetries:   5,
		InitialDelay: 30 * time.Second,
		Schedule:     Dynamic,
		ParseHint:    ProviderHint,
		HintPadding:  time.Second,
	}
}

// Delay returns the wait after the failed attempt numbered attempt (0-based).
func (p Policy) Delay(attempt int, err error) time.Duration {
	if p.ParseHint != nil {
		if d, ok := p.ParseHint(err); ok {
			return d + p.HintPadding
		}
	}
	backoff := p.InitialDelay << uint(attempt)
	switch p.Schedule {
	case Dynamic:
		if IsRateLimited(err) {
			return backoff
		}
		return p.InitialDelay
	default:
		return backoff
	}
}

// Do calls fn until it succeeds, the policy is exhausted, or ctx is done. The last error is
// returned after exhaustion.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("Call succeeded after retry.", "policy", p.Name, "attempt", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt == p.MaxRetries {
			break
		}

		delay := p.Delay(attempt, err)
		logger.Warn("Call failed, will retry.",
			"policy", p.Name,
			"attempt", attempt+1,
			"maxAttempts", p.MaxRetries+1,
			"backoff", delay.String(),
			"rateLimited", IsRateLimited(err),
			"error", err,
		)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			logger.Error("Context cancelled during backoff. Aborting retries.", "policy", p.Name, "error", err)
			return zero, err
		}
	}
	return zero, fmt.Errorf("%s call failed after %d attempts: %w", p.Name, p.MaxRetries+1, lastErr)
}

// Sleep waits for d or returns ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
