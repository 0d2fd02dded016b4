package provider

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RetryConfig configures the retry behavior for provider calls.
type RetryConfig struct {
	MaxAttempts int           // Total attempts including the first
	BaseDelay   time.Duration // Backoff before the first retry
	MaxDelay    time.Duration // Backoff ceiling
}

// DefaultRetryConfig returns the production policy: three attempts with
// delays of 1s then 2s between them.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// Retrier wraps exactly one provider invocation with classification-driven
// retry. Only RateLimited, Timeout, and ConnectionFailure are retried;
// AuthInvalid and fatal errors propagate immediately. On exhaustion the last
// error is returned.
type Retrier struct {
	cfg     RetryConfig
	limiter *rate.Limiter // Proactive rate limiting per attempt (nil = disabled)
	logger  *slog.Logger

	// sleep is swappable so tests can observe the backoff schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a Retrier. Zero-valued config fields use defaults.
// limiter may be nil to disable proactive rate limiting.
func NewRetrier(cfg RetryConfig, limiter *rate.Limiter, logger *slog.Logger) *Retrier {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Retrier{
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// Do executes fn with exponential backoff.
// Delay before retry attempt n (0-based) is min(base << n, max).
func (r *Retrier) Do(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	var lastErr error
	start := time.Now()

	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		// Rate limit each attempt, not just the first.
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		text, err := fn(ctx)
		if err == nil {
			r.logger.Debug("provider call succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return text, nil
		}

		lastErr = err

		if !KindOf(err).Retryable() {
			return "", err
		}

		if attempt == r.cfg.MaxAttempts-1 {
			break
		}

		delay := r.backoff(attempt)
		r.logger.Debug("retrying after provider error",
			"attempt", attempt+1,
			"delay", delay,
			"kind", KindOf(err).String(),
			"error", err,
		)
		if err := r.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("context canceled during retry: %w", err)
		}
	}

	return "", fmt.Errorf("provider call failed after %d attempts (elapsed: %v): %w",
		r.cfg.MaxAttempts, time.Since(start), lastErr)
}

// Stream opens a provider stream with the same backoff policy applied to
// stream establishment. A stream that fails before yielding any fragment is
// retried; once a fragment has been delivered the stream is not restartable
// and any later error is terminal.
func (r *Retrier) Stream(ctx context.Context, open func(context.Context) iter.Seq2[string, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var lastErr error

		for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
			if r.limiter != nil {
				if err := r.limiter.Wait(ctx); err != nil {
					yield("", fmt.Errorf("rate limit wait: %w", err))
					return
				}
			}

			delivered := false
			var streamErr error

			for text, err := range open(ctx) {
				if err != nil {
					streamErr = err
					break
				}
				delivered = true
				if !yield(text, nil) {
					return
				}
			}

			if streamErr == nil {
				return // stream completed
			}

			// Fragments already reached the caller: not restartable.
			if delivered || !KindOf(streamErr).Retryable() {
				yield("", streamErr)
				return
			}

			lastErr = streamErr

			if attempt == r.cfg.MaxAttempts-1 {
				break
			}

			delay := r.backoff(attempt)
			r.logger.Debug("retrying stream after provider error",
				"attempt", attempt+1,
				"delay", delay,
				"kind", KindOf(streamErr).String(),
			)
			if err := r.sleep(ctx, delay); err != nil {
				yield("", fmt.Errorf("context canceled during retry: %w", err))
				return
			}
		}

		yield("", fmt.Errorf("provider stream failed after %d attempts: %w", r.cfg.MaxAttempts, lastErr))
	}
}

// backoff returns the delay before retry attempt n (0-based).
func (r *Retrier) backoff(attempt int) time.Duration {
	delay := r.cfg.BaseDelay << uint(attempt) // #nosec G115 -- attempt bounded by MaxAttempts
	return min(delay, r.cfg.MaxDelay)
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
