// Package retry wraps unreliable operations with exponential backoff,
// jitter, and failure-kind classification.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// Config controls backoff timing for a retried operation. It is a
// value type and is never mutated after construction.
type Config struct {
	MaxRetries      int           // retries after the first attempt
	BaseDelay       time.Duration // delay before the first retry
	MaxDelay        time.Duration // ceiling for the computed delay
	ExponentialBase float64       // growth factor per attempt
	Jitter          bool          // perturb delays to avoid thundering herds
	JitterRatio     float64       // jitter amplitude as a fraction of the delay
}

// DefaultConfig returns the general-purpose retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       1 * time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
		JitterRatio:     0.1,
	}
}

// APIConfig returns a configuration tuned for external API calls:
// more attempts, a higher delay ceiling, and wider jitter.
func APIConfig() Config {
	return Config{
		MaxRetries:      5,
		BaseDelay:       2 * time.Second,
		MaxDelay:        120 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
		JitterRatio:     0.2,
	}
}

// Delay computes the backoff before the retry that follows attempt
// (zero-based). The exponential delay is capped at MaxDelay, then
// perturbed by up to ±JitterRatio and clamped to be non-negative.
func (c Config) Delay(attempt int) time.Duration {
	d := float64(c.BaseDelay) * math.Pow(c.ExponentialBase, float64(attempt))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.Jitter {
		amplitude := d * c.JitterRatio
		d += (rand.Float64()*2 - 1) * amplitude
		if d < 0 {
			d = 0
		}
	}
	return time.Duration(d)
}

// DoValue runs op up to cfg.MaxRetries+1 times, returning the first
// successful result. Failures classified as non-retryable by the
// policy are returned immediately; retryable failures sleep for the
// backoff delay before the next attempt. The sleep aborts early if ctx
// is cancelled. After the final attempt the last error is returned.
func DoValue[T any](ctx context.Context, cfg Config, policy Policy, log *logrus.Entry, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				log.WithFields(logrus.Fields{
					"operation": name,
					"attempt":   attempt + 1,
				}).Info("Operation succeeded after retry")
			}
			return result, nil
		}
		lastErr = err

		if policy.Classify(err) == ClassNonRetryable {
			log.WithError(err).WithField("operation", name).Error("Non-retryable failure")
			return zero, err
		}

		if attempt == cfg.MaxRetries {
			log.WithError(err).WithFields(logrus.Fields{
				"operation": name,
				"attempts":  cfg.MaxRetries + 1,
			}).Error("Operation failed after exhausting retries")
			return zero, err
		}

		delay := cfg.Delay(attempt)
		log.WithError(err).WithFields(logrus.Fields{
			"operation": name,
			"attempt":   attempt + 1,
			"of":        cfg.MaxRetries + 1,
			"delay":     delay,
		}).Warn("Operation failed, retrying")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// Do is DoValue for operations that return no result.
func Do(ctx context.Context, cfg Config, policy Policy, log *logrus.Entry, name string, op func(context.Context) error) error {
	_, err := DoValue(ctx, cfg, policy, log, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
