// Package poll waits for asynchronously loaded page content to stop changing.
package poll

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrNeverReady is returned when no read produced a usable value before the timeout.
var ErrNeverReady = errors.New("poll: condition never became ready")

type Config struct {
	Interval    time.Duration
	Timeout     time.Duration
	StableReads int
	Logger      *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		Interval:    250 * time.Millisecond,
		Timeout:     3 * time.Second,
		StableReads: 2,
		Logger:      zap.NewNop(),
	}
}

// ReadFunc returns the current value and a fingerprint of it. An empty
// fingerprint means the content is not there yet.
type ReadFunc[T any] func() (T, string, error)

// UntilStable calls read every Interval until StableReads consecutive reads
// return the same non-empty fingerprint. When Timeout elapses first, the last
// usable value is returned with stable == false and a nil error; content that
// is still loading at that point is not detected.
func UntilStable[T any](ctx context.Context, cfg Config, read ReadFunc[T]) (value T, stable bool, err error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.StableReads <= 0 {
		cfg.StableReads = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	deadline := time.Now().Add(cfg.Timeout)

	var (
		last     T
		lastFP   string
		haveLast bool
		streak   int
		lastErr  error
		attempts int
	)

	for {
		select {
		case <-ctx.Done():
			return last, false, ctx.Err()
		default:
		}

		attempts++
		v, fp, readErr := read()
		switch {
		case readErr != nil:
			lastErr = readErr
			streak = 0
			lastFP = ""
		case fp == "":
			streak = 0
			lastFP = ""
		default:
			if fp == lastFP {
				streak++
			} else {
				streak = 1
				lastFP = fp
			}
			last = v
			haveLast = true
		}

		if streak >= cfg.StableReads {
			cfg.Logger.Debug("Content settled", zap.Int("attempts", attempts))
			return last, true, nil
		}

		if !time.Now().Add(cfg.Interval).Before(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			return last, false, ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}

	if haveLast {
		cfg.Logger.Debug("Settle timeout reached, using last read",
			zap.Int("attempts", attempts),
			zap.Duration("timeout", cfg.Timeout),
		)
		return last, false, nil
	}

	if lastErr != nil {
		return last, false, lastErr
	}
	return last, false, ErrNeverReady
}
