package hardware

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// Source reads one unvalidated host snapshot.
type Source interface {
	Read(ctx context.Context) (*Info, error)
}

// Collector reads and validates host info with a bounded retry.
type Collector struct {
	source  Source
	retries int
	delay   time.Duration
	logger  logging.Logger
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithRetries sets the total number of attempts.
func WithRetries(n int) CollectorOption {
	return func(c *Collector) {
		c.retries = n
	}
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) CollectorOption {
	return func(c *Collector) {
		c.delay = d
	}
}

// WithLogger sets the collector logger.
func WithLogger(logger logging.Logger) CollectorOption {
	return func(c *Collector) {
		c.logger = logger
	}
}

// NewCollector creates a collector over source.
func NewCollector(source Source, opts ...CollectorOption) *Collector {
	c := &Collector{
		source:  source,
		retries: constants.HardwareRetries,
		delay:   constants.HardwareRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retries < 1 {
		c.retries = 1
	}
	if c.delay < 0 {
		c.delay = 0
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	return c
}

// Collect returns the first valid snapshot. When every attempt fails the
// last error is returned; a done ctx stops the retry loop early.
func (c *Collector) Collect(ctx context.Context) (*Info, error) {
	const op = "hardware.Collect"

	var (
		info    *Info
		lastErr error
		attempt int
	)

	operation := func() error {
		attempt++
		got, err := c.source.Read(ctx)
		if err == nil {
			err = got.Validate()
		}
		if err != nil {
			lastErr = err
			c.logger.Debug("hardware read failed", "attempt", attempt, "error", err)
			return err
		}
		info = got
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.delay), uint64(c.retries-1)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && lastErr == nil {
			return nil, errors.Wrap(errors.Cancelled, "hardware collection cancelled", ctxErr).WithOp(op)
		}
		if lastErr == nil {
			lastErr = errors.Wrap(errors.System, "failed to retrieve hardware information after multiple attempts", err).WithOp(op)
		}
		c.logger.Warn("hardware collection failed", "attempts", attempt, "error", lastErr)
		return nil, lastErr
	}

	c.logger.Debug("hardware collected", "cpu_count", info.CPUCount, "memory_total_kib", info.MemoryTotal)
	return info, nil
}
