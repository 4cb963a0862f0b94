package tracerfy

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 30 * time.Second
)

// TraceTimeoutError is returned when a queue produces no downloadable result
// before the deadline. Callers do not retry: the affected records continue
// downstream unenriched.
type TraceTimeoutError struct {
	QueueID string
	Waited  time.Duration
}

func (e *TraceTimeoutError) Error() string {
	return fmt.Sprintf("tracerfy: queue %s produced no result within %s", e.QueueID, e.Waited)
}

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval time.Duration
	timeout  time.Duration
}

// WithPollInterval overrides the fixed poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.interval = d
	}
}

// WithPollTimeout overrides the overall deadline.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

// WaitForQueue polls GetQueueStatus at a fixed interval until a result is
// downloadable, the queue fails, or the deadline elapses. A deadline miss
// returns *TraceTimeoutError.
func WaitForQueue(ctx context.Context, client Client, queueID string, opts ...PollOption) error {
	cfg := pollConfig{
		interval: defaultPollInterval,
		timeout:  defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	deadline := time.Now().Add(cfg.timeout)
	for {
		status, err := client.GetQueueStatus(ctx, queueID)
		if err != nil {
			return eris.Wrap(err, fmt.Sprintf("tracerfy: poll queue %s", queueID))
		}

		switch status.Status {
		case "completed":
			return nil
		case "failed":
			return eris.Errorf("tracerfy: queue %s failed", queueID)
		}
		if status.Downloadable {
			return nil
		}

		if time.Now().Add(cfg.interval).After(deadline) {
			return &TraceTimeoutError{QueueID: queueID, Waited: cfg.timeout}
		}

		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), fmt.Sprintf("tracerfy: poll queue %s cancelled", queueID))
		case <-time.After(cfg.interval):
		}
	}
}
