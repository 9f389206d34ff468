package buswriter

import (
	"time"

	"github.com/AndrewSilver/buswriter/internal/buffer"
	"github.com/AndrewSilver/buswriter/pkg/log"
)

// Option configures optional behavior of a Writer.
type Option func(*options)

type options struct {
	threshold       int
	batchSize       int
	flushMode       buffer.FlushMode
	shutdownTimeout time.Duration
	logger          log.Logger
}

// WithThreshold sets the buffer size in bytes above which the buffer is
// published. Values <= 0 select the default of 100.
func WithThreshold(n int) Option {
	return func(o *options) {
		o.threshold = n
	}
}

// WithBatchSize sets the number of messages per batch. Values <= 0 select
// the default of 10.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithDetachedFlush publishes buffer contents outside the buffer lock so
// writers are not held up by a slow downstream. Flushes stay serialized.
func WithDetachedFlush() Option {
	return func(o *options) {
		o.flushMode = buffer.FlushDetached
	}
}

// WithShutdownTimeout bounds how long Stop waits for queued batches.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		o.shutdownTimeout = d
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
