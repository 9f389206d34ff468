package buffer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/AndrewSilver/buswriter/internal/domain"
	"github.com/AndrewSilver/buswriter/internal/ports"
	"github.com/AndrewSilver/buswriter/pkg/log"
)

// DefaultThreshold is the flush threshold in bytes used when none is given.
const DefaultThreshold = 100

// Option configures a SizeThresholdBuffer.
type Option func(*SizeThresholdBuffer)

// WithFlushMode sets the flush mode. The default is FlushInline.
func WithFlushMode(mode FlushMode) Option {
	return func(b *SizeThresholdBuffer) {
		b.mode = mode
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(b *SizeThresholdBuffer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// SizeThresholdBuffer coalesces small writes into larger publish calls.
type SizeThresholdBuffer struct {
	publisher ports.Publisher
	logger    log.Logger
	mode      FlushMode

	// inFlight counts publish calls in progress; anything above one is a bug.
	inFlight atomic.Int32

	// All further fields are protected by mu
	mu        sync.Mutex
	idle      *sync.Cond // signalled when a detached flush finishes
	buf       []byte
	threshold int
	flushing  bool
}

// New creates a buffer that publishes to publisher once more than threshold
// bytes are buffered. A threshold <= 0 selects DefaultThreshold.
func New(threshold int, publisher ports.Publisher, opts ...Option) *SizeThresholdBuffer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	b := &SizeThresholdBuffer{
		publisher: publisher,
		logger:    log.NewNoopLogger(),
		mode:      FlushInline,
		threshold: threshold,
	}
	b.idle = sync.NewCond(&b.mu)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Write appends msg to the buffer and flushes if the buffer now exceeds the
// threshold. It is safe for concurrent use. Empty messages are accepted.
//
// A non-nil error is always a *domain.PublishError (or wraps
// domain.ErrConcurrency); the unpublished bytes stay buffered.
func (b *SizeThresholdBuffer) Write(ctx context.Context, msg domain.Message) error {
	b.mu.Lock()
	b.buf = append(b.buf, msg...)

	if len(b.buf) <= b.threshold {
		b.mu.Unlock()
		return nil
	}

	if b.mode == FlushInline {
		defer b.mu.Unlock()
		return b.flushLocked(ctx)
	}

	if b.flushing {
		// The active flusher re-checks the threshold when it finishes.
		b.mu.Unlock()
		return nil
	}
	b.flushing = true
	return b.flushDetached(ctx)
}

// Flush publishes whatever is buffered regardless of the threshold. It waits
// for an in-flight detached flush first. Flushing an empty buffer is a no-op.
func (b *SizeThresholdBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.flushing {
		b.idle.Wait()
	}
	if len(b.buf) == 0 {
		return nil
	}
	return b.flushLocked(ctx)
}

// Len returns the number of buffered bytes.
func (b *SizeThresholdBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Threshold returns the current flush threshold.
func (b *SizeThresholdBuffer) Threshold() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.threshold
}

// SetThreshold changes the flush threshold. It takes effect on the next
// Write. A value <= 0 selects DefaultThreshold.
func (b *SizeThresholdBuffer) SetThreshold(threshold int) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	b.mu.Lock()
	b.threshold = threshold
	b.mu.Unlock()
}

// Mode returns the configured flush mode.
func (b *SizeThresholdBuffer) Mode() FlushMode {
	return b.mode
}

// flushLocked publishes a copy of the buffer and clears it on success.
// b.mu must be held.
func (b *SizeThresholdBuffer) flushLocked(ctx context.Context) error {
	payload := make([]byte, len(b.buf))
	copy(payload, b.buf)

	if err := b.publish(ctx, payload); err != nil {
		return err
	}
	b.buf = b.buf[:0]
	return nil
}

// flushDetached drains the buffer without holding the lock during publish.
// It is entered with b.mu held and b.flushing set, and releases b.mu.
func (b *SizeThresholdBuffer) flushDetached(ctx context.Context) error {
	var err error
	for {
		payload := b.buf
		b.buf = make([]byte, 0, cap(payload))
		b.mu.Unlock()

		err = b.publish(ctx, payload)

		b.mu.Lock()
		if err != nil {
			// Detached bytes precede anything written meanwhile.
			b.buf = append(payload, b.buf...)
			break
		}
		if len(b.buf) <= b.threshold {
			break
		}
	}
	b.flushing = false
	b.idle.Broadcast()
	b.mu.Unlock()
	return err
}

func (b *SizeThresholdBuffer) publish(ctx context.Context, payload []byte) error {
	if n := b.inFlight.Add(1); n != 1 {
		b.inFlight.Add(-1)
		b.logger.Error("overlapping flush", log.Int("in_flight", int(n)))
		return &domain.PublishError{Op: "flush", Bytes: len(payload), Err: domain.ErrConcurrency}
	}
	defer b.inFlight.Add(-1)

	b.logger.Debug("flushing buffer",
		log.Int("bytes", len(payload)),
		log.String("mode", b.mode.String()),
	)
	if err := b.publisher.Publish(ctx, payload); err != nil {
		b.logger.Warn("flush failed, bytes retained",
			log.Int("bytes", len(payload)),
			log.Err(err),
		)
		return &domain.PublishError{Op: "flush", Bytes: len(payload), Err: err}
	}
	return nil
}
