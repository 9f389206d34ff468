package batch

import (
	"context"
	"sync"

	"github.com/eapache/queue"

	"github.com/AndrewSilver/buswriter/internal/domain"
)

// DefaultSize is the batch size used when none is given.
const DefaultSize = 10

// FixedCountBatcher buffers messages and hands them out in batches of a fixed
// count. Enqueue is safe for any number of producers; Next and Drain are meant
// for exactly one consumer.
type FixedCountBatcher struct {
	size int

	// ready holds at most one wake-up for the consumer.
	ready chan struct{}
	// done is closed by Close.
	done chan struct{}

	// All further fields are protected by mu
	mu      sync.Mutex
	pending *queue.Queue
	closed  bool
}

// New creates a batcher that emits batches of size messages. A size <= 0
// selects DefaultSize.
func New(size int) *FixedCountBatcher {
	if size <= 0 {
		size = DefaultSize
	}
	return &FixedCountBatcher{
		size:    size,
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: queue.New(),
	}
}

// Size returns the configured batch size.
func (b *FixedCountBatcher) Size() int {
	return b.size
}

// Enqueue appends msg to the backlog without blocking. It returns
// domain.ErrClosed once Close has been called.
func (b *FixedCountBatcher) Enqueue(msg domain.Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return domain.ErrClosed
	}
	b.pending.Add(msg)
	full := b.pending.Length() >= b.size
	b.mu.Unlock()

	if full {
		select {
		case b.ready <- struct{}{}:
		default:
		}
	}
	return nil
}

// Close marks the end of input. Messages enqueued before Close are still
// delivered. Calling Close more than once is a no-op.
func (b *FixedCountBatcher) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
}

// Closed reports whether Close has been called.
func (b *FixedCountBatcher) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Pending returns the number of messages not yet handed out.
func (b *FixedCountBatcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Length()
}

// Next blocks until a full batch is available, or until the batcher is closed
// with a non-empty remainder, and returns it. It returns domain.ErrDrained
// once the batcher is closed and empty, or ctx.Err() if ctx ends first.
func (b *FixedCountBatcher) Next(ctx context.Context) (*domain.Batch, error) {
	for {
		b.mu.Lock()
		n := b.pending.Length()
		switch {
		case n >= b.size:
			batch := b.takeLocked(b.size)
			b.mu.Unlock()
			return batch, nil
		case b.closed && n > 0:
			batch := b.takeLocked(n)
			b.mu.Unlock()
			return batch, nil
		case b.closed:
			b.mu.Unlock()
			return nil, domain.ErrDrained
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-b.ready:
		case <-b.done:
		}
	}
}

// Drain returns a channel yielding batches in FIFO order. The channel is
// closed once the batcher is drained or ctx is done.
func (b *FixedCountBatcher) Drain(ctx context.Context) <-chan *domain.Batch {
	out := make(chan *domain.Batch)
	go func() {
		defer close(out)
		for {
			batch, err := b.Next(ctx)
			if err != nil {
				return
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// takeLocked removes n messages from the head of the backlog. b.mu must be held.
func (b *FixedCountBatcher) takeLocked(n int) *domain.Batch {
	batch := domain.NewBatch(n)
	for i := 0; i < n; i++ {
		batch.Add(b.pending.Remove().(domain.Message))
	}
	return batch
}
