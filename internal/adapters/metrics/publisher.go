// Package metrics counts publish traffic passing through a publisher.
package metrics

import (
	"context"
	"sync/atomic"

	"github.com/AndrewSilver/buswriter/internal/ports"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Calls    uint64
	Failures uint64
	Bytes    uint64

	// MaxConcurrent is the highest number of overlapping Publish calls seen.
	MaxConcurrent int64
}

// Publisher counts calls, bytes and failures of the wrapped publisher.
type Publisher struct {
	next ports.Publisher

	calls    atomic.Uint64
	failures atomic.Uint64
	bytes    atomic.Uint64
	active   atomic.Int64
	peak     atomic.Int64
}

// New wraps next.
func New(next ports.Publisher) *Publisher {
	return &Publisher{next: next}
}

// Publish forwards to the wrapped publisher. Bytes are only counted on success.
func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	p.calls.Add(1)
	if err := p.next.Publish(ctx, payload); err != nil {
		p.failures.Add(1)
		return err
	}
	p.bytes.Add(uint64(len(payload)))
	return nil
}

// Snapshot returns the current counters.
func (p *Publisher) Snapshot() Snapshot {
	return Snapshot{
		Calls:         p.calls.Load(),
		Failures:      p.failures.Load(),
		Bytes:         p.bytes.Load(),
		MaxConcurrent: p.peak.Load(),
	}
}

var _ ports.Publisher = (*Publisher)(nil)
