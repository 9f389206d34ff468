// Package stream publishes aggregated payloads to an io.Writer, one line per
// payload. It backs the stdout and file outputs.
package stream

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Publisher writes each payload followed by a newline.
type Publisher struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewPublisher wraps w. Close is a no-op for publishers built this way.
func NewPublisher(w io.Writer) *Publisher {
	return &Publisher{w: w}
}

// OpenFile creates a publisher appending to path.
func OpenFile(path string) (*Publisher, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &Publisher{w: f, closer: f}, nil
}

// Publish writes payload and a trailing newline in one call.
func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line := make([]byte, 0, len(payload)+1)
	line = append(line, payload...)
	line = append(line, '\n')

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.w.Write(line); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// Close releases the underlying file, if any.
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
