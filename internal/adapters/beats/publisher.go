// Package beats publishes aggregated payloads to a Logstash/Beats endpoint
// over the Lumberjack v2 protocol.
package beats

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	lumberjack "github.com/elastic/go-lumber/client/v2"
)

// Config holds the Lumberjack connection settings.
type Config struct {
	// Address is the host:port of the beats listener.
	Address string

	// CompressionLevel is passed to the client; 0 disables compression.
	CompressionLevel int

	// Timeout bounds each send/ACK round trip.
	Timeout time.Duration
}

// sender is the subset of the lumberjack sync client used here.
type sender interface {
	Send(events []interface{}) (int, error)
	Close() error
}

var errClosed = errors.New("beats publisher closed")

// Publisher sends each payload as one Lumberjack event.
type Publisher struct {
	mu     sync.Mutex
	sink   sender
	source string

	// closed is set once the connection has been closed, either by Close
	// or by a cancelled Publish.
	closed bool
}

// Dial connects to the beats endpoint.
func Dial(cfg Config) (*Publisher, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("beats address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	client, err := lumberjack.SyncDial(cfg.Address,
		lumberjack.CompressionLevel(cfg.CompressionLevel),
		lumberjack.Timeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed connection to beats server: %w", err)
	}
	return newPublisher(client), nil
}

func newPublisher(s sender) *Publisher {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Publisher{sink: s, source: host}
}

// Publish sends payload and waits for the server ACK. The sync client is not
// safe for concurrent use, so sends are serialized.
//
// Cancelling ctx while the send is in progress closes the connection so the
// blocked read returns; the Publisher is unusable afterwards.
func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event := map[string]interface{}{
		"@timestamp": time.Now().UTC(),
		"message":    string(payload),
		"agent": map[string]interface{}{
			"type":     "buswriter",
			"hostname": p.source,
			"pid":      os.Getpid(),
		},
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}

	stop := context.AfterFunc(ctx, func() { _ = p.sink.Close() })
	n, err := p.sink.Send([]interface{}{event})
	if !stop() {
		p.closed = true
		return fmt.Errorf("beats send: %w", ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("beats send: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("beats send: %d of 1 events acknowledged", n)
	}
	return nil
}

// Close closes the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.sink.Close()
}
