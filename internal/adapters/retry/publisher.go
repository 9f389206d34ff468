// Package retry wraps a publisher with bounded exponential-backoff retries.
//
// The buffering core never retries on its own; this decorator is the
// collaborator that layers retry on top of any transport.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/AndrewSilver/buswriter/internal/ports"
	"github.com/AndrewSilver/buswriter/pkg/log"
)

// Config controls the retry policy.
type Config struct {
	// Attempts is the total number of tries, including the first. Values
	// below 1 mean a single try.
	Attempts int

	// Initial is the first backoff delay.
	Initial time.Duration

	// Max caps the backoff delay.
	Max time.Duration
}

// Publisher retries a failing downstream publisher.
type Publisher struct {
	next   ports.Publisher
	cfg    Config
	logger log.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New wraps next with the given retry policy.
func New(next ports.Publisher, cfg Config, logger log.Logger) *Publisher {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Publisher{
		next:   next,
		cfg:    cfg,
		logger: logger,
		sleep:  sleep,
	}
}

// Publish tries next up to Attempts times. It returns the last error wrapped
// with the attempt count, or ctx.Err() if the context ends while waiting.
func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	b := newBackoff(p.cfg.Initial, p.cfg.Max)

	var err error
	for attempt := 1; ; attempt++ {
		if err = p.next.Publish(ctx, payload); err == nil {
			if attempt > 1 {
				p.logger.Info("publish succeeded after retries", log.Int("attempts", attempt))
			}
			return nil
		}
		if attempt >= p.cfg.Attempts {
			break
		}

		delay := b.next()
		p.logger.Warn("publish failed, retrying",
			log.Int("attempt", attempt),
			log.Duration("backoff", delay),
			log.Err(err),
		)
		if serr := p.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.cfg.Attempts, err)
}

var _ ports.Publisher = (*Publisher)(nil)
