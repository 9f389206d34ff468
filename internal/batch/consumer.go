package batch

import (
	"context"
	"errors"

	"github.com/AndrewSilver/buswriter/internal/domain"
	"github.com/AndrewSilver/buswriter/internal/ports"
	"github.com/AndrewSilver/buswriter/pkg/log"
)

// Consumer drains a FixedCountBatcher and publishes one aggregate per batch.
type Consumer struct {
	batcher   *FixedCountBatcher
	publisher ports.Publisher
	logger    log.Logger

	published int
}

// NewConsumer creates a consumer for b. A nil logger discards output.
func NewConsumer(b *FixedCountBatcher, publisher ports.Publisher, logger log.Logger) *Consumer {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Consumer{
		batcher:   b,
		publisher: publisher,
		logger:    logger,
	}
}

// Run publishes batches until the batcher is drained, returning nil.
//
// A failed publish stops Run and returns a *domain.PublishError holding the
// batch's messages; that batch is not re-queued. Calling Run again resumes
// with the next batch. Context cancellation returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	for {
		batch, err := c.batcher.Next(ctx)
		if errors.Is(err, domain.ErrDrained) {
			c.logger.Debug("batcher drained", log.Int("batches", c.published))
			return nil
		}
		if err != nil {
			return err
		}

		if err := c.publisher.Publish(ctx, batch.Aggregate()); err != nil {
			c.logger.Warn("batch publish failed",
				log.Int("messages", batch.Size()),
				log.Int("bytes", batch.TotalBytes),
				log.Err(err),
			)
			return &domain.PublishError{
				Op:       "batch",
				Bytes:    batch.TotalBytes,
				Messages: batch.Messages,
				Err:      err,
			}
		}
		c.published++
		c.logger.Debug("batch published",
			log.Int("messages", batch.Size()),
			log.Int("bytes", batch.TotalBytes),
		)
	}
}

// Published returns the number of batches published so far. It must not be
// called concurrently with Run.
func (c *Consumer) Published() int {
	return c.published
}
