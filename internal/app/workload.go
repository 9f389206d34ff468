package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/AndrewSilver/buswriter/pkg/log"
)

// RunWorkload sends every message from src through both pipelines of a
// started Writer. First the messages are written to the size-threshold
// buffer by up to parallelism goroutines; then they are enqueued, in order,
// into the batcher. Draining and the final flush happen in Writer.Stop.
func RunWorkload(ctx context.Context, w *Writer, src MessageSource, parallelism int, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if parallelism < 1 {
		parallelism = 1
	}

	msgs, err := src.Messages()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, msg := range msgs {
		msg := msg
		g.Go(func() error {
			return w.SendMessage(gctx, msg)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("buffered send: %w", err)
	}
	logger.Info("buffered send complete",
		log.Int("messages", len(msgs)),
		log.Int("parallelism", parallelism),
	)

	for i, msg := range msgs {
		if err := w.SendMessageToBuffer(msg); err != nil {
			return fmt.Errorf("enqueue message %d: %w", i, err)
		}
	}
	logger.Info("batched send enqueued",
		log.Int("messages", len(msgs)),
		log.Int("batch_size", w.BatchSize()),
	)
	return nil
}
