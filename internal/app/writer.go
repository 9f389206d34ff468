package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AndrewSilver/buswriter/internal/batch"
	"github.com/AndrewSilver/buswriter/internal/buffer"
	"github.com/AndrewSilver/buswriter/internal/domain"
	"github.com/AndrewSilver/buswriter/internal/ports"
	"github.com/AndrewSilver/buswriter/pkg/log"
)

// DefaultShutdownTimeout bounds how long Stop waits for the batch consumer.
const DefaultShutdownTimeout = 30 * time.Second

// WriterConfig configures a Writer.
type WriterConfig struct {
	Threshold       int
	BatchSize       int
	FlushMode       buffer.FlushMode
	ShutdownTimeout time.Duration
}

// Writer owns one size-threshold buffer and one fixed-count batcher sharing
// a publisher. The batcher is drained by a consumer goroutine between Start
// and Stop.
type Writer struct {
	lifecycle *Lifecycle
	buffer    *buffer.SizeThresholdBuffer
	batcher   *batch.FixedCountBatcher
	consumer  *batch.Consumer
	logger    log.Logger
	timeout   time.Duration

	mu        sync.Mutex
	cancel    context.CancelFunc
	batchErrs []error
}

// NewWriter creates a stopped Writer.
func NewWriter(publisher ports.Publisher, cfg WriterConfig, logger log.Logger) *Writer {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	b := batch.New(cfg.BatchSize)
	return &Writer{
		lifecycle: NewLifecycle(logger),
		buffer: buffer.New(cfg.Threshold, publisher,
			buffer.WithFlushMode(cfg.FlushMode),
			buffer.WithLogger(logger),
		),
		batcher:  b,
		consumer: batch.NewConsumer(b, publisher, logger),
		logger:   logger,
		timeout:  cfg.ShutdownTimeout,
	}
}

// Start launches the batch consumer. The consumer outlives ctx: queued
// batches are drained by Stop, whose timeout is the only thing that aborts
// it. The batcher is single-use, so a Writer cannot be restarted after Stop.
func (w *Writer) Start(ctx context.Context) error {
	if !w.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if w.batcher.Closed() {
		return domain.ErrClosed
	}
	if err := w.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.lifecycle.Go(func() { w.consume(runCtx) })

	w.logger.Info("writer started",
		log.Int("threshold", w.buffer.Threshold()),
		log.Int("batch_size", w.batcher.Size()),
		log.String("flush_mode", w.buffer.Mode().String()),
	)
	return w.lifecycle.TransitionTo(StateRunning, "consumer started")
}

// consume runs the consumer until the batcher is drained. A failed batch is
// recorded and the consumer resumes with the next one.
func (w *Writer) consume(ctx context.Context) {
	for {
		err := w.consumer.Run(ctx)
		if err == nil {
			return
		}

		var pubErr *domain.PublishError
		if !errors.As(err, &pubErr) {
			if ctx.Err() == nil {
				w.recordBatchErr(err)
			}
			return
		}
		w.logger.Error("batch lost",
			log.Int("messages", len(pubErr.Messages)),
			log.Int("bytes", pubErr.Bytes),
			log.Err(pubErr.Err),
		)
		w.recordBatchErr(err)
	}
}

func (w *Writer) recordBatchErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batchErrs = append(w.batchErrs, err)
}

// SendMessage writes msg to the size-threshold buffer. It may block while
// another writer holds the buffer or while a flush is in flight.
func (w *Writer) SendMessage(ctx context.Context, msg domain.Message) error {
	return w.buffer.Write(ctx, msg)
}

// SendMessageToBuffer hands msg to the batcher without blocking.
func (w *Writer) SendMessageToBuffer(msg domain.Message) error {
	return w.batcher.Enqueue(msg)
}

// SetThreshold changes the buffer flush threshold at runtime.
func (w *Writer) SetThreshold(n int) {
	w.buffer.SetThreshold(n)
	w.logger.Info("threshold updated", log.Int("threshold", w.buffer.Threshold()))
}

// BatchSize returns the configured batch size.
func (w *Writer) BatchSize() int {
	return w.batcher.Size()
}

// State returns the lifecycle state.
func (w *Writer) State() State {
	return w.lifecycle.State()
}

// Stop closes the batcher, waits for every queued batch to be published and
// then flushes whatever is left in the buffer. Errors from lost batches and
// from the final flush are joined into the result.
func (w *Writer) Stop(ctx context.Context) error {
	if !w.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := w.lifecycle.TransitionTo(StateStopping, "Stop() called"); err != nil {
		return err
	}

	w.batcher.Close()

	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()

	if err := w.lifecycle.WaitWithTimeout(w.timeout); err != nil {
		cancel()
		w.logger.Error("batches abandoned", log.Int("messages", w.batcher.Pending()))
		_ = w.lifecycle.TransitionTo(StateCrashed, "consumer did not drain")
		return errors.Join(err, w.flushBuffer(ctx))
	}
	cancel()

	flushErr := w.flushBuffer(ctx)

	w.mu.Lock()
	errs := append(w.batchErrs, flushErr)
	w.batchErrs = nil
	w.mu.Unlock()

	if err := errors.Join(errs...); err != nil {
		_ = w.lifecycle.TransitionTo(StateCrashed, "publish errors during shutdown")
		return err
	}
	return w.lifecycle.TransitionTo(StateStopped, "drained")
}

// flushBuffer publishes the buffer remainder, logging a failure.
func (w *Writer) flushBuffer(ctx context.Context) error {
	err := w.buffer.Flush(ctx)
	if err != nil {
		w.logger.Error("final flush failed",
			log.Int("bytes", w.buffer.Len()),
			log.Err(err),
		)
	}
	return err
}
