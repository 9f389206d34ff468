package buswriter

import (
	"context"

	"github.com/AndrewSilver/buswriter/internal/app"
	"github.com/AndrewSilver/buswriter/internal/domain"
	"github.com/AndrewSilver/buswriter/internal/ports"
)

type (
	// Message is an opaque payload.
	Message = domain.Message

	// Publisher delivers one aggregated payload downstream.
	Publisher = ports.Publisher

	// PublisherFunc adapts a function to Publisher.
	PublisherFunc = ports.PublisherFunc

	// PublishError wraps a downstream failure.
	PublishError = domain.PublishError

	// State is the lifecycle state of a Writer.
	State = app.State
)

// Lifecycle states.
const (
	StateStopped  = app.StateStopped
	StateStarting = app.StateStarting
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
	StateCrashed  = app.StateCrashed
)

// Errors returned by Writer.
var (
	ErrClosed          = domain.ErrClosed
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrConcurrency     = domain.ErrConcurrency
)

// Writer sends messages through the size-threshold buffer or the
// fixed-count batcher. It is safe for concurrent use.
type Writer struct {
	w *app.Writer
}

// New creates a stopped Writer that publishes through pub.
func New(pub Publisher, opts ...Option) *Writer {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Writer{w: app.NewWriter(pub, app.WriterConfig{
		Threshold:       o.threshold,
		BatchSize:       o.batchSize,
		FlushMode:       o.flushMode,
		ShutdownTimeout: o.shutdownTimeout,
	}, o.logger)}
}

// Start launches the batch consumer.
func (w *Writer) Start(ctx context.Context) error {
	return w.w.Start(ctx)
}

// SendMessage appends msg to the size-threshold buffer, publishing the
// buffer when it exceeds the threshold.
func (w *Writer) SendMessage(ctx context.Context, msg Message) error {
	return w.w.SendMessage(ctx, msg)
}

// SendMessageToBuffer queues msg for the next batch. It never blocks.
func (w *Writer) SendMessageToBuffer(msg Message) error {
	return w.w.SendMessageToBuffer(msg)
}

// SetThreshold changes the buffer threshold at runtime.
func (w *Writer) SetThreshold(n int) {
	w.w.SetThreshold(n)
}

// Status returns the current lifecycle state.
func (w *Writer) Status() State {
	return w.w.State()
}

// Stop drains the batcher and flushes the buffer.
func (w *Writer) Stop(ctx context.Context) error {
	return w.w.Stop(ctx)
}
