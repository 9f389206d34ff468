package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the buswriter domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrClosed is returned when a message is enqueued after Close.
	ErrClosed = errors.New("buswriter: batcher closed")

	// ErrDrained is returned by the batcher once it is closed and every
	// batch has been handed out.
	ErrDrained = errors.New("buswriter: batcher drained")

	// ErrAlreadyRunning is returned when Start() is called on a running writer.
	ErrAlreadyRunning = errors.New("buswriter: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped writer.
	ErrNotRunning = errors.New("buswriter: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("buswriter: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("buswriter: invalid configuration")

	// ErrConcurrency signals a broken exclusive-access invariant, such as two
	// flushes in flight at once. It is a programming bug, never a runtime
	// condition.
	ErrConcurrency = errors.New("buswriter: concurrent flush detected")
)

// PublishError reports a failed downstream publish.
type PublishError struct {
	// Op names the component that published: "flush" or "batch".
	Op string

	// Bytes is the size of the payload that failed.
	Bytes int

	// Messages holds the batch that was being published, when the failure
	// came from the batcher. A retry layer can resend it.
	Messages []Message

	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("buswriter: publish %s (%d bytes): %v", e.Op, e.Bytes, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
