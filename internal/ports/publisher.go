package ports

import "context"

// Publisher sends an aggregated payload to the downstream transport.
//
// Implementations must be safe for use by the buffer's flush path and the
// batch consumer at the same time, and must never call back into the writer
// that invoked them. The payload must not be retained after Publish returns.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc func(ctx context.Context, payload []byte) error

// Publish calls f(ctx, payload).
func (f PublisherFunc) Publish(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}
