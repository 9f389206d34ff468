// Package buswriter provides an embeddable message writer with two buffering
// pipelines in front of a bus publisher.
//
// The size-threshold pipeline accumulates message bytes and publishes the
// whole buffer once it grows past a byte threshold. The fixed-count pipeline
// groups messages into batches and publishes one aggregate per batch.
//
// # Basic Usage
//
//	pub := buswriter.PublisherFunc(func(ctx context.Context, p []byte) error {
//	    return bus.Send(ctx, p)
//	})
//
//	w := buswriter.New(pub, buswriter.WithThreshold(4096))
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	_ = w.SendMessage(ctx, buswriter.Message("hello"))
//	_ = w.SendMessageToBuffer(buswriter.Message("world"))
//
//	if err := w.Stop(context.Background()); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Errors
//
// A failed downstream call surfaces as a [*PublishError]. For the buffer
// the bytes stay buffered and the next flush retries them; for batches the
// error carries the lost messages so the caller can resend them.
//
// # Lifecycle States
//
// A Writer moves through [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] and [StateCrashed]. A Writer cannot be restarted after
// Stop.
package buswriter
