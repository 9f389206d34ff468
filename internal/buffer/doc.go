// Package buffer implements the size-threshold writer: concurrent callers
// append raw bytes to one shared buffer, and the buffer is published and
// cleared once its length exceeds a configured threshold.
//
// Two flush modes are available. [FlushInline] publishes while holding the
// buffer lock, so every writer waits for a slow downstream call.
// [FlushDetached] swaps the buffer out and publishes it without the lock;
// a single flusher keeps draining until the buffer is back under the
// threshold. In both modes at most one publish is in flight.
//
// A failed publish puts the payload back at the front of the buffer and
// returns a *domain.PublishError to the Write that triggered it.
package buffer
