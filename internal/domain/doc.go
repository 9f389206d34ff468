// Package domain contains the core entities and errors shared by the
// buffering and batching pipelines.
//
// This package has no dependencies on transports, configuration or logging.
//
// # Entities
//
//   - [Message]: an opaque, immutable byte payload produced by a writer
//   - [Batch]: an ordered group of messages aggregated into one publish
//
// # Errors
//
// Sentinel errors are compared with errors.Is. Downstream failures are
// reported as [*PublishError], which wraps the transport error.
package domain
