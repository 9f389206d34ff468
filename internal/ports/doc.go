// Package ports defines the interfaces that connect the buffering core to
// infrastructure adapters.
//
// # Port Interfaces
//
//   - [Publisher]: sends an aggregated payload downstream
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The core packages (internal/buffer, internal/batch, internal/app) depend
// only on these interfaces. Concrete transports live in internal/adapters.
package ports
