// Package logging provides a minimal logging interface and adapters for the
// runtime core.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that stores, dispatchers and wire servers use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelDebug, "json", false)
//	st := store.New(store.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available. Packet filtering and
// other per-message diagnostics log at Debug, which doubles as the trace tier.
package logging
