// Package pkg provides shared utilities for the softdma transfer core.
//
// This package contains common functionality used across the engine,
// card, and backend packages, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for the transfer-control failure taxonomy
//   - Component identifiers for log filtering
//
// The package is designed to have zero external dependencies, relying
// only on the Go standard library.
//
// # Logging
//
// The logging subsystem wraps [log/slog] with DMA-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentEngine, "engine created", "channel", 0)
//
// # Errors
//
// Common transfer-control errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrBusy) {
//	    // Another transfer holds the engine
//	}
package pkg
