// Package services defines shared utilities consumed by the sync loop and the
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp cycle identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     consistently (fatal configuration problems vs transient skips).
//
// Use these helpers when wiring new collaborators so operational behaviour
// (error handling, observability) stays uniform across the daemon.
package services
