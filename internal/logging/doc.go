// Package logging assembles the structured slog loggers used across shuttle.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so loop code can automatically tag
// log lines with the current sync cycle. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and routing.
package logging
