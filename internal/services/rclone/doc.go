// Package rclone implements the destination backend on top of the rclone
// binary.
//
// The Client maps the remote operations onto rclone subcommands: lsjson for
// listing and existence checks, move with --delete-empty-src-dirs for
// transfers, rcat/touch/delete for the eviction sequence. Command execution
// goes through the Executor seam so tests can assert exact invocations
// without a binary installed.
//
// Configured extra flags and the --config path ride along on every
// invocation, matching how a standalone rclone deployment would be driven.
package rclone
