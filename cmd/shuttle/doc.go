// Package main hosts the shuttle CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the long-running daemon, one-shot sync
// and eviction passes for cron-style deployments, status reporting against
// the staging tree and the remote destination, and configuration scaffolding.
// Configuration resolution happens once per invocation and is shared across
// subcommands.
//
// Keep this package lean: new behavior belongs in the internal packages
// first, surfaced here through dedicated commands or flags.
package main
