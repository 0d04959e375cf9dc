// Package journal persists transfer and eviction history in SQLite. The
// daemon records each transferring cycle and each evicted destination file;
// the status command reads the history back. A nil store is a valid no-op,
// which is how a disabled journal flows through the daemon.
package journal
