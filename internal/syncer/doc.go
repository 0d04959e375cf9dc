// Package syncer runs the staging-to-destination sync loop. Each cycle
// shortens over-long names, snapshots the staging tree, waits for files to
// stop growing, moves the settled ones to the destination, and nudges
// quota enforcement and library notifications. One goroutine owns the
// loop; eviction is the only work pushed into the background.
package syncer
