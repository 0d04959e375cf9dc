// Package eviction keeps the destination under its size quota by retiring
// the oldest files. An enforcement pass runs synchronously; the Flight
// handle lets the sync loop push passes into the background without ever
// stacking two at once.
package eviction
