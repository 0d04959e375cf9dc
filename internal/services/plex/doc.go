// Package plex triggers Plex library rescans for freshly transferred
// paths. The scanner resolves which library section owns each path from
// the server's section locations and asks only that section to refresh.
package plex
