// Package registry holds the broker's shared mutable state: the set of log
// paths currently being ingested and the set of connected viewers.
//
// Both registries are written only by session lifecycle transitions and read
// by the fan-out router and operator surfaces. All methods are safe for
// concurrent use.
package registry
