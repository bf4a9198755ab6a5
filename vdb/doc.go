// Package vdb keeps one in-memory vector index per domain, keyed by atom
// address. Indexes are created on first insert and are always derivable from
// the atom table.
//
// Vdb guards its domain map but never locks an index: callers must not run a
// writer against a domain concurrently with readers of the same domain.
package vdb
