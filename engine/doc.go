// Package engine provides helpers for working with the modernc.org/sqlite
// driver in this module: opening connections, creating the registry and
// atom schema, and registering the vec_cosine SQL scalar function. It
// intentionally keeps a thin surface so other packages can share the same
// driver instance.
package engine
