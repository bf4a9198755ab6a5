// Package semantic is the entry point for storing and retrieving semantic
// atoms. A Service resolves domain names and document keys to addresses,
// writes atoms to SQLite inside a transaction, and keeps the per-domain
// in-memory vector indexes in step with the committed rows.
//
// The indexes are a cache. A crash between a commit and the index update
// leaves them short; writes report such drift as a *DesyncWarning and
// Rehydrate rebuilds every index from the persisted, non-temporary atoms.
package semantic
