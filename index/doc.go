// Package index defines the contract shared by the per-domain vector
// indexes: explicit uint64 ids, in-place replacement on re-add, removal by
// id, and top-k search by inner product. Implementations live in the flat
// (exhaustive) and cover (cover-tree accelerated) subpackages.
package index
