// Package cover provides a vector index answered from a cover tree. The
// vectors themselves live in a flat index; the tree is rebuilt lazily on the
// first search after a mutation, and domains smaller than the configured
// minimum are scanned exhaustively instead.
//
// The tree ranks by Euclidean distance, which on unit vectors orders
// neighbours exactly like cosine similarity. Candidates are re-scored by
// inner product, so results match the flat index.
package cover
