// Package vector holds the embedding primitives shared by the stores and the
// retrieval algorithms:
//   - Codec: the fixed-width float32 BLOB encoding persisted with each atom
//   - Dot, Norm, Normalize, Cosine: cosine geometry helpers
//   - LowerMedian, Mean: small reductions used by ridge and condensation
package vector
