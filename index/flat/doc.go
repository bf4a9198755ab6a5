// Package flat provides an exhaustive vector index: every search scores all
// stored vectors by inner product. It is exact and serves as the baseline
// the cover index is checked against.
package flat
