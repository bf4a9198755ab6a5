// Package ridge retrieves contiguous runs of document items ("ridges")
// around the items most similar to a query.
//
// A document is two aligned vector sequences: content vectors pick the seed
// items, structural vectors decide how far each seed extends. A ridge grows
// left and right from its seed while the cosine similarity of adjacent
// structural vectors stays at or above a threshold, by default the lower
// median of all adjacent similarities in the document.
package ridge
