// Package vid implements the packed 64-bit semantic address used to key every
// atom and every vector index entry.
//
// Layout, from the most significant bits:
//
//	| domain (16) | document (16) | item (16) | flags (16) |
//
// A zero domain, document or item field means the component is absent and
// acts as a wildcard when the address is used as a mask. The two lowest flag
// bits carry the tri-state temporary attribute: 00 false, 10 true, 01/11 none.
package vid
