// Package atom persists semantic atoms: text spans with their embeddings,
// keyed by the packed semantic address of the span.
//
// Every read and delete takes a vid.Vid mask; absent fields of the mask are
// wildcards, so one Store answers "this atom", "this document" and "this
// domain" with the same call.
package atom
