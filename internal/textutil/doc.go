// Package textutil provides text normalization and similarity helpers for
// show-title matching.
//
// Fingerprints are term-frequency vectors over lowercase alphanumeric tokens;
// cosine similarity between fingerprints drives the resolver's ranking when
// no exact title match exists. Normalize reduces a title to a comparable key
// (lowercased, symbols folded, non-alphanumerics stripped).
package textutil
