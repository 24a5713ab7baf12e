// Package factstore persists and searches per-document fact indexes.
//
// Each ingested document is chunked, embedded and stored as a pair of
// on-disk artifacts keyed by document id: a serialized vector index and an
// ordered list of chunk records whose positions align 1:1 with the index
// vectors. Both artifacts are written together and read together.
//
// Searches lazily load the artifact pair into an in-process cache on first
// access. Ingest and remove take exclusive access for their document;
// searches for the same document share access and searches for different
// documents never contend.
package factstore
