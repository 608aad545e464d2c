// Package nedb implements an embedded, single-file, append-only document
// database with MongoDB-style query and update semantics.
//
// A [Collection] stores schemaless JSON-like documents, keeps one or more
// in-memory indexes for fast lookup, and appends every mutation to a log
// file that can be compacted into its minimal equivalent form. Either a
// mutation is fully reflected in memory and durable on disk after the
// next compaction, or it fails with no observable change.
//
// # Concurrency
//
// All operations on a [Collection] - including reads - are serialized
// through a single internal executor goroutine, so concurrent callers
// never observe interleaved mutations. Call sites block until their turn
// completes; there is no further locking to reason about.
//
// # Errors
//
// Every error returned by a public API that falls into the error taxonomy
// is an [*Error], whose Kind is one of the package-level Err* sentinels;
// other failures, such as I/O errors, are returned unchanged. Use
// [errors.Is] against those sentinels or [errors.As] to recover
// structured fields such as the conflicting key of a unique violation.
package nedb
