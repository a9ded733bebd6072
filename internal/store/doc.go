// Package store provides a SQLite-backed event journal.
//
// The journal lives in an in-memory database and is discarded on Close; it
// exists so the same append and replay contract can be exercised against a
// SQL engine. Rows are insert-only:
//
//   - event_id is an AUTOINCREMENT key, so ids are never reused
//   - payloads are stored as key-sorted JSON, byte-for-byte as appended
//   - triggers abort every UPDATE and DELETE on the events table
//
// All reads are ordered by event_id, which is the log order.
package store
