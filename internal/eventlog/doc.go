// Package eventlog provides the in-process, append-only event log.
//
// The log is an ordered sequence of immutable ir.Event records:
//   - Append allocates the next id from a Sequence (1, 2, 3, ...), stamps the
//     current time in milliseconds and appends a deep copy of the payload
//   - Events returns a consistent snapshot of the whole log in append order
//
// # Invariants
//
//   - Event ids are strictly increasing in log order and never reused
//   - Append order across all aggregates is total and preserved
//   - No record is ever updated or removed; readers only ever see copies
//   - A rejected Append does not advance the sequence
//
// # Concurrency
//
// Append holds the write lock across id allocation and slice append, so two
// concurrent appends can never observe the same id and log order matches
// linearization order. Events holds the read lock while copying, giving every
// reader a consistent prefix of the log.
package eventlog
