// Package table models staged tabular fragments and their SQLite-backed
// staging store.
//
// A fragment is one unit of tabular data handled during a function run:
// a staged copy of a tabsdata table, the landed result of an importer
// query, or an output produced by the user function. All fragments for a
// run live in a single staging database inside the run's working
// directory; the worker owns that database exclusively for the lifetime
// of one invocation.
//
// # Identity and Metadata
//
// Every fragment carries a run-unique index assigned at creation time and
// a schema hash computed from the ordered (column, type) list. The schema
// hash uses canonical JSON serialization (NFC-normalized strings, keys
// sorted by UTF-16 code units) and SHA-256 with domain separation, so it
// is stable across processes and platforms.
//
// Published fragments expose a Meta record (table name, column count, row
// count, schema hash) which is the only information the response envelope
// needs about a produced table.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - single connection: SQLite supports one writer at a time
package table
