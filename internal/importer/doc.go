// Package importer lands raw external data as staged fragments: SQL
// query results and transported files.
//
// Importers implement the dispatch Source contract. They distinguish
// three outcomes the rest of the pipeline relies on: a query or file
// that yields rows produces a fragment; a query that yields zero rows
// produces a nil fragment (legal, expected); and any execution failure
// propagates as an error that aborts the whole dispatch. Zero-row
// absence and failure must never collapse into one another.
//
// SQL sources run through database/sql. The sqlite3 and pgx drivers are
// linked; any other registered driver name works the same way. Offset
// variables are substituted into query text as :name placeholders before
// execution, quoted as SQL string literals.
package importer
