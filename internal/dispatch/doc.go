// Package dispatch turns declared function inputs into staged table
// fragments, one slot per declared parameter, in declared order.
//
// Every input source implements the same capability contract, Source:
// tabsdata table references, version sets, SQL and file importers, and
// opaque plugins all stage through the one interface. The dispatcher
// never branches on a source's concrete type.
//
// # Ordering and Identity
//
// Slots are processed strictly in declared order and their fragments
// preserve that order when handed to the user function. Within a
// list-of-sources input, fragment order matches declaration order, never
// arrival order. Every fragment staged from raw data gets a fresh
// run-unique index from the shared generator; indexes are never reused
// from a prior run.
//
// # Absence vs Failure
//
// A table reference with no location URI resolves to a nil fragment -
// a legal, expected state meaning the table has no data yet. Importer
// failures are fatal and abort the whole dispatch for that slot; they
// are never silently collapsed into nil.
package dispatch
