// Package envelope implements the YAML wire contract between the
// orchestration server and a worker process.
//
// The server hands a worker a versioned request document; the worker
// hands back a versioned response document. Both use YAML node tags as
// variant discriminants:
//
//   - !V2 on the document root selects the envelope schema version
//   - !Table / !TableVersions tag input and output entries
//   - !Data / !NoData tag response output entries
//
// Each tag maps to one variant of a closed sum type with an explicit
// decoder keyed on the node tag. There is no dynamic constructor
// registry: an unrecognized tag is a malformed envelope, reported before
// any user code runs.
//
// Ordering is semantically significant everywhere. Request input and
// output sequences map positionally to function parameters; response
// output entries mirror the declared output order plus the trailing
// system slot for incremental offsets.
package envelope
