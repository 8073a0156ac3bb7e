// Package worker runs the envelope -> offsets -> dispatch -> function ->
// response pipeline for one function run.
//
// The pipeline is single-threaded and fail-fast: every stage either
// completes or aborts the invocation, and nothing retries internally.
// Either the whole pipeline completes and a well-formed response file is
// written, or no response file is written at all; the process exit code
// is the orchestrator's only signal.
//
// Stage order:
//  1. Parse the request envelope.
//  2. Stage the system input table and load the offset state.
//  3. Build one source per declared input (pairing the function
//     declaration with the envelope) and dispatch them in order.
//  4. Invoke the registered user function with the staged slots.
//  5. Consume the positional offset payload when the declaration uses
//     that convention, and coerce the remaining results to the declared
//     output shape.
//  6. Reconcile declared outputs against produced tables, fold in the
//     offsets slot, stream to the destination plugin if declared, and
//     write the response envelope atomically.
package worker
