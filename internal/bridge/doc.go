// Package bridge contains the dispatch scheduler: the sole authority for
// executing client commands on the host's single mutation-permitted loop.
//
// Transports hand the scheduler raw command text from any goroutine and
// await the returned future. The scheduler queues each submission, attaches
// itself to the host loop while work is pending, and on each frame claims
// the outstanding requests and runs them through parse, validation, registry
// resolution and handler invocation. Handlers either return a result
// immediately or hand back a future that completes on a later frame; in the
// deferred case the scheduler parks the request until that future resolves
// and performs its bookkeeping removal back on the loop.
//
// Key properties:
//   - Submission is safe from any goroutine; execution is loop-only
//   - At-most-one claim per request, even with racing cancellation
//   - Cancellation wins only before the claim; claimed work runs to completion
//   - The reserved "ping" probe resolves without touching the registry
//   - The drain is the error boundary: malformed input, unknown commands,
//     handler errors and panics all resolve as structured error envelopes and
//     never escape to the loop
//   - The loop hook is attached only while unclaimed work exists
//
// Error handling:
//   - Empty raw text            -> "Empty command"
//   - Syntactically invalid JSON -> "Invalid JSON format" + truncated echo
//   - Empty envelope type       -> "Command type cannot be empty"
//   - Unresolvable type         -> "Unknown or unsupported command type: X"
//   - Handler error return      -> structured error with the message
//   - Handler panic             -> structured error with message and stack
//   - Cancellation              -> the future fails with the context error,
//     distinct from every envelope outcome
package bridge
