// Package warden is the audit and log emission pipeline embedded in the
// warden client SDK. It accepts structured log and audit-trail records with a
// minimal call signature, attaches ambient request/session context
// automatically, redacts sensitive fields before a record ever leaves process
// memory, and delivers batches either to the governance controller's
// log-ingestion endpoint or to in-process observers.
//
// The package is designed for concurrent workloads: Logger methods are safe
// to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// warden is the public surface. It exposes [Logger], [Builder], [Config],
// the [Sink] family, and value types (Entry, Context, ErrorDetail). Masking
// and the controller transport live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Let a delivery or transform failure propagate back to a caller of
//     Info, Debug, Error, or Audit. The only fatal path is a malformed
//     sensitive-fields document at Build time.
//   - Emit any value stored under a sensitive key in plaintext, at any
//     nesting depth of payload, oldValues, or newValues.
//   - Mutate an entry after it has been queued, or let one logical call
//     chain observe another chain's ambient context.
//
// # Delivery contract
//
// Log calls are fire-and-forget: they snapshot context, mask, and enqueue
// synchronously, then return. Delivery happens on a dispatcher goroutine in
// submission-ordered batches; failures are observed by an internal guard and
// logged to a local diagnostic channel only. Callers that need outstanding
// entries handed to the sink use [Logger.Flush]; [Logger.Close] drains and
// waits for in-flight deliveries before shutting down.
package warden
