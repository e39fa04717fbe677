// Package tasks provides the at-least-once async executor the channel
// dispatchers enqueue into: push deliveries and delayed group emails.
//
// The package is organised around small repository interfaces so the queue
// can be backed by any storage engine. The Enqueuer persists one-time
// tasks, optionally delayed; the Worker claims due tasks under a lock and
// dispatches them to registered Handlers, retrying failures with a linear
// backoff until MaxRetries is exhausted. Consumers are assumed idempotent.
package tasks
