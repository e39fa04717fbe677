// Package push implements the push half of channel dispatch: a filter
// chain deciding whether a freshly created notification should reach the
// recipient's push clients, per-URL batching of accepted notifications,
// and the task handler that POSTs the combined payload to each push
// server.
//
// Suppression is layered. Suspended and do-not-disturb recipients are
// skipped before any filter runs, keeping the in-app row untouched.
// Registered filters run in order and the first false is terminal. What
// survives is grouped by push endpoint URL: everything destined to the
// same URL within the batch window goes out as one payload.
package push
