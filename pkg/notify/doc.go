// Package notify owns the notification model and its lifecycle: building
// typed payloads, collapsing repeat triggers into existing unread rows,
// persisting through a pluggable Storage, and firing lifecycle hooks.
//
// The collapsing invariant is central: at most one unread notification per
// (user, topic, type-class), where the reply class groups replied, posted
// and private_message, and the mention class groups mentions of the same
// post. A repeat trigger updates the unread row's payload and bumps its
// reply counter instead of creating a second row; already-read rows are
// never collapsed into. Storage implementations enforce the invariant
// atomically and return ErrDuplicateUnread to a racing creator, which then
// retries as an update.
//
// Hooks are a typed observer registry invoked synchronously in registration
// order; a panicking or failing listener never aborts creation for other
// recipients.
package notify
