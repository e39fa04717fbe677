// Package levels resolves a user's effective notification level for a topic.
//
// A user can reach a topic through several scopes at once: an explicit
// per-topic setting, the topic's category, any of its tags, and (for private
// messages) the topic's allowed groups. The override rule lives in a single
// function: an explicit topic-level setting always wins; otherwise the
// highest derived level applies.
package levels
