// Package recipients maps a post event to the set of (user, notification
// type) pairs the creator should persist. Each notification category has
// its own deterministic resolver; Resolve runs them all and merges the
// candidates so that a user receives at most one notification per post
// event, keeping the most specific type when several apply.
package recipients
