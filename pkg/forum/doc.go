// Package forum defines the domain model shared by the notification fan-out
// engine and the query contract it consumes from the external content store.
//
// The engine never owns posts, topics, users or groups; it reads them through
// the Store interface. MemoryStore implements Store in memory and is the
// backing used by the package test suites.
//
// # Usage
//
//	store := forum.NewMemoryStore()
//	store.AddUser(forum.User{ID: 1, Username: "eviltrout"})
//
//	u, err := store.UserByUsername(ctx, "eviltrout")
//	if errors.Is(err, forum.ErrNotFound) {
//	    // unresolvable targets are dropped silently by callers
//	}
package forum
