// Package alerter orchestrates notification fan-out for one post event.
//
// Given a created or edited post it extracts mentions, quotes and links
// from the cooked HTML, resolves recipients per category, creates collapsed
// in-app notification rows, and hands freshly created rows to the push and
// group-mail channels. Processing for a single post is serialised through a
// postlock.Locker so a rapid edit cannot race the original create.
//
// For edits only the mention, quote and link additions relative to the
// previous cooked HTML are considered: causes already granted to a user do
// not re-notify, and the reply/watch resolvers do not run again.
package alerter
