// Package mentions extracts @user and @group mentions from cooked post HTML
// and resolves them against the content store.
//
// Extraction walks the rendered HTML rather than the raw markdown so that
// mentions inside quote blocks — text merely echoed from an earlier post —
// are never treated as genuine new mentions. Quote attribution data is
// extracted from the same document for the quoted-author resolver.
//
// Resolution applies mentionability and private-message visibility rules:
// unresolvable targets are dropped silently, a group mention honors the
// group's mentionable level unless the group already participates in the
// private message, and a user mentioned inside a private message must be
// reachable through the topic's ACL.
package mentions
