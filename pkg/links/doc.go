// Package links finds same-site links to other posts inside cooked post
// HTML and resolves them to the linked posts' authors.
//
// A link back to the acting author's own post (a "reflection") never
// produces a notification, and authors already covered by a mention in the
// same post are excluded by the caller-supplied set.
package links
