// Package groupmail implements the email half of channel dispatch for
// private messages: deciding whether a PM reply goes out as a single
// group-SMTP email, reconciling the recipient list against the To/Cc of
// the inbound email the post originated from, and coalescing rapid-fire
// replies into one delayed send.
//
// Coalescing uses a per-topic generation counter. Every scheduled send
// bumps the topic's generation and carries the value in its task payload;
// the handler compares it against the current generation at fire time and
// drops superseded sends, so only the newest scheduled email for a topic
// actually goes out, emailing the topic's latest post.
//
// The generation counter lives in the Dispatcher's memory while the
// scheduled task is persisted by the queue, so the Dispatcher that
// schedules a send must be the one whose Handler fires it. A worker in a
// separate process, or one restarted between schedule and fire, sees
// generation zero and drops every pending send. Run scheduling and the
// send handler on the same Dispatcher instance.
package groupmail
