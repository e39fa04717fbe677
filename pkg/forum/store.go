package forum

import "context"

// Store is the query contract the engine consumes from the external content
// store. Implementations must be safe for concurrent use. Lookups return
// ErrNotFound for missing records rather than nil results.
type Store interface {
	// User returns a user by ID.
	User(ctx context.Context, id UserID) (*User, error)

	// UserByUsername returns a user by username (case-insensitive).
	UserByUsername(ctx context.Context, username string) (*User, error)

	// Group returns a group by ID.
	Group(ctx context.Context, id GroupID) (*Group, error)

	// GroupByName returns a group by name (case-insensitive).
	GroupByName(ctx context.Context, name string) (*Group, error)

	// GroupMembers returns the members of a group.
	GroupMembers(ctx context.Context, id GroupID) ([]User, error)

	// IsGroupMember reports whether the user belongs to the group.
	IsGroupMember(ctx context.Context, id GroupID, user UserID) (bool, error)

	// IsGroupOwner reports whether the user owns the group.
	IsGroupOwner(ctx context.Context, id GroupID, user UserID) (bool, error)

	// Topic returns a topic by ID.
	Topic(ctx context.Context, id TopicID) (*Topic, error)

	// Post returns the post at the given ordinal within a topic.
	Post(ctx context.Context, topic TopicID, number int) (*Post, error)

	// PostByURL resolves a same-site permalink to the post it points at.
	PostByURL(ctx context.Context, rawURL string) (*Post, error)

	// LatestPost returns the newest post of a topic.
	LatestPost(ctx context.Context, topic TopicID) (*Post, error)

	// AllowedUsers returns the topic's allowed users ordered by account
	// creation time, oldest first.
	AllowedUsers(ctx context.Context, topic TopicID) ([]User, error)

	// TopicLevel returns the user's explicit topic-level setting.
	// ok is false when the user has no explicit setting for the topic.
	TopicLevel(ctx context.Context, user UserID, topic TopicID) (level NotificationLevel, ok bool, err error)

	// CategoryLevel returns the user's category-level setting, if any.
	CategoryLevel(ctx context.Context, user UserID, category int64) (level NotificationLevel, ok bool, err error)

	// TagLevel returns the user's tag-level setting, if any.
	TagLevel(ctx context.Context, user UserID, tag string) (level NotificationLevel, ok bool, err error)

	// GroupLevel returns the user's group-level setting, if any.
	GroupLevel(ctx context.Context, user UserID, group GroupID) (level NotificationLevel, ok bool, err error)

	// WatchingTopic returns users whose explicit topic level is watching.
	WatchingTopic(ctx context.Context, topic TopicID) ([]User, error)

	// WatchingCategory returns users whose category level is watching.
	WatchingCategory(ctx context.Context, category int64) ([]User, error)

	// WatchingTag returns users whose tag level is watching.
	WatchingTag(ctx context.Context, tag string) ([]User, error)

	// WatchingFirstPost returns users with a watching_first_post setting on
	// the category, any of the tags, or any of the groups.
	WatchingFirstPost(ctx context.Context, category *int64, tags []string, groups []GroupID) ([]User, error)

	// IsMuting reports whether user has muted target.
	IsMuting(ctx context.Context, user, target UserID) (bool, error)

	// IsIgnoring reports whether user is ignoring target.
	IsIgnoring(ctx context.Context, user, target UserID) (bool, error)

	// IncomingEmail returns the inbound email record a post originated
	// from, or ErrNotFound when the post did not arrive by email.
	IncomingEmail(ctx context.Context, postID int64) (*IncomingEmail, error)

	// PushEndpoints returns the user's registered push clients.
	PushEndpoints(ctx context.Context, user UserID) ([]PushEndpoint, error)
}
