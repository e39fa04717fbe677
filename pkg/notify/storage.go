package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/christian289/postalert/pkg/forum"
)

// Storage persists notification rows. Implementations must make the
// collapse check-then-write atomic per (user, topic, class): Create fails
// with ErrDuplicateUnread when an unread row with the same collapse key
// exists, and Update replaces the payload and post number of an existing
// row by ID.
type Storage interface {
	// Create inserts a new notification row.
	Create(ctx context.Context, n Notification) error

	// Update replaces the payload and post number of an existing row.
	Update(ctx context.Context, n Notification) error

	// FirstUnread returns the oldest unread row of any of the given types
	// for (user, topic). A non-zero postNumber additionally restricts the
	// match to that post, as mention-class collapsing requires.
	FirstUnread(ctx context.Context, user forum.UserID, topic forum.TopicID, types []Type, postNumber int) (*Notification, error)

	// LatestOfType returns the newest row of the type for (user, topic,
	// post), read or not. Used by the edited-notification throttle.
	LatestOfType(ctx context.Context, user forum.UserID, topic forum.TopicID, postNumber int, t Type) (*Notification, error)

	// List returns a user's notifications, newest first.
	List(ctx context.Context, user forum.UserID, opts ListOptions) ([]Notification, error)

	// MarkRead marks the given rows read for the user.
	MarkRead(ctx context.Context, user forum.UserID, ids ...uuid.UUID) error

	// CountUnread returns the user's unread count.
	CountUnread(ctx context.Context, user forum.UserID) (int, error)
}

// ListOptions filters and paginates List.
type ListOptions struct {
	Limit      int
	Offset     int
	OnlyUnread bool
	Types      []Type
}
