package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/christian289/postalert/pkg/forum"
)

// Type is the closed set of notification types. The numeric values are the
// wire representation used in push payloads and persisted rows.
type Type int

const (
	TypeMentioned           Type = 1
	TypeReplied             Type = 2
	TypeQuoted              Type = 3
	TypeEdited              Type = 4
	TypePrivateMessage      Type = 6
	TypePosted              Type = 9
	TypeLinked              Type = 11
	TypeGroupMentioned      Type = 15
	TypeGroupMessageSummary Type = 16
	TypeWatchingFirstPost   Type = 17
	TypeCustom              Type = 24
)

// String implements fmt.Stringer for log output.
func (t Type) String() string {
	switch t {
	case TypeMentioned:
		return "mentioned"
	case TypeReplied:
		return "replied"
	case TypeQuoted:
		return "quoted"
	case TypeEdited:
		return "edited"
	case TypePrivateMessage:
		return "private_message"
	case TypePosted:
		return "posted"
	case TypeLinked:
		return "linked"
	case TypeGroupMentioned:
		return "group_mentioned"
	case TypeGroupMessageSummary:
		return "group_message_summary"
	case TypeWatchingFirstPost:
		return "watching_first_post"
	case TypeCustom:
		return "custom"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Class groups types that collapse into one unread row.
type Class int

const (
	// ClassNone types never collapse; every trigger creates its own row.
	ClassNone Class = iota
	// ClassReply collapses per (user, topic): replied, posted,
	// private_message.
	ClassReply
	// ClassMention collapses per (user, topic, post): mentioned,
	// group_mentioned on the same post.
	ClassMention
)

// Class returns the collapse class of the type.
func (t Type) Class() Class {
	switch t {
	case TypeReplied, TypePosted, TypePrivateMessage:
		return ClassReply
	case TypeMentioned, TypeGroupMentioned:
		return ClassMention
	default:
		return ClassNone
	}
}

// Types returns the types belonging to the class.
func (c Class) Types() []Type {
	switch c {
	case ClassReply:
		return []Type{TypeReplied, TypePosted, TypePrivateMessage}
	case ClassMention:
		return []Type{TypeMentioned, TypeGroupMentioned}
	default:
		return nil
	}
}

// Notification is one in-app notification row.
type Notification struct {
	ID         uuid.UUID
	UserID     forum.UserID
	Type       Type
	TopicID    forum.TopicID
	PostNumber int
	Read       bool
	ReadAt     *time.Time
	Payload    Payload
	CreatedAt  time.Time
}

// MarkAsRead marks the notification read with the current timestamp.
func (n *Notification) MarkAsRead() {
	n.Read = true
	now := time.Now()
	n.ReadAt = &now
}

// Alert is the normalized payload handed to pre-alert hooks and the push
// channel after a notification row is persisted.
type Alert struct {
	NotificationType int    `json:"notification_type"`
	PostNumber       int    `json:"post_number"`
	TopicTitle       string `json:"topic_title"`
	TopicID          int64  `json:"topic_id"`
	Excerpt          string `json:"excerpt"`
	Username         string `json:"username"`
	PostURL          string `json:"post_url"`
}

// PostURL is the canonical permalink of a post.
func PostURL(topic forum.TopicID, number int) string {
	return fmt.Sprintf("/t/%d/%d", topic, number)
}
