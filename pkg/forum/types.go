package forum

import (
	"time"
)

// UserID identifies a user in the external store.
type UserID int64

// GroupID identifies a group in the external store.
type GroupID int64

// TopicID identifies a topic in the external store.
type TopicID int64

// User is the engine's view of a forum user. Suspension and do-not-disturb
// state gate push/email delivery but never in-app notification creation.
type User struct {
	ID                UserID
	Username          string
	Email             string
	Staff             bool
	Suspended         bool
	DoNotDisturbUntil *time.Time
	CreatedAt         time.Time
}

// InDoNotDisturb reports whether the user's do-not-disturb window covers now.
func (u User) InDoNotDisturb(now time.Time) bool {
	return u.DoNotDisturbUntil != nil && now.Before(*u.DoNotDisturbUntil)
}

// MentionableLevel controls who may trigger a group mention notification.
type MentionableLevel int

const (
	// MentionableEveryone lets any user @-mention the group.
	MentionableEveryone MentionableLevel = iota
	// MentionableMembersAndStaff restricts mentions to group members and staff.
	MentionableMembersAndStaff
	// MentionableOwnersAndStaff restricts mentions to group owners and staff.
	MentionableOwnersAndStaff
)

// SMTPConfig is a group's outbound mailbox channel configuration.
type SMTPConfig struct {
	Enabled bool
	Address string // sending address, e.g. support@example.com
}

// Group is the engine's view of a forum group.
type Group struct {
	ID               GroupID
	Name             string
	MentionableLevel MentionableLevel
	SMTP             *SMTPConfig
}

// SMTPEnabled reports whether the group has an enabled mailbox channel.
func (g Group) SMTPEnabled() bool {
	return g.SMTP != nil && g.SMTP.Enabled && g.SMTP.Address != ""
}

// Archetype distinguishes public topics from private messages.
type Archetype string

const (
	ArchetypeRegular        Archetype = "regular"
	ArchetypePrivateMessage Archetype = "private_message"
)

// PostKind classifies a post within a topic.
type PostKind int

const (
	PostRegular PostKind = iota
	PostWhisper
	PostModeratorAction
)

// Post is the engine's view of a single post. Cooked holds the rendered
// HTML produced by the external rendering pipeline.
type Post struct {
	ID            int64
	TopicID       TopicID
	Number        int
	Kind          PostKind
	ActionCode    string // non-empty marks an automated system action post
	AuthorID      UserID
	Raw           string
	Cooked        string
	ReplyToNumber *int
	CreatedAt     time.Time
}

// Whisper reports whether the post is staff-only.
func (p Post) Whisper() bool { return p.Kind == PostWhisper }

// VisibleTo reports whether the given user may see the post at all.
// Whispers are visible to staff only.
func (p Post) VisibleTo(u User) bool {
	return !p.Whisper() || u.Staff
}

// Topic is the engine's view of a topic. AllowedUserIDs and AllowedGroupIDs
// form the private-message ACL and are empty for regular topics.
type Topic struct {
	ID              TopicID
	Title           string
	Archetype       Archetype
	CategoryID      *int64
	Tags            []string
	AllowedUserIDs  []UserID
	AllowedGroupIDs []GroupID
	Visible         bool
}

// PrivateMessage reports whether the topic is a private message.
func (t Topic) PrivateMessage() bool { return t.Archetype == ArchetypePrivateMessage }

// AllowsUser reports whether the user is directly on the topic's ACL.
func (t Topic) AllowsUser(id UserID) bool {
	for _, uid := range t.AllowedUserIDs {
		if uid == id {
			return true
		}
	}
	return false
}

// AllowsGroup reports whether the group is on the topic's ACL.
func (t Topic) AllowsGroup(id GroupID) bool {
	for _, gid := range t.AllowedGroupIDs {
		if gid == id {
			return true
		}
	}
	return false
}

// NotificationLevel is a per-scope notification sensitivity setting.
// Values order ascending so that the highest applicable level wins.
type NotificationLevel int

const (
	LevelMuted NotificationLevel = iota
	LevelRegular
	LevelTracking
	LevelWatching
	LevelWatchingFirstPost
)

// String implements fmt.Stringer for log output.
func (l NotificationLevel) String() string {
	switch l {
	case LevelMuted:
		return "muted"
	case LevelRegular:
		return "regular"
	case LevelTracking:
		return "tracking"
	case LevelWatching:
		return "watching"
	case LevelWatchingFirstPost:
		return "watching_first_post"
	default:
		return "unknown"
	}
}

// IncomingEmail records the original To/Cc address lists of the inbound
// email a post originated from. At most one per post.
type IncomingEmail struct {
	PostID int64
	To     []string
	Cc     []string
}

// PushEndpoint is one registered push client of a user.
type PushEndpoint struct {
	UserID   UserID
	ClientID string
	PushURL  string
}
