package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/christian289/postalert/pkg/forum"
)

// DefaultEditWindow is the rolling window within which repeat edits of the
// same post by the same editor collapse into the prior edited notification.
const DefaultEditWindow = 10 * time.Minute

// Request describes one notification to create.
type Request struct {
	User  forum.User
	Type  Type
	Topic forum.Topic
	Post  forum.Post

	// DisplayUsername is the acting user's name; for edited notifications
	// it is the editor.
	DisplayUsername string
	Excerpt         string

	// GroupName and GroupID apply to group_mentioned and
	// group_message_summary requests.
	GroupName  string
	GroupID    int64
	InboxCount int

	// Custom supplies the payload of a custom notification.
	Custom *CustomPayload
}

// Creator builds, collapses and persists notifications, firing lifecycle
// hooks around persistence.
type Creator struct {
	storage    Storage
	hooks      *Hooks
	logger     *slog.Logger
	editWindow time.Duration
	now        func() time.Time
}

// CreatorOption configures a Creator.
type CreatorOption func(*Creator)

// WithLogger sets the logger for the Creator and its hook registry.
func WithLogger(logger *slog.Logger) CreatorOption {
	return func(c *Creator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEditWindow overrides the edited-notification throttle window.
func WithEditWindow(window time.Duration) CreatorOption {
	return func(c *Creator) {
		if window > 0 {
			c.editWindow = window
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) CreatorOption {
	return func(c *Creator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCreator creates a notification Creator backed by the given storage.
func NewCreator(storage Storage, opts ...CreatorOption) (*Creator, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	c := &Creator{
		storage:    storage,
		logger:     slog.Default(),
		editWindow: DefaultEditWindow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.hooks = NewHooks(c.logger)
	return c, nil
}

// Hooks exposes the creator's hook registry for listener registration.
func (c *Creator) Hooks() *Hooks { return c.hooks }

// Create persists one notification, collapsing into an existing unread row
// of the same class when one exists. created reports whether a new row was
// inserted; collapsed updates never re-trigger channel dispatch.
func (c *Creator) Create(ctx context.Context, req Request) (*Notification, bool, error) {
	if req.Type == TypeEdited {
		if throttled, prior, err := c.editThrottled(ctx, req); err != nil {
			return nil, false, err
		} else if throttled {
			return prior, false, nil
		}
	}

	if existing, err := c.findCollapsible(ctx, req); err != nil {
		return nil, false, err
	} else if existing != nil {
		return c.collapse(ctx, *existing, req)
	}

	payload, err := buildPayload(req)
	if err != nil {
		return nil, false, err
	}

	c.hooks.fireBeforeCreate(ctx, req.User, req.Type, req.Post)

	n := Notification{
		ID:         uuid.New(),
		UserID:     req.User.ID,
		Type:       req.Type,
		TopicID:    req.Topic.ID,
		PostNumber: req.Post.Number,
		Payload:    payload,
		CreatedAt:  c.now(),
	}

	if err := c.storage.Create(ctx, n); err != nil {
		if errors.Is(err, ErrDuplicateUnread) {
			// Lost the collapse race; the winner's row exists now, so
			// retry as an update.
			existing, ferr := c.findCollapsible(ctx, req)
			if ferr != nil {
				return nil, false, ferr
			}
			if existing != nil {
				return c.collapse(ctx, *existing, req)
			}
		}
		return nil, false, fmt.Errorf("create %s notification for user %d: %w", req.Type, req.User.ID, err)
	}

	c.hooks.firePreAlert(ctx, req.User, c.alert(req))
	return &n, true, nil
}

// CreateForUsers persists the same notification type for a batch of
// recipients, firing the batched before-create hook once up front. Failures
// are isolated per recipient; the returned slice holds only newly created
// rows, the ones channel dispatch should consider.
func (c *Creator) CreateForUsers(ctx context.Context, t Type, users []forum.User, base Request) ([]Notification, error) {
	if len(users) == 0 {
		return nil, nil
	}

	c.hooks.fireBeforeCreateForUsers(ctx, BeforeCreateBatch{Type: t, Users: users, Post: base.Post})

	var created []Notification
	var errs []error
	for _, user := range users {
		req := base
		req.User = user
		req.Type = t

		n, isNew, err := c.Create(ctx, req)
		if err != nil {
			c.logger.LogAttrs(ctx, slog.LevelError, "failed to create notification",
				slog.Int64("user_id", int64(user.ID)),
				slog.String("notification_type", t.String()),
				slog.Any("error", err),
			)
			errs = append(errs, err)
			continue
		}
		if isNew {
			created = append(created, *n)
		}
	}
	return created, errors.Join(errs...)
}

// editThrottled reports whether a prior edited notification for the same
// post suppresses this one. A different editor always breaks the throttle.
func (c *Creator) editThrottled(ctx context.Context, req Request) (bool, *Notification, error) {
	prior, err := c.storage.LatestOfType(ctx, req.User.ID, req.Topic.ID, req.Post.Number, TypeEdited)
	if errors.Is(err, ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("edit throttle lookup: %w", err)
	}
	if c.now().Sub(prior.CreatedAt) >= c.editWindow {
		return false, nil, nil
	}
	if p, ok := prior.Payload.(EditPayload); ok && p.DisplayUsername != req.DisplayUsername {
		return false, nil, nil
	}
	return true, prior, nil
}

func (c *Creator) findCollapsible(ctx context.Context, req Request) (*Notification, error) {
	class := req.Type.Class()
	if class == ClassNone {
		return nil, nil
	}

	postNumber := 0
	if class == ClassMention {
		postNumber = req.Post.Number
	}

	existing, err := c.storage.FirstUnread(ctx, req.User.ID, req.Topic.ID, class.Types(), postNumber)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("collapse lookup for user %d: %w", req.User.ID, err)
	}
	return existing, nil
}

// collapse merges the trigger into the existing unread row: latest
// username, excerpt and post number win, and reply-class counters grow.
func (c *Creator) collapse(ctx context.Context, existing Notification, req Request) (*Notification, bool, error) {
	switch p := existing.Payload.(type) {
	case ReplyPayload:
		p.DisplayUsername = req.DisplayUsername
		p.Excerpt = req.Excerpt
		p.TopicTitle = req.Topic.Title
		p.Count++
		existing.Payload = p
	case PostedPayload:
		p.DisplayUsername = req.DisplayUsername
		p.Excerpt = req.Excerpt
		p.TopicTitle = req.Topic.Title
		p.Count++
		existing.Payload = p
	case PrivateMessagePayload:
		p.DisplayUsername = req.DisplayUsername
		p.Excerpt = req.Excerpt
		p.TopicTitle = req.Topic.Title
		p.Count++
		existing.Payload = p
	case MentionPayload:
		p.DisplayUsername = req.DisplayUsername
		p.Excerpt = req.Excerpt
		p.TopicTitle = req.Topic.Title
		existing.Payload = p
	case GroupMentionPayload:
		p.DisplayUsername = req.DisplayUsername
		p.Excerpt = req.Excerpt
		p.TopicTitle = req.Topic.Title
		existing.Payload = p
	default:
		return nil, false, fmt.Errorf("%w: cannot collapse into %s", ErrUnknownType, existing.Type)
	}
	existing.PostNumber = req.Post.Number

	if err := c.storage.Update(ctx, existing); err != nil {
		return nil, false, fmt.Errorf("collapse update for user %d: %w", existing.UserID, err)
	}
	return &existing, false, nil
}

func (c *Creator) alert(req Request) Alert {
	return Alert{
		NotificationType: int(req.Type),
		PostNumber:       req.Post.Number,
		TopicTitle:       req.Topic.Title,
		TopicID:          int64(req.Topic.ID),
		Excerpt:          req.Excerpt,
		Username:         req.DisplayUsername,
		PostURL:          PostURL(req.Topic.ID, req.Post.Number),
	}
}

func buildPayload(req Request) (Payload, error) {
	switch req.Type {
	case TypeMentioned:
		return MentionPayload{DisplayUsername: req.DisplayUsername, TopicTitle: req.Topic.Title, Excerpt: req.Excerpt}, nil
	case TypeGroupMentioned:
		return GroupMentionPayload{DisplayUsername: req.DisplayUsername, GroupName: req.GroupName, TopicTitle: req.Topic.Title, Excerpt: req.Excerpt}, nil
	case TypeReplied:
		return ReplyPayload{DisplayUsername: req.DisplayUsername, TopicTitle: req.Topic.Title, Excerpt: req.Excerpt, Count: 1}, nil
	case TypeQuoted:
		return QuotePayload{DisplayUsername: req.DisplayUsername, TopicTitle: req.Topic.Title, Excerpt: req.Excerpt}, nil
	case TypeEdited:
		return EditPayload{DisplayUsername: req.DisplayUsername, TopicTitle: req.Topic.Title, Excerpt: req.Excerpt}, nil
	case TypePrivateMessage:
		return PrivateMessagePayload{DisplayUsername: req.DisplayUsername, TopicTitle: req.Topic.Title, Excerpt: req.Excerpt, Count: 1}, nil
	case TypePosted:
		return PostedPayload{DisplayUsername: req.DisplayUsername, TopicTitle: req.Topic.Title, Excerpt: req.Excerpt, Count: 1}, nil
	case TypeLinked:
		return LinkPayload{DisplayUsername: req.DisplayUsername, TopicTitle: req.Topic.Title, Excerpt: req.Excerpt}, nil
	case TypeWatchingFirstPost:
		return FirstPostPayload{DisplayUsername: req.DisplayUsername, TopicTitle: req.Topic.Title, Excerpt: req.Excerpt}, nil
	case TypeGroupMessageSummary:
		return GroupMessageSummaryPayload{GroupID: req.GroupID, GroupName: req.GroupName, InboxCount: req.InboxCount}, nil
	case TypeCustom:
		if req.Custom == nil {
			return nil, ErrNilPayload
		}
		return *req.Custom, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, req.Type)
	}
}
