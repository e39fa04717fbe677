package groupmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/christian289/postalert/pkg/forum"
	"github.com/christian289/postalert/pkg/tasks"
)

// TaskKind is the task queue routing key for scheduled group emails.
const TaskKind = "groupmail.send"

// SendRequest is the task payload of one scheduled group email.
type SendRequest struct {
	TopicID    forum.TopicID `json:"topic_id"`
	GroupID    forum.GroupID `json:"group_id"`
	Generation uint64        `json:"generation"`
}

// Enqueuer is the slice of the task queue the dispatcher needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any, opts ...tasks.EnqueueOption) error
}

// Dispatcher decides whether a PM post goes out through a group's SMTP
// channel and schedules the coalesced delayed send.
type Dispatcher struct {
	store    forum.Store
	enqueuer Enqueuer
	cfg      Config
	logger   *slog.Logger

	// Process-local coalescing state. The Dispatcher that schedules a
	// send must also run its Handler; see the package comment.
	mu          sync.Mutex
	generations map[forum.TopicID]uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a group email Dispatcher.
func NewDispatcher(store forum.Store, enqueuer Enqueuer, cfg Config, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if enqueuer == nil {
		return nil, ErrEnqueuerNil
	}

	d := &Dispatcher{
		store:       store,
		enqueuer:    enqueuer,
		cfg:         cfg,
		logger:      slog.Default(),
		generations: make(map[forum.TopicID]uint64),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch schedules a group email for the post when the topic has an
// enabled group-SMTP channel. It reports whether a send was scheduled;
// false means per-user email delivery should proceed instead. Whispers
// never go out by email.
func (d *Dispatcher) Dispatch(ctx context.Context, topic forum.Topic, post forum.Post) (bool, error) {
	if !topic.PrivateMessage() || post.Whisper() {
		return false, nil
	}

	group, err := d.smtpGroup(ctx, topic)
	if err != nil {
		return false, err
	}
	if group == nil {
		return false, nil
	}

	// A newer scheduled send supersedes every older one for the topic.
	d.mu.Lock()
	d.generations[topic.ID]++
	generation := d.generations[topic.ID]
	d.mu.Unlock()

	req := SendRequest{TopicID: topic.ID, GroupID: group.ID, Generation: generation}
	if err := d.enqueuer.Enqueue(ctx, TaskKind, req, tasks.WithDelay(d.cfg.PersonalEmailWindow)); err != nil {
		return false, fmt.Errorf("schedule group email for topic %d: %w", topic.ID, err)
	}

	d.logger.LogAttrs(ctx, slog.LevelDebug, "group email scheduled",
		slog.Int64("topic_id", int64(topic.ID)),
		slog.String("group", group.Name),
		slog.Uint64("generation", generation),
	)
	return true, nil
}

// Handler returns the task handler firing scheduled sends through sender.
func (d *Dispatcher) Handler(sender Sender) (tasks.Handler, error) {
	if sender == nil {
		return nil, ErrSenderNil
	}
	return tasks.NewHandler(TaskKind, func(ctx context.Context, req SendRequest) error {
		return d.send(ctx, sender, req)
	}), nil
}

func (d *Dispatcher) send(ctx context.Context, sender Sender, req SendRequest) error {
	d.mu.Lock()
	current := d.generations[req.TopicID]
	d.mu.Unlock()
	if req.Generation != current {
		d.logger.LogAttrs(ctx, slog.LevelDebug, "superseded group email dropped",
			slog.Int64("topic_id", int64(req.TopicID)),
			slog.Uint64("generation", req.Generation),
			slog.Uint64("current", current),
		)
		return nil
	}

	topic, err := d.store.Topic(ctx, req.TopicID)
	if err != nil {
		return fmt.Errorf("topic %d: %w", req.TopicID, err)
	}
	group, err := d.store.Group(ctx, req.GroupID)
	if err != nil {
		return fmt.Errorf("group %d: %w", req.GroupID, err)
	}
	if !group.SMTPEnabled() {
		return nil
	}

	// Only the newest emailable post at fire time goes out. A whisper
	// landing after the reply that scheduled the send never bumps the
	// generation, so the lookup walks back past whispers instead of
	// swallowing the send.
	post, err := d.latestEmailablePost(ctx, topic.ID)
	if err != nil {
		return err
	}
	if post == nil {
		return nil
	}
	author, err := d.store.User(ctx, post.AuthorID)
	if err != nil {
		return fmt.Errorf("post author %d: %w", post.AuthorID, err)
	}

	msg, err := d.compose(ctx, *topic, *post, *author, *group)
	if err != nil {
		if errors.Is(err, ErrNoRecipient) {
			return nil
		}
		return err
	}
	return sender.Send(ctx, msg)
}

// latestEmailablePost returns the topic's newest non-whisper post, or nil
// when every post is a whisper. Missing ordinals are skipped.
func (d *Dispatcher) latestEmailablePost(ctx context.Context, topicID forum.TopicID) (*forum.Post, error) {
	post, err := d.store.LatestPost(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("latest post of topic %d: %w", topicID, err)
	}

	for n := post.Number; n >= 1; n-- {
		if n != post.Number {
			prev, err := d.store.Post(ctx, topicID, n)
			if errors.Is(err, forum.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("post %d of topic %d: %w", n, topicID, err)
			}
			post = prev
		}
		if !post.Whisper() {
			return post, nil
		}
	}
	return nil, nil
}

// compose builds the outbound message, reconciling recipients against the
// To/Cc lists of the inbound email the post originated from so nobody is
// emailed twice.
func (d *Dispatcher) compose(ctx context.Context, topic forum.Topic, post forum.Post, author forum.User, group forum.Group) (Message, error) {
	allowed, err := d.store.AllowedUsers(ctx, topic.ID)
	if err != nil {
		return Message{}, fmt.Errorf("allowed users of topic %d: %w", topic.ID, err)
	}

	covered := make(map[string]bool)
	var incoming *forum.IncomingEmail
	if rec, err := d.store.IncomingEmail(ctx, post.ID); err == nil {
		incoming = rec
		for _, addr := range append(append([]string{}, rec.To...), rec.Cc...) {
			covered[strings.ToLower(addr)] = true
		}
	} else if !errors.Is(err, forum.ErrNotFound) {
		return Message{}, fmt.Errorf("incoming email of post %d: %w", post.ID, err)
	}

	// Primary recipient: the oldest-created participant besides the
	// acting author.
	var to *forum.User
	for i := range allowed {
		if allowed[i].ID != author.ID {
			to = &allowed[i]
			break
		}
	}
	if to == nil {
		return Message{}, ErrNoRecipient
	}

	var cc []string
	seen := map[string]bool{
		strings.ToLower(author.Email): true,
		strings.ToLower(to.Email):     true,
	}
	appendCc := func(addr string) {
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			return
		}
		seen[key] = true
		cc = append(cc, addr)
	}

	for _, user := range allowed {
		if !covered[strings.ToLower(user.Email)] {
			appendCc(user.Email)
		}
	}
	if incoming != nil && post.Number == 1 {
		for _, addr := range incoming.Cc {
			appendCc(addr)
		}
	}

	return Message{
		From:     group.SMTP.Address,
		To:       to.Email,
		Cc:       cc,
		Subject:  "Re: " + topic.Title,
		BodyHTML: post.Cooked,
	}, nil
}

// smtpGroup returns the first allowed group with an enabled SMTP channel.
func (d *Dispatcher) smtpGroup(ctx context.Context, topic forum.Topic) (*forum.Group, error) {
	for _, gid := range topic.AllowedGroupIDs {
		group, err := d.store.Group(ctx, gid)
		if errors.Is(err, forum.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("allowed group %d: %w", gid, err)
		}
		if group.SMTPEnabled() {
			return group, nil
		}
	}
	return nil, nil
}
