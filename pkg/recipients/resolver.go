package recipients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/christian289/postalert/pkg/forum"
	"github.com/christian289/postalert/pkg/levels"
	"github.com/christian289/postalert/pkg/mentions"
	"github.com/christian289/postalert/pkg/notify"
)

// Candidate is one prospective notification recipient.
type Candidate struct {
	User forum.User
	Type notify.Type

	// GroupID and GroupName are set for group_mentioned candidates.
	GroupID   forum.GroupID
	GroupName string
}

// Event is the input to resolution: the freshly cooked post with its
// pre-extracted mention, quote and link context.
type Event struct {
	Topic  forum.Topic
	Post   forum.Post
	Author forum.User

	// IsNewTopic marks the post that opened the topic. It is an explicit
	// caller-provided signal rather than a post_number == 1 inference.
	IsNewTopic bool

	Mentions      []mentions.Identity
	Quotes        []mentions.Quote
	LinkedAuthors []forum.User
}

// Resolver evaluates per-category recipient rules against the content store.
type Resolver struct {
	store  forum.Store
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a recipient Resolver backed by the given store.
func New(store forum.Store, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	r := &Resolver{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve runs every category resolver and merges the candidates, keeping
// one entry per user with the most specific applicable type. Output order
// is deterministic: higher priority first, then by user ID.
func (r *Resolver) Resolve(ctx context.Context, ev Event) ([]Candidate, error) {
	var all []Candidate
	for _, resolve := range []func(context.Context, Event) ([]Candidate, error){
		r.Mentioned,
		r.GroupMentioned,
		r.Replied,
		r.Quoted,
		r.Posted,
		r.WatchingFirstPost,
		r.Linked,
	} {
		candidates, err := resolve(ctx, ev)
		if err != nil {
			return nil, err
		}
		all = append(all, candidates...)
	}
	return merge(all), nil
}

// Mentioned resolves direct @username mentions.
func (r *Resolver) Mentioned(ctx context.Context, ev Event) ([]Candidate, error) {
	var out []Candidate
	for _, ident := range ev.Mentions {
		if ident.Kind != mentions.KindUser {
			continue
		}
		ok, err := r.admissible(ctx, ident.User, ev, true)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, Candidate{User: ident.User, Type: notify.TypeMentioned})
		}
	}
	return out, nil
}

// GroupMentioned expands @group mentions to the group's members.
func (r *Resolver) GroupMentioned(ctx context.Context, ev Event) ([]Candidate, error) {
	var out []Candidate
	for _, ident := range ev.Mentions {
		if ident.Kind != mentions.KindGroup {
			continue
		}
		members, err := r.store.GroupMembers(ctx, ident.Group.ID)
		if err != nil {
			return nil, fmt.Errorf("members of group %q: %w", ident.Group.Name, err)
		}
		for _, member := range members {
			if member.ID == ev.Author.ID {
				continue
			}
			ok, err := r.admissible(ctx, member, ev, true)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, Candidate{
					User:      member,
					Type:      notify.TypeGroupMentioned,
					GroupID:   ident.Group.ID,
					GroupName: ident.Group.Name,
				})
			}
		}
	}
	return out, nil
}

// Replied resolves the author of the post being replied to. Automated
// action posts never notify, and whispers on either side stay staff-only.
func (r *Resolver) Replied(ctx context.Context, ev Event) ([]Candidate, error) {
	if ev.Post.ActionCode != "" || ev.Post.ReplyToNumber == nil {
		return nil, nil
	}

	parent, err := r.store.Post(ctx, ev.Topic.ID, *ev.Post.ReplyToNumber)
	if errors.Is(err, forum.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parent post %d of topic %d: %w", *ev.Post.ReplyToNumber, ev.Topic.ID, err)
	}
	if parent.AuthorID == ev.Author.ID {
		return nil, nil
	}

	target, err := r.store.User(ctx, parent.AuthorID)
	if errors.Is(err, forum.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reply target user %d: %w", parent.AuthorID, err)
	}
	if !parent.VisibleTo(*target) {
		return nil, nil
	}

	ok, err := r.admissible(ctx, *target, ev, false)
	if err != nil || !ok {
		return nil, err
	}
	return []Candidate{{User: *target, Type: notify.TypeReplied}}, nil
}

// Quoted resolves the authors named by quote blocks in the post. A user
// quoted several times in one post yields a single candidate.
func (r *Resolver) Quoted(ctx context.Context, ev Event) ([]Candidate, error) {
	seen := make(map[forum.UserID]bool)
	var out []Candidate
	for _, quote := range ev.Quotes {
		user, err := r.store.UserByUsername(ctx, quote.Username)
		if errors.Is(err, forum.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("quoted user %q: %w", quote.Username, err)
		}
		if user.ID == ev.Author.ID || seen[user.ID] {
			continue
		}
		seen[user.ID] = true

		ok, err := r.admissible(ctx, *user, ev, false)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, Candidate{User: *user, Type: notify.TypeQuoted})
		}
	}
	return out, nil
}

// Posted resolves users watching the topic. For private messages the
// candidates are the topic's participants and the resulting type is
// private_message.
func (r *Resolver) Posted(ctx context.Context, ev Event) ([]Candidate, error) {
	if ev.Topic.PrivateMessage() {
		return r.messageParticipants(ctx, ev)
	}

	watchers, err := r.topicWatchers(ctx, ev.Topic)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, user := range watchers {
		if user.ID == ev.Author.ID {
			continue
		}
		// The watcher lists include derived settings; an explicit
		// topic-level override below watching still wins.
		effective, err := levels.Effective(ctx, r.store, user.ID, ev.Topic)
		if err != nil {
			return nil, err
		}
		if effective < forum.LevelWatching {
			continue
		}
		ok, err := r.admissible(ctx, user, ev, false)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, Candidate{User: user, Type: notify.TypePosted})
		}
	}
	return out, nil
}

// WatchingFirstPost resolves first-post watchers of the topic's category,
// tags or allowed groups. It only fires for the post that opened a visible
// topic.
func (r *Resolver) WatchingFirstPost(ctx context.Context, ev Event) ([]Candidate, error) {
	if !ev.IsNewTopic || !ev.Topic.Visible {
		return nil, nil
	}

	users, err := r.store.WatchingFirstPost(ctx, ev.Topic.CategoryID, ev.Topic.Tags, ev.Topic.AllowedGroupIDs)
	if err != nil {
		return nil, fmt.Errorf("first-post watchers of topic %d: %w", ev.Topic.ID, err)
	}

	var out []Candidate
	for _, user := range users {
		if user.ID == ev.Author.ID {
			continue
		}
		ok, err := r.admissible(ctx, user, ev, true)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, Candidate{User: user, Type: notify.TypeWatchingFirstPost})
		}
	}
	return out, nil
}

// Linked resolves the authors of posts linked from the post body. The
// caller pre-excludes mentioned users so one post never yields both a
// mention and a link candidate for the same user.
func (r *Resolver) Linked(ctx context.Context, ev Event) ([]Candidate, error) {
	var out []Candidate
	for _, user := range ev.LinkedAuthors {
		if user.ID == ev.Author.ID {
			continue
		}
		ok, err := r.admissible(ctx, user, ev, true)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, Candidate{User: user, Type: notify.TypeLinked})
		}
	}
	return out, nil
}

// messageParticipants resolves the private_message candidates for a PM
// post: allowed users and allowed-group members who have not dialed the
// conversation below watching.
func (r *Resolver) messageParticipants(ctx context.Context, ev Event) ([]Candidate, error) {
	users, err := r.store.AllowedUsers(ctx, ev.Topic.ID)
	if err != nil {
		return nil, fmt.Errorf("allowed users of topic %d: %w", ev.Topic.ID, err)
	}
	for _, gid := range ev.Topic.AllowedGroupIDs {
		members, err := r.store.GroupMembers(ctx, gid)
		if err != nil {
			return nil, fmt.Errorf("members of allowed group %d: %w", gid, err)
		}
		users = append(users, members...)
	}

	seen := make(map[forum.UserID]bool)
	var out []Candidate
	for _, user := range users {
		if user.ID == ev.Author.ID || seen[user.ID] {
			continue
		}
		seen[user.ID] = true

		// Participants watch their conversations unless they explicitly
		// turned the topic down.
		level, ok, err := r.store.TopicLevel(ctx, user.ID, ev.Topic.ID)
		if err != nil {
			return nil, fmt.Errorf("topic level for user %d: %w", user.ID, err)
		}
		if ok && level < forum.LevelWatching {
			continue
		}
		admit, err := r.admissible(ctx, user, ev, false)
		if err != nil {
			return nil, err
		}
		if admit {
			out = append(out, Candidate{User: user, Type: notify.TypePrivateMessage})
		}
	}
	return out, nil
}

// topicWatchers unions explicit topic watchers with category and tag
// watchers.
func (r *Resolver) topicWatchers(ctx context.Context, topic forum.Topic) ([]forum.User, error) {
	seen := make(map[forum.UserID]bool)
	var watchers []forum.User

	add := func(users []forum.User) {
		for _, user := range users {
			if !seen[user.ID] {
				seen[user.ID] = true
				watchers = append(watchers, user)
			}
		}
	}

	users, err := r.store.WatchingTopic(ctx, topic.ID)
	if err != nil {
		return nil, fmt.Errorf("watchers of topic %d: %w", topic.ID, err)
	}
	add(users)

	if topic.CategoryID != nil {
		users, err := r.store.WatchingCategory(ctx, *topic.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("watchers of category %d: %w", *topic.CategoryID, err)
		}
		add(users)
	}
	for _, tag := range topic.Tags {
		users, err := r.store.WatchingTag(ctx, tag)
		if err != nil {
			return nil, fmt.Errorf("watchers of tag %q: %w", tag, err)
		}
		add(users)
	}
	return watchers, nil
}

// admissible applies the filters shared by every category: whisper
// visibility, PM participation, mute/ignore relations toward the author,
// and, when checkMuted is set, the recipient's muted topic level on
// regular topics.
func (r *Resolver) admissible(ctx context.Context, user forum.User, ev Event, checkMuted bool) (bool, error) {
	if user.ID == ev.Author.ID {
		return false, nil
	}
	if !ev.Post.VisibleTo(user) {
		return false, nil
	}

	if ev.Topic.PrivateMessage() {
		ok, err := r.participates(ctx, ev.Topic, user.ID)
		if err != nil || !ok {
			return false, err
		}
	}

	if muting, err := r.store.IsMuting(ctx, user.ID, ev.Author.ID); err != nil {
		return false, fmt.Errorf("mute relation of user %d: %w", user.ID, err)
	} else if muting {
		return false, nil
	}
	if ignoring, err := r.store.IsIgnoring(ctx, user.ID, ev.Author.ID); err != nil {
		return false, fmt.Errorf("ignore relation of user %d: %w", user.ID, err)
	} else if ignoring {
		return false, nil
	}

	if checkMuted && !ev.Topic.PrivateMessage() {
		muted, err := levels.MutedTopic(ctx, r.store, user.ID, ev.Topic)
		if err != nil || muted {
			return false, err
		}
	}
	return true, nil
}

// participates reports whether the user is on the PM's ACL directly or
// through an allowed group.
func (r *Resolver) participates(ctx context.Context, topic forum.Topic, user forum.UserID) (bool, error) {
	if topic.AllowsUser(user) {
		return true, nil
	}
	for _, gid := range topic.AllowedGroupIDs {
		member, err := r.store.IsGroupMember(ctx, gid, user)
		if err != nil {
			return false, fmt.Errorf("group membership of user %d: %w", user, err)
		}
		if member {
			return true, nil
		}
	}
	return false, nil
}

// merge keeps one candidate per user, preferring the more specific type.
func merge(candidates []Candidate) []Candidate {
	best := make(map[forum.UserID]Candidate)
	for _, c := range candidates {
		current, ok := best[c.User.ID]
		if !ok || priority(c.Type) > priority(current.Type) {
			best[c.User.ID] = c
		}
	}

	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := priority(out[i].Type), priority(out[j].Type)
		if pi != pj {
			return pi > pj
		}
		return out[i].User.ID < out[j].User.ID
	})
	return out
}

// priority orders notification types from most to least specific for the
// one-row-per-user rule.
func priority(t notify.Type) int {
	switch t {
	case notify.TypePrivateMessage:
		return 4
	case notify.TypeMentioned, notify.TypeGroupMentioned:
		return 3
	case notify.TypeQuoted, notify.TypeLinked, notify.TypeReplied:
		return 2
	default:
		return 1
	}
}
