package alerter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/christian289/postalert/pkg/forum"
	"github.com/christian289/postalert/pkg/groupmail"
	"github.com/christian289/postalert/pkg/links"
	"github.com/christian289/postalert/pkg/logger"
	"github.com/christian289/postalert/pkg/mentions"
	"github.com/christian289/postalert/pkg/notify"
	"github.com/christian289/postalert/pkg/postlock"
	"github.com/christian289/postalert/pkg/push"
	"github.com/christian289/postalert/pkg/recipients"
)

const defaultExcerptLength = 200

// PostEvent is one unit of work: a post that was just created or edited,
// with its already-loaded topic and author.
type PostEvent struct {
	Post   forum.Post
	Topic  forum.Topic
	Author forum.User

	// IsNewTopic marks the post that opened the topic.
	IsNewTopic bool

	// Editing marks a revision of an existing post. PrevCooked is the
	// cooked HTML before the edit; only mention/quote/link additions
	// relative to it produce notifications.
	Editing    bool
	PrevCooked string
}

// Service runs the fan-out pipeline for post events.
type Service struct {
	store    forum.Store
	creator  *notify.Creator
	resolver *recipients.Resolver
	push     *push.Dispatcher
	mail     *groupmail.Dispatcher
	locker   postlock.Locker
	siteURL  *url.URL
	excerpt  int
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPush enables the push channel. Freshly created notifications are
// dispatched through the creator's pre-alert hook.
func WithPush(d *push.Dispatcher) Option {
	return func(s *Service) { s.push = d }
}

// WithGroupMail enables the group-SMTP email channel.
func WithGroupMail(d *groupmail.Dispatcher) Option {
	return func(s *Service) { s.mail = d }
}

// WithLocker replaces the default in-process locker, typically with the
// Redis locker when multiple processes consume post events.
func WithLocker(l postlock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithSiteURL sets the site base URL used to recognise internal links.
func WithSiteURL(u *url.URL) Option {
	return func(s *Service) { s.siteURL = u }
}

// WithExcerptLength caps the plain-text excerpt carried in payloads.
func WithExcerptLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.excerpt = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New wires the pipeline. When a push dispatcher is supplied it is
// registered on the creator's pre-alert hook so every newly persisted
// notification reaches the push channel exactly once, collapsed updates
// excluded.
func New(store forum.Store, creator *notify.Creator, resolver *recipients.Resolver, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if creator == nil {
		return nil, ErrCreatorNil
	}
	if resolver == nil {
		return nil, ErrResolverNil
	}

	s := &Service{
		store:    store,
		creator:  creator,
		resolver: resolver,
		locker:   postlock.NewMemoryLocker(),
		excerpt:  defaultExcerptLength,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.push != nil {
		creator.Hooks().OnPreAlert(func(ctx context.Context, user forum.User, alert notify.Alert) {
			if err := s.push.Dispatch(ctx, user, alert); err != nil {
				s.log.LogAttrs(ctx, slog.LevelError, "push dispatch failed",
					logger.Error(err),
					logger.UserID(int64(user.ID)),
					logger.NotificationType(notify.Type(alert.NotificationType).String()),
				)
			}
		})
	}

	return s, nil
}

// Process runs the full pipeline for one post event. Channel failures are
// logged and joined into the returned error but never abort in-app
// notification creation.
func (s *Service) Process(ctx context.Context, ev PostEvent) error {
	if ev.Post.ID == 0 {
		return ErrNoPost
	}

	release, err := s.locker.Acquire(ctx, postlock.Key(ev.Post.ID))
	if err != nil {
		return fmt.Errorf("acquire post lock: %w", err)
	}
	defer release()

	candidates, err := s.resolve(ctx, ev)
	if err != nil {
		return err
	}

	var errs []error
	if err := s.notifyCandidates(ctx, ev, candidates); err != nil {
		errs = append(errs, err)
	}

	if s.mail != nil && !ev.Editing {
		if _, err := s.mail.Dispatch(ctx, ev.Topic, ev.Post); err != nil {
			s.log.LogAttrs(ctx, slog.LevelError, "group mail dispatch failed",
				logger.Error(err),
				logger.TopicID(int64(ev.Topic.ID)),
			)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// resolve extracts notification causes from the cooked HTML and maps them
// to recipient candidates. Edits consider only additions and skip the
// reply/watch resolvers entirely.
func (s *Service) resolve(ctx context.Context, ev PostEvent) ([]recipients.Candidate, error) {
	tokens := mentions.Extract(ev.Post.Cooked)
	quotes := mentions.ExtractQuotes(ev.Post.Cooked)
	linked := links.Extract(ev.Post.Cooked, s.siteURL)

	if ev.Editing {
		tokens = diffStrings(tokens, mentions.Extract(ev.PrevCooked))
		quotes = diffQuotes(quotes, mentions.ExtractQuotes(ev.PrevCooked))
		linked = diffStrings(linked, links.Extract(ev.PrevCooked, s.siteURL))
	}

	identities, err := mentions.Resolve(ctx, s.store, ev.Topic, ev.Author, tokens)
	if err != nil {
		return nil, err
	}

	// Users already reached by a mention never get a weaker linked
	// notification for the same post.
	mentioned := make(map[forum.UserID]bool, len(identities))
	for _, id := range identities {
		if id.Kind == mentions.KindUser {
			mentioned[id.User.ID] = true
		}
	}
	linkedAuthors, err := links.ResolveAuthors(ctx, s.store, ev.Author, linked, mentioned)
	if err != nil {
		return nil, err
	}

	rev := recipients.Event{
		Topic:         ev.Topic,
		Post:          ev.Post,
		Author:        ev.Author,
		IsNewTopic:    ev.IsNewTopic && !ev.Editing,
		Mentions:      identities,
		Quotes:        quotes,
		LinkedAuthors: linkedAuthors,
	}

	if !ev.Editing {
		return s.resolver.Resolve(ctx, rev)
	}
	return s.resolveEditDelta(ctx, rev)
}

// resolveEditDelta runs only the content-driven categories and merges them
// by priority, highest first. Replied, posted and watching resolvers are
// create-time causes and must not re-fire on revisions.
func (s *Service) resolveEditDelta(ctx context.Context, rev recipients.Event) ([]recipients.Candidate, error) {
	var all []recipients.Candidate
	for _, fn := range []func(context.Context, recipients.Event) ([]recipients.Candidate, error){
		s.resolver.Mentioned,
		s.resolver.GroupMentioned,
		s.resolver.Quoted,
		s.resolver.Linked,
	} {
		cands, err := fn(ctx, rev)
		if err != nil {
			return nil, err
		}
		all = append(all, cands...)
	}

	// First category wins per user; the call order above is already
	// strongest-first.
	seen := make(map[forum.UserID]bool, len(all))
	out := all[:0]
	for _, c := range all {
		if seen[c.User.ID] {
			continue
		}
		seen[c.User.ID] = true
		out = append(out, c)
	}
	return out, nil
}

// notifyCandidates creates notification rows per type, preserving the
// resolver's priority order. Group mentions are batched per group so each
// batch carries its group's name.
func (s *Service) notifyCandidates(ctx context.Context, ev PostEvent, candidates []recipients.Candidate) error {
	type batchKey struct {
		t     notify.Type
		group forum.GroupID
	}

	var (
		order   []batchKey
		batches = make(map[batchKey][]forum.User)
		names   = make(map[batchKey]string)
	)
	for _, c := range candidates {
		key := batchKey{t: c.Type, group: c.GroupID}
		if _, ok := batches[key]; !ok {
			order = append(order, key)
			names[key] = c.GroupName
		}
		batches[key] = append(batches[key], c.User)
	}

	excerpt := Excerpt(ev.Post.Cooked, s.excerpt)

	var errs []error
	for _, key := range order {
		base := notify.Request{
			Type:            key.t,
			Topic:           ev.Topic,
			Post:            ev.Post,
			DisplayUsername: ev.Author.Username,
			Excerpt:         excerpt,
			GroupID:         int64(key.group),
			GroupName:       names[key],
		}
		if _, err := s.creator.CreateForUsers(ctx, key.t, batches[key], base); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// diffStrings returns the members of cur absent from prev, in cur order.
func diffStrings(cur, prev []string) []string {
	if len(prev) == 0 {
		return cur
	}
	old := make(map[string]bool, len(prev))
	for _, s := range prev {
		old[s] = true
	}
	var out []string
	for _, s := range cur {
		if !old[s] {
			out = append(out, s)
		}
	}
	return out
}

// diffQuotes returns the quote attributions of cur absent from prev.
func diffQuotes(cur, prev []mentions.Quote) []mentions.Quote {
	if len(prev) == 0 {
		return cur
	}
	old := make(map[mentions.Quote]bool, len(prev))
	for _, q := range prev {
		old[q] = true
	}
	var out []mentions.Quote
	for _, q := range cur {
		if !old[q] {
			out = append(out, q)
		}
	}
	return out
}

// Excerpt reduces cooked HTML to a whitespace-collapsed plain-text excerpt
// of at most maxLen runes. Quote blocks are dropped so the excerpt shows
// the author's own words.
func Excerpt(cooked string, maxLen int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cooked))
	if err != nil {
		return ""
	}
	doc.Find("aside.quote").Remove()

	text := strings.Join(strings.Fields(doc.Text()), " ")
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return text
	}

	runes := []rune(text)
	return strings.TrimRight(string(runes[:maxLen]), " ") + "…"
}
