package forum

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type levelKey struct {
	user  UserID
	scope string
}

type relationKey struct {
	user   UserID
	target UserID
}

// MemoryStore is an in-memory implementation of Store.
// Suitable for development and testing.
type MemoryStore struct {
	mu sync.RWMutex

	users  map[UserID]User
	groups map[GroupID]Group

	members map[GroupID][]UserID
	owners  map[GroupID]map[UserID]bool

	topics map[TopicID]Topic
	posts  map[TopicID][]Post

	// permalink aliases registered on top of the canonical /t/{topic}/{number} form
	postURLs map[string]postRef

	topicLevels    map[levelKey]NotificationLevel
	categoryLevels map[levelKey]NotificationLevel
	tagLevels      map[levelKey]NotificationLevel
	groupLevels    map[levelKey]NotificationLevel

	muting   map[relationKey]bool
	ignoring map[relationKey]bool

	incomingEmails map[int64]IncomingEmail
	pushEndpoints  map[UserID][]PushEndpoint
}

type postRef struct {
	topic  TopicID
	number int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:          make(map[UserID]User),
		groups:         make(map[GroupID]Group),
		members:        make(map[GroupID][]UserID),
		owners:         make(map[GroupID]map[UserID]bool),
		topics:         make(map[TopicID]Topic),
		posts:          make(map[TopicID][]Post),
		postURLs:       make(map[string]postRef),
		topicLevels:    make(map[levelKey]NotificationLevel),
		categoryLevels: make(map[levelKey]NotificationLevel),
		tagLevels:      make(map[levelKey]NotificationLevel),
		groupLevels:    make(map[levelKey]NotificationLevel),
		muting:         make(map[relationKey]bool),
		ignoring:       make(map[relationKey]bool),
		incomingEmails: make(map[int64]IncomingEmail),
		pushEndpoints:  make(map[UserID][]PushEndpoint),
	}
}

// AddUser registers or replaces a user.
func (s *MemoryStore) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// AddGroup registers or replaces a group with its member and owner sets.
// Owners are implicitly members.
func (s *MemoryStore) AddGroup(g Group, memberIDs []UserID, ownerIDs ...UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	seen := make(map[UserID]bool, len(memberIDs)+len(ownerIDs))
	var members []UserID
	for _, id := range append(append([]UserID{}, memberIDs...), ownerIDs...) {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}
	s.members[g.ID] = members
	owners := make(map[UserID]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = true
	}
	s.owners[g.ID] = owners
}

// AddTopic registers or replaces a topic.
func (s *MemoryStore) AddTopic(t Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[t.ID] = t
}

// AddPost registers a post under its topic.
func (s *MemoryStore) AddPost(p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.TopicID] = append(s.posts[p.TopicID], p)
}

// LinkPost registers an extra permalink alias for a post, on top of the
// canonical /t/{topic}/{number} form.
func (s *MemoryStore) LinkPost(rawURL string, topic TopicID, number int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postURLs[rawURL] = postRef{topic: topic, number: number}
}

// SetTopicLevel records an explicit per-topic notification level.
func (s *MemoryStore) SetTopicLevel(user UserID, topic TopicID, level NotificationLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topicLevels[levelKey{user, strconv.FormatInt(int64(topic), 10)}] = level
}

// SetCategoryLevel records a per-category notification level.
func (s *MemoryStore) SetCategoryLevel(user UserID, category int64, level NotificationLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categoryLevels[levelKey{user, strconv.FormatInt(category, 10)}] = level
}

// SetTagLevel records a per-tag notification level.
func (s *MemoryStore) SetTagLevel(user UserID, tag string, level NotificationLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagLevels[levelKey{user, tag}] = level
}

// SetGroupLevel records a per-group notification level.
func (s *MemoryStore) SetGroupLevel(user UserID, group GroupID, level NotificationLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupLevels[levelKey{user, strconv.FormatInt(int64(group), 10)}] = level
}

// Mute records that user has muted target.
func (s *MemoryStore) Mute(user, target UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muting[relationKey{user, target}] = true
}

// Ignore records that user is ignoring target.
func (s *MemoryStore) Ignore(user, target UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ignoring[relationKey{user, target}] = true
}

// AddIncomingEmail associates an inbound email record with a post.
func (s *MemoryStore) AddIncomingEmail(e IncomingEmail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomingEmails[e.PostID] = e
}

// AddPushEndpoint registers a push client for a user.
func (s *MemoryStore) AddPushEndpoint(e PushEndpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushEndpoints[e.UserID] = append(s.pushEndpoints[e.UserID], e)
}

func (s *MemoryStore) User(ctx context.Context, id UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) UserByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Group(ctx context.Context, id GroupID) (*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (s *MemoryStore) GroupByName(ctx context.Context, name string) (*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.groups {
		if strings.EqualFold(g.Name, name) {
			g := g
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GroupMembers(ctx context.Context, id GroupID) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[id]; !ok {
		return nil, ErrNotFound
	}
	users := make([]User, 0, len(s.members[id]))
	for _, uid := range s.members[id] {
		if u, ok := s.users[uid]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *MemoryStore) IsGroupMember(ctx context.Context, id GroupID, user UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, uid := range s.members[id] {
		if uid == user {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) IsGroupOwner(ctx context.Context, id GroupID, user UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owners[id][user], nil
}

func (s *MemoryStore) Topic(ctx context.Context, id TopicID) (*Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topics[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) Post(ctx context.Context, topic TopicID, number int) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.postLocked(topic, number)
}

func (s *MemoryStore) postLocked(topic TopicID, number int) (*Post, error) {
	for _, p := range s.posts[topic] {
		if p.Number == number {
			p := p
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) PostByURL(ctx context.Context, rawURL string) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ref, ok := s.postURLs[rawURL]; ok {
		return s.postLocked(ref.topic, ref.number)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, ErrNotFound
	}
	if ref, ok := s.postURLs[u.Path]; ok {
		return s.postLocked(ref.topic, ref.number)
	}

	// Canonical permalink form: /t/{topicID}/{postNumber}, post number
	// defaulting to 1 when omitted.
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "t" {
		return nil, ErrNotFound
	}
	topicID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}
	number := 1
	if len(parts) >= 3 {
		if number, err = strconv.Atoi(parts[2]); err != nil {
			return nil, ErrNotFound
		}
	}
	return s.postLocked(TopicID(topicID), number)
}

func (s *MemoryStore) LatestPost(ctx context.Context, topic TopicID) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := s.posts[topic]
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	latest := posts[0]
	for _, p := range posts[1:] {
		if p.Number > latest.Number {
			latest = p
		}
	}
	return &latest, nil
}

func (s *MemoryStore) AllowedUsers(ctx context.Context, topic TopicID) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topics[topic]
	if !ok {
		return nil, ErrNotFound
	}
	users := make([]User, 0, len(t.AllowedUserIDs))
	for _, uid := range t.AllowedUserIDs {
		if u, ok := s.users[uid]; ok {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *MemoryStore) TopicLevel(ctx context.Context, user UserID, topic TopicID) (NotificationLevel, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.topicLevels[levelKey{user, strconv.FormatInt(int64(topic), 10)}]
	return l, ok, nil
}

func (s *MemoryStore) CategoryLevel(ctx context.Context, user UserID, category int64) (NotificationLevel, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.categoryLevels[levelKey{user, strconv.FormatInt(category, 10)}]
	return l, ok, nil
}

func (s *MemoryStore) TagLevel(ctx context.Context, user UserID, tag string) (NotificationLevel, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.tagLevels[levelKey{user, tag}]
	return l, ok, nil
}

func (s *MemoryStore) GroupLevel(ctx context.Context, user UserID, group GroupID) (NotificationLevel, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.groupLevels[levelKey{user, strconv.FormatInt(int64(group), 10)}]
	return l, ok, nil
}

func (s *MemoryStore) WatchingTopic(ctx context.Context, topic TopicID) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := strconv.FormatInt(int64(topic), 10)
	var users []User
	for key, level := range s.topicLevels {
		if key.scope == scope && level == LevelWatching {
			if u, ok := s.users[key.user]; ok {
				users = append(users, u)
			}
		}
	}
	sortUsers(users)
	return users, nil
}

func (s *MemoryStore) WatchingCategory(ctx context.Context, category int64) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := strconv.FormatInt(category, 10)
	var users []User
	for key, level := range s.categoryLevels {
		if key.scope == scope && level >= LevelWatching && level != LevelWatchingFirstPost {
			if u, ok := s.users[key.user]; ok {
				users = append(users, u)
			}
		}
	}
	sortUsers(users)
	return users, nil
}

func (s *MemoryStore) WatchingTag(ctx context.Context, tag string) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var users []User
	for key, level := range s.tagLevels {
		if key.scope == tag && level >= LevelWatching && level != LevelWatchingFirstPost {
			if u, ok := s.users[key.user]; ok {
				users = append(users, u)
			}
		}
	}
	sortUsers(users)
	return users, nil
}

func (s *MemoryStore) WatchingFirstPost(ctx context.Context, category *int64, tags []string, groups []GroupID) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[UserID]bool)
	var users []User
	add := func(id UserID) {
		if !seen[id] {
			if u, ok := s.users[id]; ok {
				seen[id] = true
				users = append(users, u)
			}
		}
	}
	if category != nil {
		scope := strconv.FormatInt(*category, 10)
		for key, level := range s.categoryLevels {
			if key.scope == scope && level == LevelWatchingFirstPost {
				add(key.user)
			}
		}
	}
	for _, tag := range tags {
		for key, level := range s.tagLevels {
			if key.scope == tag && level == LevelWatchingFirstPost {
				add(key.user)
			}
		}
	}
	for _, g := range groups {
		scope := strconv.FormatInt(int64(g), 10)
		for key, level := range s.groupLevels {
			if key.scope == scope && level == LevelWatchingFirstPost {
				add(key.user)
			}
		}
	}
	sortUsers(users)
	return users, nil
}

func (s *MemoryStore) IsMuting(ctx context.Context, user, target UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muting[relationKey{user, target}], nil
}

func (s *MemoryStore) IsIgnoring(ctx context.Context, user, target UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ignoring[relationKey{user, target}], nil
}

func (s *MemoryStore) IncomingEmail(ctx context.Context, postID int64) (*IncomingEmail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.incomingEmails[postID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemoryStore) PushEndpoints(ctx context.Context, user UserID) ([]PushEndpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	endpoints := make([]PushEndpoint, len(s.pushEndpoints[user]))
	copy(endpoints, s.pushEndpoints[user])
	return endpoints, nil
}

// sortUsers keeps list iteration deterministic for callers and tests.
func sortUsers(users []User) {
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
}
