package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/christian289/postalert/pkg/forum"
)

// MemoryStorage is an in-memory implementation of Storage.
// Suitable for development and testing. The collapse uniqueness check runs
// under the same lock as the insert, mirroring the constraint a database
// schema enforces with a partial unique index.
type MemoryStorage struct {
	mu   sync.RWMutex
	rows map[forum.UserID][]Notification
}

// NewMemoryStorage creates an empty in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{rows: make(map[forum.UserID][]Notification)}
}

func (s *MemoryStorage) Create(ctx context.Context, n Notification) error {
	if n.Payload == nil {
		return ErrNilPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if class := n.Type.Class(); class != ClassNone {
		for _, existing := range s.rows[n.UserID] {
			if existing.Read || existing.TopicID != n.TopicID {
				continue
			}
			if existing.Type.Class() != class {
				continue
			}
			if class == ClassMention && existing.PostNumber != n.PostNumber {
				continue
			}
			return ErrDuplicateUnread
		}
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.rows[n.UserID] = append(s.rows[n.UserID], n)
	return nil
}

func (s *MemoryStorage) Update(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[n.UserID]
	for i := range rows {
		if rows[i].ID == n.ID {
			rows[i].Payload = n.Payload
			rows[i].PostNumber = n.PostNumber
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStorage) FirstUnread(ctx context.Context, user forum.UserID, topic forum.TopicID, types []Type, postNumber int) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *Notification
	for _, n := range s.rows[user] {
		if n.Read || n.TopicID != topic {
			continue
		}
		if !typeIn(n.Type, types) {
			continue
		}
		if postNumber != 0 && n.PostNumber != postNumber {
			continue
		}
		if found == nil || n.CreatedAt.Before(found.CreatedAt) {
			n := n
			found = &n
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *MemoryStorage) LatestOfType(ctx context.Context, user forum.UserID, topic forum.TopicID, postNumber int, t Type) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *Notification
	for _, n := range s.rows[user] {
		if n.TopicID != topic || n.PostNumber != postNumber || n.Type != t {
			continue
		}
		if found == nil || n.CreatedAt.After(found.CreatedAt) {
			n := n
			found = &n
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *MemoryStorage) List(ctx context.Context, user forum.UserID, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Notification
	for _, n := range s.rows[user] {
		if opts.OnlyUnread && n.Read {
			continue
		}
		if len(opts.Types) > 0 && !typeIn(n.Type, opts.Types) {
			continue
		}
		filtered = append(filtered, n)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(filtered) {
		return []Notification{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, user forum.UserID, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	rows := s.rows[user]
	for i := range rows {
		if idSet[rows[i].ID] {
			rows[i].MarkAsRead()
		}
	}
	return nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, user forum.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.rows[user] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func typeIn(t Type, types []Type) bool {
	for _, candidate := range types {
		if t == candidate {
			return true
		}
	}
	return false
}
