package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christian289/postalert/pkg/forum"
	"github.com/christian289/postalert/pkg/notify"
)

func row(user forum.UserID, t notify.Type, topic forum.TopicID, number int, at time.Time) notify.Notification {
	var payload notify.Payload
	switch t.Class() {
	case notify.ClassReply:
		payload = notify.ReplyPayload{DisplayUsername: "bob", Count: 1}
	case notify.ClassMention:
		payload = notify.MentionPayload{DisplayUsername: "bob"}
	default:
		payload = notify.QuotePayload{DisplayUsername: "bob"}
	}
	return notify.Notification{
		ID:         uuid.New(),
		UserID:     user,
		Type:       t,
		TopicID:    topic,
		PostNumber: number,
		Payload:    payload,
		CreatedAt:  at,
	}
}

func TestMemoryStorage_Create(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()

	t.Run("rejects nil payload", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		err := s.Create(ctx, notify.Notification{ID: uuid.New(), UserID: 1, Type: notify.TypeReplied})
		assert.ErrorIs(t, err, notify.ErrNilPayload)
	})

	t.Run("conflicting unread collapse key", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		require.NoError(t, s.Create(ctx, row(1, notify.TypeReplied, 10, 2, now)))

		err := s.Create(ctx, row(1, notify.TypePosted, 10, 3, now))
		assert.ErrorIs(t, err, notify.ErrDuplicateUnread)

		// Different topic does not conflict.
		assert.NoError(t, s.Create(ctx, row(1, notify.TypeReplied, 11, 1, now)))
		// Uncollapsible types never conflict.
		assert.NoError(t, s.Create(ctx, row(1, notify.TypeQuoted, 10, 2, now)))
		assert.NoError(t, s.Create(ctx, row(1, notify.TypeQuoted, 10, 3, now)))
	})

	t.Run("mention conflict is scoped to the post", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		require.NoError(t, s.Create(ctx, row(1, notify.TypeMentioned, 10, 2, now)))

		err := s.Create(ctx, row(1, notify.TypeGroupMentioned, 10, 2, now))
		assert.ErrorIs(t, err, notify.ErrDuplicateUnread)

		assert.NoError(t, s.Create(ctx, row(1, notify.TypeMentioned, 10, 5, now)))
	})

	t.Run("read rows do not conflict", func(t *testing.T) {
		t.Parallel()

		s := notify.NewMemoryStorage()
		first := row(1, notify.TypeReplied, 10, 2, now)
		require.NoError(t, s.Create(ctx, first))
		require.NoError(t, s.MarkRead(ctx, 1, first.ID))

		assert.NoError(t, s.Create(ctx, row(1, notify.TypeReplied, 10, 3, now)))
	})
}

func TestMemoryStorage_Lookups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()

	s := notify.NewMemoryStorage()
	older := row(1, notify.TypeQuoted, 10, 2, now.Add(-time.Hour))
	newer := row(1, notify.TypeQuoted, 10, 3, now)
	edited := row(1, notify.TypeEdited, 10, 4, now.Add(-time.Minute))
	edited.Payload = notify.EditPayload{DisplayUsername: "bob"}
	require.NoError(t, s.Create(ctx, older))
	require.NoError(t, s.Create(ctx, newer))
	require.NoError(t, s.Create(ctx, edited))

	t.Run("first unread returns the oldest match", func(t *testing.T) {
		t.Parallel()

		found, err := s.FirstUnread(ctx, 1, 10, []notify.Type{notify.TypeQuoted}, 0)
		require.NoError(t, err)
		assert.Equal(t, older.ID, found.ID)

		found, err = s.FirstUnread(ctx, 1, 10, []notify.Type{notify.TypeQuoted}, 3)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, found.ID)

		_, err = s.FirstUnread(ctx, 1, 10, []notify.Type{notify.TypeReplied}, 0)
		assert.ErrorIs(t, err, notify.ErrNotFound)
	})

	t.Run("latest of type matches the exact post", func(t *testing.T) {
		t.Parallel()

		found, err := s.LatestOfType(ctx, 1, 10, 4, notify.TypeEdited)
		require.NoError(t, err)
		assert.Equal(t, edited.ID, found.ID)

		_, err = s.LatestOfType(ctx, 1, 10, 2, notify.TypeEdited)
		assert.ErrorIs(t, err, notify.ErrNotFound)
	})

	t.Run("update rewrites payload and post number", func(t *testing.T) {
		t.Parallel()

		changed := newer
		changed.PostNumber = 7
		changed.Payload = notify.QuotePayload{DisplayUsername: "carol"}
		require.NoError(t, s.Update(ctx, changed))

		found, err := s.FirstUnread(ctx, 1, 10, []notify.Type{notify.TypeQuoted}, 7)
		require.NoError(t, err)
		assert.Equal(t, "carol", found.Payload.(notify.QuotePayload).DisplayUsername)

		missing := changed
		missing.ID = uuid.New()
		assert.ErrorIs(t, s.Update(ctx, missing), notify.ErrNotFound)
	})
}

func TestMemoryStorage_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()

	s := notify.NewMemoryStorage()
	first := row(1, notify.TypeQuoted, 10, 2, now.Add(-2*time.Hour))
	second := row(1, notify.TypeQuoted, 11, 1, now.Add(-time.Hour))
	third := row(1, notify.TypeLinked, 12, 1, now)
	third.Payload = notify.LinkPayload{DisplayUsername: "bob"}
	require.NoError(t, s.Create(ctx, first))
	require.NoError(t, s.Create(ctx, second))
	require.NoError(t, s.Create(ctx, third))
	require.NoError(t, s.MarkRead(ctx, 1, first.ID))

	all, err := s.List(ctx, 1, notify.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID, "newest first")

	unread, err := s.List(ctx, 1, notify.ListOptions{OnlyUnread: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	quoted, err := s.List(ctx, 1, notify.ListOptions{Types: []notify.Type{notify.TypeQuoted}})
	require.NoError(t, err)
	assert.Len(t, quoted, 2)

	paged, err := s.List(ctx, 1, notify.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, second.ID, paged[0].ID)

	count, err := s.CountUnread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
