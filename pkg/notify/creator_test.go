package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christian289/postalert/pkg/forum"
	"github.com/christian289/postalert/pkg/notify"
)

func testUser(id forum.UserID, name string) forum.User {
	return forum.User{ID: id, Username: name, Email: name + "@example.com", CreatedAt: time.Now()}
}

func testTopic(id forum.TopicID, title string) forum.Topic {
	return forum.Topic{ID: id, Title: title, Archetype: forum.ArchetypeRegular, Visible: true}
}

func testPost(topic forum.TopicID, number int, author forum.UserID) forum.Post {
	return forum.Post{ID: int64(topic)*100 + int64(number), TopicID: topic, Number: number, AuthorID: author, CreatedAt: time.Now()}
}

func TestCreator_Create(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	recipient := testUser(1, "alice")
	topic := testTopic(10, "Weekly release notes")

	t.Run("creates new reply notification", func(t *testing.T) {
		t.Parallel()

		storage := notify.NewMemoryStorage()
		creator, err := notify.NewCreator(storage)
		require.NoError(t, err)

		n, created, err := creator.Create(ctx, notify.Request{
			User:            recipient,
			Type:            notify.TypeReplied,
			Topic:           topic,
			Post:            testPost(topic.ID, 2, 2),
			DisplayUsername: "bob",
			Excerpt:         "thanks for the writeup",
		})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, notify.TypeReplied, n.Type)
		assert.Equal(t, 2, n.PostNumber)

		payload, ok := n.Payload.(notify.ReplyPayload)
		require.True(t, ok)
		assert.Equal(t, "bob", payload.DisplayUsername)
		assert.Equal(t, 1, payload.Count)
	})

	t.Run("collapses repeat replies into one row with counter", func(t *testing.T) {
		t.Parallel()

		storage := notify.NewMemoryStorage()
		creator, err := notify.NewCreator(storage)
		require.NoError(t, err)

		_, created, err := creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeReplied, Topic: topic,
			Post: testPost(topic.ID, 2, 2), DisplayUsername: "bob",
		})
		require.NoError(t, err)
		require.True(t, created)

		n, created, err := creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeReplied, Topic: topic,
			Post: testPost(topic.ID, 5, 3), DisplayUsername: "carol", Excerpt: "see above",
		})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, 5, n.PostNumber)

		payload, ok := n.Payload.(notify.ReplyPayload)
		require.True(t, ok)
		assert.Equal(t, 2, payload.Count)
		assert.Equal(t, "carol", payload.DisplayUsername)

		count, err := storage.CountUnread(ctx, recipient.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("posted collapses into existing unread replied row", func(t *testing.T) {
		t.Parallel()

		storage := notify.NewMemoryStorage()
		creator, err := notify.NewCreator(storage)
		require.NoError(t, err)

		_, _, err = creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeReplied, Topic: topic,
			Post: testPost(topic.ID, 2, 2), DisplayUsername: "bob",
		})
		require.NoError(t, err)

		n, created, err := creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypePosted, Topic: topic,
			Post: testPost(topic.ID, 3, 4), DisplayUsername: "dave",
		})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, notify.TypeReplied, n.Type)

		payload, ok := n.Payload.(notify.ReplyPayload)
		require.True(t, ok)
		assert.Equal(t, 2, payload.Count)
	})

	t.Run("mentions collapse only on the same post", func(t *testing.T) {
		t.Parallel()

		storage := notify.NewMemoryStorage()
		creator, err := notify.NewCreator(storage)
		require.NoError(t, err)

		_, created, err := creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeMentioned, Topic: topic,
			Post: testPost(topic.ID, 2, 2), DisplayUsername: "bob",
		})
		require.NoError(t, err)
		require.True(t, created)

		_, created, err = creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeMentioned, Topic: topic,
			Post: testPost(topic.ID, 2, 3), DisplayUsername: "carol",
		})
		require.NoError(t, err)
		assert.False(t, created)

		_, created, err = creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeMentioned, Topic: topic,
			Post: testPost(topic.ID, 7, 3), DisplayUsername: "carol",
		})
		require.NoError(t, err)
		assert.True(t, created)

		count, err := storage.CountUnread(ctx, recipient.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("quoted never collapses", func(t *testing.T) {
		t.Parallel()

		storage := notify.NewMemoryStorage()
		creator, err := notify.NewCreator(storage)
		require.NoError(t, err)

		for _, number := range []int{2, 3} {
			_, created, err := creator.Create(ctx, notify.Request{
				User: recipient, Type: notify.TypeQuoted, Topic: topic,
				Post: testPost(topic.ID, number, 2), DisplayUsername: "bob",
			})
			require.NoError(t, err)
			assert.True(t, created)
		}

		count, err := storage.CountUnread(ctx, recipient.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("read rows are never collapsed into", func(t *testing.T) {
		t.Parallel()

		storage := notify.NewMemoryStorage()
		creator, err := notify.NewCreator(storage)
		require.NoError(t, err)

		first, _, err := creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeReplied, Topic: topic,
			Post: testPost(topic.ID, 2, 2), DisplayUsername: "bob",
		})
		require.NoError(t, err)
		require.NoError(t, storage.MarkRead(ctx, recipient.ID, first.ID))

		second, created, err := creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeReplied, Topic: topic,
			Post: testPost(topic.ID, 3, 2), DisplayUsername: "bob",
		})
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, first.ID, second.ID)

		payload, ok := second.Payload.(notify.ReplyPayload)
		require.True(t, ok)
		assert.Equal(t, 1, payload.Count)
	})

	t.Run("custom notification requires payload", func(t *testing.T) {
		t.Parallel()

		creator, err := notify.NewCreator(notify.NewMemoryStorage())
		require.NoError(t, err)

		_, _, err = creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeCustom, Topic: topic,
			Post: testPost(topic.ID, 1, 2),
		})
		assert.ErrorIs(t, err, notify.ErrNilPayload)
	})

	t.Run("nil storage rejected", func(t *testing.T) {
		t.Parallel()

		_, err := notify.NewCreator(nil)
		assert.ErrorIs(t, err, notify.ErrStorageNil)
	})
}

func TestCreator_EditThrottle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	recipient := testUser(1, "alice")
	topic := testTopic(10, "Weekly release notes")
	post := testPost(topic.ID, 4, 1)

	editReq := func(editor string) notify.Request {
		return notify.Request{
			User: recipient, Type: notify.TypeEdited, Topic: topic,
			Post: post, DisplayUsername: editor,
		}
	}

	t.Run("repeat edit within window by same editor suppressed", func(t *testing.T) {
		t.Parallel()

		storage := notify.NewMemoryStorage()
		creator, err := notify.NewCreator(storage)
		require.NoError(t, err)

		first, created, err := creator.Create(ctx, editReq("bob"))
		require.NoError(t, err)
		require.True(t, created)

		again, created, err := creator.Create(ctx, editReq("bob"))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)

		count, err := storage.CountUnread(ctx, recipient.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("different editor bypasses the throttle", func(t *testing.T) {
		t.Parallel()

		storage := notify.NewMemoryStorage()
		creator, err := notify.NewCreator(storage)
		require.NoError(t, err)

		_, created, err := creator.Create(ctx, editReq("bob"))
		require.NoError(t, err)
		require.True(t, created)

		_, created, err = creator.Create(ctx, editReq("carol"))
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("edit after window creates a new row", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		clock := func() time.Time { return now }

		storage := notify.NewMemoryStorage()
		creator, err := notify.NewCreator(storage,
			notify.WithEditWindow(10*time.Minute),
			notify.WithNow(func() time.Time { return clock() }),
		)
		require.NoError(t, err)

		_, created, err := creator.Create(ctx, editReq("bob"))
		require.NoError(t, err)
		require.True(t, created)

		later := now.Add(11 * time.Minute)
		clock = func() time.Time { return later }

		_, created, err = creator.Create(ctx, editReq("bob"))
		require.NoError(t, err)
		assert.True(t, created)
	})
}

func TestCreator_Hooks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	recipient := testUser(1, "alice")
	topic := testTopic(10, "Weekly release notes")

	t.Run("pre alert fires on create but not on collapse", func(t *testing.T) {
		t.Parallel()

		creator, err := notify.NewCreator(notify.NewMemoryStorage())
		require.NoError(t, err)

		var alerts []notify.Alert
		creator.Hooks().OnPreAlert(func(_ context.Context, _ forum.User, a notify.Alert) {
			alerts = append(alerts, a)
		})

		_, _, err = creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeReplied, Topic: topic,
			Post: testPost(topic.ID, 2, 2), DisplayUsername: "bob",
		})
		require.NoError(t, err)

		_, _, err = creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeReplied, Topic: topic,
			Post: testPost(topic.ID, 3, 2), DisplayUsername: "bob",
		})
		require.NoError(t, err)

		require.Len(t, alerts, 1)
		assert.Equal(t, int(notify.TypeReplied), alerts[0].NotificationType)
		assert.Equal(t, "/t/10/2", alerts[0].PostURL)
		assert.Equal(t, "Weekly release notes", alerts[0].TopicTitle)
	})

	t.Run("panicking listener does not abort creation", func(t *testing.T) {
		t.Parallel()

		creator, err := notify.NewCreator(notify.NewMemoryStorage())
		require.NoError(t, err)

		creator.Hooks().OnBeforeCreate(func(context.Context, forum.User, notify.Type, forum.Post) {
			panic("listener boom")
		})

		_, created, err := creator.Create(ctx, notify.Request{
			User: recipient, Type: notify.TypeReplied, Topic: topic,
			Post: testPost(topic.ID, 2, 2), DisplayUsername: "bob",
		})
		require.NoError(t, err)
		assert.True(t, created)
	})
}

func TestCreator_CreateForUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	topic := testTopic(10, "Weekly release notes")
	post := testPost(topic.ID, 2, 9)
	users := []forum.User{testUser(1, "alice"), testUser(2, "bob"), testUser(3, "carol")}

	storage := notify.NewMemoryStorage()
	creator, err := notify.NewCreator(storage)
	require.NoError(t, err)

	var batches []notify.BeforeCreateBatch
	creator.Hooks().OnBeforeCreateForUsers(func(_ context.Context, b notify.BeforeCreateBatch) {
		batches = append(batches, b)
	})

	// Seed an unread replied row for carol so her batch entry collapses.
	_, _, err = creator.Create(ctx, notify.Request{
		User: users[2], Type: notify.TypeReplied, Topic: topic,
		Post: testPost(topic.ID, 1, 9), DisplayUsername: "dave",
	})
	require.NoError(t, err)

	created, err := creator.CreateForUsers(ctx, notify.TypeReplied, users, notify.Request{
		Topic: topic, Post: post, DisplayUsername: "dave", Excerpt: "new build is out",
	})
	require.NoError(t, err)

	require.Len(t, batches, 1)
	assert.Equal(t, notify.TypeReplied, batches[0].Type)
	assert.Len(t, batches[0].Users, 3)

	// carol collapsed, so only alice and bob yield new rows.
	require.Len(t, created, 2)
	for _, n := range created {
		assert.NotEqual(t, users[2].ID, n.UserID)
	}

	count, err := storage.CountUnread(ctx, users[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
