package links_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christian289/postalert/pkg/forum"
	"github.com/christian289/postalert/pkg/links"
)

func siteURL(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("https://forum.example.com")
	require.NoError(t, err)
	return u
}

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cooked string
		want   []string
	}{
		{
			name:   "relative post link",
			cooked: `<p>see <a href="/t/12/3">this post</a></p>`,
			want:   []string{"/t/12/3"},
		},
		{
			name:   "absolute same-site link",
			cooked: `<p><a href="https://forum.example.com/t/12/3">here</a></p>`,
			want:   []string{"https://forum.example.com/t/12/3"},
		},
		{
			name:   "offsite links are ignored",
			cooked: `<p><a href="https://other.example.com/t/12/3">offsite</a></p>`,
			want:   nil,
		},
		{
			name:   "links inside quotes are ignored",
			cooked: `<aside class="quote" data-username="sam"><a href="/t/12/3">echo</a></aside>`,
			want:   nil,
		},
		{
			name:   "anchors and duplicates filtered",
			cooked: `<p><a href="#heading">anchor</a> <a href="/t/12/3">a</a> <a href="/t/12/3">b</a></p>`,
			want:   []string{"/t/12/3"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, links.Extract(tt.cooked, siteURL(t)))
		})
	}
}

func TestResolveAuthors(t *testing.T) {
	t.Parallel()

	store := forum.NewMemoryStore()
	store.AddUser(forum.User{ID: 1, Username: "author"})
	store.AddUser(forum.User{ID: 2, Username: "sam"})
	store.AddUser(forum.User{ID: 3, Username: "zoe"})
	store.AddTopic(forum.Topic{ID: 12, Visible: true})
	store.AddPost(forum.Post{ID: 100, TopicID: 12, Number: 1, AuthorID: 1})
	store.AddPost(forum.Post{ID: 101, TopicID: 12, Number: 2, AuthorID: 2})
	store.AddPost(forum.Post{ID: 102, TopicID: 12, Number: 3, AuthorID: 3})

	author := forum.User{ID: 1, Username: "author"}

	t.Run("resolves linked authors excluding reflections", func(t *testing.T) {
		t.Parallel()
		got, err := links.ResolveAuthors(context.Background(), store,
			author, []string{"/t/12/1", "/t/12/2", "/t/12/99"}, nil)
		require.NoError(t, err)
		require.Len(t, got, 1, "own post is a reflection; missing post drops silently")
		assert.Equal(t, forum.UserID(2), got[0].ID)
	})

	t.Run("already-mentioned authors are excluded", func(t *testing.T) {
		t.Parallel()
		got, err := links.ResolveAuthors(context.Background(), store,
			author, []string{"/t/12/2", "/t/12/3"}, map[forum.UserID]bool{2: true})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, forum.UserID(3), got[0].ID)
	})
}
