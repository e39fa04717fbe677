package mentions_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christian289/postalert/pkg/forum"
	"github.com/christian289/postalert/pkg/mentions"
)

func resolveStore() *forum.MemoryStore {
	store := forum.NewMemoryStore()
	store.AddUser(forum.User{ID: 1, Username: "author"})
	store.AddUser(forum.User{ID: 2, Username: "sam"})
	store.AddUser(forum.User{ID: 3, Username: "zoe", Staff: true})
	store.AddUser(forum.User{ID: 4, Username: "outsider"})
	return store
}

func TestResolve_Users(t *testing.T) {
	t.Parallel()

	store := resolveStore()
	author := forum.User{ID: 1, Username: "author"}
	topic := forum.Topic{ID: 10, Archetype: forum.ArchetypeRegular, Visible: true}

	got, err := mentions.Resolve(context.Background(), store, topic, author, []string{"sam", "author", "ghost"})
	require.NoError(t, err)

	require.Len(t, got, 1, "self mention and unresolvable token must be dropped")
	assert.Equal(t, mentions.KindUser, got[0].Kind)
	assert.Equal(t, forum.UserID(2), got[0].User.ID)
}

func TestResolve_PMUserVisibility(t *testing.T) {
	t.Parallel()

	store := resolveStore()
	store.AddGroup(forum.Group{ID: 5, Name: "support"}, []forum.UserID{2})
	author := forum.User{ID: 1, Username: "author"}

	pm := forum.Topic{
		ID:              11,
		Archetype:       forum.ArchetypePrivateMessage,
		AllowedUserIDs:  []forum.UserID{1},
		AllowedGroupIDs: []forum.GroupID{5},
		Visible:         true,
	}

	// sam is reachable through the allowed group; zoe is staff but not a
	// participant and must be silently dropped.
	got, err := mentions.Resolve(context.Background(), store, pm, author, []string{"sam", "zoe", "outsider"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, forum.UserID(2), got[0].User.ID)
}

func TestResolve_GroupMentionableLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     forum.MentionableLevel
		author    forum.User
		member    bool
		owner     bool
		mentioned bool
	}{
		{
			name:      "everyone may mention",
			level:     forum.MentionableEveryone,
			author:    forum.User{ID: 1, Username: "author"},
			mentioned: true,
		},
		{
			name:      "members level blocks non-member",
			level:     forum.MentionableMembersAndStaff,
			author:    forum.User{ID: 1, Username: "author"},
			mentioned: false,
		},
		{
			name:      "members level admits member",
			level:     forum.MentionableMembersAndStaff,
			author:    forum.User{ID: 1, Username: "author"},
			member:    true,
			mentioned: true,
		},
		{
			name:      "owners level blocks plain member",
			level:     forum.MentionableOwnersAndStaff,
			author:    forum.User{ID: 1, Username: "author"},
			member:    true,
			mentioned: false,
		},
		{
			name:      "owners level admits owner",
			level:     forum.MentionableOwnersAndStaff,
			author:    forum.User{ID: 1, Username: "author"},
			owner:     true,
			mentioned: true,
		},
		{
			name:      "staff bypasses owner requirement",
			level:     forum.MentionableOwnersAndStaff,
			author:    forum.User{ID: 3, Username: "zoe", Staff: true},
			mentioned: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := resolveStore()
			var members []forum.UserID
			var owners []forum.UserID
			if tt.member {
				members = append(members, tt.author.ID)
			}
			if tt.owner {
				owners = append(owners, tt.author.ID)
			}
			store.AddGroup(forum.Group{ID: 5, Name: "team", MentionableLevel: tt.level}, members, owners...)

			topic := forum.Topic{ID: 10, Archetype: forum.ArchetypeRegular, Visible: true}
			got, err := mentions.Resolve(context.Background(), store, topic, tt.author, []string{"team"})
			require.NoError(t, err)

			if tt.mentioned {
				require.Len(t, got, 1)
				assert.Equal(t, mentions.KindGroup, got[0].Kind)
				assert.Equal(t, forum.GroupID(5), got[0].Group.ID)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestResolve_PMAllowedGroupBypassesLevel(t *testing.T) {
	t.Parallel()

	store := resolveStore()
	store.AddGroup(forum.Group{ID: 5, Name: "team", MentionableLevel: forum.MentionableOwnersAndStaff}, []forum.UserID{2})

	author := forum.User{ID: 1, Username: "author"}
	pm := forum.Topic{
		ID:              11,
		Archetype:       forum.ArchetypePrivateMessage,
		AllowedUserIDs:  []forum.UserID{1},
		AllowedGroupIDs: []forum.GroupID{5},
		Visible:         true,
	}

	got, err := mentions.Resolve(context.Background(), store, pm, author, []string{"team"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mentions.KindGroup, got[0].Kind)
}
