package mentions

import (
	"context"
	"errors"
	"fmt"

	"github.com/christian289/postalert/pkg/forum"
)

// Kind tags a resolved mention identity.
type Kind int

const (
	KindUser Kind = iota
	KindGroup
)

// Identity is one resolved mention, either a user or a group.
type Identity struct {
	Kind  Kind
	User  forum.User  // set when Kind == KindUser
	Group forum.Group // set when Kind == KindGroup
}

// Resolve maps extracted mention tokens to user and group identities,
// preserving token order. Unresolvable tokens and mentions of the post's
// own author are dropped. Group mentions are filtered by the group's
// mentionable level against the author's role, except inside a private
// message whose ACL already includes the group. User mentions inside a
// private message are honored only when the user is reachable through the
// topic's allowed users or allowed groups.
func Resolve(ctx context.Context, store forum.Store, topic forum.Topic, author forum.User, tokens []string) ([]Identity, error) {
	identities := make([]Identity, 0, len(tokens))

	for _, token := range tokens {
		user, err := store.UserByUsername(ctx, token)
		switch {
		case err == nil:
			if user.ID == author.ID {
				continue
			}
			ok, err := userReachable(ctx, store, topic, *user)
			if err != nil {
				return nil, err
			}
			if ok {
				identities = append(identities, Identity{Kind: KindUser, User: *user})
			}
			continue
		case !errors.Is(err, forum.ErrNotFound):
			return nil, fmt.Errorf("resolve mention %q: %w", token, err)
		}

		group, err := store.GroupByName(ctx, token)
		switch {
		case err == nil:
			ok, err := groupMentionable(ctx, store, topic, author, *group)
			if err != nil {
				return nil, err
			}
			if ok {
				identities = append(identities, Identity{Kind: KindGroup, Group: *group})
			}
		case !errors.Is(err, forum.ErrNotFound):
			return nil, fmt.Errorf("resolve mention %q: %w", token, err)
		}
		// Neither user nor group: dropped silently.
	}

	return identities, nil
}

// userReachable reports whether a mentioned user may be notified at all.
// Outside private messages every user is reachable; inside one the user
// must be an allowed user or a member of an allowed group, staff included.
func userReachable(ctx context.Context, store forum.Store, topic forum.Topic, user forum.User) (bool, error) {
	if !topic.PrivateMessage() {
		return true, nil
	}
	if topic.AllowsUser(user.ID) {
		return true, nil
	}
	for _, gid := range topic.AllowedGroupIDs {
		member, err := store.IsGroupMember(ctx, gid, user.ID)
		if err != nil {
			return false, fmt.Errorf("group membership of %q: %w", user.Username, err)
		}
		if member {
			return true, nil
		}
	}
	return false, nil
}

// groupMentionable reports whether the author may trigger a mention of the
// group. A group already allowed on a private message is always mentionable
// there, regardless of its level.
func groupMentionable(ctx context.Context, store forum.Store, topic forum.Topic, author forum.User, group forum.Group) (bool, error) {
	if topic.PrivateMessage() && topic.AllowsGroup(group.ID) {
		return true, nil
	}

	switch group.MentionableLevel {
	case forum.MentionableEveryone:
		return true, nil
	case forum.MentionableMembersAndStaff:
		if author.Staff {
			return true, nil
		}
		member, err := store.IsGroupMember(ctx, group.ID, author.ID)
		if err != nil {
			return false, fmt.Errorf("group membership of %q: %w", author.Username, err)
		}
		return member, nil
	case forum.MentionableOwnersAndStaff:
		if author.Staff {
			return true, nil
		}
		owner, err := store.IsGroupOwner(ctx, group.ID, author.ID)
		if err != nil {
			return false, fmt.Errorf("group ownership of %q: %w", author.Username, err)
		}
		return owner, nil
	default:
		return false, nil
	}
}
