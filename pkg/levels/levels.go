package levels

import (
	"context"
	"fmt"

	"github.com/christian289/postalert/pkg/forum"
)

// Effective resolves the user's effective notification level for the topic.
//
// An explicit topic-level setting overrides everything else. Without one,
// the highest level derived from the topic's category, tags, and allowed
// groups applies, defaulting to regular. A derived watching_first_post
// setting counts as regular here: it only affects brand-new topics, which
// the watching-first-post resolver handles from its own store query.
func Effective(ctx context.Context, store forum.Store, user forum.UserID, topic forum.Topic) (forum.NotificationLevel, error) {
	if level, ok, err := store.TopicLevel(ctx, user, topic.ID); err != nil {
		return forum.LevelRegular, fmt.Errorf("topic level for user %d: %w", user, err)
	} else if ok {
		return level, nil
	}

	effective := forum.LevelRegular

	consider := func(level forum.NotificationLevel, ok bool) {
		if !ok {
			return
		}
		if level == forum.LevelWatchingFirstPost {
			level = forum.LevelRegular
		}
		if level > effective {
			effective = level
		}
	}

	if topic.CategoryID != nil {
		level, ok, err := store.CategoryLevel(ctx, user, *topic.CategoryID)
		if err != nil {
			return forum.LevelRegular, fmt.Errorf("category level for user %d: %w", user, err)
		}
		consider(level, ok)
	}

	for _, tag := range topic.Tags {
		level, ok, err := store.TagLevel(ctx, user, tag)
		if err != nil {
			return forum.LevelRegular, fmt.Errorf("tag level for user %d: %w", user, err)
		}
		consider(level, ok)
	}

	for _, gid := range topic.AllowedGroupIDs {
		level, ok, err := store.GroupLevel(ctx, user, gid)
		if err != nil {
			return forum.LevelRegular, fmt.Errorf("group level for user %d: %w", user, err)
		}
		consider(level, ok)
	}

	return effective, nil
}

// MutedTopic reports whether the user's effective level mutes the topic.
func MutedTopic(ctx context.Context, store forum.Store, user forum.UserID, topic forum.Topic) (bool, error) {
	level, err := Effective(ctx, store, user, topic)
	if err != nil {
		return false, err
	}
	return level == forum.LevelMuted, nil
}
