package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// StoryViewerPrefix is the key prefix for per-story viewer sets
	StoryViewerPrefix = "story:viewers:"

	// StoryViewerTTL matches the story lifetime plus slack for late reads
	StoryViewerTTL = 25 * time.Hour
)

// StoryViewCache tracks unique viewers per story so repeated views by the
// same user don't inflate the count.
type StoryViewCache interface {
	// MarkViewed records that a user viewed a story. Returns true if this
	// is the user's first view of the story.
	MarkViewed(ctx context.Context, storyID, viewerID int64) (bool, error)

	// ViewerCount returns the number of distinct viewers of a story.
	ViewerCount(ctx context.Context, storyID int64) (int64, error)

	// Clear removes a story's viewer set (story deleted or expired).
	Clear(ctx context.Context, storyID int64) error
}

// RedisStoryViewCache implements StoryViewCache using Redis Sets.
type RedisStoryViewCache struct {
	client *redis.Client
}

// NewStoryViewCache creates a new StoryViewCache backed by Redis.
func NewStoryViewCache(client *redis.Client) StoryViewCache {
	return &RedisStoryViewCache{client: client}
}

func storyViewerKey(storyID int64) string {
	return fmt.Sprintf("%s%d", StoryViewerPrefix, storyID)
}

// MarkViewed adds the viewer to the story's set. SADD returns the number of
// members actually added, so 1 means first view.
func (c *RedisStoryViewCache) MarkViewed(ctx context.Context, storyID, viewerID int64) (bool, error) {
	key := storyViewerKey(storyID)

	pipe := c.client.Pipeline()
	addCmd := pipe.SAdd(ctx, key, strconv.FormatInt(viewerID, 10))
	pipe.Expire(ctx, key, StoryViewerTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[StoryViewCache] MarkViewed FAILED: story=%d viewer=%d err=%v", storyID, viewerID, err)
		return false, fmt.Errorf("mark story viewed: %w", err)
	}

	return addCmd.Val() == 1, nil
}

// ViewerCount returns the cardinality of the story's viewer set.
func (c *RedisStoryViewCache) ViewerCount(ctx context.Context, storyID int64) (int64, error) {
	count, err := c.client.SCard(ctx, storyViewerKey(storyID)).Result()
	if err != nil {
		return 0, fmt.Errorf("get story viewer count: %w", err)
	}
	return count, nil
}

// Clear removes the story's viewer set.
func (c *RedisStoryViewCache) Clear(ctx context.Context, storyID int64) error {
	if err := c.client.Del(ctx, storyViewerKey(storyID)).Err(); err != nil {
		return fmt.Errorf("clear story viewers: %w", err)
	}
	return nil
}
