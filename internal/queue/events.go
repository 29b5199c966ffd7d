package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types published to the fan-out stream
const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventUserFollowed   = "user_followed"
	EventUserUnfollowed = "user_unfollowed"
	EventStoryDeleted   = "story_deleted"
)

// Stream names
const (
	StreamFanout = "stream:fanout"
)

// Consumer group name for fan-out workers
const (
	ConsumerGroupFanout = "fanout_workers"
)

// Event is a message published to the fan-out stream. All event types
// share this structure; unused fields are omitted from the JSON payload.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	// Post events
	PostID   int64 `json:"post_id,omitempty"`
	AuthorID int64 `json:"author_id,omitempty"`

	// Follow events
	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`

	// Story events
	StoryID int64 `json:"story_id,omitempty"`
}

// NewPostCreatedEvent creates an event for when a user creates a post.
// Workers fan the post out to all followers' feed caches.
func NewPostCreatedEvent(postID, authorID int64) Event {
	return Event{
		Type:      EventPostCreated,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
	}
}

// NewPostDeletedEvent creates an event for when a user deletes a post.
// Workers remove the post from all followers' feed caches.
func NewPostDeletedEvent(postID, authorID int64) Event {
	return Event{
		Type:      EventPostDeleted,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
	}
}

// NewUserFollowedEvent creates an event for when a user follows another.
// Workers backfill recent posts from the followee into the follower's feed cache.
func NewUserFollowedEvent(followerID, followeeID int64) Event {
	return Event{
		Type:       EventUserFollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// NewUserUnfollowedEvent creates an event for when a user unfollows another.
// Workers remove the followee's posts from the follower's feed cache.
func NewUserUnfollowedEvent(followerID, followeeID int64) Event {
	return Event{
		Type:       EventUserUnfollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// NewStoryDeletedEvent creates an event for when a story is deleted or expires.
// Workers drop the story's viewer set from Redis.
func NewStoryDeletedEvent(storyID, authorID int64) Event {
	return Event{
		Type:      EventStoryDeleted,
		Timestamp: time.Now().Unix(),
		StoryID:   storyID,
		AuthorID:  authorID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEvent parses an Event from Redis stream message values.
func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
