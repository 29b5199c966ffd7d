package worker_test

import (
	"context"
	"testing"
	"time"

	"glimpse/internal/cache"
	"glimpse/internal/queue"
	"glimpse/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockFeedCache is an in-memory FeedCache keyed userID -> postID -> score.
type MockFeedCache struct {
	feeds map[int64]map[int64]int64
}

func NewMockFeedCache() *MockFeedCache {
	return &MockFeedCache{feeds: make(map[int64]map[int64]int64)}
}

func (m *MockFeedCache) AddPost(ctx context.Context, userID, postID int64, timestamp int64) error {
	if m.feeds[userID] == nil {
		m.feeds[userID] = make(map[int64]int64)
	}
	m.feeds[userID][postID] = timestamp
	return nil
}

func (m *MockFeedCache) RemovePost(ctx context.Context, userID, postID int64) error {
	delete(m.feeds[userID], postID)
	if len(m.feeds[userID]) == 0 {
		delete(m.feeds, userID)
	}
	return nil
}

func (m *MockFeedCache) GetFeed(ctx context.Context, userID int64, cursorScore *float64, limit int) ([]int64, []float64, error) {
	var ids []int64
	var scores []float64
	for id, ts := range m.feeds[userID] {
		ids = append(ids, id)
		scores = append(scores, float64(ts))
	}
	return ids, scores, nil
}

func (m *MockFeedCache) WarmCache(ctx context.Context, userID int64, posts []cache.PostScore) error {
	for _, p := range posts {
		m.AddPost(ctx, userID, p.PostID, p.Timestamp)
	}
	return nil
}

func (m *MockFeedCache) Size(ctx context.Context, userID int64) (int64, error) {
	return int64(len(m.feeds[userID])), nil
}

func (m *MockFeedCache) Exists(ctx context.Context, userID int64) (bool, error) {
	_, ok := m.feeds[userID]
	return ok, nil
}

func (m *MockFeedCache) has(userID, postID int64) bool {
	_, ok := m.feeds[userID][postID]
	return ok
}

// MockStoryViewCache tracks viewer sets per story.
type MockStoryViewCache struct {
	viewers map[int64]map[int64]bool
}

func NewMockStoryViewCache() *MockStoryViewCache {
	return &MockStoryViewCache{viewers: make(map[int64]map[int64]bool)}
}

func (m *MockStoryViewCache) MarkViewed(ctx context.Context, storyID, viewerID int64) (bool, error) {
	if m.viewers[storyID] == nil {
		m.viewers[storyID] = make(map[int64]bool)
	}
	if m.viewers[storyID][viewerID] {
		return false, nil
	}
	m.viewers[storyID][viewerID] = true
	return true, nil
}

func (m *MockStoryViewCache) ViewerCount(ctx context.Context, storyID int64) (int64, error) {
	return int64(len(m.viewers[storyID])), nil
}

func (m *MockStoryViewCache) Clear(ctx context.Context, storyID int64) error {
	delete(m.viewers, storyID)
	return nil
}

// MockFollowerProvider maps userID -> follower IDs.
type MockFollowerProvider struct {
	followers map[int64][]int64
}

func NewMockFollowerProvider() *MockFollowerProvider {
	return &MockFollowerProvider{followers: make(map[int64][]int64)}
}

func (m *MockFollowerProvider) AddFollower(userID, followerID int64) {
	m.followers[userID] = append(m.followers[userID], followerID)
}

func (m *MockFollowerProvider) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	return m.followers[userID], nil
}

// MockPostsProvider maps authorID -> recent posts.
type MockPostsProvider struct {
	posts map[int64][]cache.PostScore
}

func NewMockPostsProvider() *MockPostsProvider {
	return &MockPostsProvider{posts: make(map[int64][]cache.PostScore)}
}

func (m *MockPostsProvider) AddPost(authorID, postID int64, timestamp int64) {
	m.posts[authorID] = append(m.posts[authorID], cache.PostScore{
		PostID:    postID,
		Timestamp: timestamp,
	})
}

func (m *MockPostsProvider) GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.PostScore, error) {
	posts := m.posts[userID]
	if len(posts) > limit {
		return posts[:limit], nil
	}
	return posts, nil
}

type handlerFixture struct {
	feedCache  *MockFeedCache
	storyViews *MockStoryViewCache
	followers  *MockFollowerProvider
	posts      *MockPostsProvider
	handler    *worker.Handler
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		feedCache:  NewMockFeedCache(),
		storyViews: NewMockStoryViewCache(),
		followers:  NewMockFollowerProvider(),
		posts:      NewMockPostsProvider(),
	}
	f.handler = worker.NewHandler(f.feedCache, f.storyViews, f.followers, f.posts)
	return f
}

// =============================================================================
// Tests
// =============================================================================

func TestPostCreatedFanout(t *testing.T) {
	f := newHandlerFixture()
	ctx := context.Background()

	authorID := int64(1)
	f.followers.AddFollower(authorID, 2)
	f.followers.AddFollower(authorID, 3)
	f.followers.AddFollower(authorID, 4)

	postID := int64(100)
	event := queue.NewPostCreatedEvent(postID, authorID)

	if err := f.handler.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	// Post lands in all followers' feeds and the author's own feed.
	for _, userID := range []int64{1, 2, 3, 4} {
		if !f.feedCache.has(userID, postID) {
			t.Errorf("Post %d not found in user %d's feed", postID, userID)
		}
	}
}

func TestPostDeletedRemoval(t *testing.T) {
	f := newHandlerFixture()
	ctx := context.Background()

	authorID := int64(1)
	f.followers.AddFollower(authorID, 2)
	f.followers.AddFollower(authorID, 3)

	postID := int64(100)
	ts := time.Now().Unix()
	for _, userID := range []int64{1, 2, 3} {
		f.feedCache.AddPost(ctx, userID, postID, ts)
	}

	if err := f.handler.HandleEvent(ctx, queue.NewPostDeletedEvent(postID, authorID)); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	for _, userID := range []int64{1, 2, 3} {
		if f.feedCache.has(userID, postID) {
			t.Errorf("Post %d should have been removed from user %d's feed", postID, userID)
		}
	}
}

func TestUserFollowedBackfill(t *testing.T) {
	f := newHandlerFixture()
	ctx := context.Background()

	followerID := int64(2)
	followeeID := int64(1)

	now := time.Now().Unix()
	f.posts.AddPost(followeeID, 101, now-3600)
	f.posts.AddPost(followeeID, 102, now-1800)
	f.posts.AddPost(followeeID, 103, now-600)

	if err := f.handler.HandleEvent(ctx, queue.NewUserFollowedEvent(followerID, followeeID)); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	size, _ := f.feedCache.Size(ctx, followerID)
	if size != 3 {
		t.Errorf("Follower's feed size: got %d, want 3", size)
	}
	for _, postID := range []int64{101, 102, 103} {
		if !f.feedCache.has(followerID, postID) {
			t.Errorf("Post %d not backfilled into follower's feed", postID)
		}
	}
}

func TestUserUnfollowedRemoval(t *testing.T) {
	f := newHandlerFixture()
	ctx := context.Background()

	followerID := int64(2)
	unfollowedID := int64(1)
	otherUserID := int64(3)

	now := time.Now().Unix()
	f.posts.AddPost(unfollowedID, 101, now-3600)
	f.posts.AddPost(unfollowedID, 102, now-1800)
	f.posts.AddPost(otherUserID, 301, now-2400)

	f.feedCache.AddPost(ctx, followerID, 101, now-3600)
	f.feedCache.AddPost(ctx, followerID, 102, now-1800)
	f.feedCache.AddPost(ctx, followerID, 301, now-2400)

	if err := f.handler.HandleEvent(ctx, queue.NewUserUnfollowedEvent(followerID, unfollowedID)); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	for _, postID := range []int64{101, 102} {
		if f.feedCache.has(followerID, postID) {
			t.Errorf("Post %d should have been removed after unfollow", postID)
		}
	}
	if !f.feedCache.has(followerID, 301) {
		t.Error("Other user's post must survive the unfollow")
	}
}

func TestStoryDeletedClearsViewers(t *testing.T) {
	f := newHandlerFixture()
	ctx := context.Background()

	storyID := int64(55)
	f.storyViews.MarkViewed(ctx, storyID, 2)
	f.storyViews.MarkViewed(ctx, storyID, 3)

	if err := f.handler.HandleEvent(ctx, queue.NewStoryDeletedEvent(storyID, 1)); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	count, _ := f.storyViews.ViewerCount(ctx, storyID)
	if count != 0 {
		t.Errorf("Viewer set should be cleared, got %d viewers", count)
	}
}

func TestUnknownEventType(t *testing.T) {
	f := newHandlerFixture()

	err := f.handler.HandleEvent(context.Background(), queue.Event{Type: "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
