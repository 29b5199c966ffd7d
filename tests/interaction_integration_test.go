package integration_test

// End-to-end tests for the interaction surface: optimistic-client
// collaborators (like, save, comment) and stories. They run against a live
// server (TEST_BASE_URL, default http://localhost:8080) with Postgres and
// Redis behind it, and skip when no server is reachable.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"glimpse/internal/client"
	"glimpse/internal/model"
)

var baseURL = getEnv("TEST_BASE_URL", "http://localhost:8080")

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireServer(t *testing.T) {
	t.Helper()
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Skipf("Server not reachable at %s, skipping: %v", baseURL, err)
	}
	resp.Body.Close()
}

// newTestUser registers and logs in a throwaway account.
func newTestUser(t *testing.T, name string) *client.Client {
	t.Helper()
	ctx := context.Background()

	username := fmt.Sprintf("%s_%d", name, time.Now().UnixNano())
	password := "password123"

	c := client.New(baseURL)
	if _, err := c.Register(ctx, username, password, name); err != nil {
		t.Fatalf("Register %s: %v", username, err)
	}
	if _, err := c.Login(ctx, username, password); err != nil {
		t.Fatalf("Login %s: %v", username, err)
	}
	return c
}

func createTestPost(t *testing.T, c *client.Client) *model.Post {
	t.Helper()
	caption := "integration test post"
	post, err := c.CreatePost(context.Background(), &caption, []string{
		"https://cdn.example.com/test/post1.jpg",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return post
}

func TestLikeReturnsAuthoritativeCount(t *testing.T) {
	requireServer(t)
	ctx := context.Background()

	alice := newTestUser(t, "alice")
	bob := newTestUser(t, "bob")
	post := createTestPost(t, alice)

	res, err := bob.SetLike(ctx, post.ID, true)
	if err != nil {
		t.Fatalf("SetLike: %v", err)
	}
	if !res.Success || res.LikeCount != 1 {
		t.Errorf("expected success with count 1, got %+v", res)
	}

	// A second like from the same user conflicts rather than double-counting.
	_, err = bob.SetLike(ctx, post.ID, true)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 on repeat like, got %v", err)
	}

	res, err = bob.SetLike(ctx, post.ID, false)
	if err != nil {
		t.Fatalf("SetLike (unlike): %v", err)
	}
	if res.LikeCount != 0 {
		t.Errorf("expected count back to 0 after unlike, got %d", res.LikeCount)
	}
}

func TestLikeFlagVisibleInPostDetail(t *testing.T) {
	requireServer(t)
	ctx := context.Background()

	alice := newTestUser(t, "alice")
	bob := newTestUser(t, "bob")
	post := createTestPost(t, alice)

	if _, err := bob.SetLike(ctx, post.ID, true); err != nil {
		t.Fatalf("SetLike: %v", err)
	}

	fetched, err := bob.FetchPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("FetchPost: %v", err)
	}
	if !fetched.IsLiked || fetched.LikeCount != 1 {
		t.Errorf("expected liked post with count 1, got liked=%v count=%d", fetched.IsLiked, fetched.LikeCount)
	}

	// Alice never liked it; her view must not carry Bob's flag.
	fetched, err = alice.FetchPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("FetchPost: %v", err)
	}
	if fetched.IsLiked {
		t.Error("like flag leaked across viewers")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	requireServer(t)
	ctx := context.Background()

	alice := newTestUser(t, "alice")
	post := createTestPost(t, alice)

	res, err := alice.SetSave(ctx, post.ID, true)
	if err != nil {
		t.Fatalf("SetSave: %v", err)
	}
	if !res.Success {
		t.Error("expected save success")
	}

	fetched, err := alice.FetchPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("FetchPost: %v", err)
	}
	if !fetched.IsSaved {
		t.Error("expected IsSaved true after save")
	}

	if _, err := alice.SetSave(ctx, post.ID, false); err != nil {
		t.Fatalf("SetSave (unsave): %v", err)
	}
}

func TestCommentCreationAndTrim(t *testing.T) {
	requireServer(t)
	ctx := context.Background()

	alice := newTestUser(t, "alice")
	bob := newTestUser(t, "bob")
	post := createTestPost(t, alice)

	// Whitespace-only comments are rejected before anything is stored.
	_, err := bob.CreateComment(ctx, post.ID, "   \n ")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for whitespace comment, got %v", err)
	}

	res, err := bob.CreateComment(ctx, post.ID, "  nice shot!  ")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if res.Comment.ID == 0 {
		t.Error("expected server-assigned comment id")
	}
	if res.Comment.Content != "nice shot!" {
		t.Errorf("expected trimmed content, got %q", res.Comment.Content)
	}

	comments, err := bob.FetchComments(ctx, post.ID, nil, 10)
	if err != nil {
		t.Fatalf("FetchComments: %v", err)
	}
	if len(comments.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments.Comments))
	}

	fetched, err := bob.FetchPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("FetchPost: %v", err)
	}
	if fetched.CommentCount != 1 {
		t.Errorf("expected comment count 1, got %d", fetched.CommentCount)
	}
}

func TestStoryViewCountedOnce(t *testing.T) {
	requireServer(t)
	ctx := context.Background()

	alice := newTestUser(t, "alice")
	bob := newTestUser(t, "bob")

	story, err := alice.CreateStory(ctx, model.CreateStoryRequest{
		MediaURL:  "https://cdn.example.com/test/story1.jpg",
		MediaKind: model.StoryKindPhoto,
	})
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	if story.DurationMs != model.DefaultPhotoDurationMs {
		t.Errorf("expected default photo duration, got %d", story.DurationMs)
	}

	first, err := bob.MarkStoryViewed(ctx, story.ID)
	if err != nil {
		t.Fatalf("MarkStoryViewed: %v", err)
	}
	if first.ViewCount != 1 {
		t.Errorf("expected view count 1, got %d", first.ViewCount)
	}

	// Replaying the same story must not count again.
	second, err := bob.MarkStoryViewed(ctx, story.ID)
	if err != nil {
		t.Fatalf("MarkStoryViewed (repeat): %v", err)
	}
	if second.ViewCount != 1 {
		t.Errorf("expected view count to stay 1, got %d", second.ViewCount)
	}

	stories, err := bob.FetchUserStories(ctx, story.UserID)
	if err != nil {
		t.Fatalf("FetchUserStories: %v", err)
	}
	if len(stories.Stories) != 1 {
		t.Errorf("expected 1 active story, got %d", len(stories.Stories))
	}
}
