package service

// Function-field mocks for the repository and queue interfaces. Each test
// overrides only the calls it cares about; unset functions return the
// domain's not-found sentinel or a zero value.

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"glimpse/internal/cache"
	"glimpse/internal/model"
	"glimpse/internal/queue"
)

type mockUserRepository struct {
	createFn           func(ctx context.Context, user *model.User) error
	getByIDFn          func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn    func(ctx context.Context, username string) (*model.User, error)
	existsByUsernameFn func(ctx context.Context, username string) (bool, error)
	searchFn           func(ctx context.Context, query string, limit int) ([]model.UserSummary, error)

	createCalls int
	searchCalls int
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	m.searchCalls++
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return []model.UserSummary{}, nil
}

func (m *mockUserRepository) IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	return nil
}

func (m *mockUserRepository) IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	return nil
}

type mockFollowRepository struct {
	existsFn         func(ctx context.Context, followerID, followeeID int64) (bool, error)
	getFolloweeIDsFn func(ctx context.Context, userID int64) ([]int64, error)
}

func (m *mockFollowRepository) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	return true, nil
}

func (m *mockFollowRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	return nil
}

func (m *mockFollowRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, followerID, followeeID)
	}
	return false, nil
}

func (m *mockFollowRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return nil, nil, nil
}

func (m *mockFollowRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return nil, nil, nil
}

func (m *mockFollowRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	return nil, nil
}

func (m *mockFollowRepository) GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.getFolloweeIDsFn != nil {
		return m.getFolloweeIDsFn(ctx, userID)
	}
	return nil, nil
}

type mockPostRepository struct {
	existsFn func(ctx context.Context, postID int64) (bool, error)
}

func (m *mockPostRepository) Create(ctx context.Context, userID int64, caption *string, mediaURLs []string) (*model.Post, error) {
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepository) GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error) {
	return nil, nil
}

func (m *mockPostRepository) Delete(ctx context.Context, postID, userID int64) error {
	return nil
}

func (m *mockPostRepository) GetUserThumbnails(ctx context.Context, userID int64, cursor *string, limit int) ([]model.PostThumbnail, *string, error) {
	return nil, nil, nil
}

func (m *mockPostRepository) GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.PostScore, error) {
	return nil, nil
}

func (m *mockPostRepository) GetFeedPostIDs(ctx context.Context, followeeIDs []int64, limit int) ([]cache.PostScore, error) {
	return nil, nil
}

func (m *mockPostRepository) GetAuthorID(ctx context.Context, postID int64) (int64, error) {
	return 0, model.ErrPostNotFound
}

func (m *mockPostRepository) Exists(ctx context.Context, postID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, postID)
	}
	return false, nil
}

func (m *mockPostRepository) Like(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error {
	return nil
}

func (m *mockPostRepository) Unlike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error {
	return nil
}

func (m *mockPostRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	return map[int64]bool{}, nil
}

func (m *mockPostRepository) GetLikeCount(ctx context.Context, postID int64) (int, error) {
	return 0, nil
}

func (m *mockPostRepository) GetPostLikers(ctx context.Context, postID int64, cursor *string, limit int) ([]model.UserSummary, *string, error) {
	return nil, nil, nil
}

func (m *mockPostRepository) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
	return nil
}

func (m *mockPostRepository) IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
	return nil
}

func (m *mockPostRepository) Save(ctx context.Context, postID, userID int64) error {
	return nil
}

func (m *mockPostRepository) Unsave(ctx context.Context, postID, userID int64) error {
	return nil
}

func (m *mockPostRepository) CheckSaves(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	return map[int64]bool{}, nil
}

func (m *mockPostRepository) GetSavedThumbnails(ctx context.Context, userID int64, cursor *string, limit int) ([]model.PostThumbnail, *string, error) {
	return nil, nil, nil
}

type mockCommentRepository struct {
	createFn      func(ctx context.Context, tx *sqlx.Tx, postID, userID int64, content string) (*model.Comment, error)
	getByPostIDFn func(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Comment, *string, error)

	createCalls int
}

func (m *mockCommentRepository) Create(ctx context.Context, tx *sqlx.Tx, postID, userID int64, content string) (*model.Comment, error) {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, tx, postID, userID, content)
	}
	return nil, model.ErrCommentNotFound
}

func (m *mockCommentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	return nil, model.ErrCommentNotFound
}

func (m *mockCommentRepository) GetByPostID(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Comment, *string, error) {
	if m.getByPostIDFn != nil {
		return m.getByPostIDFn(ctx, postID, cursor, limit)
	}
	return []model.Comment{}, nil, nil
}

type mockStoryRepository struct {
	createFn             func(ctx context.Context, userID int64, mediaURL, mediaKind string, durationMs int, caption *string) (*model.Story, error)
	getByIDFn            func(ctx context.Context, storyID int64) (*model.Story, error)
	getActiveByUserFn    func(ctx context.Context, userID int64) ([]model.Story, error)
	deleteFn             func(ctx context.Context, storyID, userID int64) error
	incrementViewCountFn func(ctx context.Context, storyID int64) (int, error)
}

func (m *mockStoryRepository) Create(ctx context.Context, userID int64, mediaURL, mediaKind string, durationMs int, caption *string) (*model.Story, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, mediaURL, mediaKind, durationMs, caption)
	}
	return &model.Story{
		ID:         1,
		UserID:     userID,
		MediaURL:   mediaURL,
		MediaKind:  mediaKind,
		DurationMs: durationMs,
		Caption:    caption,
		ExpiresAt:  time.Now().Add(model.StoryTTL),
	}, nil
}

func (m *mockStoryRepository) GetByID(ctx context.Context, storyID int64) (*model.Story, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, storyID)
	}
	return nil, model.ErrStoryNotFound
}

func (m *mockStoryRepository) GetActiveByUser(ctx context.Context, userID int64) ([]model.Story, error) {
	if m.getActiveByUserFn != nil {
		return m.getActiveByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockStoryRepository) Delete(ctx context.Context, storyID, userID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, storyID, userID)
	}
	return nil
}

func (m *mockStoryRepository) IncrementViewCount(ctx context.Context, storyID int64) (int, error) {
	if m.incrementViewCountFn != nil {
		return m.incrementViewCountFn(ctx, storyID)
	}
	return 0, nil
}

func (m *mockStoryRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type mockStoryViewCache struct {
	markViewedFn func(ctx context.Context, storyID, viewerID int64) (bool, error)
}

func (m *mockStoryViewCache) MarkViewed(ctx context.Context, storyID, viewerID int64) (bool, error) {
	if m.markViewedFn != nil {
		return m.markViewedFn(ctx, storyID, viewerID)
	}
	return true, nil
}

func (m *mockStoryViewCache) ViewerCount(ctx context.Context, storyID int64) (int64, error) {
	return 0, nil
}

func (m *mockStoryViewCache) Clear(ctx context.Context, storyID int64) error {
	return nil
}

type mockPublisher struct {
	published []queue.Event
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.Event) (string, error) {
	m.published = append(m.published, event)
	return "1-0", nil
}
