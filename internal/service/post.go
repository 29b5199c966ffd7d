package service

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"glimpse/internal/model"
	"glimpse/internal/queue"
	"glimpse/internal/repository"
)

type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	publisher queue.Publisher
	db        *sqlx.DB
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	publisher queue.Publisher,
	db *sqlx.DB,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		userRepo:  userRepo,
		publisher: publisher,
		db:        db,
	}
}

// Create creates a new post and publishes an event for fan-out.
func (s *PostService) Create(ctx context.Context, userID int64, req model.CreatePostRequest) (*model.Post, error) {
	if len(req.MediaURLs) == 0 {
		return nil, model.ErrNoMediaProvided
	}
	if len(req.MediaURLs) > model.MaxPostMediaCount {
		return nil, model.ErrTooManyMedia
	}
	if req.Caption != nil && len(*req.Caption) > model.MaxPostCaptionLength {
		return nil, model.ErrCaptionTooLong
	}

	post, err := s.postRepo.Create(ctx, userID, req.Caption, req.MediaURLs)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	// Fan-out is async; a publish failure must not fail the create
	if _, err := s.publisher.Publish(ctx, queue.StreamFanout, queue.NewPostCreatedEvent(post.ID, userID)); err != nil {
		log.Printf("[PostService] Failed to publish PostCreated event: post=%d err=%v", post.ID, err)
	}

	if author, err := s.userRepo.GetByID(ctx, userID); err == nil {
		post.Author = summaryOf(author)
	}

	return post, nil
}

// GetByID retrieves a single post with author info and the viewer's
// like/save flags.
func (s *PostService) GetByID(ctx context.Context, postID int64, viewerID *int64) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if author, err := s.userRepo.GetByID(ctx, post.UserID); err == nil {
		post.Author = summaryOf(author)
	}

	if viewerID != nil {
		if likes, err := s.postRepo.CheckLikes(ctx, *viewerID, []int64{postID}); err != nil {
			log.Printf("[PostService] Failed to check like status: %v", err)
		} else {
			post.IsLiked = likes[postID]
		}
		if saves, err := s.postRepo.CheckSaves(ctx, *viewerID, []int64{postID}); err != nil {
			log.Printf("[PostService] Failed to check save status: %v", err)
		} else {
			post.IsSaved = saves[postID]
		}
	}

	return post, nil
}

// Delete soft-deletes a post and publishes an event to remove it from feeds.
func (s *PostService) Delete(ctx context.Context, postID, userID int64) error {
	if err := s.postRepo.Delete(ctx, postID, userID); err != nil {
		return err
	}

	if _, err := s.publisher.Publish(ctx, queue.StreamFanout, queue.NewPostDeletedEvent(postID, userID)); err != nil {
		log.Printf("[PostService] Failed to publish PostDeleted event: post=%d err=%v", postID, err)
	}

	return nil
}

// GetUserPosts retrieves post thumbnails for a user's profile grid.
func (s *PostService) GetUserPosts(ctx context.Context, userID int64, cursor *string, limit int) (*model.PostListResponse, error) {
	if limit <= 0 {
		limit = 12 // Default for 3-column grid
	}
	if limit > 36 {
		limit = 36
	}

	thumbnails, nextCursor, err := s.postRepo.GetUserThumbnails(ctx, userID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get user thumbnails: %w", err)
	}

	return thumbnailPage(thumbnails, nextCursor, limit), nil
}

// GetSavedPosts retrieves the viewer's saved post thumbnails.
func (s *PostService) GetSavedPosts(ctx context.Context, userID int64, cursor *string, limit int) (*model.PostListResponse, error) {
	if limit <= 0 {
		limit = 12
	}
	if limit > 36 {
		limit = 36
	}

	thumbnails, nextCursor, err := s.postRepo.GetSavedThumbnails(ctx, userID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get saved thumbnails: %w", err)
	}

	return thumbnailPage(thumbnails, nextCursor, limit), nil
}

func thumbnailPage(thumbnails []model.PostThumbnail, nextCursor *string, limit int) *model.PostListResponse {
	hasMore := len(thumbnails) == limit && nextCursor != nil

	var finalCursor *string
	if hasMore {
		finalCursor = nextCursor
	}

	return &model.PostListResponse{
		Posts:      thumbnails,
		NextCursor: finalCursor,
		HasMore:    hasMore,
	}
}

// Like adds a like to a post and returns the resulting like count.
// Insert and counter update run in one transaction.
func (s *PostService) Like(ctx context.Context, postID, userID int64) (int, error) {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return 0, model.ErrPostNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.postRepo.Like(ctx, tx, postID, userID); err != nil {
		return 0, err
	}

	if err := s.postRepo.IncrementLikeCount(ctx, tx, postID, 1); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	count, err := s.postRepo.GetLikeCount(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("get like count: %w", err)
	}

	log.Printf("[PostService] User %d liked post %d (count=%d)", userID, postID, count)
	return count, nil
}

// Unlike removes a like from a post and returns the resulting like count.
func (s *PostService) Unlike(ctx context.Context, postID, userID int64) (int, error) {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return 0, model.ErrPostNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.postRepo.Unlike(ctx, tx, postID, userID); err != nil {
		return 0, err
	}

	if err := s.postRepo.IncrementLikeCount(ctx, tx, postID, -1); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	count, err := s.postRepo.GetLikeCount(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("get like count: %w", err)
	}

	log.Printf("[PostService] User %d unliked post %d (count=%d)", userID, postID, count)
	return count, nil
}

// Save bookmarks a post for the user.
func (s *PostService) Save(ctx context.Context, postID, userID int64) error {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return model.ErrPostNotFound
	}

	if err := s.postRepo.Save(ctx, postID, userID); err != nil {
		return err
	}

	log.Printf("[PostService] User %d saved post %d", userID, postID)
	return nil
}

// Unsave removes a post from the user's bookmarks.
func (s *PostService) Unsave(ctx context.Context, postID, userID int64) error {
	if err := s.postRepo.Unsave(ctx, postID, userID); err != nil {
		return err
	}

	log.Printf("[PostService] User %d unsaved post %d", userID, postID)
	return nil
}

// GetPostLikers returns a paginated list of users who liked a post.
func (s *PostService) GetPostLikers(ctx context.Context, postID int64, cursor *string, limit int) (*model.LikersListResponse, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	users, nextCursor, err := s.postRepo.GetPostLikers(ctx, postID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get post likers: %w", err)
	}

	hasMore := nextCursor != nil

	var finalCursor *string
	if hasMore {
		finalCursor = nextCursor
	}

	return &model.LikersListResponse{
		Users:      users,
		NextCursor: finalCursor,
		HasMore:    hasMore,
	}, nil
}

func summaryOf(u *model.User) *model.UserSummary {
	return &model.UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}
