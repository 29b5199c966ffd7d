package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"glimpse/internal/cache"
	"glimpse/internal/model"
	"glimpse/internal/queue"
	"glimpse/internal/repository"
)

type StoryService struct {
	storyRepo  repository.StoryRepository
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	storyViews cache.StoryViewCache
	publisher  queue.Publisher
}

func NewStoryService(
	storyRepo repository.StoryRepository,
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	storyViews cache.StoryViewCache,
	publisher queue.Publisher,
) *StoryService {
	return &StoryService{
		storyRepo:  storyRepo,
		followRepo: followRepo,
		userRepo:   userRepo,
		storyViews: storyViews,
		publisher:  publisher,
	}
}

// Create publishes a new story. Photo stories get the default duration
// unless one is provided; video stories must carry their clip length.
func (s *StoryService) Create(ctx context.Context, userID int64, req model.CreateStoryRequest) (*model.Story, error) {
	if req.MediaURL == "" {
		return nil, model.ErrStoryMediaMissing
	}

	switch req.MediaKind {
	case model.StoryKindPhoto:
		if req.DurationMs <= 0 {
			req.DurationMs = model.DefaultPhotoDurationMs
		}
	case model.StoryKindVideo:
		if req.DurationMs <= 0 {
			return nil, model.ErrStoryDurationRequired
		}
	default:
		return nil, model.ErrInvalidStoryKind
	}

	story, err := s.storyRepo.Create(ctx, userID, req.MediaURL, req.MediaKind, req.DurationMs, req.Caption)
	if err != nil {
		return nil, fmt.Errorf("create story: %w", err)
	}

	if author, err := s.userRepo.GetByID(ctx, userID); err == nil {
		story.Author = summaryOf(author)
	}

	log.Printf("[StoryService] User %d posted story %d (%s)", userID, story.ID, story.MediaKind)
	return story, nil
}

// GetUserStories returns a user's active stories, oldest first, so a
// viewer plays them in posting order.
func (s *StoryService) GetUserStories(ctx context.Context, userID int64) (*model.StoryListResponse, error) {
	stories, err := s.storyRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user stories: %w", err)
	}

	return &model.StoryListResponse{
		Success: true,
		Stories: stories,
	}, nil
}

// GetTray returns active stories from everyone the viewer follows,
// grouped by author in the order the authors were fetched.
func (s *StoryService) GetTray(ctx context.Context, viewerID int64) ([]model.StoryTrayEntry, error) {
	followeeIDs, err := s.followRepo.GetFolloweeIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("get followee ids: %w", err)
	}

	// The viewer's own stories lead the tray
	followeeIDs = append([]int64{viewerID}, followeeIDs...)

	var tray []model.StoryTrayEntry
	for _, userID := range followeeIDs {
		stories, err := s.storyRepo.GetActiveByUser(ctx, userID)
		if err != nil {
			log.Printf("[StoryService] Failed to get stories for user=%d: %v", userID, err)
			continue
		}
		if len(stories) == 0 {
			continue
		}

		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			log.Printf("[StoryService] Failed to get tray author %d: %v", userID, err)
			continue
		}

		tray = append(tray, model.StoryTrayEntry{
			User:    *summaryOf(user),
			Stories: stories,
		})
	}

	return tray, nil
}

// MarkViewed records a view of a story. Only the first view by a given
// user increments the stored counter; repeats return the current total.
// Expired stories return ErrStoryExpired.
func (s *StoryService) MarkViewed(ctx context.Context, storyID, viewerID int64) (int, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return 0, err
	}
	if time.Now().After(story.ExpiresAt) {
		return 0, model.ErrStoryExpired
	}

	// Authors viewing their own story don't count
	if story.UserID == viewerID {
		return story.ViewCount, nil
	}

	first, err := s.storyViews.MarkViewed(ctx, storyID, viewerID)
	if err != nil {
		return 0, fmt.Errorf("mark story viewed: %w", err)
	}

	if !first {
		return story.ViewCount, nil
	}

	count, err := s.storyRepo.IncrementViewCount(ctx, storyID)
	if err != nil {
		return 0, fmt.Errorf("increment view count: %w", err)
	}

	return count, nil
}

// Delete removes a story and queues cleanup of its viewer set.
func (s *StoryService) Delete(ctx context.Context, storyID, userID int64) error {
	if err := s.storyRepo.Delete(ctx, storyID, userID); err != nil {
		return err
	}

	if _, err := s.publisher.Publish(ctx, queue.StreamFanout, queue.NewStoryDeletedEvent(storyID, userID)); err != nil {
		log.Printf("[StoryService] Failed to publish StoryDeleted event: story=%d err=%v", storyID, err)
	}

	log.Printf("[StoryService] User %d deleted story %d", userID, storyID)
	return nil
}
