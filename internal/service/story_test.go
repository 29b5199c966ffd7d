package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"glimpse/internal/model"
	"glimpse/internal/queue"
)

func newStoryService(storyRepo *mockStoryRepository, views *mockStoryViewCache, pub *mockPublisher) *StoryService {
	if storyRepo == nil {
		storyRepo = &mockStoryRepository{}
	}
	if views == nil {
		views = &mockStoryViewCache{}
	}
	if pub == nil {
		pub = &mockPublisher{}
	}
	return NewStoryService(storyRepo, &mockFollowRepository{}, &mockUserRepository{}, views, pub)
}

func TestStoryService_Create_PhotoDefaultDuration(t *testing.T) {
	svc := newStoryService(nil, nil, nil)

	story, err := svc.Create(context.Background(), 1, model.CreateStoryRequest{
		MediaURL:  "https://cdn.example.com/s1.jpg",
		MediaKind: model.StoryKindPhoto,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if story.DurationMs != model.DefaultPhotoDurationMs {
		t.Errorf("expected default photo duration %d, got %d", model.DefaultPhotoDurationMs, story.DurationMs)
	}
}

func TestStoryService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     model.CreateStoryRequest
		wantErr error
	}{
		{
			name:    "missing media url",
			req:     model.CreateStoryRequest{MediaKind: model.StoryKindPhoto},
			wantErr: model.ErrStoryMediaMissing,
		},
		{
			name:    "video without duration",
			req:     model.CreateStoryRequest{MediaURL: "https://cdn.example.com/s1.mp4", MediaKind: model.StoryKindVideo},
			wantErr: model.ErrStoryDurationRequired,
		},
		{
			name:    "unknown media kind",
			req:     model.CreateStoryRequest{MediaURL: "https://cdn.example.com/s1.gif", MediaKind: "gif"},
			wantErr: model.ErrInvalidStoryKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newStoryService(nil, nil, nil)
			if _, err := svc.Create(context.Background(), 1, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStoryService_MarkViewed_FirstViewIncrements(t *testing.T) {
	storyRepo := &mockStoryRepository{
		getByIDFn: func(ctx context.Context, storyID int64) (*model.Story, error) {
			return &model.Story{
				ID:        storyID,
				UserID:    1,
				ViewCount: 5,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		incrementViewCountFn: func(ctx context.Context, storyID int64) (int, error) {
			return 6, nil
		},
	}
	svc := newStoryService(storyRepo, nil, nil)

	count, err := svc.MarkViewed(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("MarkViewed failed: %v", err)
	}
	if count != 6 {
		t.Errorf("expected count 6 after first view, got %d", count)
	}
}

func TestStoryService_MarkViewed_RepeatViewDoesNotIncrement(t *testing.T) {
	storyRepo := &mockStoryRepository{
		getByIDFn: func(ctx context.Context, storyID int64) (*model.Story, error) {
			return &model.Story{
				ID:        storyID,
				UserID:    1,
				ViewCount: 6,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		incrementViewCountFn: func(ctx context.Context, storyID int64) (int, error) {
			t.Error("counter must not be incremented on a repeat view")
			return 0, nil
		},
	}
	views := &mockStoryViewCache{
		markViewedFn: func(ctx context.Context, storyID, viewerID int64) (bool, error) {
			return false, nil // already in the viewer set
		},
	}
	svc := newStoryService(storyRepo, views, nil)

	count, err := svc.MarkViewed(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("MarkViewed failed: %v", err)
	}
	if count != 6 {
		t.Errorf("expected stored count 6, got %d", count)
	}
}

func TestStoryService_MarkViewed_OwnStory(t *testing.T) {
	storyRepo := &mockStoryRepository{
		getByIDFn: func(ctx context.Context, storyID int64) (*model.Story, error) {
			return &model.Story{
				ID:        storyID,
				UserID:    1,
				ViewCount: 3,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	views := &mockStoryViewCache{
		markViewedFn: func(ctx context.Context, storyID, viewerID int64) (bool, error) {
			t.Error("authors viewing their own story must not touch the viewer set")
			return false, nil
		},
	}
	svc := newStoryService(storyRepo, views, nil)

	count, err := svc.MarkViewed(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("MarkViewed failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected unchanged count 3, got %d", count)
	}
}

func TestStoryService_MarkViewed_Expired(t *testing.T) {
	storyRepo := &mockStoryRepository{
		getByIDFn: func(ctx context.Context, storyID int64) (*model.Story, error) {
			return &model.Story{
				ID:        storyID,
				UserID:    1,
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
	}
	svc := newStoryService(storyRepo, nil, nil)

	if _, err := svc.MarkViewed(context.Background(), 10, 2); !errors.Is(err, model.ErrStoryExpired) {
		t.Errorf("error = %v, want %v", err, model.ErrStoryExpired)
	}
}

func TestStoryService_GetTray_ViewerFirst(t *testing.T) {
	viewer := int64(1)
	followee := int64(2)
	emptyFollowee := int64(3)

	storyRepo := &mockStoryRepository{
		getActiveByUserFn: func(ctx context.Context, userID int64) ([]model.Story, error) {
			if userID == emptyFollowee {
				return nil, nil
			}
			return []model.Story{{ID: userID * 10, UserID: userID}}, nil
		},
	}
	followRepo := &mockFollowRepository{
		getFolloweeIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
			return []int64{followee, emptyFollowee}, nil
		},
	}
	userRepo := &mockUserRepository{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "user"}, nil
		},
	}
	svc := NewStoryService(storyRepo, followRepo, userRepo, &mockStoryViewCache{}, &mockPublisher{})

	tray, err := svc.GetTray(context.Background(), viewer)
	if err != nil {
		t.Fatalf("GetTray failed: %v", err)
	}

	if len(tray) != 2 {
		t.Fatalf("expected 2 tray entries (empty followee skipped), got %d", len(tray))
	}
	if tray[0].User.ID != viewer {
		t.Errorf("viewer's own stories must lead the tray, got user %d", tray[0].User.ID)
	}
	if tray[1].User.ID != followee {
		t.Errorf("expected followee %d second, got %d", followee, tray[1].User.ID)
	}
}

func TestStoryService_Delete_PublishesCleanup(t *testing.T) {
	pub := &mockPublisher{}
	svc := newStoryService(nil, nil, pub)

	if err := svc.Delete(context.Background(), 10, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.published))
	}
	if pub.published[0].Type != queue.EventStoryDeleted {
		t.Errorf("expected %s event, got %s", queue.EventStoryDeleted, pub.published[0].Type)
	}
	if pub.published[0].StoryID != 10 {
		t.Errorf("expected story id 10, got %d", pub.published[0].StoryID)
	}
}
