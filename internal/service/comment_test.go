package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"glimpse/internal/model"
)

func TestCommentService_Create_WhitespaceRejected(t *testing.T) {
	postRepo := &mockPostRepository{
		existsFn: func(ctx context.Context, postID int64) (bool, error) {
			t.Error("post lookup must not happen for whitespace-only content")
			return true, nil
		},
	}
	commentRepo := &mockCommentRepository{}
	svc := NewCommentService(commentRepo, postRepo, &mockUserRepository{}, nil)

	tests := []string{"", "   ", "\n\t  \n"}
	for _, content := range tests {
		_, err := svc.Create(context.Background(), 42, 1, model.CreateCommentRequest{Content: content})
		if !errors.Is(err, model.ErrContentRequired) {
			t.Errorf("content %q: error = %v, want %v", content, err, model.ErrContentRequired)
		}
	}

	if commentRepo.createCalls != 0 {
		t.Error("no comment row may be written for rejected content")
	}
}

func TestCommentService_Create_TooLong(t *testing.T) {
	svc := NewCommentService(&mockCommentRepository{}, &mockPostRepository{}, &mockUserRepository{}, nil)

	content := strings.Repeat("a", model.MaxCommentLength+1)
	_, err := svc.Create(context.Background(), 42, 1, model.CreateCommentRequest{Content: content})
	if !errors.Is(err, model.ErrContentTooLong) {
		t.Errorf("error = %v, want %v", err, model.ErrContentTooLong)
	}
}

func TestCommentService_Create_PostNotFound(t *testing.T) {
	postRepo := &mockPostRepository{
		existsFn: func(ctx context.Context, postID int64) (bool, error) {
			return false, nil
		},
	}
	svc := NewCommentService(&mockCommentRepository{}, postRepo, &mockUserRepository{}, nil)

	_, err := svc.Create(context.Background(), 42, 1, model.CreateCommentRequest{Content: "hello"})
	if !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("error = %v, want %v", err, model.ErrPostNotFound)
	}
}

func TestCommentService_GetByPostID_LimitClamped(t *testing.T) {
	postRepo := &mockPostRepository{
		existsFn: func(ctx context.Context, postID int64) (bool, error) {
			return true, nil
		},
	}
	commentRepo := &mockCommentRepository{
		getByPostIDFn: func(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Comment, *string, error) {
			if limit != 50 {
				t.Errorf("expected limit clamped to 50, got %d", limit)
			}
			return []model.Comment{}, nil, nil
		},
	}
	svc := NewCommentService(commentRepo, postRepo, &mockUserRepository{}, nil)

	res, err := svc.GetByPostID(context.Background(), 42, nil, 500)
	if err != nil {
		t.Fatalf("GetByPostID failed: %v", err)
	}
	if res.HasMore {
		t.Error("expected HasMore false when repo returns no cursor")
	}
}

func TestCommentService_GetByPostID_PostNotFound(t *testing.T) {
	svc := NewCommentService(&mockCommentRepository{}, &mockPostRepository{}, &mockUserRepository{}, nil)

	_, err := svc.GetByPostID(context.Background(), 42, nil, 10)
	if !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("error = %v, want %v", err, model.ErrPostNotFound)
	}
}
