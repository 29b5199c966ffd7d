package viewstate

import (
	"context"
	"errors"
	"testing"

	"glimpse/internal/model"
)

type mockAPI struct {
	setLikeFunc       func(ctx context.Context, postID int64, liked bool) (*model.LikeResponse, error)
	setSaveFunc       func(ctx context.Context, postID int64, saved bool) (*model.SaveResponse, error)
	createCommentFunc func(ctx context.Context, postID int64, text string) (*model.CreateCommentResponse, error)
	fetchCommentsFunc func(ctx context.Context, postID int64, cursor *string, limit int) (*model.CommentListResponse, error)
}

func (m *mockAPI) SetLike(ctx context.Context, postID int64, liked bool) (*model.LikeResponse, error) {
	return m.setLikeFunc(ctx, postID, liked)
}

func (m *mockAPI) SetSave(ctx context.Context, postID int64, saved bool) (*model.SaveResponse, error) {
	return m.setSaveFunc(ctx, postID, saved)
}

func (m *mockAPI) CreateComment(ctx context.Context, postID int64, text string) (*model.CreateCommentResponse, error) {
	return m.createCommentFunc(ctx, postID, text)
}

func (m *mockAPI) FetchComments(ctx context.Context, postID int64, cursor *string, limit int) (*model.CommentListResponse, error) {
	return m.fetchCommentsFunc(ctx, postID, cursor, limit)
}

func seededEngine(api *mockAPI) *Engine {
	store := NewStore()
	store.Put(&PostState{PostID: 42, LikeCount: 10, CommentCount: 3})
	return NewEngine(store, api)
}

func TestToggleLikeAdoptsServerCount(t *testing.T) {
	api := &mockAPI{
		setLikeFunc: func(ctx context.Context, postID int64, liked bool) (*model.LikeResponse, error) {
			if postID != 42 || !liked {
				t.Errorf("unexpected request: post %d liked %v", postID, liked)
			}
			// Server count differs from the optimistic one; it must win.
			return &model.LikeResponse{Success: true, LikeCount: 12}, nil
		},
	}
	e := seededEngine(api)

	if err := e.ToggleLike(context.Background(), 42); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}

	state := e.Store().Get(42)
	if !state.Liked {
		t.Error("expected liked")
	}
	if state.LikeCount != 12 {
		t.Errorf("expected server count 12, got %d", state.LikeCount)
	}
}

func TestToggleLikeRollsBackOnError(t *testing.T) {
	var sawOptimistic bool
	e := seededEngine(nil)
	api := &mockAPI{
		setLikeFunc: func(ctx context.Context, postID int64, liked bool) (*model.LikeResponse, error) {
			// Mid-flight the optimistic state must already be visible.
			state := e.Store().Get(42)
			sawOptimistic = state.Liked && state.LikeCount == 11
			return nil, errors.New("network down")
		},
	}
	e.api = api

	if err := e.ToggleLike(context.Background(), 42); err == nil {
		t.Fatal("expected error")
	}

	if !sawOptimistic {
		t.Error("expected optimistic state (liked, count 11) during request")
	}
	state := e.Store().Get(42)
	if state.Liked {
		t.Error("expected liked rolled back to false")
	}
	if state.LikeCount != 10 {
		t.Errorf("expected count rolled back to 10, got %d", state.LikeCount)
	}
}

func TestMutationsOnUnknownPostAreNoOps(t *testing.T) {
	api := &mockAPI{
		setLikeFunc: func(ctx context.Context, postID int64, liked bool) (*model.LikeResponse, error) {
			t.Error("SetLike must not be called for an unknown post")
			return nil, nil
		},
		setSaveFunc: func(ctx context.Context, postID int64, saved bool) (*model.SaveResponse, error) {
			t.Error("SetSave must not be called for an unknown post")
			return nil, nil
		},
		createCommentFunc: func(ctx context.Context, postID int64, text string) (*model.CreateCommentResponse, error) {
			t.Error("CreateComment must not be called for an unknown post")
			return nil, nil
		},
	}
	e := NewEngine(NewStore(), api)

	// The target left the screen before the tap landed; nothing to do.
	if err := e.ToggleLike(context.Background(), 99); err != nil {
		t.Errorf("ToggleLike on unknown post: %v", err)
	}
	if err := e.ToggleSave(context.Background(), 99); err != nil {
		t.Errorf("ToggleSave on unknown post: %v", err)
	}
	if err := e.AddComment(context.Background(), 99, "hello"); err != nil {
		t.Errorf("AddComment on unknown post: %v", err)
	}
}

func TestToggleLikeStaleResponseDiscarded(t *testing.T) {
	e := seededEngine(nil)

	var calls int
	api := &mockAPI{
		setLikeFunc: func(ctx context.Context, postID int64, liked bool) (*model.LikeResponse, error) {
			calls++
			if calls == 1 {
				// Simulate a slow first request: the second toggle starts
				// and completes while this one is still in flight.
				return nil, errors.New("timed out")
			}
			return &model.LikeResponse{Success: true, LikeCount: 10}, nil
		},
	}
	e.api = api

	// First toggle fails but a second one has already superseded it, so
	// the failure must not roll back the second toggle's state.
	key := seqKey{postID: 42, kind: kindLike}
	e.nextSeq(key) // stands in for the second toggle claiming the sequence

	if err := e.ToggleLike(context.Background(), 42); err == nil {
		t.Fatal("expected error from first toggle")
	}

	state := e.Store().Get(42)
	if !state.Liked || state.LikeCount != 11 {
		t.Errorf("stale failure must not roll back: got liked=%v count=%d", state.Liked, state.LikeCount)
	}
}

func TestToggleSaveRollsBackOnError(t *testing.T) {
	api := &mockAPI{
		setSaveFunc: func(ctx context.Context, postID int64, saved bool) (*model.SaveResponse, error) {
			return nil, errors.New("server error")
		},
	}
	e := seededEngine(api)

	if err := e.ToggleSave(context.Background(), 42); err == nil {
		t.Fatal("expected error")
	}
	if e.Store().Get(42).Saved {
		t.Error("expected saved rolled back to false")
	}
}

func TestFailedSaveKeepsConfirmedLike(t *testing.T) {
	e := seededEngine(nil)
	saveStarted := make(chan struct{})
	likeDone := make(chan struct{})

	api := &mockAPI{
		setSaveFunc: func(ctx context.Context, postID int64, saved bool) (*model.SaveResponse, error) {
			close(saveStarted)
			// Fail only after the like has been confirmed.
			<-likeDone
			return nil, errors.New("server error")
		},
		setLikeFunc: func(ctx context.Context, postID int64, liked bool) (*model.LikeResponse, error) {
			return &model.LikeResponse{Success: true, LikeCount: 11}, nil
		},
	}
	e.api = api

	saveDone := make(chan struct{})
	go func() {
		defer close(saveDone)
		if err := e.ToggleSave(context.Background(), 42); err == nil {
			t.Error("expected save error")
		}
	}()
	<-saveStarted

	if err := e.ToggleLike(context.Background(), 42); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	close(likeDone)
	<-saveDone

	// The save rollback owns only the Saved field; the like confirmed
	// while the save was in flight must survive it.
	state := e.Store().Get(42)
	if !state.Liked || state.LikeCount != 11 {
		t.Errorf("confirmed like reverted by failed save: liked=%v count=%d", state.Liked, state.LikeCount)
	}
	if state.Saved {
		t.Error("expected saved rolled back to false")
	}
}

func TestFailedLikeKeepsCommentsAddedMeanwhile(t *testing.T) {
	e := seededEngine(nil)
	likeStarted := make(chan struct{})
	commentDone := make(chan struct{})

	api := &mockAPI{
		setLikeFunc: func(ctx context.Context, postID int64, liked bool) (*model.LikeResponse, error) {
			close(likeStarted)
			<-commentDone
			return nil, errors.New("timed out")
		},
		createCommentFunc: func(ctx context.Context, postID int64, text string) (*model.CreateCommentResponse, error) {
			return &model.CreateCommentResponse{
				Success: true,
				Comment: model.Comment{ID: 9, PostID: 42, Content: text},
			}, nil
		},
	}
	e.api = api

	likeDone := make(chan struct{})
	go func() {
		defer close(likeDone)
		if err := e.ToggleLike(context.Background(), 42); err == nil {
			t.Error("expected like error")
		}
	}()
	<-likeStarted

	if err := e.AddComment(context.Background(), 42, "nice shot"); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	close(commentDone)
	<-likeDone

	state := e.Store().Get(42)
	if state.Liked || state.LikeCount != 10 {
		t.Errorf("expected like rolled back: liked=%v count=%d", state.Liked, state.LikeCount)
	}
	if len(state.Comments) != 1 || state.Comments[0].ID != 9 {
		t.Errorf("confirmed comment lost to like rollback: %+v", state.Comments)
	}
	if state.CommentCount != 4 {
		t.Errorf("expected comment count 4, got %d", state.CommentCount)
	}
}

func TestToggleSaveSuccess(t *testing.T) {
	api := &mockAPI{
		setSaveFunc: func(ctx context.Context, postID int64, saved bool) (*model.SaveResponse, error) {
			return &model.SaveResponse{Success: true}, nil
		},
	}
	e := seededEngine(api)

	if err := e.ToggleSave(context.Background(), 42); err != nil {
		t.Fatalf("ToggleSave failed: %v", err)
	}
	if !e.Store().Get(42).Saved {
		t.Error("expected saved")
	}
}

func TestAddCommentWhitespaceIsNoOp(t *testing.T) {
	api := &mockAPI{
		createCommentFunc: func(ctx context.Context, postID int64, text string) (*model.CreateCommentResponse, error) {
			t.Error("API must not be called for whitespace input")
			return nil, nil
		},
	}
	e := seededEngine(api)

	err := e.AddComment(context.Background(), 42, "   \n\t ")
	if !errors.Is(err, model.ErrContentRequired) {
		t.Errorf("expected ErrContentRequired, got %v", err)
	}

	state := e.Store().Get(42)
	if state.CommentCount != 3 || len(state.Comments) != 0 {
		t.Errorf("state must be untouched: count=%d comments=%d", state.CommentCount, len(state.Comments))
	}
}

func TestAddCommentReplacesPlaceholder(t *testing.T) {
	e := seededEngine(nil)
	api := &mockAPI{
		createCommentFunc: func(ctx context.Context, postID int64, text string) (*model.CreateCommentResponse, error) {
			// The placeholder must be in the list while the request runs.
			state := e.Store().Get(42)
			if len(state.Comments) != 1 || state.Comments[0].ID >= 0 {
				t.Errorf("expected one placeholder comment, got %+v", state.Comments)
			}
			return &model.CreateCommentResponse{
				Success: true,
				Comment: model.Comment{ID: 9, PostID: 42, UserID: 5, Content: text},
			}, nil
		},
	}
	e.api = api

	if err := e.AddComment(context.Background(), 42, "  great light  "); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	state := e.Store().Get(42)
	if len(state.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(state.Comments))
	}
	if state.Comments[0].ID != 9 {
		t.Errorf("expected server id 9, got %d", state.Comments[0].ID)
	}
	if state.Comments[0].Content != "great light" {
		t.Errorf("expected trimmed content, got %q", state.Comments[0].Content)
	}
	if state.CommentCount != 4 {
		t.Errorf("expected comment count 4, got %d", state.CommentCount)
	}
}

func TestAddCommentRollsBackOnError(t *testing.T) {
	api := &mockAPI{
		createCommentFunc: func(ctx context.Context, postID int64, text string) (*model.CreateCommentResponse, error) {
			return nil, errors.New("server error")
		},
	}
	e := seededEngine(api)

	if err := e.AddComment(context.Background(), 42, "hello"); err == nil {
		t.Fatal("expected error")
	}

	state := e.Store().Get(42)
	if len(state.Comments) != 0 {
		t.Errorf("expected placeholder removed, got %d comments", len(state.Comments))
	}
	if state.CommentCount != 3 {
		t.Errorf("expected comment count restored to 3, got %d", state.CommentCount)
	}
}

func TestStorePropagatesToAllReaders(t *testing.T) {
	api := &mockAPI{
		setLikeFunc: func(ctx context.Context, postID int64, liked bool) (*model.LikeResponse, error) {
			return &model.LikeResponse{Success: true, LikeCount: 11}, nil
		},
	}
	e := seededEngine(api)

	var notified []int64
	unsub := e.Store().Subscribe(func(postID int64) {
		notified = append(notified, postID)
	})
	defer unsub()

	if err := e.ToggleLike(context.Background(), 42); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}

	if len(notified) == 0 {
		t.Fatal("expected listener notifications")
	}
	for _, id := range notified {
		if id != 42 {
			t.Errorf("unexpected notification for post %d", id)
		}
	}

	// Two independent reads of the store see the same reconciled state,
	// so every screen rendering this post agrees.
	feedCopy := e.Store().Get(42)
	detailCopy := e.Store().Get(42)
	if feedCopy.LikeCount != detailCopy.LikeCount || feedCopy.LikeCount != 11 {
		t.Errorf("expected both copies at 11, got %d and %d", feedCopy.LikeCount, detailCopy.LikeCount)
	}
}

func TestLoadCommentsKeepsPendingPlaceholders(t *testing.T) {
	e := seededEngine(nil)
	blocked := make(chan struct{})
	done := make(chan struct{})

	api := &mockAPI{
		createCommentFunc: func(ctx context.Context, postID int64, text string) (*model.CreateCommentResponse, error) {
			close(blocked)
			<-done
			return &model.CreateCommentResponse{Success: true, Comment: model.Comment{ID: 20, Content: text}}, nil
		},
		fetchCommentsFunc: func(ctx context.Context, postID int64, cursor *string, limit int) (*model.CommentListResponse, error) {
			return &model.CommentListResponse{
				Comments: []model.Comment{{ID: 1, Content: "first"}, {ID: 2, Content: "second"}},
			}, nil
		},
	}
	e.api = api

	addDone := make(chan struct{})
	go func() {
		defer close(addDone)
		e.AddComment(context.Background(), 42, "pending one")
	}()
	<-blocked

	if _, _, err := e.LoadComments(context.Background(), 42, nil, 20); err != nil {
		t.Fatalf("LoadComments failed: %v", err)
	}

	state := e.Store().Get(42)
	if len(state.Comments) != 3 {
		t.Fatalf("expected fetched page plus placeholder, got %d comments", len(state.Comments))
	}
	if state.Comments[2].ID >= 0 {
		t.Errorf("expected placeholder kept at tail, got id %d", state.Comments[2].ID)
	}
	close(done)
	<-addDone
}
