package viewstate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"glimpse/internal/model"
)

// InteractionAPI is the server surface the engine reconciles against.
// *client.Client satisfies it.
type InteractionAPI interface {
	SetLike(ctx context.Context, postID int64, liked bool) (*model.LikeResponse, error)
	SetSave(ctx context.Context, postID int64, saved bool) (*model.SaveResponse, error)
	CreateComment(ctx context.Context, postID int64, text string) (*model.CreateCommentResponse, error)
	FetchComments(ctx context.Context, postID int64, cursor *string, limit int) (*model.CommentListResponse, error)
}

// mutationKind distinguishes the per-post request sequences. Like and save
// sequences are independent: a slow like response must not invalidate a
// newer save response.
type mutationKind int

const (
	kindLike mutationKind = iota
	kindSave
)

type seqKey struct {
	postID int64
	kind   mutationKind
}

// Engine applies interaction mutations optimistically to a Store and
// reconciles them with server responses. Failed requests roll back only
// the fields they mutated; responses that arrive after a newer mutation
// of the same kind on the same post are discarded so the older response
// cannot clobber the newer state. Mutations against a post the store no
// longer holds are silent no-ops and never reach the network.
type Engine struct {
	store *Store
	api   InteractionAPI

	mu  sync.Mutex
	seq map[seqKey]uint64

	tempCommentID atomic.Int64
}

// NewEngine creates an Engine over the given store and API.
func NewEngine(store *Store, api InteractionAPI) *Engine {
	return &Engine{
		store: store,
		api:   api,
		seq:   make(map[seqKey]uint64),
	}
}

// Store returns the underlying store for read access and subscriptions.
func (e *Engine) Store() *Store {
	return e.store
}

// nextSeq advances the request sequence for one post/kind and returns the
// new value. A response is applied only if its sequence is still current.
func (e *Engine) nextSeq(key seqKey) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq[key]++
	return e.seq[key]
}

func (e *Engine) seqCurrent(key seqKey, seq uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq[key] == seq
}

// ToggleLike flips the like state of a post. The store is updated before
// the request is sent; on success the server's like count is adopted as
// authoritative, on failure Liked and LikeCount revert to their
// pre-toggle values.
func (e *Engine) ToggleLike(ctx context.Context, postID int64) error {
	snapshot := e.store.Get(postID)
	if snapshot == nil {
		// The target is no longer rendered; nothing to mutate, nothing
		// to send.
		return nil
	}

	liked := !snapshot.Liked
	e.store.update(postID, func(s *PostState) {
		s.Liked = liked
		if liked {
			s.LikeCount++
		} else if s.LikeCount > 0 {
			s.LikeCount--
		}
	})

	key := seqKey{postID: postID, kind: kindLike}
	seq := e.nextSeq(key)

	res, err := e.api.SetLike(ctx, postID, liked)
	if err != nil {
		if e.seqCurrent(key, seq) {
			log.Printf("[ViewState] like rollback for post %d: %v", postID, err)
			// Roll back only the fields this mutation touched. Other
			// fields may hold newer confirmed state (a save, a comment)
			// that a failed like has no claim on.
			e.store.update(postID, func(s *PostState) {
				s.Liked = snapshot.Liked
				s.LikeCount = snapshot.LikeCount
			})
		}
		return fmt.Errorf("toggle like: %w", err)
	}

	if !e.seqCurrent(key, seq) {
		return nil // a newer toggle already owns the state
	}

	e.store.update(postID, func(s *PostState) {
		s.Liked = liked
		s.LikeCount = res.LikeCount
	})
	return nil
}

// ToggleSave flips the saved state of a post with the same optimistic
// apply / rollback contract as ToggleLike.
func (e *Engine) ToggleSave(ctx context.Context, postID int64) error {
	snapshot := e.store.Get(postID)
	if snapshot == nil {
		return nil
	}

	saved := !snapshot.Saved
	e.store.update(postID, func(s *PostState) {
		s.Saved = saved
	})

	key := seqKey{postID: postID, kind: kindSave}
	seq := e.nextSeq(key)

	if _, err := e.api.SetSave(ctx, postID, saved); err != nil {
		if e.seqCurrent(key, seq) {
			log.Printf("[ViewState] save rollback for post %d: %v", postID, err)
			// Saved is the only field this mutation owns.
			e.store.update(postID, func(s *PostState) {
				s.Saved = snapshot.Saved
			})
		}
		return fmt.Errorf("toggle save: %w", err)
	}
	return nil
}

// AddComment appends a comment optimistically and swaps the placeholder
// for the stored comment once the server confirms it. Whitespace-only
// input is rejected before any state changes.
func (e *Engine) AddComment(ctx context.Context, postID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ErrContentRequired
	}
	if len(text) > model.MaxCommentLength {
		return model.ErrContentTooLong
	}

	if e.store.Get(postID) == nil {
		return nil
	}

	// Placeholder ids are negative so they can never collide with
	// server-assigned ids.
	tempID := -e.tempCommentID.Add(1)
	placeholder := model.Comment{
		ID:        tempID,
		PostID:    postID,
		Content:   text,
		CreatedAt: time.Now(),
	}

	e.store.update(postID, func(s *PostState) {
		s.Comments = append(s.Comments, placeholder)
		s.CommentCount++
	})

	res, err := e.api.CreateComment(ctx, postID, text)
	if err != nil {
		e.store.update(postID, func(s *PostState) {
			s.Comments = removeComment(s.Comments, tempID)
			if s.CommentCount > 0 {
				s.CommentCount--
			}
		})
		return fmt.Errorf("add comment: %w", err)
	}

	e.store.update(postID, func(s *PostState) {
		for i := range s.Comments {
			if s.Comments[i].ID == tempID {
				s.Comments[i] = res.Comment
				return
			}
		}
		// Placeholder gone (e.g. comments refetched meanwhile); make sure
		// the confirmed comment is present exactly once.
		for i := range s.Comments {
			if s.Comments[i].ID == res.Comment.ID {
				return
			}
		}
		s.Comments = append(s.Comments, res.Comment)
	})
	return nil
}

// LoadComments fetches a page of comments and merges it into the store,
// keeping any unconfirmed placeholders at the tail.
func (e *Engine) LoadComments(ctx context.Context, postID int64, cursor *string, limit int) (*string, bool, error) {
	res, err := e.api.FetchComments(ctx, postID, cursor, limit)
	if err != nil {
		return nil, false, fmt.Errorf("load comments: %w", err)
	}

	e.store.update(postID, func(s *PostState) {
		var pending []model.Comment
		for _, c := range s.Comments {
			if c.ID < 0 {
				pending = append(pending, c)
			}
		}
		if cursor == nil {
			s.Comments = append(res.Comments, pending...)
		} else {
			confirmed := removePending(s.Comments)
			s.Comments = append(append(confirmed, res.Comments...), pending...)
		}
	})
	return res.NextCursor, res.HasMore, nil
}

func removeComment(comments []model.Comment, id int64) []model.Comment {
	out := comments[:0]
	for _, c := range comments {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func removePending(comments []model.Comment) []model.Comment {
	out := make([]model.Comment, 0, len(comments))
	for _, c := range comments {
		if c.ID >= 0 {
			out = append(out, c)
		}
	}
	return out
}
