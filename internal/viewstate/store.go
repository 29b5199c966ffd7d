// Package viewstate keeps a normalized, client-side view of posts and their
// interaction state. Every screen that renders a post reads from the same
// store entry, so a like applied on a detail screen is immediately visible
// in the feed and on profile grids without any cross-view messaging.
package viewstate

import (
	"sync"

	"glimpse/internal/model"
)

// PostState is the normalized interaction state for one post.
type PostState struct {
	PostID       int64
	Liked        bool
	LikeCount    int
	Saved        bool
	CommentCount int
	Comments     []model.Comment
}

// clone returns a deep copy so snapshots survive later mutations.
func (p *PostState) clone() *PostState {
	cp := *p
	cp.Comments = make([]model.Comment, len(p.Comments))
	copy(cp.Comments, p.Comments)
	return &cp
}

// Listener is notified with the id of a post whose state changed.
type Listener func(postID int64)

// Store holds post interaction state keyed by post id. It is safe for
// concurrent use.
type Store struct {
	mu        sync.Mutex
	posts     map[int64]*PostState
	listeners map[int]Listener
	nextSub   int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		posts:     make(map[int64]*PostState),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a change listener and returns an unsubscribe func.
// Listeners are invoked synchronously after each mutation, outside the
// store lock.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Put inserts or replaces a post's state, typically from a fetched post.
func (s *Store) Put(state *PostState) {
	s.mu.Lock()
	s.posts[state.PostID] = state.clone()
	s.mu.Unlock()
	s.notify(state.PostID)
}

// PutPost seeds the store from an API post payload.
func (s *Store) PutPost(p *model.Post) {
	s.Put(&PostState{
		PostID:       p.ID,
		Liked:        p.IsLiked,
		LikeCount:    p.LikeCount,
		Saved:        p.IsSaved,
		CommentCount: p.CommentCount,
	})
}

// Get returns a copy of a post's state, or nil if unknown.
func (s *Store) Get(postID int64) *PostState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.posts[postID]
	if !ok {
		return nil
	}
	return state.clone()
}

// Remove drops a post from the store (post deleted on the server).
func (s *Store) Remove(postID int64) {
	s.mu.Lock()
	delete(s.posts, postID)
	s.mu.Unlock()
	s.notify(postID)
}

// update applies fn to a post's state under the lock and notifies
// listeners. It is a no-op for unknown posts.
func (s *Store) update(postID int64, fn func(*PostState)) bool {
	s.mu.Lock()
	state, ok := s.posts[postID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	fn(state)
	s.mu.Unlock()
	s.notify(postID)
	return true
}

func (s *Store) notify(postID int64) {
	s.mu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(postID)
	}
}
