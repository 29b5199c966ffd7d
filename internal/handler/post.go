package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"glimpse/internal/httputil"
	"glimpse/internal/model"
	"glimpse/internal/service"
	"glimpse/internal/transport/http/middleware"
)

type PostHandler struct {
	postService *service.PostService
}

func NewPostHandler(postService *service.PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// Create handles POST /posts
// Creates a new post for the authenticated user.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	post, err := h.postService.Create(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoMediaProvided):
			httputil.WriteBadRequest(w, "At least one media item is required")
		case errors.Is(err, model.ErrTooManyMedia):
			httputil.WriteBadRequest(w, "Too many media items (max 10)")
		case errors.Is(err, model.ErrCaptionTooLong):
			httputil.WriteBadRequest(w, "Caption too long (max 2200 characters)")
		default:
			log.Printf("[ERROR] Create post handler: user=%d err=%v", userID, err)
			httputil.WriteInternalError(w, "Failed to create post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// GetByID handles GET /posts/:id
// Returns a single post with full details.
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	// Viewer ID when authenticated, for like/save flags
	var viewerID *int64
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	post, err := h.postService.GetByID(r.Context(), postID, viewerID)
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		log.Printf("[ERROR] Get post handler: post=%d err=%v", postID, err)
		httputil.WriteInternalError(w, "Failed to get post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/:id
// Soft-deletes a post (only owner can delete).
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	err = h.postService.Delete(r.Context(), postID, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You can only delete your own posts")
		default:
			log.Printf("[ERROR] Delete post handler: user=%d post=%d err=%v", userID, postID, err)
			httputil.WriteInternalError(w, "Failed to delete post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Post deleted successfully",
	})
}

// Like handles POST /posts/:id/like
// Responds with the authoritative like count so clients can reconcile
// their optimistic value.
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.setLike(w, r, true)
}

// Unlike handles DELETE /posts/:id/like
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.setLike(w, r, false)
}

func (h *PostHandler) setLike(w http.ResponseWriter, r *http.Request, liked bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	var count int
	if liked {
		count, err = h.postService.Like(r.Context(), postID, userID)
	} else {
		count, err = h.postService.Unlike(r.Context(), postID, userID)
	}

	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrAlreadyLiked), errors.Is(err, model.ErrNotLiked):
			httputil.WriteConflict(w, "Like state unchanged")
		default:
			log.Printf("[ERROR] Like handler: user=%d post=%d liked=%v err=%v", userID, postID, liked, err)
			httputil.WriteInternalError(w, "Failed to update like")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.LikeResponse{
		Success:   true,
		LikeCount: count,
	})
}

// Save handles POST /posts/:id/save
func (h *PostHandler) Save(w http.ResponseWriter, r *http.Request) {
	h.setSave(w, r, true)
}

// Unsave handles DELETE /posts/:id/save
func (h *PostHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	h.setSave(w, r, false)
}

func (h *PostHandler) setSave(w http.ResponseWriter, r *http.Request, saved bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	if saved {
		err = h.postService.Save(r.Context(), postID, userID)
	} else {
		err = h.postService.Unsave(r.Context(), postID, userID)
	}

	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrAlreadySaved), errors.Is(err, model.ErrNotSaved):
			httputil.WriteConflict(w, "Save state unchanged")
		default:
			log.Printf("[ERROR] Save handler: user=%d post=%d saved=%v err=%v", userID, postID, saved, err)
			httputil.WriteInternalError(w, "Failed to update save")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.SaveResponse{Success: true})
}

// GetUserPosts handles GET /users/:id/posts
// Returns paginated post thumbnails for a user's profile grid.
func (h *PostHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	cursor, limit, err := parsePageParams(r, 12)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid limit parameter")
		return
	}

	posts, err := h.postService.GetUserPosts(r.Context(), userID, cursor, limit)
	if err != nil {
		log.Printf("[ERROR] Get user posts handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get user posts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, posts)
}

// GetSavedPosts handles GET /me/saved
// Returns the authenticated user's saved post thumbnails.
func (h *PostHandler) GetSavedPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	cursor, limit, err := parsePageParams(r, 12)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid limit parameter")
		return
	}

	posts, err := h.postService.GetSavedPosts(r.Context(), userID, cursor, limit)
	if err != nil {
		log.Printf("[ERROR] Get saved posts handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get saved posts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, posts)
}

// GetPostLikers handles GET /posts/:id/likes
func (h *PostHandler) GetPostLikers(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	cursor, limit, err := parsePageParams(r, 10)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid limit parameter")
		return
	}

	likers, err := h.postService.GetPostLikers(r.Context(), postID, cursor, limit)
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		log.Printf("[ERROR] Get post likers handler: post=%d err=%v", postID, err)
		httputil.WriteInternalError(w, "Failed to get likers")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, likers)
}

// parseIDParam reads a numeric chi URL parameter.
func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// parsePageParams reads the optional cursor and limit query parameters.
func parsePageParams(r *http.Request, defaultLimit int) (*string, int, error) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			return nil, 0, errors.New("invalid limit")
		}
		limit = parsed
	}

	return cursor, limit, nil
}
