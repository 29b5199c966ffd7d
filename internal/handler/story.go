package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"glimpse/internal/httputil"
	"glimpse/internal/model"
	"glimpse/internal/service"
	"glimpse/internal/transport/http/middleware"
)

type StoryHandler struct {
	storyService *service.StoryService
}

func NewStoryHandler(storyService *service.StoryService) *StoryHandler {
	return &StoryHandler{
		storyService: storyService,
	}
}

// Create handles POST /stories
func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	story, err := h.storyService.Create(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrStoryMediaMissing):
			httputil.WriteBadRequest(w, "media_url is required")
		case errors.Is(err, model.ErrInvalidStoryKind):
			httputil.WriteBadRequest(w, "media_kind must be photo or video")
		case errors.Is(err, model.ErrStoryDurationRequired):
			httputil.WriteBadRequest(w, "duration_ms is required for video stories")
		default:
			log.Printf("[ERROR] Create story handler: user=%d err=%v", userID, err)
			httputil.WriteInternalError(w, "Failed to create story")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, story)
}

// GetUserStories handles GET /users/:id/stories
// Returns the user's active stories, oldest first.
func (h *StoryHandler) GetUserStories(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	stories, err := h.storyService.GetUserStories(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] Get user stories handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get stories")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, stories)
}

// GetTray handles GET /stories/tray
// Returns active stories from everyone the viewer follows.
func (h *StoryHandler) GetTray(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	tray, err := h.storyService.GetTray(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] Get story tray handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get story tray")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.StoryTrayResponse{
		Success: true,
		Tray:    tray,
	})
}

// MarkViewed handles POST /stories/:id/view
// Records a view and returns the (possibly unchanged) view count.
func (h *StoryHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	storyID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid story ID")
		return
	}

	count, err := h.storyService.MarkViewed(r.Context(), storyID, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrStoryNotFound):
			httputil.WriteNotFound(w, "Story not found")
		case errors.Is(err, model.ErrStoryExpired):
			httputil.WriteGone(w, "Story has expired")
		default:
			log.Printf("[ERROR] Mark story viewed handler: user=%d story=%d err=%v", userID, storyID, err)
			httputil.WriteInternalError(w, "Failed to record view")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.StoryViewResponse{
		Success:   true,
		ViewCount: count,
	})
}

// Delete handles DELETE /stories/:id
func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	storyID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid story ID")
		return
	}

	err = h.storyService.Delete(r.Context(), storyID, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrStoryNotFound):
			httputil.WriteNotFound(w, "Story not found")
		case errors.Is(err, model.ErrNotStoryOwner):
			httputil.WriteForbidden(w, "You can only delete your own stories")
		default:
			log.Printf("[ERROR] Delete story handler: user=%d story=%d err=%v", userID, storyID, err)
			httputil.WriteInternalError(w, "Failed to delete story")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Story deleted successfully",
	})
}
