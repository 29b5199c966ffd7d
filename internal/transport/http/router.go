package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"glimpse/internal/handler"
	"glimpse/internal/httputil"
	authmw "glimpse/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	FollowHandler  *handler.FollowHandler
	FeedHandler    *handler.FeedHandler
	PostHandler    *handler.PostHandler
	CommentHandler *handler.CommentHandler
	StoryHandler   *handler.StoryHandler
	MediaHandler   *handler.MediaHandler
	JWTSecret      string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Public reads. Auth is optional so logged-in viewers get their
	// per-viewer flags (is_liked, is_saved, is_following).
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(cfg.JWTSecret))
		r.Get("/users/search", cfg.UserHandler.Search)
		r.Get("/users/{id}", cfg.UserHandler.GetProfile)
		r.Get("/users/{id}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/users/{id}/following", cfg.FollowHandler.GetFollowing)
		r.Get("/users/{id}/posts", cfg.PostHandler.GetUserPosts)
		r.Get("/posts/{id}", cfg.PostHandler.GetByID)
		r.Get("/posts/{id}/comments", cfg.CommentHandler.GetByPostID)
		r.Get("/posts/{id}/likes", cfg.PostHandler.GetPostLikers)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		// Current user endpoints
		r.Get("/me", cfg.AuthHandler.Me)
		r.Get("/me/saved", cfg.PostHandler.GetSavedPosts)

		// Auth actions that require authentication
		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		// Follow/unfollow actions
		r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)

		// Feed endpoint
		r.Get("/feed", cfg.FeedHandler.GetFeed)

		// Post endpoints
		r.Post("/posts", cfg.PostHandler.Create)
		r.Delete("/posts/{id}", cfg.PostHandler.Delete)

		// Interactions
		r.Post("/posts/{id}/like", cfg.PostHandler.Like)
		r.Delete("/posts/{id}/like", cfg.PostHandler.Unlike)
		r.Post("/posts/{id}/save", cfg.PostHandler.Save)
		r.Delete("/posts/{id}/save", cfg.PostHandler.Unsave)
		r.Post("/posts/{id}/comments", cfg.CommentHandler.Create)

		// Story endpoints
		r.Post("/stories", cfg.StoryHandler.Create)
		r.Get("/stories/tray", cfg.StoryHandler.GetTray)
		r.Get("/users/{id}/stories", cfg.StoryHandler.GetUserStories)
		r.Post("/stories/{id}/view", cfg.StoryHandler.MarkViewed)
		r.Delete("/stories/{id}", cfg.StoryHandler.Delete)

		// Media endpoints (direct-to-R2 uploads)
		r.Post("/media/avatar", cfg.MediaHandler.UploadAvatar)
		r.Post("/media/posts/presign", cfg.MediaHandler.PresignPostUpload)
		r.Post("/media/posts/presign/batch", cfg.MediaHandler.PresignPostUploadBatch)
		r.Post("/media/stories/presign", cfg.MediaHandler.PresignStoryUpload)
	})

	return r
}
