package model

import (
	"errors"
	"time"
)

// Story media kinds. Photos play for a fixed duration; videos play for
// their natural duration reported by the client at upload time.
const (
	StoryKindPhoto = "photo"
	StoryKindVideo = "video"
)

// Story constants
const (
	// StoryTTL is how long a story stays visible after posting.
	StoryTTL = 24 * time.Hour

	// DefaultPhotoDurationMs is the playback duration for photo stories.
	DefaultPhotoDurationMs = 5000

	StoryMediaFolder = "stories"
	MaxStoryCaption  = 500
)

// Story represents a single ephemeral media item in a user's story sequence.
type Story struct {
	ID         int64      `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	MediaURL   string     `db:"media_url" json:"media_url"`
	MediaKind  string     `db:"media_kind" json:"media_kind"` // "photo" or "video"
	DurationMs int        `db:"duration_ms" json:"duration_ms"`
	Caption    *string    `db:"caption" json:"caption,omitempty"`
	ViewCount  int        `db:"view_count" json:"view_count"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"-"`

	Author *UserSummary `json:"author,omitempty"` // Joined field
}

// CreateStoryRequest is the request body for posting a story.
// DurationMs is only meaningful for videos (the media's natural duration);
// photos always get DefaultPhotoDurationMs.
type CreateStoryRequest struct {
	MediaURL   string  `json:"media_url"`
	MediaKind  string  `json:"media_kind"`
	DurationMs int     `json:"duration_ms,omitempty"`
	Caption    *string `json:"caption,omitempty"`
}

// StoryListResponse is the ordered story sequence for one user,
// oldest first so viewers play them in posting order.
type StoryListResponse struct {
	Success bool    `json:"success"`
	Stories []Story `json:"stories"`
}

// StoryViewResponse is returned when a view is recorded.
type StoryViewResponse struct {
	Success   bool `json:"success"`
	ViewCount int  `json:"view_count"`
}

// StoryTrayEntry groups one author's active stories for the home tray.
type StoryTrayEntry struct {
	User    UserSummary `json:"user"`
	Stories []Story     `json:"stories"`
}

// StoryTrayResponse is the home-screen tray of followed users' stories.
type StoryTrayResponse struct {
	Success bool             `json:"success"`
	Tray    []StoryTrayEntry `json:"tray"`
}

// Story errors
var (
	ErrStoryNotFound         = errors.New("story not found")
	ErrStoryExpired          = errors.New("story has expired")
	ErrNotStoryOwner         = errors.New("not the owner of this story")
	ErrInvalidStoryKind      = errors.New("media kind must be photo or video")
	ErrStoryMediaMissing     = errors.New("story media url is required")
	ErrStoryDurationRequired = errors.New("video stories require a duration")
)
