package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"glimpse/internal/model"
)

type storyRepository struct {
	db *sqlx.DB
}

func NewStoryRepository(db *sqlx.DB) StoryRepository {
	return &storyRepository{db: db}
}

// Create inserts a new story with its expiry precomputed.
func (r *storyRepository) Create(ctx context.Context, userID int64, mediaURL, mediaKind string, durationMs int, caption *string) (*model.Story, error) {
	query := `
		INSERT INTO stories (user_id, media_url, media_kind, duration_ms, caption, expires_at)
		VALUES ($1, $2, $3, $4, $5, NOW() + $6::interval)
		RETURNING id, user_id, media_url, media_kind, duration_ms, caption, view_count, created_at, expires_at
	`
	var story model.Story
	err := r.db.GetContext(ctx, &story, query, userID, mediaURL, mediaKind, durationMs, caption, model.StoryTTL.String())
	if err != nil {
		return nil, fmt.Errorf("insert story: %w", err)
	}
	return &story, nil
}

// GetByID retrieves a story regardless of expiry; the service decides
// whether an expired story is still servable (owners can see their own).
func (r *storyRepository) GetByID(ctx context.Context, storyID int64) (*model.Story, error) {
	query := `
		SELECT id, user_id, media_url, media_kind, duration_ms, caption, view_count, created_at, expires_at
		FROM stories
		WHERE id = $1 AND deleted_at IS NULL
	`
	var story model.Story
	err := r.db.GetContext(ctx, &story, query, storyID)
	if err == sql.ErrNoRows {
		return nil, model.ErrStoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	return &story, nil
}

// GetActiveByUser returns unexpired stories for a user, oldest first.
// Viewers play a sequence in posting order, so ordering matters here.
func (r *storyRepository) GetActiveByUser(ctx context.Context, userID int64) ([]model.Story, error) {
	query := `
		SELECT s.id, s.user_id, s.media_url, s.media_kind, s.duration_ms, s.caption, s.view_count,
		       s.created_at, s.expires_at,
		       u.id as "author.id", u.username as "author.username",
		       u.display_name as "author.display_name", u.avatar_url as "author.avatar_url"
		FROM stories s
		JOIN users u ON u.id = s.user_id
		WHERE s.user_id = $1 AND s.deleted_at IS NULL AND s.expires_at > NOW()
		ORDER BY s.created_at ASC, s.id ASC
	`

	type storyRow struct {
		model.Story
		AuthorID       int64   `db:"author.id"`
		AuthorUsername string  `db:"author.username"`
		AuthorDisplay  *string `db:"author.display_name"`
		AuthorAvatar   *string `db:"author.avatar_url"`
	}

	var rows []storyRow
	err := r.db.SelectContext(ctx, &rows, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get active stories: %w", err)
	}

	stories := make([]model.Story, len(rows))
	for i, row := range rows {
		stories[i] = row.Story
		stories[i].Author = &model.UserSummary{
			ID:          row.AuthorID,
			Username:    row.AuthorUsername,
			DisplayName: row.AuthorDisplay,
			AvatarURL:   row.AuthorAvatar,
		}
	}

	return stories, nil
}

// Delete soft-deletes a story. Only the owner can delete.
func (r *storyRepository) Delete(ctx context.Context, storyID, userID int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stories SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, storyID, userID)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM stories WHERE id = $1 AND deleted_at IS NULL)`, storyID)
		if exists {
			return model.ErrNotStoryOwner
		}
		return model.ErrStoryNotFound
	}

	return nil
}

// IncrementViewCount bumps the view counter and returns the new total.
func (r *storyRepository) IncrementViewCount(ctx context.Context, storyID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		UPDATE stories SET view_count = view_count + 1
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING view_count
	`, storyID)
	if err == sql.ErrNoRows {
		return 0, model.ErrStoryNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment view count: %w", err)
	}
	return count, nil
}

// DeleteExpired hard-deletes stories past their expiry. Returns rows removed.
func (r *storyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired stories: %w", err)
	}
	return result.RowsAffected()
}
