// Package marker stores each user's custom map-marker appearance.
// Orthogonal to entitlement; everyone may customize their marker.
package marker

import (
	"context"
	"database/sql"
	"time"

	"mushimap-backend/store"
)

const (
	DefaultColor    = "#10b981" // emerald green
	DefaultIconType = "default"
)

// Settings is one user's marker customization.
type Settings struct {
	UserID    string `json:"userId"`
	Color     string `json:"color"`
	IconType  string `json:"iconType"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Defaults returns the settings used when a user saved none.
func Defaults(userID string) Settings {
	return Settings{
		UserID:    userID,
		Color:     DefaultColor,
		IconType:  DefaultIconType,
		UpdatedAt: time.Now().UnixMilli(),
	}
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the user's settings, or nil when none are saved.
func (r *Repository) Get(ctx context.Context, userID string) (*Settings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, color, icon_type, updated_at FROM user_marker_settings WHERE user_id=? LIMIT 1`, userID)
	var s Settings
	if err := row.Scan(&s.UserID, &s.Color, &s.IconType, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, store.MapError(err)
	}
	if s.Color == "" {
		s.Color = DefaultColor
	}
	if s.IconType == "" {
		s.IconType = DefaultIconType
	}
	return &s, nil
}

// Save upserts the user's settings, stamping the update time.
func (r *Repository) Save(ctx context.Context, s Settings) error {
	s.UpdatedAt = time.Now().UnixMilli()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_marker_settings (user_id, color, icon_type, updated_at) VALUES (?,?,?,?)
		ON DUPLICATE KEY UPDATE color=VALUES(color), icon_type=VALUES(icon_type), updated_at=VALUES(updated_at)`,
		s.UserID, s.Color, s.IconType, s.UpdatedAt)
	return store.MapError(err)
}
