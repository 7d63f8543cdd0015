package entry

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"mushimap-backend/store"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const entryColumns = `id, name, memo, image_url, latitude, longitude, timestamp, user_id, ai_description, ai_links`

func (r *Repository) Create(ctx context.Context, e *Entry) error {
	var aiDescription sql.NullString
	var aiLinks any
	if e.AIInsights != nil {
		aiDescription = sql.NullString{String: e.AIInsights.Description, Valid: true}
		if raw, err := json.Marshal(e.AIInsights.Links); err == nil {
			aiLinks = string(raw)
		}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO insect_entries (`+entryColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Name, e.Memo, e.ImageURL, e.Latitude, e.Longitude, e.Timestamp, e.UserID, aiDescription, aiLinks)
	return store.MapError(err)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var aiDescription sql.NullString
		var aiLinks sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &e.Memo, &e.ImageURL, &e.Latitude, &e.Longitude, &e.Timestamp, &e.UserID, &aiDescription, &aiLinks); err != nil {
			return nil, err
		}
		if aiDescription.Valid {
			insights := &AIInsights{Description: aiDescription.String, Links: []Link{}}
			if aiLinks.Valid {
				_ = json.Unmarshal([]byte(aiLinks.String), &insights.Links)
			}
			e.AIInsights = insights
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// sortNewestFirst orders entries by observation time in process, the
// same place the month filter runs.
func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
}

// ByUser returns all of a user's entries, newest first.
func (r *Repository) ByUser(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM insect_entries WHERE user_id=?`, userID)
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, store.MapError(err)
	}
	sortNewestFirst(entries)
	return entries, nil
}

// All returns every user's entries, newest first, with owner ids.
func (r *Repository) All(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM insect_entries`)
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, store.MapError(err)
	}
	sortNewestFirst(entries)
	return entries, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM insect_entries WHERE id=? LIMIT 1`, id)
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, store.MapError(err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM insect_entries WHERE id=?`, id)
	return store.MapError(err)
}

// TimestampsByUser feeds the entitlement engine's monthly counter. It
// retrieves everything the user owns; the month filter runs in process.
func (r *Repository) TimestampsByUser(ctx context.Context, userID string) ([]int64, error) {
	entries, err := r.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.Timestamp
	}
	return out, nil
}
