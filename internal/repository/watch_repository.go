package repository

import (
	"database/sql"

	"streamvault/internal/apperr"
	"streamvault/internal/models"
)

type WatchRepository struct {
	db *sql.DB
}

func NewWatchRepository(db *sql.DB) *WatchRepository {
	return &WatchRepository{db: db}
}

const watchColumns = `id, user_id, media_item_id, current_seconds, total_seconds, progress,
	completed, watch_count, last_watched, created_at`

func scanWatch(row interface{ Scan(...interface{}) error }) (*models.WatchRecord, error) {
	w := &models.WatchRecord{}
	err := row.Scan(&w.ID, &w.UserID, &w.MediaItemID, &w.CurrentSeconds, &w.TotalSeconds,
		&w.Progress, &w.Completed, &w.WatchCount, &w.LastWatched, &w.CreatedAt)
	return w, err
}

// Upsert records a playback position update. The teacher's Postgres
// equivalent used `ON CONFLICT (...) DO UPDATE SET ... = EXCLUDED.col`; the
// SQLite dialect spells the alias `excluded` instead and has no `NOW()`, so
// CURRENT_TIMESTAMP stands in.
func (r *WatchRepository) Upsert(userID, mediaItemID int64, current, total, progress float64, completed bool) (*models.WatchRecord, error) {
	_, err := r.db.Exec(`
		INSERT INTO watch_records (user_id, media_item_id, current_seconds, total_seconds, progress, completed, watch_count, last_watched)
		VALUES (?, ?, ?, ?, ?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, media_item_id) DO UPDATE SET
			current_seconds = excluded.current_seconds,
			total_seconds   = excluded.total_seconds,
			progress        = excluded.progress,
			completed       = excluded.completed,
			watch_count     = watch_records.watch_count + (excluded.completed AND NOT watch_records.completed),
			last_watched    = CURRENT_TIMESTAMP
	`, userID, mediaItemID, current, total, progress, completed)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "upsert watch record", err)
	}
	return r.Get(userID, mediaItemID)
}

func (r *WatchRepository) Get(userID, mediaItemID int64) (*models.WatchRecord, error) {
	row := r.db.QueryRow(`SELECT `+watchColumns+` FROM watch_records WHERE user_id = ? AND media_item_id = ?`, userID, mediaItemID)
	w, err := scanWatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get watch record", err)
	}
	return w, nil
}

func (r *WatchRepository) Delete(userID, mediaItemID int64) error {
	_, err := r.db.Exec(`DELETE FROM watch_records WHERE user_id = ? AND media_item_id = ?`, userID, mediaItemID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "delete watch record", err)
	}
	return nil
}

// ContinueWatching returns in-progress (not completed, progress > 0) items
// for a user, most recently watched first.
func (r *WatchRepository) ContinueWatching(userID int64, limit int) ([]*models.WatchRecord, error) {
	rows, err := r.db.Query(`SELECT `+watchColumns+` FROM watch_records
		WHERE user_id = ? AND completed = 0 AND progress > 0
		ORDER BY last_watched DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list continue watching", err)
	}
	defer rows.Close()

	var records []*models.WatchRecord
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan watch record", err)
		}
		records = append(records, w)
	}
	return records, rows.Err()
}

// RecentlyWatched returns a user's most recently touched records regardless
// of completion, newest first.
func (r *WatchRepository) RecentlyWatched(userID int64, limit int) ([]*models.WatchRecord, error) {
	rows, err := r.db.Query(`SELECT `+watchColumns+` FROM watch_records
		WHERE user_id = ? ORDER BY last_watched DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list recently watched", err)
	}
	defer rows.Close()

	var records []*models.WatchRecord
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan watch record", err)
		}
		records = append(records, w)
	}
	return records, rows.Err()
}

// History returns a user's full watch history, paginated, newest first.
func (r *WatchRepository) History(userID int64, limit, offset int) ([]*models.WatchRecord, error) {
	rows, err := r.db.Query(`SELECT `+watchColumns+` FROM watch_records
		WHERE user_id = ? ORDER BY last_watched DESC LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list watch history", err)
	}
	defer rows.Close()

	var records []*models.WatchRecord
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan watch record", err)
		}
		records = append(records, w)
	}
	return records, rows.Err()
}

// WatchStats aggregates totals for the per-user stats endpoint.
type WatchStats struct {
	ItemsStarted   int     `json:"itemsStarted"`
	ItemsCompleted int     `json:"itemsCompleted"`
	TotalWatchTime float64 `json:"totalWatchTimeSeconds"`
}

func (r *WatchRepository) Stats(userID int64) (*WatchStats, error) {
	stats := &WatchStats{}
	err := r.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(completed), 0), COALESCE(SUM(current_seconds), 0)
		FROM watch_records WHERE user_id = ?`, userID).
		Scan(&stats.ItemsStarted, &stats.ItemsCompleted, &stats.TotalWatchTime)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "compute watch stats", err)
	}
	return stats, nil
}
