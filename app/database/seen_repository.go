package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ SeenRepository = (*SQLSeenRepository)(nil)

// SQLSeenRepository persists article fingerprints with a retention
// window. Expired entries are evicted lazily when queried.
type SQLSeenRepository struct {
	db     *DB
	window time.Duration
	now    func() time.Time
}

func NewSeenRepository(db *DB, window time.Duration) *SQLSeenRepository {
	return &SQLSeenRepository{
		db:     db,
		window: window,
		now:    time.Now,
	}
}

// HasSeen reports whether the fingerprint was marked within the
// retention window. An expired entry is removed and reported unseen,
// never a stale "still duplicate".
func (r *SQLSeenRepository) HasSeen(fingerprint string) (bool, error) {
	var seenAt time.Time
	err := r.db.QueryRow(
		`SELECT seen_at FROM seen_articles WHERE fingerprint = ?`,
		fingerprint).Scan(&seenAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query seen article: %w", err)
	}

	if r.now().Sub(seenAt) >= r.window {
		if _, err := r.db.Exec(
			`DELETE FROM seen_articles WHERE fingerprint = ?`, fingerprint); err != nil {
			return false, fmt.Errorf("failed to evict expired entry: %w", err)
		}
		return false, nil
	}

	return true, nil
}

// MarkSeen records the fingerprint, refreshing the timestamp if present
func (r *SQLSeenRepository) MarkSeen(fingerprint string, seenAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO seen_articles (fingerprint, seen_at)
		VALUES (?, ?)
		ON CONFLICT (fingerprint) DO UPDATE SET seen_at = excluded.seen_at
	`, fingerprint, seenAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to mark article seen: %w", err)
	}

	return nil
}

// Prune removes all entries older than the given time
func (r *SQLSeenRepository) Prune(before time.Time) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM seen_articles WHERE seen_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune seen articles: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}

	return removed, nil
}

// Count returns the number of retained fingerprints
func (r *SQLSeenRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM seen_articles`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count seen articles: %w", err)
	}
	return count, nil
}
