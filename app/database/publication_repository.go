package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ PublicationRepository = (*SQLPublicationRepository)(nil)

// SQLPublicationRepository persists the append-only publication log.
// Records are never updated or deleted.
type SQLPublicationRepository struct {
	db *DB
}

func NewPublicationRepository(db *DB) *SQLPublicationRepository {
	return &SQLPublicationRepository{db: db}
}

// Append records one publish attempt
func (r *SQLPublicationRepository) Append(p Publication) error {
	_, err := r.db.Exec(`
		INSERT INTO publications (fingerprint, posted_at, success, failure_reason, external_id, text)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Fingerprint, p.PostedAt.UTC(), p.Success, p.FailureReason, p.ExternalID, p.Text)

	if err != nil {
		return fmt.Errorf("failed to append publication: %w", err)
	}

	return nil
}

// GetStats summarizes the whole log
func (r *SQLPublicationRepository) GetStats() (Stats, error) {
	var stats Stats
	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
		FROM publications
	`).Scan(&stats.TotalPosts, &stats.SuccessfulPosts, &stats.FailedPosts)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get publication stats: %w", err)
	}

	lastSuccess, err := r.LastSuccessAt()
	if err != nil {
		return Stats{}, err
	}
	stats.LastSuccessAt = lastSuccess

	return stats, nil
}

// GetRecent returns the latest publish attempts, newest first
func (r *SQLPublicationRepository) GetRecent(limit int) ([]Publication, error) {
	rows, err := r.db.Query(`
		SELECT id, fingerprint, posted_at, success, failure_reason, external_id, text
		FROM publications
		ORDER BY posted_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent publications: %w", err)
	}
	defer rows.Close()

	var publications []Publication
	for rows.Next() {
		var p Publication
		err := rows.Scan(&p.ID, &p.Fingerprint, &p.PostedAt, &p.Success,
			&p.FailureReason, &p.ExternalID, &p.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publication row: %w", err)
		}
		publications = append(publications, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating publication rows: %w", err)
	}

	return publications, nil
}

// LastSuccessAt returns the time of the most recent successful post,
// or nil when nothing has been published yet
func (r *SQLPublicationRepository) LastSuccessAt() (*time.Time, error) {
	var postedAt time.Time
	err := r.db.QueryRow(`
		SELECT posted_at FROM publications
		WHERE success = 1
		ORDER BY posted_at DESC
		LIMIT 1
	`).Scan(&postedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last success time: %w", err)
	}

	return &postedAt, nil
}

// CountSuccessSince returns the number of successful posts since the
// given time
func (r *SQLPublicationRepository) CountSuccessSince(since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM publications
		WHERE success = 1 AND posted_at >= ?
	`, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent successes: %w", err)
	}

	return count, nil
}
