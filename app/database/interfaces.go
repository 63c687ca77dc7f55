package database

import (
	"time"
)

// SeenRepository answers "already handled?" queries against the
// fingerprint retention set. Entries age out of the window lazily.
type SeenRepository interface {
	HasSeen(fingerprint string) (bool, error)
	MarkSeen(fingerprint string, seenAt time.Time) error
	Prune(before time.Time) (int64, error)
	Count() (int, error)
}

// PublicationRepository owns the append-only publication log
type PublicationRepository interface {
	Append(p Publication) error
	GetStats() (Stats, error)
	GetRecent(limit int) ([]Publication, error)
	LastSuccessAt() (*time.Time, error)
	CountSuccessSince(since time.Time) (int, error)
}
