package database

import (
	"time"
)

// Publication is one publish attempt, recorded append-only
type Publication struct {
	ID            int64
	Fingerprint   string
	PostedAt      time.Time
	Success       bool
	FailureReason string
	ExternalID    string // platform-assigned post id, set on success
	Text          string
}

// Stats summarizes the publication log
type Stats struct {
	TotalPosts      int
	SuccessfulPosts int
	FailedPosts     int
	LastSuccessAt   *time.Time
}

// SuccessRate returns the share of successful posts in percent
func (s Stats) SuccessRate() float64 {
	if s.TotalPosts == 0 {
		return 0
	}
	return float64(s.SuccessfulPosts) / float64(s.TotalPosts) * 100
}
