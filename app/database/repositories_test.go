package database

import (
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func TestSeenRepository_MarkAndQuery(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeenRepository(db, 24*time.Hour)

	seen, err := repo.HasSeen("fp-1")
	if err != nil {
		t.Fatalf("HasSeen failed: %v", err)
	}
	if seen {
		t.Error("Expected unseen fingerprint before MarkSeen")
	}

	if err := repo.MarkSeen("fp-1", time.Now()); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}

	seen, err = repo.HasSeen("fp-1")
	if err != nil {
		t.Fatalf("HasSeen failed: %v", err)
	}
	if !seen {
		t.Error("Expected seen fingerprint within retention window")
	}
}

func TestSeenRepository_LazyEviction(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeenRepository(db, 24*time.Hour)

	base := time.Now()
	if err := repo.MarkSeen("fp-old", base.Add(-25*time.Hour)); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}

	repo.now = func() time.Time { return base }

	seen, err := repo.HasSeen("fp-old")
	if err != nil {
		t.Fatalf("HasSeen failed: %v", err)
	}
	if seen {
		t.Error("Expected expired entry to report unseen")
	}

	// The expired entry must be gone, not merely masked
	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected expired entry removed, %d entries remain", count)
	}
}

func TestSeenRepository_Prune(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeenRepository(db, 24*time.Hour)

	now := time.Now()
	if err := repo.MarkSeen("fp-old", now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if err := repo.MarkSeen("fp-fresh", now); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}

	removed, err := repo.Prune(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 pruned entry, got %d", removed)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", count)
	}
}

func TestPublicationRepository_AppendAndStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPublicationRepository(db)

	now := time.Now()
	records := []Publication{
		{Fingerprint: "fp-1", PostedAt: now.Add(-2 * time.Hour), Success: true, ExternalID: "100", Text: "first post"},
		{Fingerprint: "fp-2", PostedAt: now.Add(-time.Hour), Success: false, FailureReason: "rate limited"},
		{Fingerprint: "fp-3", PostedAt: now, Success: true, ExternalID: "101", Text: "third post"},
	}
	for _, p := range records {
		if err := repo.Append(p); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	stats, err := repo.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalPosts != 3 {
		t.Errorf("Expected 3 total posts, got %d", stats.TotalPosts)
	}
	if stats.SuccessfulPosts != 2 {
		t.Errorf("Expected 2 successful posts, got %d", stats.SuccessfulPosts)
	}
	if stats.FailedPosts != 1 {
		t.Errorf("Expected 1 failed post, got %d", stats.FailedPosts)
	}
	if stats.LastSuccessAt == nil {
		t.Fatal("Expected last success time to be set")
	}

	recent, err := repo.GetRecent(2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 recent publications, got %d", len(recent))
	}
	if recent[0].Fingerprint != "fp-3" {
		t.Errorf("Expected newest publication first, got %s", recent[0].Fingerprint)
	}
}

func TestPublicationRepository_CountSuccessSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPublicationRepository(db)

	now := time.Now()
	entries := []Publication{
		{Fingerprint: "fp-1", PostedAt: now.Add(-30 * time.Hour), Success: true},
		{Fingerprint: "fp-2", PostedAt: now.Add(-2 * time.Hour), Success: true},
		{Fingerprint: "fp-3", PostedAt: now.Add(-time.Hour), Success: false},
	}
	for _, p := range entries {
		if err := repo.Append(p); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	count, err := repo.CountSuccessSince(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("CountSuccessSince failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 success in window, got %d", count)
	}
}

func TestPublicationRepository_LastSuccessAt_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPublicationRepository(db)

	last, err := repo.LastSuccessAt()
	if err != nil {
		t.Fatalf("LastSuccessAt failed: %v", err)
	}
	if last != nil {
		t.Errorf("Expected nil last success on empty log, got %v", last)
	}
}
