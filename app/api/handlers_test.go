package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"birdfeed/app/config"
	"birdfeed/app/database"
	"birdfeed/app/runner"
	"birdfeed/app/tasks"
)

type fakePubRepo struct {
	stats  database.Stats
	recent []database.Publication
}

func (f *fakePubRepo) Append(p database.Publication) error { return nil }
func (f *fakePubRepo) GetStats() (database.Stats, error)   { return f.stats, nil }
func (f *fakePubRepo) GetRecent(limit int) ([]database.Publication, error) {
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}
func (f *fakePubRepo) LastSuccessAt() (*time.Time, error)          { return f.stats.LastSuccessAt, nil }
func (f *fakePubRepo) CountSuccessSince(time.Time) (int, error)    { return 0, nil }

type fakeSeenRepo struct{ count int }

func (f *fakeSeenRepo) HasSeen(string) (bool, error)            { return false, nil }
func (f *fakeSeenRepo) MarkSeen(string, time.Time) error        { return nil }
func (f *fakeSeenRepo) Prune(time.Time) (int64, error)          { return 0, nil }
func (f *fakeSeenRepo) Count() (int, error)                     { return f.count, nil }

type fakeScheduler struct {
	enqueued []tasks.TaskInterface
}

func (f *fakeScheduler) Start() {}
func (f *fakeScheduler) Stop()  {}
func (f *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	f.enqueued = append(f.enqueued, task)
	return nil
}

type fakeCycleRunner struct{}

func (f *fakeCycleRunner) Run(ctx context.Context, opts runner.Options) (runner.Report, error) {
	return runner.Report{}, nil
}

func testBotConfig() *config.BotConfig {
	return &config.BotConfig{
		Sources: []config.Source{
			{ID: "coindesk", URL: "https://example.com/rss", Enabled: true},
			{ID: "off", URL: "https://example.com/off", Enabled: false},
		},
	}
}

func setupServer(pubRepo *fakePubRepo, scheduler *fakeScheduler, apiAccessKey string) http.Handler {
	handler := NewHandler(testBotConfig(), pubRepo, &fakeSeenRepo{count: 5}, scheduler, &fakeCycleRunner{})
	return NewServer(handler, apiAccessKey)
}

func TestGetHealth(t *testing.T) {
	server := setupServer(&fakePubRepo{}, &fakeScheduler{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if body["sources"] != float64(1) {
		t.Errorf("sources = %v, want 1 (only enabled counted)", body["sources"])
	}
	if body["tracked_articles"] != float64(5) {
		t.Errorf("tracked_articles = %v, want 5", body["tracked_articles"])
	}
}

func TestGetStats(t *testing.T) {
	lastSuccess := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pubRepo := &fakePubRepo{stats: database.Stats{
		TotalPosts:      10,
		SuccessfulPosts: 8,
		FailedPosts:     2,
		LastSuccessAt:   &lastSuccess,
	}}
	server := setupServer(pubRepo, &fakeScheduler{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if body["total_posts"] != float64(10) {
		t.Errorf("total_posts = %v, want 10", body["total_posts"])
	}
	if body["success_rate"] != float64(80) {
		t.Errorf("success_rate = %v, want 80", body["success_rate"])
	}
	if body["last_success_at"] != "2025-06-01T12:00:00Z" {
		t.Errorf("last_success_at = %v", body["last_success_at"])
	}
}

func TestAPITriggerRun_RequiresKey(t *testing.T) {
	scheduler := &fakeScheduler{}
	server := setupServer(&fakePubRepo{}, scheduler, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/run", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401 without key", w.Code)
	}
	if len(scheduler.enqueued) != 0 {
		t.Error("Task enqueued despite missing key")
	}
}

func TestAPITriggerRun_Enqueues(t *testing.T) {
	scheduler := &fakeScheduler{}
	server := setupServer(&fakePubRepo{}, scheduler, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/run", nil)
	req.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Status = %d, want 202", w.Code)
	}
	if len(scheduler.enqueued) != 1 {
		t.Fatalf("Enqueued %d tasks, want 1", len(scheduler.enqueued))
	}
	if scheduler.enqueued[0].GetType() != tasks.TaskTypePublishCycle {
		t.Errorf("Enqueued task type = %s, want %s", scheduler.enqueued[0].GetType(), tasks.TaskTypePublishCycle)
	}
}

func TestAPIListRecent(t *testing.T) {
	pubRepo := &fakePubRepo{recent: []database.Publication{
		{Fingerprint: "fp-1", PostedAt: time.Now(), Success: true, ExternalID: "1", Text: "a"},
		{Fingerprint: "fp-2", PostedAt: time.Now(), FailureReason: "rejected", Text: "b"},
	}}
	server := setupServer(pubRepo, &fakeScheduler{}, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer secret")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}

	var body struct {
		Posts []map[string]interface{} `json:"posts"`
		Total int                      `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if body.Total != 2 {
		t.Errorf("total = %d, want 2", body.Total)
	}
}

func TestAPIListRecent_InvalidLimit(t *testing.T) {
	server := setupServer(&fakePubRepo{}, &fakeScheduler{}, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/posts?limit=0", nil)
	req.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}
