package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"birdfeed/app/config"
	"birdfeed/app/database"
	"birdfeed/app/tasks"
)

func NewHandler(botConfig *config.BotConfig, pubRepo database.PublicationRepository,
	seenRepo database.SeenRepository, scheduler tasks.TaskSchedulerInterface,
	runner tasks.CycleRunner) *Handler {
	return &Handler{
		pubRepo:   pubRepo,
		seenRepo:  seenRepo,
		botConfig: botConfig,
		scheduler: scheduler,
		runner:    runner,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sources":   len(h.botConfig.EnabledSources()),
	}

	if seenCount, err := h.seenRepo.Count(); err == nil {
		health["tracked_articles"] = seenCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.pubRepo.GetStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := map[string]interface{}{
		"total_posts":      stats.TotalPosts,
		"successful_posts": stats.SuccessfulPosts,
		"failed_posts":     stats.FailedPosts,
		"success_rate":     stats.SuccessRate(),
	}
	if stats.LastSuccessAt != nil {
		response["last_success_at"] = stats.LastSuccessAt.Format(time.RFC3339)
	}

	now := time.Now().In(time.Local)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if postsToday, err := h.pubRepo.CountSuccessSince(midnight); err == nil {
		response["posts_today"] = postsToday
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIListRecent(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	records, err := h.pubRepo.GetRecent(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	posts := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		post := map[string]interface{}{
			"fingerprint": record.Fingerprint,
			"posted_at":   record.PostedAt.Format(time.RFC3339),
			"success":     record.Success,
			"text":        record.Text,
		}
		if record.ExternalID != "" {
			post["external_id"] = record.ExternalID
		}
		if record.FailureReason != "" {
			post["failure_reason"] = record.FailureReason
		}
		posts = append(posts, post)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"posts": posts,
		"total": len(posts),
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	task := tasks.NewPublishCycleTask(h.runner)

	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing publish cycle", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue publish cycle",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Publish cycle enqueued",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}
