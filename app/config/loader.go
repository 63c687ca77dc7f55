package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads, defaults and validates the bot configuration file
func Load(path string) (*BotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot config: %w", err)
	}

	var config BotConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse bot config: %w", err)
	}

	setDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid bot config: %w", err)
	}

	return &config, nil
}

func setDefaults(config *BotConfig) {
	if config.Schedule.PostsPerDay == 0 {
		config.Schedule.PostsPerDay = 3
	}
	if config.Schedule.DayEndHour == 0 {
		config.Schedule.DayEndHour = 24
	}
	if config.Content.MaxPostLength == 0 {
		config.Content.MaxPostLength = 250
	}
	if config.Content.MaxWords == 0 {
		config.Content.MaxWords = 60
	}
	if config.Content.HashtagsPerPost == 0 {
		config.Content.HashtagsPerPost = 2
	}
	if config.Fetch.RecencyWindowHours == 0 {
		config.Fetch.RecencyWindowHours = 12
	}
	if config.Fetch.Timeout == 0 {
		config.Fetch.Timeout = 30 // seconds
	}
	if config.Fetch.MaxItemsPerSource == 0 {
		config.Fetch.MaxItemsPerSource = 15
	}
	if config.Fetch.DedupWindowHours == 0 {
		config.Fetch.DedupWindowHours = 24
	}
	if config.Errors.MaxRetries == 0 {
		config.Errors.MaxRetries = 3
	}
	if config.Errors.RetryDelay == 0 {
		config.Errors.RetryDelay = 5 // seconds
	}
}

func validate(config *BotConfig) error {
	if len(config.Sources) == 0 {
		return fmt.Errorf("no news sources configured")
	}

	enabled := 0
	for i, source := range config.Sources {
		if source.ID == "" {
			return fmt.Errorf("source at index %d has no id", i)
		}
		if source.URL == "" {
			return fmt.Errorf("source %q has no url", source.ID)
		}
		if source.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("all news sources are disabled")
	}

	if len(config.Hashtags) == 0 {
		return fmt.Errorf("no hashtags configured")
	}
	if config.Content.HashtagsPerPost < 0 {
		return fmt.Errorf("hashtags_per_post must be non-negative")
	}
	if config.Content.HashtagsPerPost > len(config.Hashtags) {
		return fmt.Errorf("hashtags_per_post (%d) exceeds hashtag pool size (%d)",
			config.Content.HashtagsPerPost, len(config.Hashtags))
	}
	if config.Content.IncludeMentions && len(config.Mentions) == 0 {
		return fmt.Errorf("include_mentions is set but no mentions configured")
	}

	if config.Schedule.PostsPerDay < 1 {
		return fmt.Errorf("posts_per_day must be at least 1")
	}
	if config.Schedule.MinHoursBetweenPosts < 0 {
		return fmt.Errorf("min_hours_between_posts must be non-negative")
	}
	if config.Schedule.DayStartHour < 0 || config.Schedule.DayStartHour > 23 {
		return fmt.Errorf("day_start_hour must be between 0 and 23")
	}
	if config.Schedule.DayEndHour <= config.Schedule.DayStartHour || config.Schedule.DayEndHour > 24 {
		return fmt.Errorf("day_end_hour must be after day_start_hour and at most 24")
	}
	for i, raw := range config.Schedule.PostTimes {
		if _, err := time.Parse("15:04", raw); err != nil {
			return fmt.Errorf("invalid post time at index %d: %q", i, raw)
		}
	}

	if config.Content.MaxPostLength < 1 {
		return fmt.Errorf("max_post_length must be positive")
	}
	if config.Content.MaxWords < 1 {
		return fmt.Errorf("max_words must be positive")
	}

	if config.Fetch.RecencyWindowHours < 0 {
		return fmt.Errorf("recency_window_hours must be non-negative")
	}
	if config.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch timeout must be non-negative")
	}
	if config.Fetch.MaxItemsPerSource < 0 {
		return fmt.Errorf("max_items_per_source must be non-negative")
	}
	if config.Fetch.DedupWindowHours < 0 {
		return fmt.Errorf("dedup_window_hours must be non-negative")
	}

	if config.Errors.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if config.Errors.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be non-negative")
	}

	return nil
}
