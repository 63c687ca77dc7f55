package config

import (
	"time"
)

// EnabledSources returns the sources that should be fetched
func (c *BotConfig) EnabledSources() []Source {
	sources := make([]Source, 0, len(c.Sources))
	for _, source := range c.Sources {
		if source.Enabled {
			sources = append(sources, source)
		}
	}
	return sources
}

// GetFetchTimeout returns the per-source fetch timeout as time.Duration
func (f *Fetch) GetFetchTimeout() time.Duration {
	if f.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(f.Timeout) * time.Second
}

// GetRecencyWindow returns the article recency window as time.Duration
func (f *Fetch) GetRecencyWindow() time.Duration {
	return time.Duration(f.RecencyWindowHours) * time.Hour
}

// GetDedupWindow returns the deduplication retention window as time.Duration
func (f *Fetch) GetDedupWindow() time.Duration {
	return time.Duration(f.DedupWindowHours) * time.Hour
}

// GetRetryDelay returns the base retry delay as time.Duration
func (e *ErrorHandling) GetRetryDelay() time.Duration {
	if e.RetryDelay <= 0 {
		return 5 * time.Second
	}
	return time.Duration(e.RetryDelay) * time.Second
}

// GetMinGap returns the minimum spacing between publications
func (s *Schedule) GetMinGap() time.Duration {
	return time.Duration(s.MinHoursBetweenPosts) * time.Hour
}
