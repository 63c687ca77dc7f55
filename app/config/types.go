package config

// BotConfig represents the complete bot configuration loaded from YAML
type BotConfig struct {
	Sources  []Source       `yaml:"sources"`
	Hashtags []string       `yaml:"hashtags"`
	Mentions []string       `yaml:"mentions"`
	Schedule Schedule       `yaml:"schedule"`
	Content  Content        `yaml:"content"`
	Fetch    Fetch          `yaml:"fetch"`
	Errors   ErrorHandling  `yaml:"errors"`
	Images   ImageSelection `yaml:"images"`
}

// Source describes one news feed
type Source struct {
	ID      string `yaml:"id"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// Schedule contains the posting schedule settings
type Schedule struct {
	PostsPerDay          int      `yaml:"posts_per_day"`
	PostTimes            []string `yaml:"post_times"` // "HH:MM"; empty means even distribution
	MinHoursBetweenPosts int      `yaml:"min_hours_between_posts"`
	DayStartHour         int      `yaml:"day_start_hour"` // active span for even distribution
	DayEndHour           int      `yaml:"day_end_hour"`
}

// Content contains the post composition settings
type Content struct {
	MaxPostLength   int  `yaml:"max_post_length"`
	MaxWords        int  `yaml:"max_words"`
	HashtagsPerPost int  `yaml:"hashtags_per_post"`
	IncludeMentions bool `yaml:"include_mentions"`
	AttachImages    bool `yaml:"attach_images"`
	AppendURL       bool `yaml:"append_url"`
}

// Fetch contains the ingestion settings
type Fetch struct {
	RecencyWindowHours int  `yaml:"recency_window_hours"`
	Timeout            int  `yaml:"timeout"` // seconds, per source
	MaxItemsPerSource  int  `yaml:"max_items_per_source"`
	EnrichSummaries    bool `yaml:"enrich_summaries"`
	DedupWindowHours   int  `yaml:"dedup_window_hours"`
}

// ErrorHandling contains retry settings for publishing
type ErrorHandling struct {
	MaxRetries int `yaml:"max_retries"`
	RetryDelay int `yaml:"retry_delay"` // seconds, base backoff delay
}

// ImageSelection maps title keywords to image search terms
type ImageSelection struct {
	Keywords   []string          `yaml:"keywords"`    // fallback pool
	KeywordMap map[string]string `yaml:"keyword_map"` // title substring -> search term
}
