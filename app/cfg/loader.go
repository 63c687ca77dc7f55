package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Twitter/X API credentials
	TwitterAPIKey            string `long:"twitter-api-key" env:"TWITTER_API_KEY" description:"Twitter API key (required unless --dry-run or --stats)"`
	TwitterAPISecret         string `long:"twitter-api-secret" env:"TWITTER_API_SECRET" description:"Twitter API secret"`
	TwitterAccessToken       string `long:"twitter-access-token" env:"TWITTER_ACCESS_TOKEN" description:"Twitter access token"`
	TwitterAccessTokenSecret string `long:"twitter-access-token-secret" env:"TWITTER_ACCESS_TOKEN_SECRET" description:"Twitter access token secret"`
	TwitterBearerToken       string `long:"twitter-bearer-token" env:"TWITTER_BEARER_TOKEN" description:"Twitter bearer token"`

	// Unsplash API credential
	UnsplashAccessKey string `long:"unsplash-access-key" env:"UNSPLASH_ACCESS_KEY" description:"Unsplash access key for post images (optional)"`

	// Application configuration
	DBPath            string `long:"db-path" env:"DB_PATH" default:"./birdfeed.db" description:"Path to the SQLite database file"`
	BotConfigPath     string `long:"bot-config" env:"BOT_CONFIG" default:"./bot.yml" description:"Path to the bot configuration file"`
	Port              string `long:"port" env:"PORT" description:"HTTP server port for the stats API (disabled when empty)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authenticated endpoints (optional)"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"300" description:"Scheduler interval in seconds"`

	// Run mode
	PostNow bool `long:"post-now" description:"Run a single publish cycle and exit"`
	Count   int  `long:"count" default:"1" description:"Number of posts to publish with --post-now"`
	Stats   bool `long:"stats" description:"Print publication statistics and exit"`
	DryRun  bool `long:"dry-run" description:"Fetch and compose without publishing, then exit"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Birdfeed/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for schedule slots (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		TwitterAPIKey:            raw.TwitterAPIKey,
		TwitterAPISecret:         raw.TwitterAPISecret,
		TwitterAccessToken:       raw.TwitterAccessToken,
		TwitterAccessTokenSecret: raw.TwitterAccessTokenSecret,
		TwitterBearerToken:       raw.TwitterBearerToken,
		UnsplashAccessKey:        raw.UnsplashAccessKey,
		DBPath:                   raw.DBPath,
		BotConfigPath:            raw.BotConfigPath,
		Port:                     raw.Port,
		APIAccessKey:             raw.APIAccessKey,
		SchedulerInterval:        raw.SchedulerInterval,
		PostNow:                  raw.PostNow,
		Count:                    raw.Count,
		Stats:                    raw.Stats,
		DryRun:                   raw.DryRun,
		UserAgent:                raw.UserAgent,
		Timezone:                 raw.Timezone,
		Debug:                    raw.Debug,
		Version:                  GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// validate rejects configurations that cannot publish before any work begins.
// Stats and dry-run modes work without credentials.
func (c *Cfg) validate() error {
	if c.Count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if c.SchedulerInterval < 1 {
		return fmt.Errorf("scheduler interval must be at least 1 second")
	}

	if c.Stats || c.DryRun {
		return nil
	}

	missing := false
	for _, v := range []string{
		c.TwitterAPIKey, c.TwitterAPISecret,
		c.TwitterAccessToken, c.TwitterAccessTokenSecret,
	} {
		if v == "" {
			missing = true
			break
		}
	}
	if missing {
		return fmt.Errorf("twitter credentials are not configured")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
