package cfg

type Cfg struct {
	// Twitter/X API credentials
	TwitterAPIKey            string
	TwitterAPISecret         string
	TwitterAccessToken       string
	TwitterAccessTokenSecret string
	TwitterBearerToken       string

	// Unsplash API credential; image attachment is skipped without it
	UnsplashAccessKey string

	// Application configuration
	DBPath            string
	BotConfigPath     string
	Port              string
	APIAccessKey      string
	SchedulerInterval int

	// Run mode
	PostNow bool
	Count   int
	Stats   bool
	DryRun  bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
