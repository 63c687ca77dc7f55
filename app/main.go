package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"birdfeed/app/api"
	"birdfeed/app/cfg"
	"birdfeed/app/compose"
	"birdfeed/app/config"
	"birdfeed/app/database"
	"birdfeed/app/feed"
	"birdfeed/app/media"
	"birdfeed/app/publish"
	"birdfeed/app/runner"
	"birdfeed/app/schedule"
	"birdfeed/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting birdfeed", "version", appCfg.Version)

	botConfig, err := config.Load(appCfg.BotConfigPath)
	if err != nil {
		slog.Error("Failed to load bot configuration", "path", appCfg.BotConfigPath, "error", err)
		os.Exit(1)
	}
	slog.Info("Bot configuration loaded", "path", appCfg.BotConfigPath, "sources", len(botConfig.EnabledSources()))

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	seenRepo := database.NewSeenRepository(db, botConfig.Fetch.GetDedupWindow())
	pubRepo := database.NewPublicationRepository(db)

	if appCfg.Stats {
		printStats(pubRepo)
		return
	}

	httpClient := &http.Client{}

	fetcher := feed.NewFetcher(httpClient, botConfig.Fetch, appCfg.UserAgent)
	aggregator := feed.NewAggregator(fetcher, botConfig.EnabledSources())
	composer := compose.NewComposer(botConfig)

	var images runner.ImageResolver
	if botConfig.Content.AttachImages && appCfg.UnsplashAccessKey != "" {
		images = media.NewResolver(httpClient, appCfg.UnsplashAccessKey)
	}

	var channel publish.Channel
	if appCfg.DryRun {
		channel = publish.NewDryRunChannel()
	} else {
		channel = publish.NewTwitterChannel(httpClient, publish.Credentials{
			APIKey:            appCfg.TwitterAPIKey,
			APISecret:         appCfg.TwitterAPISecret,
			AccessToken:       appCfg.TwitterAccessToken,
			AccessTokenSecret: appCfg.TwitterAccessTokenSecret,
		})
	}
	publisher := publish.NewPublisher(channel, botConfig.Errors)

	planner, err := schedule.NewPlanner(botConfig.Schedule, time.Local)
	if err != nil {
		slog.Error("Invalid posting schedule", "error", err)
		os.Exit(1)
	}

	cycleRunner := runner.NewRunner(aggregator, seenRepo, pubRepo, composer, images, publisher, planner)

	if appCfg.PostNow || appCfg.DryRun {
		os.Exit(runOnce(cycleRunner, appCfg))
	}

	runDaemon(cycleRunner, seenRepo, pubRepo, botConfig, appCfg)
}

// runOnce executes a single publish cycle, bypassing the posting
// slots, and maps the outcome to an exit code.
func runOnce(cycleRunner *runner.Runner, appCfg *cfg.Cfg) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Same ceiling the daemon puts on a scheduled cycle, so a wedged
	// source cannot hang a one-shot invocation forever
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	report, err := cycleRunner.Run(ctx, runner.Options{
		Limit:       appCfg.Count,
		IgnoreSlots: true,
		DryRun:      appCfg.DryRun,
	})
	if err != nil {
		slog.Error("Publish cycle aborted", "error", err)
		return 1
	}

	return report.ExitCode()
}

// runDaemon starts the background scheduler and, when a port is
// configured, the stats HTTP server, then blocks until a signal.
func runDaemon(cycleRunner *runner.Runner, seenRepo database.SeenRepository,
	pubRepo database.PublicationRepository, botConfig *config.BotConfig, appCfg *cfg.Cfg) {
	scheduler := tasks.NewScheduler(cycleRunner, seenRepo, botConfig.Fetch.GetDedupWindow())
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "interval", appCfg.SchedulerInterval)

	var httpServer *http.Server
	serverErrChan := make(chan error, 1)

	if appCfg.Port != "" {
		handler := api.NewHandler(botConfig, pubRepo, seenRepo, scheduler, cycleRunner)
		server := api.NewServer(handler, appCfg.APIAccessKey)

		httpServer = &http.Server{
			Addr:         ":" + appCfg.Port,
			Handler:      server,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("HTTP server listening", "port", appCfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrChan <- err
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

func printStats(pubRepo database.PublicationRepository) {
	stats, err := pubRepo.GetStats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Total posts:      %d\n", stats.TotalPosts)
	fmt.Printf("Successful posts: %d\n", stats.SuccessfulPosts)
	fmt.Printf("Failed posts:     %d\n", stats.FailedPosts)
	fmt.Printf("Success rate:     %.1f%%\n", stats.SuccessRate())
	if stats.LastSuccessAt != nil {
		fmt.Printf("Last success:     %s\n", stats.LastSuccessAt.Format(time.RFC3339))
	}
}
