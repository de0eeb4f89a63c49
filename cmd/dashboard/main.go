package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"simscope.ai/internal/api"
	"simscope.ai/internal/config"
	"simscope.ai/internal/dashboard"
	"simscope.ai/internal/dashboard/tui"
	"simscope.ai/internal/feed"
	"simscope.ai/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config yaml (optional)")
		apiURL     = flag.String("api", "", "REST base url (overrides config)")
		wsURL      = flag.String("ws", "", "websocket url (overrides config)")
	)
	flag.Parse()

	// .env is optional; environment overrides still apply through Load.
	_ = godotenv.Load()

	// The TUI owns stdout.
	logger := log.New(os.Stderr, "[dashboard] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *wsURL != "" {
		cfg.Feed.URL = *wsURL
	}

	st := store.New()
	ch := feed.Shared(dashboard.FeedOptions(st, feed.Options{
		URL:            cfg.Feed.URL,
		ReconnectDelay: cfg.Feed.ReconnectDelay(),
		MaxAttempts:    cfg.Feed.MaxAttempts,
		Logger:         logger,
	}))
	ctrl := dashboard.NewController(api.New(cfg.API.BaseURL), ch, st, true, logger)

	ctrl.Start(context.Background())
	defer ctrl.Stop()

	if err := tui.Run(ctrl); err != nil {
		logger.Fatalf("tui: %v", err)
	}
}
