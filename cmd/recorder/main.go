package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"simscope.ai/internal/config"
	"simscope.ai/internal/feed"
	"simscope.ai/internal/record"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config yaml (optional)")
		wsURL      = flag.String("ws", "", "websocket url (overrides config)")
		dataDir    = flag.String("data", "./data/sessions", "session archive directory")
	)
	flag.Parse()

	_ = godotenv.Load()

	logger := log.New(os.Stdout, "[recorder] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *wsURL != "" {
		cfg.Feed.URL = *wsURL
	}

	rec, err := record.NewRecorder(*dataDir, cfg.Feed.URL, logger)
	if err != nil {
		logger.Fatalf("open recorder: %v", err)
	}

	ch := feed.New(feed.Options{
		URL:            cfg.Feed.URL,
		ReconnectDelay: cfg.Feed.ReconnectDelay(),
		MaxAttempts:    cfg.Feed.MaxAttempts,
		Logger:         logger,
		OnStatus: func(connected bool) {
			logger.Printf("feed connected=%v", connected)
		},
		OnError: func(err error) {
			logger.Printf("feed error: %v", err)
		},
	})
	rec.Attach(ch)
	ch.Connect()

	logger.Printf("recording session %s from %s into %s", rec.SessionID(), cfg.Feed.URL, *dataDir)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	ch.Disconnect()
	if err := rec.Close(); err != nil {
		logger.Fatalf("close recorder: %v", err)
	}
	logger.Printf("recorded %d frames", rec.Frames())
}
