package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"simscope.ai/internal/record"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data/sessions", "session archive directory")
		session  = flag.String("session", "", "session id to replay (default: list sessions and exit)")
		addr     = flag.String("addr", "", "re-broadcast websocket listen address (empty: print stats only)")
		interval = flag.Duration("interval", time.Second, "frame interval for re-broadcast")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[replay] ", log.LstdFlags|log.Lmicroseconds)

	if *session == "" {
		sessions, err := record.ListSessions(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "list sessions:", err)
			os.Exit(1)
		}
		if len(sessions) == 0 {
			fmt.Println("no recorded sessions")
			return
		}
		for _, s := range sessions {
			fmt.Printf("%s  started=%s frames=%d lastSeq=%d source=%s\n",
				s.ID, s.StartedAt.Format(time.RFC3339), s.Frames, s.LastSeq, s.SourceURL)
		}
		return
	}

	sessionDir := filepath.Join(*dataDir, *session)
	stats, err := record.Stats(sessionDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read session:", err)
		os.Exit(1)
	}
	fmt.Printf("session %s: %s\n", *session, stats)

	if *addr == "" {
		return
	}

	rp := record.NewReplayer(sessionDir, logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hs := &http.Server{Addr: *addr, Handler: rp.Routes()}
	go func() {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
	}()
	logger.Printf("re-broadcasting %d frames on ws://%s/ws every %s", stats.Frames, *addr, *interval)

	sent, err := rp.Run(ctx, *interval)
	if err != nil {
		logger.Printf("replay: %v", err)
	}
	logger.Printf("sent %d frames", sent)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = hs.Shutdown(shutdownCtx)
}
