package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simscope.ai/internal/feedsim"
)

func main() {
	var (
		addr     = flag.String("addr", ":8090", "http listen address")
		seed     = flag.Int64("seed", 1337, "generator seed")
		agents   = flag.Int("agents", 24, "number of simulated agents")
		interval = flag.Duration("interval", time.Second, "broadcast interval")
		degrade  = flag.Bool("degrade", false, "periodically emit malformed domain payloads")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[feedsim] ", log.LstdFlags|log.Lmicroseconds)

	gen := feedsim.NewGenerator(*seed, *agents)
	gen.Degrade = *degrade
	srv := feedsim.NewServer(gen, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hs := &http.Server{Addr: *addr, Handler: srv.Routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()
	go srv.Run(ctx, *interval)

	logger.Printf("listening on %s (seed=%d agents=%d interval=%s degrade=%v)",
		*addr, *seed, *agents, *interval, *degrade)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
}
