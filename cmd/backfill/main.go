package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"australian-wedding-vendor-scraper/internal/services"
)

func main() {
	limit := flag.Int("limit", 0, "maximum number of discoveries to process (0 = all)")
	delay := flag.Int("delay", 5, "seconds to wait between discoveries")
	flag.Parse()

	log.Printf("Starting local backfill...")
	log.Printf("   Delay: %ds between requests", *delay)
	if *limit > 0 {
		log.Printf("   Limit: %d discoveries", *limit)
	}

	store, err := services.NewSupabaseClient()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	researcher, err := services.NewEnrichmentClient()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// An operator interrupt ends the run cleanly; every item already
	// processed has its status committed, so partial progress is kept.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator := services.NewBackfillOrchestrator(store, researcher, *limit, time.Duration(*delay)*time.Second)
	summary, err := orchestrator.Run(ctx)
	if err != nil {
		log.Printf("Backfill failed: %v", err)
		os.Exit(1)
	}
	if summary.Interrupted {
		log.Printf("Backfill interrupted; progress so far is saved")
	}
}
