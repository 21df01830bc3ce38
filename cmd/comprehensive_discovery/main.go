package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"australian-wedding-vendor-scraper/internal/models"
	"australian-wedding-vendor-scraper/internal/services"
)

func main() {
	planner := services.NewCampaignPlanner()

	log.Printf("================================================================")
	log.Printf("COMPREHENSIVE AUSTRALIAN WEDDING DISCOVERY")
	log.Printf("================================================================")
	log.Printf("Cities: %d", len(models.AustralianCities()))
	log.Printf("Service Types: %d", len(models.WeddingServiceTypes()))
	log.Printf("Total Discovery Tasks: %d", planner.TaskCount())
	log.Printf("================================================================")

	store, err := services.NewSupabaseClient()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	discoverer, err := services.NewDiscoveryClient()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := services.NewCampaignRunner(planner, discoverer, store)
	summary, err := runner.Run(ctx)
	if err != nil {
		log.Printf("Discovery campaign failed: %v", err)
		os.Exit(1)
	}
	if summary.Interrupted {
		log.Printf("Discovery interrupted by user")
	}
}
