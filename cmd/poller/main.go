package main

import (
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/ringboard/ringboard/db"
	"github.com/ringboard/ringboard/internal/config"
	"github.com/ringboard/ringboard/services"
	"github.com/ringboard/ringboard/workers"
)

func main() {
	log.Println("Starting calendar poller...")

	// Load Config
	configPath := os.Getenv("RINGBOARD_CONFIG_PATH")

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var remote *services.RemoteCalendarStore
	if config.App.RemoteStoreConfigured() {
		pg, err := sql.Open("postgres", config.App.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pg.Close()

		if err := pg.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		remote = services.NewRemoteCalendarStore(pg)
		log.Println("Connected to database successfully")
	}

	cache, err := services.NewEventCache(config.App.CachePath)
	if err != nil {
		log.Fatalf("Failed to open event cache: %v", err)
	}
	defer cache.Close()

	webhook := services.NewWebhookService(config.App.CalendarWebhookURL)
	calendar := services.NewCalendarService(remote, webhook, cache)
	poller := workers.NewCalendarPoller(calendar)

	// Poll a window wide enough for the usual dashboard views and keep the
	// local mirror fresh with whatever the best tier returned.
	now := time.Now().UTC()
	cancel := poller.Start(now.AddDate(0, -1, 0), now.AddDate(0, 2, 0), config.App.PollInterval(), func(events []db.CalendarEvent) {
		log.Printf("Poll cycle: %d events", len(events))
		cache.UpsertAll(events)
	})

	// Wait for interrupt signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Println("Poller started. Press Ctrl+C to stop.")
	<-c

	log.Println("Shutting down poller...")
	cancel()
}
