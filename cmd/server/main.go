package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/ringboard/ringboard/internal/config"
	"github.com/ringboard/ringboard/router"
)

func main() {
	log.Println("Starting ringboard API server...")

	// Load Config
	configPath := os.Getenv("RINGBOARD_CONFIG_PATH")

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Database connection. Without one the server still runs and serves
	// mock data, so the dashboard renders with no backend attached.
	var pg *sql.DB
	if config.App.RemoteStoreConfigured() {
		var err error
		pg, err = sql.Open("postgres", config.App.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pg.Close()

		if err := pg.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}

		// Set timezone to UTC for consistent time handling
		if _, err := pg.Exec("SET TIME ZONE 'UTC'"); err != nil {
			log.Printf("Failed to set timezone to UTC: %v", err)
		}
		log.Println("Connected to database successfully")
	} else {
		log.Println("No database configured, serving mock data")
	}

	// Optional Redis read cache
	var rdb *redis.Client
	if config.App.RedisURL != "" {
		opts, err := redis.ParseURL(config.App.RedisURL)
		if err != nil {
			log.Printf("Warning: invalid REDIS_URL, running without cache: %v", err)
		} else {
			rdb = redis.NewClient(opts)
		}
	}

	r := router.NewGinRouter(pg, rdb)

	addr := ":" + config.App.Port
	log.Printf("Listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
