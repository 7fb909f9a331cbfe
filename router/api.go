package router

import (
	"database/sql"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/ringboard/ringboard/handlers"
	"github.com/ringboard/ringboard/internal/config"
	"github.com/ringboard/ringboard/internal/store"
	"github.com/ringboard/ringboard/services"
)

func NewGinRouter(pg *sql.DB, rdb *redis.Client) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize services
	statsService := services.NewStatsService(pg, rdb)

	webhookService := services.NewWebhookService(config.App.CalendarWebhookURL)
	eventCache, err := services.NewEventCache(config.App.CachePath)
	if err != nil {
		log.Fatalf("Failed to open event cache: %v", err)
	}
	var remoteStore *services.RemoteCalendarStore
	if pg != nil {
		remoteStore = services.NewRemoteCalendarStore(pg)
	}
	calendarService := services.NewCalendarService(remoteStore, webhookService, eventCache)

	settingsService, err := services.NewSettingsService(config.App.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize settings service: %v", err)
	}
	connectionTester := services.NewConnectionTester()

	viewStore := store.New()

	// Initialize handlers
	dashboardHandler := handlers.NewDashboardHandler(statsService, viewStore)
	calendarHandler := handlers.NewCalendarHandler(calendarService)
	settingsHandler := handlers.NewSettingsHandler(settingsService, connectionTester)
	liveHandler := handlers.NewLiveHandler(viewStore)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/summary", dashboardHandler.GetSummary)
		api.GET("/timeseries", dashboardHandler.GetTimeSeries)
		api.GET("/events", dashboardHandler.GetEvents)
		api.GET("/metrics/engagement", dashboardHandler.GetEngagement)
		api.GET("/metrics/customers", dashboardHandler.GetCustomerCount)

		api.GET("/calendar/events", calendarHandler.ListEvents)
		api.POST("/calendar/events", calendarHandler.CreateEvent)
		api.PUT("/calendar/events/:id", calendarHandler.UpdateEvent)
		api.DELETE("/calendar/events/:id", calendarHandler.DeleteEvent)
		api.GET("/calendar/export.ics", calendarHandler.ExportICS)

		api.GET("/settings", settingsHandler.GetSettings)
		api.PUT("/settings", settingsHandler.PutSettings)
		api.PUT("/settings/:integration", settingsHandler.PutIntegration)
		api.POST("/integrations/:service/test", settingsHandler.TestIntegration)

		api.GET("/live", liveHandler.Stream)
	}

	return r
}
