package main

import (
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/gatherly-app/gatherly-api/config"
	"github.com/gatherly-app/gatherly-api/handlers"
	"github.com/gatherly-app/gatherly-api/middleware"
	"github.com/gatherly-app/gatherly-api/routes"
	"github.com/gatherly-app/gatherly-api/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// The data key must be in place before any request can touch the vault.
	if err := utils.InitEncryption(); err != nil {
		log.Fatal("Failed to initialize encryption:", err)
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	log.Println("✅ Database connected successfully")

	if err := config.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	startUpkeep(db)

	wsHandler := handlers.NewWSHandler()

	router := gin.Default()

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	corsConfig := cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	router.Use(cors.New(corsConfig))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("📨 %s %s - %d (%v)", c.Request.Method, utils.MaskString(c.Request.URL.Path), c.Writer.Status(), time.Since(start))
	})

	router.Use(middleware.RateLimiter())

	// Public token endpoints live at the root so emailed links stay short.
	routes.SetupResponseRoutes(router, db, wsHandler)

	v1 := router.Group("/api/v1")
	{
		routes.SetupAuthRoutes(v1, db)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			routes.SetupUserRoutes(protected, db)
			routes.SetupGroupRoutes(protected, db)
			routes.SetupProposalRoutes(protected, db)
			routes.SetupCalendarRoutes(protected, db)
			protected.GET("/ws/proposals/:id", wsHandler.HandleWS)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// startUpkeep schedules the nightly purge of expired sessions. Response
// tokens deliberately never expire; they die with their proposal.
func startUpkeep(db *sql.DB) {
	c := cron.New()
	_, err := c.AddFunc("@daily", func() {
		result, err := db.Exec(`DELETE FROM sessions WHERE expires_at < NOW()`)
		if err != nil {
			log.Printf("❌ Session cleanup failed: %v", err)
			return
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			log.Printf("🧹 Cleaned %d expired sessions", rows)
		}
	})
	if err != nil {
		log.Printf("❌ Failed to schedule upkeep: %v", err)
		return
	}
	c.Start()
}
