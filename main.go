package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/gastosapp/gastos-api/config"
	"github.com/gastosapp/gastos-api/handlers"
	"github.com/gastosapp/gastos-api/middleware"
	"github.com/gastosapp/gastos-api/routes"
	"github.com/gastosapp/gastos-api/services"
	"github.com/gastosapp/gastos-api/store"
	"github.com/gastosapp/gastos-api/utils"
)

const appID = "gastos-app"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db, err := config.InitMongo(context.Background())
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Client().Disconnect(context.Background())

	log.Println("✅ Database connected successfully")

	st := store.New(db, appID)

	wsHandler := handlers.NewWSHandler()
	classifier := services.NewAIClassifier()
	expenseService := services.NewExpenseService(st, classifier, wsHandler)
	archiveService := services.NewArchiveService(st, st, wsHandler)

	go scheduleRecoverySweep(archiveService)

	router := gin.Default()

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	corsConfig := cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	router.Use(cors.New(corsConfig))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.SafeLog("%s %s - %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	})

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("/")
		public.Use(middleware.RateLimiter(100, time.Minute))
		routes.SetupAuthRoutes(public, st)

		v1.GET("/ws/expenses", wsHandler.HandleWS)

		protected := v1.Group("/")
		// Auth must run first so the limiter keys by user id, not client IP.
		protected.Use(middleware.AuthMiddleware(), middleware.RateLimiter(100, time.Minute))
		{
			routes.SetupExpenseRoutes(protected, expenseService)
			routes.SetupArchiveRoutes(protected, archiveService)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	utils.LogStartup("gastos-api", "1.0.0", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// scheduleRecoverySweep periodically logs users left in the
// interrupted-archival state (summary written, expenses not cleared).
func scheduleRecoverySweep(archives *services.ArchiveService) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		archives.SweepInterrupted(ctx)
	}

	sweep()
	for range ticker.C {
		sweep()
	}
}
