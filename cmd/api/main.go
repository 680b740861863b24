package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"baccarat-live-backend/internal/baccarat"
	"baccarat-live-backend/internal/config"
	"baccarat-live-backend/internal/handlers"
	"baccarat-live-backend/internal/middleware"
	"baccarat-live-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ledger, err := services.NewRedisLedger(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer ledger.Close()

	authService := services.NewAuthService(ledger)
	jwtService := services.NewJWTService(cfg)
	registry := services.NewRegistry()

	hub := handlers.NewHub()
	go hub.Run()

	gameEngine := services.NewGameEngine(ledger, hub, baccarat.NewDealer(), cfg.ResolveDelay)

	authHandler := handlers.NewAuthHandler(authService, jwtService)
	userHandler := handlers.NewUserHandler(ledger)
	wsHandler := handlers.NewWebSocketHandler(hub, gameEngine, ledger, registry)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/api/register", authHandler.Register)
	router.POST("/api/login", authHandler.Login)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.POST("/logout", authHandler.Logout)
		protected.GET("/me", userHandler.GetMe)
		protected.GET("/history", userHandler.GetHistory)

		protected.GET("/ws", wsHandler.HandleWebSocket)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
