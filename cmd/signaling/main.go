package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peerlink/signaling/config"
	"github.com/peerlink/signaling/internal/bridge"
	"github.com/peerlink/signaling/internal/handlers"
	"github.com/peerlink/signaling/internal/presence"
	"github.com/peerlink/signaling/internal/redis"
	"github.com/peerlink/signaling/internal/signaling"
)

func main() {
	// Load configuration
	cfg := config.Load()

	registry := signaling.NewRegistry()

	// Optional Redis presence mirror. The relay is fully functional
	// without it, so a missing Redis only costs external visibility.
	var store *presence.Store
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		store = presence.New(client)
		log.Println("Redis connection established")
	}

	// Optional upstream backend bridge.
	var br *bridge.Bridge
	if cfg.Backend.URL != "" {
		br = bridge.New(bridge.Config{
			URL:           cfg.Backend.URL,
			JWTSecret:     cfg.Backend.JWTSecret,
			RetryInterval: cfg.Backend.RetryInterval,
		}, registry)
		br.Start()
		log.Printf("Backend bridge targeting %s", cfg.Backend.URL)
	}

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global CORS middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Relay-server credentials for clients
	router.GET("/turn-credentials", handlers.TURNCredentials(cfg.TURN))

	// WebSocket signaling endpoint
	ws := &handlers.SignalingHandler{
		Registry: registry,
		Presence: store,
		Bridge:   br,
	}
	router.GET("/ws/signal", ws.Handle)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting signaling server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down")
	br.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
