// ingestion-client maintains the durable WebSocket subscription to the
// home-automation hub and forwards validated events downstream to
// enrichment-service over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/hub"
	"github.com/homegraph/ingestor/internal/telemetry"
	"github.com/homegraph/ingestor/internal/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8090")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	metrics := telemetry.New("ingestion-client")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metrics.Shutdown(shutdownCtx)
	}()

	dispatcher := hub.NewDispatcher(cfg.Ingestion, metrics)
	dispatcher.Start(ctx)

	client := hub.New(cfg.Hub, dispatcher, metrics)
	if err := client.Start(ctx); err != nil {
		log.Fatalf("Failed to connect to hub: %v", err)
	}
	log.Printf("%s connected to hub", version.Full())

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		h := client.Health()
		status := http.StatusOK
		if !h.Connected {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"version":          version.Full(),
			"connected":        h.Connected,
			"authenticated":    h.Authenticated,
			"subscribed_count": h.SubscribedCount,
			"events_received":  h.EventsReceived,
			"events_forwarded": h.EventsForwarded,
			"last_event_at":    h.LastEventAt,
			"reconnect_count":  h.ReconnectCount,
			"active_endpoint":  h.ActiveEndpoint,
			"state":            h.State,
		})
	})

	server := &http.Server{Addr: ":" + httpPort, Handler: router}
	go func() {
		<-ctx.Done()
		log.Println("shutting down ingestion-client")
		client.Stop()
		dispatcher.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("HTTP health endpoint listening on :%s", httpPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("health server error: %v", err)
	}
}
