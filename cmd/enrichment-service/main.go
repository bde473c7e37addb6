// enrichment-service accepts validated events over HTTP, attaches the
// latest provider readings, shapes the result into a TimeSeriesPoint, and
// batches writes to the TimeSeriesStore.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/enrichment"
	"github.com/homegraph/ingestor/internal/provider"
	"github.com/homegraph/ingestor/internal/store"
	"github.com/homegraph/ingestor/internal/telemetry"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}
	stats := cfg.Stats()
	log.Printf("Configuration loaded: %d hub endpoints, %d providers enabled, %d materialized views",
		stats.HubEndpoints, stats.ProvidersEnabled, stats.MaterializedViews)

	metrics := telemetry.New("enrichment-service")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metrics.Shutdown(shutdownCtx)
	}()

	storeClient := store.NewClient(cfg.Store)

	providers := startProviders(ctx, cfg.Providers, metrics)

	deadLetter := enrichment.NewDeadLetterWriter(cfg.Enrichment.DeadLetterPath)
	batch := enrichment.NewBatchWriter(cfg.Enrichment, storeClient, deadLetter, metrics)
	go batch.Run(ctx)

	pipeline := enrichment.NewPipeline(cfg.Enrichment, providers, batch, metrics)
	server := enrichment.NewServer(cfg.Enrichment, pipeline, storeClient, metrics)

	go func() {
		<-ctx.Done()
		log.Println("shutting down enrichment-service")
		<-batch.Drained()
	}()

	log.Printf("enrichment-service listening on %s", cfg.Enrichment.ListenAddr)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("enrichment server error: %v", err)
	}
}

// startProviders constructs and starts one Poller per enabled provider
// entry, returning only the ones configured on (spec.md §4.3).
func startProviders(ctx context.Context, cfgs map[string]config.ProviderConfig, metrics *telemetry.Metrics) map[string]provider.Provider {
	providers := make(map[string]provider.Provider)
	for name, pc := range cfgs {
		if !pc.Enabled {
			continue
		}
		var p *provider.Poller
		switch name {
		case "weather":
			p = provider.NewWeather(pc, metrics)
		case "carbon_intensity":
			p = provider.NewCarbonIntensity(pc, metrics)
		case "energy_pricing":
			p = provider.NewEnergyPricing(pc, metrics)
		case "air_quality":
			p = provider.NewAirQuality(pc, metrics)
		case "calendar":
			p = provider.NewCalendar(pc, metrics)
		case "smart_meter":
			p = provider.NewSmartMeter(pc, metrics)
		default:
			log.Printf("unknown provider %q in configuration, skipping", name)
			continue
		}
		providerName := name
		go func() {
			if err := p.Start(ctx); err != nil {
				log.Printf("provider %q poll loop stopped: %v", providerName, err)
			}
		}()
		providers[name] = p
	}
	return providers
}
