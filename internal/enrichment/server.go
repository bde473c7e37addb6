package enrichment

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/model"
	"github.com/homegraph/ingestor/internal/store"
	"github.com/homegraph/ingestor/internal/telemetry"
)

// Server is the EnrichmentService's HTTP surface: POST /events accepts one
// RawEvent at a time from IngestionClient, GET /health reports intake queue
// depth and downstream reachability (spec.md §6.3, §6.4).
type Server struct {
	cfg      config.EnrichmentConfig
	pipeline *Pipeline
	store    *store.Client
	metrics  *telemetry.Metrics

	intake chan intakeItem

	engine     *gin.Engine
	httpServer *http.Server
}

// intakeItem pairs a RawEvent with the correlation id the caller supplied,
// carried from the request header through to the normalizer.
type intakeItem struct {
	raw                  *model.RawEvent
	inboundCorrelationID string
}

// NewServer constructs the EnrichmentService HTTP surface. The intake queue
// is sized cfg.IntakeQueue; cfg.IntakeWorkers goroutines drain it into
// pipeline.Process once Start is called.
func NewServer(cfg config.EnrichmentConfig, pipeline *Pipeline, storeClient *store.Client, metrics *telemetry.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())

	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		store:    storeClient,
		metrics:  metrics,
		intake:   make(chan intakeItem, cfg.IntakeQueue),
		engine:   e,
	}

	e.POST("/events", s.handleEvent)
	e.GET("/health", s.handleHealth)

	s.httpServer = &http.Server{Addr: cfg.ListenAddr, Handler: e}
	return s
}

// Start spawns cfg.IntakeWorkers intake workers and serves HTTP until ctx
// is cancelled, at which point it drains the intake queue before returning
// (bounded by cfg.GracefulDrainTimeout).
func (s *Server) Start(ctx context.Context) error {
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	for i := 0; i < s.cfg.IntakeWorkers; i++ {
		go s.intakeWorker(workerCtx, i)
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("enrichment server shutdown error", "error", err)
		}
		s.drain(s.cfg.GracefulDrainTimeout)
		cancelWorkers()
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	<-drained
	return nil
}

// drain waits up to timeout for the intake queue to empty, so in-flight
// POSTs accepted before shutdown still reach the batch writer.
func (s *Server) drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for len(s.intake) > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if len(s.intake) > 0 {
		slog.Warn("enrichment intake queue did not drain before shutdown", "remaining", len(s.intake))
	}
}

func (s *Server) intakeWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-s.intake:
			if !ok {
				return
			}
			if err := s.pipeline.Process(context.Background(), item.raw, item.inboundCorrelationID); err != nil {
				slog.Warn("intake worker dropped event", "worker", id, "error", err)
			}
		}
	}
}
