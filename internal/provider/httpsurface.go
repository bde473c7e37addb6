package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPSurface exposes GET /health and GET /latest for one or more
// providers sharing a process, per spec.md §6.4.
type HTTPSurface struct {
	engine *gin.Engine
	server *http.Server
}

// NewHTTPSurface builds the shared mini-server. addr is the bind address;
// providers is keyed by URL path segment (e.g. "weather" → /weather/health).
func NewHTTPSurface(addr string, providers map[string]Provider) *HTTPSurface {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())

	for name, p := range providers {
		p := p
		group := e.Group("/" + name)
		group.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, p.Health())
		})
		group.GET("/latest", func(c *gin.Context) {
			c.JSON(http.StatusOK, p.Latest())
		})
	}

	return &HTTPSurface{
		engine: e,
		server: &http.Server{Addr: addr, Handler: e},
	}
}

// Start serves until ctx is cancelled.
func (s *HTTPSurface) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
