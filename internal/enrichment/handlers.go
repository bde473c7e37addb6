package enrichment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homegraph/ingestor/internal/model"
	"github.com/homegraph/ingestor/internal/validate"
	"github.com/homegraph/ingestor/internal/version"
)

// correlationHeader is the inbound header IngestionClient stamps on its
// forwarded POST, carrying the hub event's correlation id end to end.
const correlationHeader = "X-Correlation-ID"

// handleEvent validates the payload synchronously — so a malformed event is
// rejected with 400 before it ever reaches a queue — then enqueues it for
// asynchronous enrich/shape/batch. A full intake queue returns 503 rather
// than blocking the caller, per spec.md §4.2's two distinct overflow
// policies (IngestionClient drops oldest; EnrichmentService rejects new).
func (s *Server) handleEvent(c *gin.Context) {
	var raw model.RawEvent
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "malformed_payload", "detail": err.Error()},
		})
		return
	}

	if err := validate.Event(&raw); err != nil {
		if s.metrics != nil {
			s.metrics.ValidationErrors.Add(c.Request.Context(), 1)
		}
		v, _ := validate.AsValidation(err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": v.Code, "field": v.Field},
		})
		return
	}

	if s.queueDepthFraction() >= s.cfg.HighWaterMarkPercent {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{"code": "intake_queue_saturated"},
		})
		return
	}

	item := intakeItem{raw: &raw, inboundCorrelationID: c.GetHeader(correlationHeader)}
	select {
	case s.intake <- item:
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{"code": "intake_queue_saturated"},
		})
	}
}

func (s *Server) queueDepthFraction() float64 {
	if cap(s.intake) == 0 {
		return 0
	}
	return float64(len(s.intake)) / float64(cap(s.intake))
}

// handleHealth reports intake queue depth and TimeSeriesStore reachability,
// the two signals an operator needs to tell "backed up" from "down".
func (s *Server) handleHealth(c *gin.Context) {
	storeErr := s.store.Health(c.Request.Context())
	status := http.StatusOK
	storeStatus := "ok"
	if storeErr != nil {
		status = http.StatusServiceUnavailable
		storeStatus = storeErr.Error()
	}

	c.JSON(status, gin.H{
		"version":               version.Full(),
		"intake_queue_depth":    len(s.intake),
		"intake_queue_capacity": cap(s.intake),
		"store":                 storeStatus,
	})
}
