package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/model"
)

// Client is a thin HTTP client for the TimeSeriesStore's line-protocol
// write endpoint and Flux-style query endpoint. Shared by the enrichment
// batch writer and the retention-engine jobs; the underlying http.Client's transport
// pools connections, matching the teacher's database.Client shape adapted
// from a pgx pool to a plain HTTP client (spec.md §5, "TimeSeriesStore
// client is shared across workers").
type Client struct {
	cfg        config.StoreConfig
	httpClient *http.Client
}

// NewClient constructs a store Client.
func NewClient(cfg config.StoreConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.WriteTimeout},
	}
}

// WriteBatch writes every point in the batch as one line-protocol request.
// Points are deterministic-timestamp keyed, so a retried write after a
// partial failure is idempotent at the store (spec.md §3 invariant).
func (c *Client) WriteBatch(ctx context.Context, batch model.WriteBatch) error {
	body, err := EncodeBatch(batch.Points)
	if err != nil {
		return fmt.Errorf("encode batch %s: %w", batch.ID, err)
	}

	url := fmt.Sprintf("%s/api/v2/write?org=%s&bucket=%s&precision=ns", c.cfg.URL, c.cfg.Org, c.cfg.Bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		return fmt.Errorf("build write request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Authorization", "Token "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("write batch %s: %w", batch.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("write batch %s: store returned %d", batch.ID, resp.StatusCode)
	}
	return nil
}

// deleteRequest is the body of InfluxDB's predicate delete API.
type deleteRequest struct {
	Start     string `json:"start"`
	Stop      string `json:"stop"`
	Predicate string `json:"predicate,omitempty"`
}

// Delete removes every point in measurement within [start, stop) from the
// store, confirming a 204 or 200 response. Used by the archive job to reclaim
// cold rows once their upload to object storage is confirmed (spec.md §4.4,
// "confirm 200/201, then delete from the store").
func (c *Client) Delete(ctx context.Context, measurement string, start, stop time.Time) error {
	body, err := json.Marshal(deleteRequest{
		Start:     start.UTC().Format(time.RFC3339Nano),
		Stop:      stop.UTC().Format(time.RFC3339Nano),
		Predicate: fmt.Sprintf("_measurement=%q", measurement),
	})
	if err != nil {
		return fmt.Errorf("encode delete predicate: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/delete?org=%s&bucket=%s", c.cfg.URL, c.cfg.Org, c.cfg.Bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete %s: %w", measurement, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete %s: store returned %d", measurement, resp.StatusCode)
	}
	return nil
}

// Bucket returns the bucket this client writes to and queries, so callers
// building a RangeQuery don't need their own copy of StoreConfig.
func (c *Client) Bucket() string { return c.cfg.Bucket }

// Health reports whether the store is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("store unhealthy: %d", resp.StatusCode)
	}
	return nil
}
