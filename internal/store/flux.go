package store

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Row is one decoded result row from a range query.
type Row map[string]string

// RangeQuery builds a Flux-style range/filter/aggregate query for a
// downsample or tier-move window (spec.md §4.4).
type RangeQuery struct {
	Bucket         string
	Measurement    string
	Start, Stop    time.Time
	GroupBy        []string // tag keys to group by, e.g. entity_id, domain
	AggregateFuncs []string // count, mean, min, max, last
}

// Build renders the query as Flux source text.
func (q RangeQuery) Build() string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", q.Bucket)
	fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n", q.Start.UTC().Format(time.RFC3339Nano), q.Stop.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q)\n", q.Measurement)
	if len(q.GroupBy) > 0 {
		fmt.Fprintf(&b, "  |> group(columns: [%s])\n", quoteJoin(q.GroupBy))
	}
	for _, fn := range q.AggregateFuncs {
		fmt.Fprintf(&b, "  |> %s()\n", fn)
	}
	return b.String()
}

func quoteJoin(vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = strconv.Quote(v)
	}
	return strings.Join(quoted, ", ")
}

// Query executes a Flux query and decodes the store's annotated-CSV
// response into rows keyed by column header.
func (c *Client) Query(ctx context.Context, flux string) ([]Row, error) {
	url := fmt.Sprintf("%s/api/v2/query?org=%s", c.cfg.URL, c.cfg.Org)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(flux))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/vnd.flux")
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("Authorization", "Token "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query store: returned %d", resp.StatusCode)
	}
	return decodeAnnotatedCSV(resp.Body)
}

// decodeAnnotatedCSV parses a minimal subset of InfluxDB's annotated CSV:
// comment lines starting with '#' are skipped, the first non-comment line
// is the header, and every subsequent line becomes one Row.
func decodeAnnotatedCSV(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	var header []string
	var rows []Row
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if header == nil {
			header = fields
			continue
		}
		row := make(Row, len(fields))
		for i, v := range fields {
			if i < len(header) {
				row[header[i]] = v
			}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return rows, nil
}
