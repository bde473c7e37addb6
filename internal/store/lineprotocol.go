// Package store is the TimeSeriesStore client: line-protocol writes and
// Flux-style range queries over a plain HTTP API (spec.md §2, §6.2),
// grounded in the wire format documented by the retrieval pack's
// ClusterCockpit line-protocol decoder:
//
//	<measurement>[,tag=val...] field=value[,field=value...] [timestamp]
package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/homegraph/ingestor/internal/model"
)

// EncodePoint renders one TimeSeriesPoint as a single line-protocol line,
// nanosecond timestamp trailing as the wire format requires. Tags are
// emitted in sorted key order so repeated encodes of the same point are
// byte-identical — load-bearing for the batch-flush idempotence property.
func EncodePoint(p model.TimeSeriesPoint) (string, error) {
	if p.Measurement == "" {
		return "", fmt.Errorf("line protocol: measurement is required")
	}
	var b strings.Builder
	b.WriteString(escapeMeasurement(p.Measurement))

	tagKeys := make([]string, 0, len(p.Tags))
	for k := range p.Tags {
		tagKeys = append(tagKeys, k)
	}
	sort.Strings(tagKeys)
	for _, k := range tagKeys {
		v := p.Tags[k]
		if v == "" {
			continue // empty tags are omitted rather than written blank
		}
		b.WriteByte(',')
		b.WriteString(escapeTag(k))
		b.WriteByte('=')
		b.WriteString(escapeTag(v))
	}

	fieldKeys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		fieldKeys = append(fieldKeys, k)
	}
	sort.Strings(fieldKeys)
	if len(fieldKeys) == 0 {
		return "", fmt.Errorf("line protocol: at least one field is required")
	}

	b.WriteByte(' ')
	for i, k := range fieldKeys {
		if i > 0 {
			b.WriteByte(',')
		}
		val, err := encodeFieldValue(p.Fields[k])
		if err != nil {
			return "", fmt.Errorf("field %q: %w", k, err)
		}
		b.WriteString(escapeTag(k))
		b.WriteByte('=')
		b.WriteString(val)
	}

	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(p.Timestamp.UnixNano(), 10))

	return b.String(), nil
}

// EncodeBatch renders every point in the batch as newline-separated
// line-protocol, the body shape the store's write endpoint accepts.
func EncodeBatch(points []model.TimeSeriesPoint) (string, error) {
	lines := make([]string, 0, len(points))
	for i, p := range points {
		line, err := EncodePoint(p)
		if err != nil {
			return "", fmt.Errorf("point %d: %w", i, err)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func encodeFieldValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return `"` + strings.ReplaceAll(val, `"`, `\"`) + `"`, nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 64), nil
	case int:
		return strconv.FormatInt(int64(val), 10) + "i", nil
	case int64:
		return strconv.FormatInt(val, 10) + "i", nil
	case nil:
		return "", fmt.Errorf("nil field value")
	default:
		// Complex values (e.g. a provider's nested forecast array) are
		// serialized as a quoted string of their default %v formatting
		// rather than dropped, so enrichment never silently loses data.
		return fmt.Sprintf("%q", fmt.Sprintf("%v", val)), nil
	}
}

func escapeMeasurement(s string) string {
	s = strings.ReplaceAll(s, ",", `\,`)
	return strings.ReplaceAll(s, " ", `\ `)
}

func escapeTag(s string) string {
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "=", `\=`)
	return strings.ReplaceAll(s, " ", `\ `)
}
