package enrichment

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/homegraph/ingestor/internal/model"
)

// deadLetterRotateSize is the size threshold at which the active
// dead-letter file is rotated to a timestamped sibling, per SPEC_FULL's
// supplemented dead-letter format (spec.md §9 flags this as unspecified).
const deadLetterRotateSize = 100 * 1024 * 1024

// deadLetterEntry is one line of the dead-letter log: a batch that
// exhausted its flush retries, kept for human inspection or replay.
type deadLetterEntry struct {
	BatchID     string                  `json:"batch_id"`
	AttemptedAt time.Time               `json:"attempted_at"`
	Points      []model.TimeSeriesPoint `json:"points"`
	LastError   string                  `json:"last_error"`
}

// DeadLetterWriter appends one JSON object per line to a rotating file.
type DeadLetterWriter struct {
	path string
	mu   sync.Mutex
}

// NewDeadLetterWriter constructs a writer targeting path.
func NewDeadLetterWriter(path string) *DeadLetterWriter {
	return &DeadLetterWriter{path: path}
}

// Write appends batch and lastErr as one dead-letter line, rotating the
// file first if it has grown past deadLetterRotateSize.
func (w *DeadLetterWriter) Write(batch model.WriteBatch, lastErr error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfNeeded(); err != nil {
		return fmt.Errorf("rotate dead-letter log: %w", err)
	}

	entry := deadLetterEntry{
		BatchID:     batch.ID,
		AttemptedAt: time.Now().UTC(),
		Points:      batch.Points,
	}
	if lastErr != nil {
		entry.LastError = lastErr.Error()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dead-letter entry: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open dead-letter log: %w", err)
	}
	defer f.Close()

	_, err = f.Write(line)
	return err
}

func (w *DeadLetterWriter) rotateIfNeeded() error {
	info, err := os.Stat(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < deadLetterRotateSize {
		return nil
	}
	rotated := fmt.Sprintf("%s.%d", w.path, time.Now().UTC().Unix())
	return os.Rename(w.path, rotated)
}
