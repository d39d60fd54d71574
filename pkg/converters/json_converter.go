package converters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/feichai0017/idrouter/internal/models"
)

// BatchReport is the JSON summary of one batch run.
type BatchReport struct {
	BatchID     string                  `json:"batchId"`
	Mode        string                  `json:"mode"`
	Source      string                  `json:"source,omitempty"`
	Destination string                  `json:"destination"`
	Status      models.ProcessingStatus `json:"status"`
	StartedAt   string                  `json:"startedAt"`
	FinishedAt  string                  `json:"finishedAt"`
	DurationMs  int64                   `json:"durationMs"`
	Stats       models.ProcessingStats  `json:"stats"`
	Documents   []models.DocumentResult `json:"documents"`
	Identifiers map[string]int          `json:"identifiers"`
}

// JSONConverter collects batch events into a BatchReport.
type JSONConverter struct {
	report  BatchReport
	started time.Time
}

func NewJSONConverter(mode, source, destination string) *JSONConverter {
	return &JSONConverter{
		report: BatchReport{
			Mode:        mode,
			Source:      source,
			Destination: destination,
			Status:      models.StatusRunning,
			Documents:   make([]models.DocumentResult, 0),
			Identifiers: make(map[string]int),
		},
		started: time.Now(),
	}
}

// Observe folds one event into the report.
func (c *JSONConverter) Observe(ev models.Event) {
	if c.report.BatchID == "" {
		c.report.BatchID = ev.BatchID
	}
	switch ev.Kind {
	case models.EventDocument:
		if ev.Result == nil {
			return
		}
		c.report.Documents = append(c.report.Documents, *ev.Result)
		if ev.Result.Identifier != "" {
			c.report.Identifiers[ev.Result.Identifier]++
		}
	case models.EventSummary:
		if ev.Stats != nil {
			c.report.Stats = *ev.Stats
		}
	}
}

// Convert finalizes the report. runErr is the error the batch returned.
func (c *JSONConverter) Convert(runErr error) *BatchReport {
	finished := time.Now()
	report := c.report
	report.StartedAt = models.FormatTime(c.started)
	report.FinishedAt = models.FormatTime(finished)
	report.DurationMs = finished.Sub(c.started).Milliseconds()
	switch {
	case runErr == nil:
		report.Status = models.StatusCompleted
	case errors.Is(runErr, context.Canceled):
		report.Status = models.StatusCancelled
	default:
		report.Status = models.StatusFailed
	}
	return &report
}

// Encode writes report as indented JSON.
func Encode(w io.Writer, report *BatchReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteFile writes report to path, creating parent directories.
func WriteFile(path string, report *BatchReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := Encode(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
