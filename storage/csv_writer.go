package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"f95-engagement/models"
)

var csvHeader = []string{
	"scanned_at", "page_url", "thread_id", "title", "tags",
	"views", "likes", "rating", "score", "tier",
}

// CSVWriter appends one row per scored listing per pass.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WritePass writes every listing of the report.
func (c *CSVWriter) WritePass(ctx context.Context, report *models.PassReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("csv: %w", err)
	}

	scannedAt := report.ScannedAt.Format(time.RFC3339)
	for _, l := range report.Listings {
		row := []string{
			scannedAt,
			report.PageURL,
			l.Record.ThreadID,
			l.Record.Title,
			joinTags(l.Record.Tags),
			strconv.FormatFloat(l.Record.Views, 'f', -1, 64),
			strconv.FormatFloat(l.Record.Likes, 'f', -1, 64),
			formatRating(l.Record.Rating),
			l.Score.Display(),
			strconv.Itoa(int(l.Score.Tier)),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

func joinTags(tags []int) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = strconv.Itoa(t)
	}
	return strings.Join(parts, ",")
}

func formatRating(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}
