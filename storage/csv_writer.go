package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"opinion-etl/models"
)

var rawOpinionHeader = []string{
	"product_id", "product_name_id", "opinion_id", "overall_rate", "grades", "date",
	"useful_votes", "not_useful_votes", "purchase_confirmed", "title", "reviewer", "scraped_at",
}

// CSVWriter appends scraped opinions, exactly as found on the page, to an
// audit file. Rows from successive runs accumulate. Safe for concurrent use.
type CSVWriter struct {
	mu   sync.Mutex
	file *os.File
	out  *csv.Writer
	now  func() time.Time
}

// NewCSVWriter opens path for appending, creating it and its directory when
// missing. The header row is written only to an empty file.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat %q: %w", path, err)
	}

	c := &CSVWriter{file: f, out: csv.NewWriter(f), now: time.Now}
	if info.Size() == 0 {
		if err := c.flushRows([][]string{rawOpinionHeader}); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return c, nil
}

// WriteRaw appends one row per opinion of every product in details.
func (c *CSVWriter) WriteRaw(details []models.ProductDetails) error {
	scrapedAt := c.now().UTC().Format(time.RFC3339)

	var rows [][]string
	for _, d := range details {
		for _, o := range d.Opinions {
			rows = append(rows, rawOpinionRow(d, o, scrapedAt))
		}
	}
	if len(rows) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushRows(rows)
}

func (c *CSVWriter) flushRows(rows [][]string) error {
	if err := c.out.WriteAll(rows); err != nil {
		return fmt.Errorf("csv: write %d rows: %w", len(rows), err)
	}
	return nil
}

// rawOpinionRow keeps every scraped value as text. The grades column holds
// the number of per-attribute grades followed by "label=grade" pairs.
func rawOpinionRow(d models.ProductDetails, o models.Opinion, scrapedAt string) []string {
	grades := strconv.Itoa(len(o.Grades))
	if len(o.Grades) > 0 {
		pairs := make([]string, len(o.Grades))
		for i, g := range o.Grades {
			pairs[i] = strings.TrimSpace(g.Attribute) + "=" + g.Grade
		}
		grades += " " + strings.Join(pairs, "; ")
	}

	return []string{
		d.ProductID, d.ProductNameID, o.OpinionID, o.OverallRate, grades, o.Date,
		o.UsefulVotes, o.NotUsefulVotes, strconv.FormatBool(o.PurchaseConfirmed),
		o.OpinionTitle, o.ReviewerName, scrapedAt,
	}
}

func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out.Flush()
	if err := c.out.Error(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}
