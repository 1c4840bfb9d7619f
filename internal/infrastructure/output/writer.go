// Package output writes accepted records to per-run files: a JSON
// lines feed for machines and a markdown digest per paper for people.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

const recordsFile = "records.jsonl"

// Writer implements ports.OutputConsumer against a per-run directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

var _ ports.OutputConsumer = (*Writer)(nil)

// NewWriter creates the run's directory under baseDir, named by the
// run identifier.
func NewWriter(baseDir, runID string, logger *slog.Logger) (*Writer, error) {
	dir := filepath.Join(baseDir, safeName(runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// Dir reports the run directory records are written into.
func (w *Writer) Dir() string { return w.dir }

// Consume appends the record to the run's JSON lines file and writes
// its markdown digest.
func (w *Writer) Consume(ctx context.Context, rec domain.Record) error {
	if err := w.appendJSON(rec); err != nil {
		return fmt.Errorf("append record feed: %w", err)
	}
	if err := w.writeMarkdown(rec); err != nil {
		return fmt.Errorf("write digest: %w", err)
	}
	w.logger.Debug("record written", "paper", rec.CanonicalID, "dir", w.dir)
	return nil
}

type jsonRecord struct {
	CanonicalID     string `json:"canonical_id"`
	Source          string `json:"source"`
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	Venue           string `json:"venue"`
	Year            int    `json:"year"`
	URL             string `json:"url"`
	DiscoveredDate  string `json:"discovered_date"`
	ProcessedDate   string `json:"processed_date"`
	ModelName       string `json:"model_name"`
	AbstractRewrite string `json:"abstract_rewrite"`
	ProblemSolved   string `json:"problem_solved"`
	LinkedInPost    string `json:"linkedin_post"`
	Outcome         string `json:"reflection_outcome"`
}

func (w *Writer) appendJSON(rec domain.Record) error {
	line, err := json.Marshal(jsonRecord{
		CanonicalID:     rec.CanonicalID,
		Source:          string(rec.Source),
		Title:           rec.Title,
		Authors:         rec.Authors,
		Venue:           rec.Venue,
		Year:            rec.Year,
		URL:             rec.URL,
		DiscoveredDate:  rec.DiscoveredDate.Format(time.RFC3339),
		ProcessedDate:   rec.ProcessedDate.Format(time.RFC3339),
		ModelName:       rec.ModelName,
		AbstractRewrite: rec.AbstractRewrite,
		ProblemSolved:   rec.ProblemSolved,
		LinkedInPost:    rec.LinkedInPost,
		Outcome:         string(rec.Outcome),
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(w.dir, recordsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (w *Writer) writeMarkdown(rec domain.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rec.Title)
	fmt.Fprintf(&b, "- **ID**: %s\n", rec.CanonicalID)
	fmt.Fprintf(&b, "- **Source**: %s\n", rec.Source)
	fmt.Fprintf(&b, "- **Authors**: %s\n", rec.Authors)
	fmt.Fprintf(&b, "- **Venue**: %s (%d)\n", rec.Venue, rec.Year)
	if rec.URL != "" {
		fmt.Fprintf(&b, "- **Link**: %s\n", rec.URL)
	}
	fmt.Fprintf(&b, "- **Processed**: %s by %s\n", rec.ProcessedDate.Format(time.RFC3339), rec.ModelName)
	fmt.Fprintf(&b, "- **Outcome**: %s\n", rec.Outcome)
	fmt.Fprintf(&b, "\n## Abstract Rewrite\n\n%s\n", rec.AbstractRewrite)
	fmt.Fprintf(&b, "\n## Problem Solved\n\n%s\n", rec.ProblemSolved)
	fmt.Fprintf(&b, "\n## LinkedIn Post\n\n%s\n", rec.LinkedInPost)

	name := safeName(rec.CanonicalID) + ".md"
	return os.WriteFile(filepath.Join(w.dir, name), []byte(b.String()), 0o644)
}

// safeName keeps file names to a portable character set.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, s)
}

// Fanout delivers each record to every consumer. One consumer's
// failure does not stop the others; the errors come back joined.
type Fanout []ports.OutputConsumer

var _ ports.OutputConsumer = (Fanout)(nil)

// Consume hands the record to each consumer in order.
func (f Fanout) Consume(ctx context.Context, rec domain.Record) error {
	var errs []error
	for _, c := range f {
		if err := c.Consume(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
