package dedupe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
)

// ledgerHeader is the column layout of the ledger file. Order is part of
// the on-disk contract.
var ledgerHeader = []string{
	"canonical_id",
	"source",
	"native_id",
	"doi",
	"title",
	"authors",
	"venue",
	"year",
	"url",
	"abstract",
	"discovered_date",
	"processed_date",
	"model_name",
	"abstract_rewrite",
	"problem_solved",
	"linkedin_post",
	"reflection_outcome",
}

// CorruptLedgerError reports a ledger file that exists but cannot be
// trusted. Runs must not proceed past it: starting fresh would silently
// re-process everything the ledger was protecting against.
type CorruptLedgerError struct {
	Path string
	Err  error
}

func (e *CorruptLedgerError) Error() string {
	return fmt.Sprintf("corrupt ledger %s: %v", e.Path, e.Err)
}

func (e *CorruptLedgerError) Unwrap() error { return e.Err }

// DuplicateIDError reports an append of a canonical identifier the
// ledger already holds.
type DuplicateIDError struct {
	CanonicalID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("record %s already exists in the ledger", e.CanonicalID)
}

// Ledger is the append-only record of processed papers, loaded whole at
// startup and written back atomically on Flush. It is not safe for
// concurrent use; the session runs a single sequential writer.
type Ledger struct {
	path   string
	logger *slog.Logger
	known  map[string]struct{}
	rows   []domain.Record
}

// Open loads the ledger at path. A missing file yields an empty ledger;
// a file that exists but cannot be read or parsed yields a
// *CorruptLedgerError so the operator can repair or clear it explicitly.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	l := NewEmpty(path, logger)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("no ledger file, starting empty", "path", path)
		return l, nil
	}
	if err != nil {
		return nil, &CorruptLedgerError{Path: path, Err: err}
	}
	defer f.Close()

	if err := l.read(f); err != nil {
		return nil, &CorruptLedgerError{Path: path, Err: err}
	}

	logger.Info("ledger loaded", "path", path, "records", len(l.rows))
	return l, nil
}

// NewEmpty builds a ledger with no history. Callers opt into this
// explicitly (first run, or after clearing); Open is the normal entry.
func NewEmpty(path string, logger *slog.Logger) *Ledger {
	return &Ledger{
		path:   path,
		logger: logger,
		known:  make(map[string]struct{}),
	}
}

// IsKnown reports whether the canonical identifier has been processed.
func (l *Ledger) IsKnown(canonicalID string) bool {
	_, ok := l.known[canonicalID]
	return ok
}

// Append adds a record to the in-memory ledger. It fails with a
// *DuplicateIDError if the canonical identifier is already present;
// callers are expected to have filtered through IsKnown first.
func (l *Ledger) Append(rec domain.Record) error {
	if l.IsKnown(rec.CanonicalID) {
		return &DuplicateIDError{CanonicalID: rec.CanonicalID}
	}
	l.known[rec.CanonicalID] = struct{}{}
	l.rows = append(l.rows, rec)
	return nil
}

// Len returns the number of records held, persisted or pending.
func (l *Ledger) Len() int { return len(l.rows) }

// Path returns the file the ledger flushes to.
func (l *Ledger) Path() string { return l.path }

// Flush writes the full ledger to disk: the snapshot goes to a temp file
// in the same directory, is synced, then renamed over the target so a
// crash mid-write never leaves a truncated ledger behind.
func (l *Ledger) Flush() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.csv")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}

	if err := l.write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("sync temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp ledger: %w", err)
	}

	if err := os.Rename(tmp.Name(), l.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace ledger: %w", err)
	}
	syncDir(dir)

	l.logger.Info("ledger saved", "path", l.path, "records", len(l.rows))
	return nil
}

func (l *Ledger) read(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(ledgerHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	for i, name := range ledgerHeader {
		if header[i] != name {
			return fmt.Errorf("header column %d is %q, want %q", i, header[i], name)
		}
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		rec, err := recordFromRow(row)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if l.IsKnown(rec.CanonicalID) {
			return fmt.Errorf("line %d: duplicate canonical id %s", line, rec.CanonicalID)
		}
		l.known[rec.CanonicalID] = struct{}{}
		l.rows = append(l.rows, rec)
	}
}

func (l *Ledger) write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledgerHeader); err != nil {
		return err
	}
	for _, rec := range l.rows {
		if err := cw.Write(rowFromRecord(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func rowFromRecord(rec domain.Record) []string {
	return []string{
		rec.CanonicalID,
		string(rec.Source),
		rec.NativeID,
		rec.DOI,
		rec.Title,
		rec.Authors,
		rec.Venue,
		strconv.Itoa(rec.Year),
		rec.URL,
		rec.Abstract,
		rec.DiscoveredDate.Format(time.RFC3339),
		rec.ProcessedDate.Format(time.RFC3339),
		rec.ModelName,
		rec.AbstractRewrite,
		rec.ProblemSolved,
		rec.LinkedInPost,
		string(rec.Outcome),
	}
}

func recordFromRow(row []string) (domain.Record, error) {
	year, err := strconv.Atoi(row[7])
	if err != nil {
		return domain.Record{}, fmt.Errorf("bad year %q: %w", row[7], err)
	}
	discovered, err := time.Parse(time.RFC3339, row[10])
	if err != nil {
		return domain.Record{}, fmt.Errorf("bad discovered_date %q: %w", row[10], err)
	}
	processed, err := time.Parse(time.RFC3339, row[11])
	if err != nil {
		return domain.Record{}, fmt.Errorf("bad processed_date %q: %w", row[11], err)
	}
	if row[0] == "" {
		return domain.Record{}, fmt.Errorf("empty canonical_id")
	}

	return domain.Record{
		CanonicalID:     row[0],
		Source:          domain.Source(row[1]),
		NativeID:        row[2],
		DOI:             row[3],
		Title:           row[4],
		Authors:         row[5],
		Venue:           row[6],
		Year:            year,
		URL:             row[8],
		Abstract:        row[9],
		DiscoveredDate:  discovered,
		ProcessedDate:   processed,
		ModelName:       row[12],
		AbstractRewrite: row[13],
		ProblemSolved:   row[14],
		LinkedInPost:    row[15],
		Outcome:         domain.Outcome(row[16]),
	}, nil
}

// syncDir makes the rename durable where the filesystem supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
