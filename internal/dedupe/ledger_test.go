package dedupe

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecord(id string) domain.Record {
	ts := time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)
	return domain.Record{
		CanonicalID:     id,
		Source:          domain.SourceArxiv,
		NativeID:        id,
		Title:           "A Title, with \"quotes\"\nand a newline",
		Authors:         "Ada Lovelace; Alan Turing",
		Venue:           "arXiv",
		Year:            2025,
		URL:             "https://arxiv.org/abs/" + id,
		Abstract:        "An abstract.",
		DiscoveredDate:  ts,
		ProcessedDate:   ts.Add(time.Hour),
		ModelName:       "test-model",
		AbstractRewrite: "rewritten",
		ProblemSolved:   "the problem",
		LinkedInPost:    "a post",
		Outcome:         domain.OutcomeAccepted,
	}
}

func TestLedgerOpenMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.csv")
	l, err := Open(path, testLogger())
	if err != nil {
		t.Fatalf("Open on missing file: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("Len = %d, want 0", l.Len())
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.csv")
	l := NewEmpty(path, testLogger())

	first := sampleRecord("2501.00001")
	second := sampleRecord("2501.00002")
	if err := l.Append(first); err != nil {
		t.Fatalf("Append first: %v", err)
	}
	if err := l.Append(second); err != nil {
		t.Fatalf("Append second: %v", err)
	}
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reloaded, err := Open(path, testLogger())
	if err != nil {
		t.Fatalf("Open after Flush: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("Len = %d, want 2", reloaded.Len())
	}
	if !reloaded.IsKnown("2501.00001") || !reloaded.IsKnown("2501.00002") {
		t.Fatal("reloaded ledger lost records")
	}

	got := reloaded.rows[0]
	if !got.DiscoveredDate.Equal(first.DiscoveredDate) || !got.ProcessedDate.Equal(first.ProcessedDate) {
		t.Fatalf("round trip changed the dates: got %v/%v", got.DiscoveredDate, got.ProcessedDate)
	}
	got.DiscoveredDate, got.ProcessedDate = first.DiscoveredDate, first.ProcessedDate
	if got != first {
		t.Fatalf("round trip changed the record:\n got %+v\nwant %+v", got, first)
	}
}

func TestLedgerAppendDuplicate(t *testing.T) {
	t.Parallel()

	l := NewEmpty(filepath.Join(t.TempDir(), "ledger.csv"), testLogger())
	if err := l.Append(sampleRecord("dup")); err != nil {
		t.Fatalf("first Append: %v", err)
	}

	err := l.Append(sampleRecord("dup"))
	var dupErr *DuplicateIDError
	if !errors.As(err, &dupErr) {
		t.Fatalf("err = %v, want *DuplicateIDError", err)
	}
	if dupErr.CanonicalID != "dup" {
		t.Fatalf("CanonicalID = %q, want dup", dupErr.CanonicalID)
	}
	if l.Len() != 1 {
		t.Fatalf("Len = %d after rejected append, want 1", l.Len())
	}
}

func TestLedgerOpenCorruptFile(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{"wrong header", "id,title\nx,y\n"},
		{"truncated row", "canonical_id,source,native_id,doi,title,authors,venue,year,url,abstract,discovered_date,processed_date,model_name,abstract_rewrite,problem_solved,linkedin_post,reflection_outcome\nonly-one-field\n"},
		{"bad year", "canonical_id,source,native_id,doi,title,authors,venue,year,url,abstract,discovered_date,processed_date,model_name,abstract_rewrite,problem_solved,linkedin_post,reflection_outcome\nid,arxiv,n,d,t,a,v,notayear,u,ab,2025-11-10T12:00:00Z,2025-11-10T13:00:00Z,m,r,p,l,accepted\n"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "ledger.csv")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}

			_, err := Open(path, testLogger())
			var corrupt *CorruptLedgerError
			if !errors.As(err, &corrupt) {
				t.Fatalf("err = %v, want *CorruptLedgerError", err)
			}
			if corrupt.Path != path {
				t.Fatalf("Path = %q, want %q", corrupt.Path, path)
			}
		})
	}
}

func TestLedgerOpenEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l, err := Open(path, testLogger())
	if err != nil {
		t.Fatalf("Open on empty file: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("Len = %d, want 0", l.Len())
	}
}

func TestLedgerFlushOverwritesPreviousSnapshot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.csv")
	l := NewEmpty(path, testLogger())
	if err := l.Append(sampleRecord("one")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Flush(); err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	if err := l.Append(sampleRecord("two")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}

	reloaded, err := Open(path, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("Len = %d, want 2", reloaded.Len())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger dir holds %d files, want only the ledger", len(entries))
	}
}
