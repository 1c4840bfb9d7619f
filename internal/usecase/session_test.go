package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Masoud-kamali/Literature-Agent/internal/dedupe"
	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
	"github.com/Masoud-kamali/Literature-Agent/internal/reflection"
	"github.com/Masoud-kamali/Literature-Agent/internal/retrieval"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func paper(id string) domain.Paper {
	return domain.Paper{
		CanonicalID:    id,
		Source:         domain.SourceArxiv,
		Title:          "Paper " + id,
		Authors:        []string{"Alice Nguyen"},
		Venue:          "arXiv",
		Year:           2025,
		Abstract:       "An abstract for " + id,
		DiscoveredDate: time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC),
	}
}

type fakeCollector struct {
	result retrieval.Result
	err    error
}

func (f *fakeCollector) Collect(ctx context.Context, target int) (retrieval.Result, error) {
	if f.err != nil {
		return retrieval.Result{}, f.err
	}
	return f.result, nil
}

type fakeGenerator struct {
	failFor map[string]error
	calls   []string
}

func (f *fakeGenerator) Generate(ctx context.Context, p domain.Paper) (domain.Draft, error) {
	f.calls = append(f.calls, p.CanonicalID)
	if err := f.failFor[p.CanonicalID]; err != nil {
		return domain.Draft{}, err
	}
	return domain.Draft{
		AbstractRewrite: "rewrite " + p.CanonicalID,
		ProblemSolved:   "problem " + p.CanonicalID,
		LinkedInPost:    "post " + p.CanonicalID,
	}, nil
}

type fakeReflector struct {
	outcome domain.Outcome
	err     error
}

func (f *fakeReflector) Reflect(ctx context.Context, p domain.Paper, d domain.Draft) (reflection.Result, error) {
	if f.err != nil {
		return reflection.Result{}, f.err
	}
	return reflection.Result{Draft: d, Outcome: f.outcome, Score: 9}, nil
}

type memLedger struct {
	appended []domain.Record
	flushes  int
	dupID    string
}

func (l *memLedger) Append(rec domain.Record) error {
	if l.dupID != "" && rec.CanonicalID == l.dupID {
		return &dedupe.DuplicateIDError{CanonicalID: rec.CanonicalID}
	}
	l.appended = append(l.appended, rec)
	return nil
}

func (l *memLedger) Flush() error {
	l.flushes++
	return nil
}

type captureConsumer struct {
	records []domain.Record
	err     error
}

func (c *captureConsumer) Consume(ctx context.Context, rec domain.Record) error {
	if c.err != nil {
		return c.err
	}
	c.records = append(c.records, rec)
	return nil
}

var _ ports.OutputConsumer = (*captureConsumer)(nil)

func newSession(collector *fakeCollector, generator *fakeGenerator, reflector *fakeReflector, ledger *memLedger, consumer *captureConsumer) *Session {
	return NewSession(SessionDeps{
		Collector: collector,
		Generator: generator,
		Reflector: reflector,
		Ledger:    ledger,
		Consumer:  consumer,
		ModelName: "test-model",
		RunID:     "run-under-test",
	}, testLogger())
}

func TestRunProcessesCollectedPapers(t *testing.T) {
	t.Parallel()

	collector := &fakeCollector{result: retrieval.Result{
		Papers: []domain.Paper{paper("p1"), paper("p2"), paper("p3")},
		Rounds: 2,
	}}
	generator := &fakeGenerator{}
	reflector := &fakeReflector{outcome: domain.OutcomeAccepted}
	ledger := &memLedger{}
	consumer := &captureConsumer{}

	s := newSession(collector, generator, reflector, ledger, consumer)
	summary, err := s.Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.RunID != "run-under-test" {
		t.Errorf("run id = %q", summary.RunID)
	}
	if summary.Collected != 3 || summary.Processed != 3 || summary.Skipped != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Rounds != 2 || summary.Exhausted {
		t.Fatalf("rounds/exhausted = %d/%v", summary.Rounds, summary.Exhausted)
	}

	if len(ledger.appended) != 3 {
		t.Fatalf("ledger rows = %d", len(ledger.appended))
	}
	rec := ledger.appended[0]
	if rec.CanonicalID != "p1" || rec.Outcome != domain.OutcomeAccepted {
		t.Fatalf("record = %+v", rec)
	}
	if rec.ModelName != "test-model" {
		t.Errorf("model = %q", rec.ModelName)
	}
	if rec.AbstractRewrite != "rewrite p1" || rec.LinkedInPost != "post p1" {
		t.Errorf("draft fields = %q/%q", rec.AbstractRewrite, rec.LinkedInPost)
	}
	if rec.ProcessedDate.IsZero() {
		t.Error("record has no processed date")
	}

	if ledger.flushes != 1 {
		t.Fatalf("flushes = %d, want exactly one", ledger.flushes)
	}
	if len(consumer.records) != 3 {
		t.Fatalf("consumed = %d", len(consumer.records))
	}
}

func TestRunSkipsFailedGeneration(t *testing.T) {
	t.Parallel()

	collector := &fakeCollector{result: retrieval.Result{
		Papers: []domain.Paper{paper("p1"), paper("p2"), paper("p3")},
		Rounds: 1,
	}}
	generator := &fakeGenerator{failFor: map[string]error{
		"p2": errors.New("model exploded"),
	}}
	ledger := &memLedger{}

	s := newSession(collector, generator, &fakeReflector{outcome: domain.OutcomeAccepted}, ledger, &captureConsumer{})
	summary, err := s.Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Processed != 2 || summary.Skipped != 1 {
		t.Fatalf("summary = %+v, one skip must not end the run", summary)
	}
	if len(ledger.appended) != 2 {
		t.Fatalf("ledger rows = %d", len(ledger.appended))
	}
	if ledger.appended[0].CanonicalID != "p1" || ledger.appended[1].CanonicalID != "p3" {
		t.Fatalf("rows = %q/%q", ledger.appended[0].CanonicalID, ledger.appended[1].CanonicalID)
	}
	if ledger.flushes != 1 {
		t.Fatalf("flushes = %d", ledger.flushes)
	}
}

func TestRunAbortsOnDuplicateAppend(t *testing.T) {
	t.Parallel()

	collector := &fakeCollector{result: retrieval.Result{
		Papers: []domain.Paper{paper("p1"), paper("p2")},
		Rounds: 1,
	}}
	ledger := &memLedger{dupID: "p2"}

	s := newSession(collector, &fakeGenerator{}, &fakeReflector{outcome: domain.OutcomeAccepted}, ledger, &captureConsumer{})
	_, err := s.Run(context.Background(), 2)

	var dup *dedupe.DuplicateIDError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateIDError", err)
	}
	if ledger.flushes != 0 {
		t.Fatalf("flushes = %d, an aborted run must not flush", ledger.flushes)
	}
}

func TestRunToleratesConsumerFailure(t *testing.T) {
	t.Parallel()

	collector := &fakeCollector{result: retrieval.Result{
		Papers: []domain.Paper{paper("p1")},
		Rounds: 1,
	}}
	ledger := &memLedger{}
	consumer := &captureConsumer{err: errors.New("disk full")}

	s := newSession(collector, &fakeGenerator{}, &fakeReflector{outcome: domain.OutcomeAccepted}, ledger, consumer)
	summary, err := s.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if ledger.flushes != 1 {
		t.Fatalf("flushes = %d", ledger.flushes)
	}
}

func TestRunFailsWhenCollectFails(t *testing.T) {
	t.Parallel()

	collector := &fakeCollector{err: fmt.Errorf("every source failed: %w", ports.ErrSourceUnavailable)}
	ledger := &memLedger{}

	s := newSession(collector, &fakeGenerator{}, &fakeReflector{outcome: domain.OutcomeAccepted}, ledger, &captureConsumer{})
	_, err := s.Run(context.Background(), 3)
	if !errors.Is(err, ports.ErrSourceUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if ledger.flushes != 0 {
		t.Fatalf("flushes = %d", ledger.flushes)
	}
}

func TestRunAbortsOnReflectionCancellation(t *testing.T) {
	t.Parallel()

	collector := &fakeCollector{result: retrieval.Result{
		Papers: []domain.Paper{paper("p1")},
		Rounds: 1,
	}}
	ledger := &memLedger{}
	reflector := &fakeReflector{err: context.Canceled}

	s := newSession(collector, &fakeGenerator{}, reflector, ledger, &captureConsumer{})
	_, err := s.Run(context.Background(), 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(ledger.appended) != 0 || ledger.flushes != 0 {
		t.Fatalf("ledger = %d rows, %d flushes; nothing should persist", len(ledger.appended), ledger.flushes)
	}
}
