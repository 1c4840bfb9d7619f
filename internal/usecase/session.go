// Package usecase drives one full discovery and generation run.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
	"github.com/Masoud-kamali/Literature-Agent/internal/reflection"
	"github.com/Masoud-kamali/Literature-Agent/internal/retrieval"
)

// Collector gathers novel papers from the configured sources.
type Collector interface {
	Collect(ctx context.Context, target int) (retrieval.Result, error)
}

// Generator produces a complete draft for one paper.
type Generator interface {
	Generate(ctx context.Context, paper domain.Paper) (domain.Draft, error)
}

// Reflector gates a draft through the critique and revision loop.
type Reflector interface {
	Reflect(ctx context.Context, paper domain.Paper, draft domain.Draft) (reflection.Result, error)
}

// Ledger records processed papers. Append rejects duplicates; Flush
// persists atomically.
type Ledger interface {
	Append(rec domain.Record) error
	Flush() error
}

// SessionDeps wires the collaborators into the orchestration session.
// RunID names this run in the summary, logs and output files; the app
// issues one per invocation.
type SessionDeps struct {
	Collector Collector
	Generator Generator
	Reflector Reflector
	Ledger    Ledger
	Consumer  ports.OutputConsumer
	ModelName string
	RunID     string
}

// Session sequences retrieval, generation, reflection and persistence
// for one run. Papers are processed one at a time: sub-generations
// within a paper fan out, but two papers never load the model server
// concurrently.
type Session struct {
	collector Collector
	generator Generator
	reflector Reflector
	ledger    Ledger
	consumer  ports.OutputConsumer
	modelName string
	runID     string
	logger    *slog.Logger
}

// NewSession constructs the orchestration component.
func NewSession(deps SessionDeps, logger *slog.Logger) *Session {
	return &Session{
		collector: deps.Collector,
		generator: deps.Generator,
		reflector: deps.Reflector,
		ledger:    deps.Ledger,
		consumer:  deps.Consumer,
		modelName: deps.ModelName,
		runID:     deps.RunID,
		logger:    logger,
	}
}

// Summary describes how a run went.
type Summary struct {
	RunID     string
	Collected int
	Processed int
	Skipped   int
	Rounds    int
	Exhausted bool
	Duration  time.Duration
}

// Run collects up to target novel papers and processes each one to a
// ledger record. A paper whose generation fails is skipped; a duplicate
// ledger append aborts the run before anything is flushed. The ledger
// is flushed exactly once, after the last paper.
func (s *Session) Run(ctx context.Context, target int) (Summary, error) {
	start := time.Now()
	logger := s.logger.With("run", s.runID)

	logger.Info("run started", "target", target, "model", s.modelName)

	collected, err := s.collector.Collect(ctx, target)
	if err != nil {
		return Summary{}, fmt.Errorf("collect papers: %w", err)
	}
	logger.Info("papers collected",
		"count", len(collected.Papers), "rounds", collected.Rounds, "exhausted", collected.Exhausted)

	summary := Summary{
		RunID:     s.runID,
		Collected: len(collected.Papers),
		Rounds:    collected.Rounds,
		Exhausted: collected.Exhausted,
	}

	for _, paper := range collected.Papers {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}

		draft, err := s.generator.Generate(ctx, paper)
		if err != nil {
			if ctx.Err() != nil {
				return Summary{}, ctx.Err()
			}
			logger.Warn("generation failed, skipping paper",
				"paper", paper.CanonicalID, "error", err)
			summary.Skipped++
			continue
		}

		res, err := s.reflector.Reflect(ctx, paper, draft)
		if err != nil {
			return Summary{}, err
		}

		rec := domain.NewRecord(paper, res.Draft, res.Outcome, s.modelName, time.Now().UTC())
		if err := s.ledger.Append(rec); err != nil {
			return Summary{}, fmt.Errorf("append record: %w", err)
		}

		if err := s.consumer.Consume(ctx, rec); err != nil {
			logger.Warn("output consumer failed",
				"paper", paper.CanonicalID, "error", err)
		}
		summary.Processed++

		logger.Info("paper processed",
			"paper", paper.CanonicalID, "outcome", res.Outcome, "iterations", res.Iterations)
	}

	if err := s.ledger.Flush(); err != nil {
		return Summary{}, fmt.Errorf("flush ledger: %w", err)
	}

	summary.Duration = time.Since(start)
	logger.Info("run finished",
		"processed", summary.Processed, "skipped", summary.Skipped, "duration", summary.Duration)
	return summary, nil
}
