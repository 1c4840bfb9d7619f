// Package retrieval collects novel papers from the configured sources,
// growing the per-source batch size until the target is met or the
// sources stop yielding new material.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Masoud-kamali/Literature-Agent/internal/dedupe"
	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

// KnownSet answers whether a canonical identity has already been
// processed. The ledger satisfies it.
type KnownSet interface {
	IsKnown(id string) bool
}

// Options tune one collection run.
type Options struct {
	Keywords         []string
	Since            time.Time
	InitialBatchSize int
	MaxBatchSize     int
	MaxRounds        int
	MinRoundGain     int
}

// Result is the output of one collection run. Exhausted is set when the
// sources stopped yielding novel items before the target was reached.
type Result struct {
	Papers    []domain.Paper
	Rounds    int
	Exhausted bool
}

// Coordinator queries the sources in rounds and keeps only items whose
// identity is new to both the ledger and the current run.
type Coordinator struct {
	sources []ports.SourceClient
	known   KnownSet
	opts    Options
	logger  *slog.Logger
}

// NewCoordinator builds a coordinator over the enabled sources, in
// their configured merge order.
func NewCoordinator(sources []ports.SourceClient, known KnownSet, opts Options, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		sources: sources,
		known:   known,
		opts:    opts,
		logger:  logger,
	}
}

// Collect gathers up to target novel papers. Per round every source is
// queried concurrently with the current batch size; results merge in
// configured-source order, then source-returned order, so which item
// fills the last target slot is deterministic. A failing source
// contributes nothing that round; a round in which every source fails
// aborts the run. The batch size doubles between rounds up to
// MaxBatchSize, and a round gaining fewer than MinRoundGain novel items
// ends collection early with Exhausted set.
func (c *Coordinator) Collect(ctx context.Context, target int) (Result, error) {
	if target < 1 {
		return Result{}, fmt.Errorf("target must be positive, got %d", target)
	}
	if len(c.sources) == 0 {
		return Result{}, fmt.Errorf("no sources configured: %w", ports.ErrSourceUnavailable)
	}

	papers := make([]domain.Paper, 0, target)
	seen := make(map[string]struct{})
	batch := c.opts.InitialBatchSize
	rounds := 0

	for rounds < c.opts.MaxRounds && len(papers) < target {
		rounds++

		results, failed := c.searchAll(ctx, batch)
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if failed == len(c.sources) {
			return Result{}, fmt.Errorf("round %d: every source failed: %w", rounds, ports.ErrSourceUnavailable)
		}

		gain := 0
		for _, items := range results {
			for _, raw := range items {
				id, err := dedupe.Resolve(raw)
				if err != nil {
					c.logger.Warn("skipping unidentifiable item", "source", raw.Source, "error", err)
					continue
				}
				if _, dup := seen[id]; dup {
					continue
				}
				if c.known.IsKnown(id) {
					continue
				}
				seen[id] = struct{}{}
				papers = append(papers, domain.NewPaper(id, raw, time.Now().UTC()))
				gain++
			}
		}

		c.logger.Info("retrieval round done",
			"round", rounds, "batch", batch, "novel", gain, "collected", len(papers))

		if len(papers) >= target {
			break
		}
		if gain < c.opts.MinRoundGain {
			c.logger.Info("sources exhausted", "round", rounds, "gain", gain)
			break
		}

		batch *= 2
		if batch > c.opts.MaxBatchSize {
			batch = c.opts.MaxBatchSize
		}
	}

	if len(papers) > target {
		papers = papers[:target]
	}
	return Result{
		Papers:    papers,
		Rounds:    rounds,
		Exhausted: len(papers) < target,
	}, nil
}

// searchAll fans one round out across the sources. Each source writes
// into its own slot so the merge order matches configuration, not
// completion order.
func (c *Coordinator) searchAll(ctx context.Context, batch int) ([][]domain.RawPaper, int) {
	results := make([][]domain.RawPaper, len(c.sources))
	errs := make([]error, len(c.sources))

	var wg sync.WaitGroup
	for i, src := range c.sources {
		wg.Add(1)
		go func(i int, src ports.SourceClient) {
			defer wg.Done()
			items, err := src.Search(ctx, c.opts.Keywords, c.opts.Since, batch)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = items
		}(i, src)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			c.logger.Warn("source failed this round", "source", c.sources[i].Name(), "error", err)
		}
	}
	return results, failed
}
