// Package reflection gates generated drafts through a bounded critique
// and revision loop before they are persisted.
package reflection

import (
	"context"
	"log/slog"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

// Result is the terminal state of one draft's pass through the loop.
// Iterations counts applied revisions; Score is the last parsed critique
// score, zero when no critique could be parsed.
type Result struct {
	Draft      domain.Draft
	Outcome    domain.Outcome
	Iterations int
	Score      float64
}

// Machine runs critique and revision rounds until a draft is accepted
// or the revision budget runs out. Every path accepts some draft; the
// outcome records which way it left the loop.
type Machine struct {
	critic        ports.Critic
	reviser       ports.Reviser
	maxIterations int
	threshold     float64
	logger        *slog.Logger
}

// NewMachine builds the loop with its revision budget and acceptance
// threshold.
func NewMachine(critic ports.Critic, reviser ports.Reviser, maxIterations int, threshold float64, logger *slog.Logger) *Machine {
	return &Machine{
		critic:        critic,
		reviser:       reviser,
		maxIterations: maxIterations,
		threshold:     threshold,
		logger:        logger,
	}
}

// Reflect critiques the draft, revising and re-critiquing while the
// score stays below the threshold and budget remains. It issues at most
// maxIterations+1 critiques. A critique that cannot be obtained accepts
// the current draft unreviewed; a revision that cannot be applied force
// accepts it. The only error returned is context cancellation.
func (m *Machine) Reflect(ctx context.Context, paper domain.Paper, draft domain.Draft) (Result, error) {
	current := draft
	iterations := 0
	for {
		critique, err := m.critic.Critique(ctx, paper, current)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			m.logger.Warn("critique failed, accepting draft unreviewed",
				"paper", paper.CanonicalID, "error", err)
			return Result{
				Draft:      current,
				Outcome:    domain.OutcomeAcceptedOnParseFailure,
				Iterations: iterations,
			}, nil
		}

		if critique.OverallScore >= m.threshold {
			m.logger.Info("draft accepted",
				"paper", paper.CanonicalID, "score", critique.OverallScore, "iterations", iterations)
			return Result{
				Draft:      current,
				Outcome:    domain.OutcomeAccepted,
				Iterations: iterations,
				Score:      critique.OverallScore,
			}, nil
		}

		if iterations >= m.maxIterations {
			m.logger.Warn("revision budget exhausted, force accepting",
				"paper", paper.CanonicalID, "score", critique.OverallScore, "iterations", iterations)
			return Result{
				Draft:      current,
				Outcome:    domain.OutcomeForceAccepted,
				Iterations: iterations,
				Score:      critique.OverallScore,
			}, nil
		}

		revised, err := m.reviser.Revise(ctx, paper, current, critique)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			m.logger.Warn("revision failed, force accepting current draft",
				"paper", paper.CanonicalID, "error", err)
			return Result{
				Draft:      current,
				Outcome:    domain.OutcomeForceAccepted,
				Iterations: iterations,
				Score:      critique.OverallScore,
			}, nil
		}

		current = revised
		iterations++
		m.logger.Info("draft revised",
			"paper", paper.CanonicalID, "score", critique.OverallScore, "iteration", iterations)
	}
}
