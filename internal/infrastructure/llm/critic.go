package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

const criticMaxTokens = 1024

// missingScoreFallback stands in when the critique JSON parses but
// carries no overall_score. Below the acceptance threshold, so such
// critiques lead to a revision rather than a silent accept.
const missingScoreFallback = 5

// Critic asks the model to review a draft and return a structured
// verdict.
type Critic struct {
	client *Client
	logger *slog.Logger
}

var _ ports.Critic = (*Critic)(nil)

// NewCritic derives a review client from base with its own sampling
// temperature and a tighter completion budget.
func NewCritic(base *Client, temperature float64, logger *slog.Logger) *Critic {
	return &Critic{
		client: base.withSampling(temperature, criticMaxTokens),
		logger: logger,
	}
}

type critiquePayload struct {
	AbstractRewriteIssues []string `json:"abstract_rewrite_issues"`
	ProblemSolvedIssues   []string `json:"problem_solved_issues"`
	LinkedInPostIssues    []string `json:"linkedin_post_issues"`
	RevisionActions       []string `json:"revision_actions"`
	OverallScore          *float64 `json:"overall_score"`
}

// Critique reviews the draft against the paper's abstract. A reply that
// cannot be parsed as critique JSON fails with
// ports.ErrUnparsableResponse.
func (c *Critic) Critique(ctx context.Context, paper domain.Paper, draft domain.Draft) (domain.Critique, error) {
	reply, err := c.client.Complete(ctx, criticSystemPrompt, criticPrompt(paper, draft))
	if err != nil {
		return domain.Critique{}, fmt.Errorf("critic completion: %w", err)
	}

	var payload critiquePayload
	if err := json.Unmarshal([]byte(extractJSON(reply)), &payload); err != nil {
		return domain.Critique{}, fmt.Errorf("critic: %w: %w", ports.ErrUnparsableResponse, err)
	}

	score := float64(missingScoreFallback)
	if payload.OverallScore != nil {
		score = *payload.OverallScore
	}

	critique := domain.Critique{
		AbstractRewriteIssues: payload.AbstractRewriteIssues,
		ProblemSolvedIssues:   payload.ProblemSolvedIssues,
		LinkedInPostIssues:    payload.LinkedInPostIssues,
		RevisionActions:       payload.RevisionActions,
		OverallScore:          score,
	}

	c.logger.Info("critique received", "score", score, "actions", len(critique.RevisionActions))
	return critique, nil
}
