package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/generation"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

const reviserMaxTokens = 2048

// Reviser applies critique actions to produce an improved draft.
type Reviser struct {
	client *Client
	logger *slog.Logger
}

var _ ports.Reviser = (*Reviser)(nil)

// NewReviser derives a revision client from base, keeping its sampling
// temperature but widening the completion budget: the reply has to
// carry all three fields at once.
func NewReviser(base *Client, logger *slog.Logger) *Reviser {
	return &Reviser{
		client: base.withSampling(base.temperature, reviserMaxTokens),
		logger: logger,
	}
}

type revisionPayload struct {
	AbstractRewrite *string `json:"abstract_rewrite"`
	ProblemSolved   *string `json:"problem_solved"`
	LinkedInPost    *string `json:"linkedin_post"`
}

// Revise asks the model to apply the critique's revision actions.
// Fields missing from the reply keep their previous draft value; a
// reply that cannot be parsed fails with ports.ErrUnparsableResponse.
func (r *Reviser) Revise(ctx context.Context, paper domain.Paper, draft domain.Draft, critique domain.Critique) (domain.Draft, error) {
	reply, err := r.client.Complete(ctx, generation.SystemPrompt, reviserPrompt(paper, draft, critique))
	if err != nil {
		return domain.Draft{}, fmt.Errorf("reviser completion: %w", err)
	}

	var payload revisionPayload
	if err := json.Unmarshal([]byte(extractJSON(reply)), &payload); err != nil {
		return domain.Draft{}, fmt.Errorf("reviser: %w: %w", ports.ErrUnparsableResponse, err)
	}

	revised := draft
	if payload.AbstractRewrite != nil {
		revised.AbstractRewrite = *payload.AbstractRewrite
	}
	if payload.ProblemSolved != nil {
		revised.ProblemSolved = *payload.ProblemSolved
	}
	if payload.LinkedInPost != nil {
		revised.LinkedInPost = *payload.LinkedInPost
	}

	r.logger.Info("revision applied")
	return revised, nil
}
