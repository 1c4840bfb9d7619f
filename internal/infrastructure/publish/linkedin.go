// Package publish turns accepted records into LinkedIn UGC posts. Only
// the dry-run path is wired: it builds and logs the payload that would
// be sent, leaving OAuth and the live POST to the operator.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

// personURNPlaceholder stands in until an operator wires their own
// LinkedIn member URN through the OAuth flow.
const personURNPlaceholder = "urn:li:person:YOUR_PERSON_URN"

// Publisher implements ports.OutputConsumer against the LinkedIn UGC
// post API schema.
type Publisher struct {
	dryRun bool
	logger *slog.Logger
}

var _ ports.OutputConsumer = (*Publisher)(nil)

// NewPublisher builds the publisher. With dryRun set, payloads are
// logged instead of posted.
func NewPublisher(dryRun bool, logger *slog.Logger) *Publisher {
	return &Publisher{dryRun: dryRun, logger: logger}
}

type ugcPost struct {
	Author          string          `json:"author"`
	LifecycleState  string          `json:"lifecycleState"`
	SpecificContent specificContent `json:"specificContent"`
	Visibility      visibility      `json:"visibility"`
}

type specificContent struct {
	ShareContent shareContent `json:"com.linkedin.ugc.ShareContent"`
}

type shareContent struct {
	ShareCommentary    textValue   `json:"shareCommentary"`
	ShareMediaCategory string      `json:"shareMediaCategory"`
	Media              []mediaItem `json:"media"`
}

type mediaItem struct {
	Status      string    `json:"status"`
	Description textValue `json:"description"`
	OriginalURL string    `json:"originalUrl"`
	Title       textValue `json:"title"`
}

type textValue struct {
	Text string `json:"text"`
}

type visibility struct {
	MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
}

// Consume prepares the UGC payload for the record's LinkedIn post. In
// dry-run mode the payload is logged; live posting is not implemented
// and is reported, not failed, so a run never aborts over publishing.
func (p *Publisher) Consume(ctx context.Context, rec domain.Record) error {
	payload, err := json.MarshalIndent(buildPost(rec), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal post payload: %w", err)
	}

	if p.dryRun {
		p.logger.Info("dry run, LinkedIn post not sent",
			"paper", rec.CanonicalID, "title", rec.Title)
		p.logger.Debug("prepared post", "post", rec.LinkedInPost, "payload", string(payload))
		return nil
	}

	p.logger.Warn("live LinkedIn posting is not implemented, payload prepared only",
		"paper", rec.CanonicalID)
	return nil
}

func buildPost(rec domain.Record) ugcPost {
	return ugcPost{
		Author:         personURNPlaceholder,
		LifecycleState: "PUBLISHED",
		SpecificContent: specificContent{
			ShareContent: shareContent{
				ShareCommentary:    textValue{Text: rec.LinkedInPost},
				ShareMediaCategory: "ARTICLE",
				Media: []mediaItem{{
					Status:      "READY",
					Description: textValue{Text: rec.Title},
					OriginalURL: rec.URL,
					Title:       textValue{Text: rec.Title},
				}},
			},
		},
		Visibility: visibility{MemberNetworkVisibility: "PUBLIC"},
	}
}
