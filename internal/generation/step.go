// Package generation produces the three derived texts for a discovered
// paper in one concurrent step.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

// ErrNoAbstract marks papers that cannot be generated for: without
// abstract text there is nothing to ground the outputs on.
var ErrNoAbstract = errors.New("paper has no abstract")

// GenerationError reports which draft field failed and why.
type GenerationError struct {
	Field string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Field, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Step turns one paper into a draft by issuing the three field
// completions against the chat client.
type Step struct {
	chat         ports.ChatClient
	postMinWords int
	postMaxWords int
	logger       *slog.Logger
}

// NewStep builds the generation step. The word bounds shape the
// LinkedIn post instruction.
func NewStep(chat ports.ChatClient, postMinWords, postMaxWords int, logger *slog.Logger) *Step {
	return &Step{chat: chat, postMinWords: postMinWords, postMaxWords: postMaxWords, logger: logger}
}

// Generate produces a complete draft for the paper. The three
// completions run concurrently; the first failure cancels the others
// and fails the whole step, so a draft is never partial.
func (s *Step) Generate(ctx context.Context, paper domain.Paper) (domain.Draft, error) {
	if strings.TrimSpace(paper.Abstract) == "" {
		return domain.Draft{}, fmt.Errorf("%s: %w", paper.CanonicalID, ErrNoAbstract)
	}

	var draft domain.Draft
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := s.complete(ctx, abstractRewritePrompt(paper))
		if err != nil {
			return &GenerationError{Field: "abstract_rewrite", Err: err}
		}
		draft.AbstractRewrite = text
		return nil
	})
	g.Go(func() error {
		text, err := s.complete(ctx, problemStatementPrompt(paper))
		if err != nil {
			return &GenerationError{Field: "problem_solved", Err: err}
		}
		draft.ProblemSolved = text
		return nil
	})
	g.Go(func() error {
		text, err := s.complete(ctx, linkedInPostPrompt(paper, s.postMinWords, s.postMaxWords))
		if err != nil {
			return &GenerationError{Field: "linkedin_post", Err: err}
		}
		draft.LinkedInPost = text
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Draft{}, err
	}

	s.logger.Info("draft generated", "paper", paper.CanonicalID)
	return draft, nil
}

func (s *Step) complete(ctx context.Context, prompt string) (string, error) {
	text, err := s.chat.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New("empty completion")
	}
	return text, nil
}
