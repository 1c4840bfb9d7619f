package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
)

const criticSystemPrompt = `You are a rigorous academic reviewer. Your role is to critique generated text for factuality, specificity, novelty framing, and adherence to style guidelines. You identify concrete issues and suggest actionable revisions.`

const criticTemplate = `Review the generated outputs for the paper below and provide a structured critique.

Paper Metadata:
Title: %s
Authors: %s
Year: %d

Original Abstract:
%s

Generated Outputs:
1. Abstract Rewrite:
%s

2. Problem Statement:
%s

3. LinkedIn Post:
%s

Evaluation Criteria:
1. Factuality: Does the text claim anything not present in the original abstract?
2. Specificity: Are technical details preserved? Is language precise?
3. Novelty Framing: Is the contribution clearly articulated?
4. Style: Does it follow Australian English and academic tone?
5. Length Constraints: Abstract rewrite ~100-150 words, problem statement 2-4 sentences, LinkedIn post 120-180 words

Provide your critique in the following JSON format:
{
  "abstract_rewrite_issues": ["issue 1", "issue 2", ...],
  "problem_solved_issues": ["issue 1", "issue 2", ...],
  "linkedin_post_issues": ["issue 1", "issue 2", ...],
  "revision_actions": ["action 1", "action 2", ...],
  "overall_score": 0-10
}

If overall_score >= 8, the outputs are acceptable. Otherwise, list specific revision actions.

Provide your critique now:`

const reviserTemplate = `Given the critique below, revise the generated outputs for the paper.

Paper Metadata:
Title: %s
Authors: %s
Year: %d

Original Abstract:
%s

Previous Outputs:
1. Abstract Rewrite:
%s

2. Problem Statement:
%s

3. LinkedIn Post:
%s

Critique:
%s

Revision Actions:
%s

Apply the revision actions and produce improved outputs. Maintain all original requirements (Australian English, academic tone, length constraints).

Provide the revised outputs in JSON format:
{
  "abstract_rewrite": "...",
  "problem_solved": "...",
  "linkedin_post": "..."
}

Write the revised outputs now:`

func criticPrompt(p domain.Paper, d domain.Draft) string {
	return fmt.Sprintf(criticTemplate,
		p.Title, p.AuthorList(), p.Year, p.Abstract,
		d.AbstractRewrite, d.ProblemSolved, d.LinkedInPost)
}

func reviserPrompt(p domain.Paper, d domain.Draft, c domain.Critique) string {
	return fmt.Sprintf(reviserTemplate,
		p.Title, p.AuthorList(), p.Year, p.Abstract,
		d.AbstractRewrite, d.ProblemSolved, d.LinkedInPost,
		renderCritique(c), renderActions(c.RevisionActions))
}

// renderCritique re-serialises the structured critique so the reviser
// sees the same JSON the critic produced.
func renderCritique(c domain.Critique) string {
	payload := critiquePayload{
		AbstractRewriteIssues: c.AbstractRewriteIssues,
		ProblemSolvedIssues:   c.ProblemSolvedIssues,
		LinkedInPostIssues:    c.LinkedInPostIssues,
		RevisionActions:       c.RevisionActions,
		OverallScore:          &c.OverallScore,
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return ""
	}
	return string(raw)
}

func renderActions(actions []string) string {
	if len(actions) == 0 {
		return "- none"
	}
	lines := make([]string, len(actions))
	for i, a := range actions {
		lines[i] = "- " + a
	}
	return strings.Join(lines, "\n")
}
