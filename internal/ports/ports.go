package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
)

// ErrSourceUnavailable marks a provider that could not be reached or
// answered with garbage, as opposed to one that answered with zero
// results. Source clients wrap it so the retrieval coordinator can tell
// the two apart.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrUnparsableResponse marks a structured completion whose body could
// not be decoded into the expected shape. The reflection loop treats it
// as a fail-open signal, never as a fatal error.
var ErrUnparsableResponse = errors.New("unparsable model response")

// SourceClient pulls raw papers from one upstream provider. Empty
// result sets are not errors; transport or protocol failures wrap
// ErrSourceUnavailable.
type SourceClient interface {
	Name() string
	Search(ctx context.Context, keywords []string, since time.Time, limit int) ([]domain.RawPaper, error)
}

// ChatClient issues a single completion against the language-model
// server.
type ChatClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ModelName() string
}

// Critic scores a draft and lists revision actions. A reply that cannot
// be decoded surfaces as ErrUnparsableResponse.
type Critic interface {
	Critique(ctx context.Context, paper domain.Paper, draft domain.Draft) (domain.Critique, error)
}

// Reviser applies a critique to produce a new draft. A reply that
// cannot be decoded surfaces as ErrUnparsableResponse.
type Reviser interface {
	Revise(ctx context.Context, paper domain.Paper, draft domain.Draft, critique domain.Critique) (domain.Draft, error)
}

// OutputConsumer receives each finalized record exactly once per run.
type OutputConsumer interface {
	Consume(ctx context.Context, rec domain.Record) error
}
