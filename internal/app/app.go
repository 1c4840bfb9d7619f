// Package app wires configuration to adapters and the session use case.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Masoud-kamali/Literature-Agent/internal/config"
	"github.com/Masoud-kamali/Literature-Agent/internal/dedupe"
	"github.com/Masoud-kamali/Literature-Agent/internal/generation"
	"github.com/Masoud-kamali/Literature-Agent/internal/infrastructure/httpclient"
	"github.com/Masoud-kamali/Literature-Agent/internal/infrastructure/llm"
	"github.com/Masoud-kamali/Literature-Agent/internal/infrastructure/output"
	"github.com/Masoud-kamali/Literature-Agent/internal/infrastructure/publish"
	"github.com/Masoud-kamali/Literature-Agent/internal/infrastructure/source"
	"github.com/Masoud-kamali/Literature-Agent/internal/logging"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
	"github.com/Masoud-kamali/Literature-Agent/internal/reflection"
	"github.com/Masoud-kamali/Literature-Agent/internal/retrieval"
	"github.com/Masoud-kamali/Literature-Agent/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, logger *slog.Logger) *Application {
	if logger == nil {
		logger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	return &Application{cfg: cfg, logger: logger}
}

// RunOptions adjust one invocation beyond the configuration file. Zero
// values keep the configured behaviour.
type RunOptions struct {
	Target          int
	DaysBack        int
	MaxBatch        int
	StartAtMaxBatch bool
	NoPublish       bool
	FreshLedger     bool
}

// Run executes one discovery and generation session.
func (a *Application) Run(ctx context.Context, opts RunOptions) (usecase.Summary, error) {
	cfg := a.cfg
	if opts.Target > 0 {
		cfg.Retrieval.TargetPapers = opts.Target
	}
	if opts.DaysBack > 0 {
		cfg.Retrieval.DaysBack = opts.DaysBack
	}
	if opts.MaxBatch > 0 {
		cfg.Retrieval.MaxBatchSize = opts.MaxBatch
	}
	if opts.StartAtMaxBatch {
		cfg.Retrieval.InitialBatchSize = cfg.Retrieval.MaxBatchSize
	}
	if cfg.Retrieval.InitialBatchSize > cfg.Retrieval.MaxBatchSize {
		cfg.Retrieval.InitialBatchSize = cfg.Retrieval.MaxBatchSize
	}

	ledger, err := a.openLedger(cfg.Paths.LedgerPath, opts.FreshLedger)
	if err != nil {
		return usecase.Summary{}, err
	}
	a.logger.Info("ledger loaded", "path", ledger.Path(), "records", ledger.Len())

	sources, err := a.buildSources(cfg)
	if err != nil {
		return usecase.Summary{}, err
	}

	coordinator := retrieval.NewCoordinator(sources, ledger, retrieval.Options{
		Keywords:         cfg.Retrieval.Keywords,
		Since:            time.Now().UTC().AddDate(0, 0, -cfg.Retrieval.DaysBack),
		InitialBatchSize: cfg.Retrieval.InitialBatchSize,
		MaxBatchSize:     cfg.Retrieval.MaxBatchSize,
		MaxRounds:        cfg.Retrieval.MaxRounds,
		MinRoundGain:     cfg.Retrieval.MinRoundGain,
	}, a.logger.With("component", "retrieval"))

	base := llm.NewClient(cfg.LLM, a.logger.With("component", "llm"))
	generator := generation.NewStep(base, cfg.Publish.PostMinWords, cfg.Publish.PostMaxWords,
		a.logger.With("component", "generation"))
	machine := reflection.NewMachine(
		llm.NewCritic(base, cfg.Reflection.Temperature, a.logger.With("component", "critic")),
		llm.NewReviser(base, a.logger.With("component", "reviser")),
		cfg.Reflection.MaxIterations,
		cfg.Reflection.AcceptanceThreshold,
		a.logger.With("component", "reflection"),
	)

	runID := uuid.NewString()
	writer, err := output.NewWriter(cfg.Paths.OutputDir, runID, a.logger.With("component", "output"))
	if err != nil {
		return usecase.Summary{}, err
	}

	consumer := output.Fanout{writer}
	if !opts.NoPublish {
		consumer = append(consumer, publish.NewPublisher(cfg.Publish.DryRun, a.logger.With("component", "publish")))
	}

	session := usecase.NewSession(usecase.SessionDeps{
		Collector: coordinator,
		Generator: generator,
		Reflector: machine,
		Ledger:    ledger,
		Consumer:  consumer,
		ModelName: base.ModelName(),
		RunID:     runID,
	}, a.logger.With("component", "session"))

	summary, err := session.Run(ctx, cfg.Retrieval.TargetPapers)
	if err != nil {
		return usecase.Summary{}, err
	}

	a.logger.Info("records written", "dir", writer.Dir())
	return summary, nil
}

// openLedger loads the dedup ledger. A corrupt ledger normally aborts
// the run; fresh is the operator's explicit opt-in to proceed with an
// empty one instead, accepting that every past paper may be
// re-processed.
func (a *Application) openLedger(path string, fresh bool) (*dedupe.Ledger, error) {
	logger := a.logger.With("component", "ledger")

	ledger, err := dedupe.Open(path, logger)
	if err == nil {
		return ledger, nil
	}

	var corrupt *dedupe.CorruptLedgerError
	if fresh && errors.As(err, &corrupt) {
		a.logger.Warn("ledger unreadable, starting fresh as requested", "path", path, "error", err)
		return dedupe.NewEmpty(path, logger), nil
	}
	return nil, err
}

// ClearLedger moves the current ledger aside and writes a fresh empty
// one. The backup path comes back so the operator can restore it.
func (a *Application) ClearLedger() (string, error) {
	path := a.cfg.Paths.LedgerPath

	var backup string
	if _, err := os.Stat(path); err == nil {
		backup = fmt.Sprintf("%s.%s.bak", path, time.Now().UTC().Format("20060102T150405Z"))
		if err := os.Rename(path, backup); err != nil {
			return "", fmt.Errorf("back up ledger: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("inspect ledger: %w", err)
	}

	fresh := dedupe.NewEmpty(path, a.logger.With("component", "ledger"))
	if err := fresh.Flush(); err != nil {
		return backup, fmt.Errorf("write empty ledger: %w", err)
	}
	return backup, nil
}

// Verify checks the ledger, the source wiring and the completion
// endpoint without processing anything.
func (a *Application) Verify(ctx context.Context) error {
	logger := a.logger.With("component", "verify")

	ledger, err := dedupe.Open(a.cfg.Paths.LedgerPath, logger)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	logger.Info("ledger ok", "path", ledger.Path(), "records", ledger.Len())

	sources, err := a.buildSources(a.cfg)
	if err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}
	logger.Info("sources ok", "enabled", strings.Join(names, ","))

	fetcher := httpclient.NewFetcher(a.cfg.LLM.Timeout(), 1, 0)
	modelsURL := strings.TrimSuffix(a.cfg.LLM.BaseURL, "/") + "/models"
	headers := map[string]string{"Authorization": "Bearer " + a.cfg.LLM.APIKey}
	if _, err := fetcher.Get(ctx, modelsURL, headers); err != nil {
		return fmt.Errorf("llm server: %w", err)
	}
	logger.Info("llm server ok", "baseUrl", a.cfg.LLM.BaseURL, "model", a.cfg.LLM.Model)

	return nil
}

// buildSources constructs every enabled source client in configured
// order, sharing one retrying fetcher.
func (a *Application) buildSources(cfg config.Config) ([]ports.SourceClient, error) {
	fetcher := httpclient.NewFetcher(cfg.HTTP.Timeout(), cfg.HTTP.MaxRetries, cfg.HTTP.RetryDelay())

	registry := source.NewRegistry()
	registry.Register(source.NewArxivClient(
		fetcher, cfg.Sources.Arxiv.BaseURL, cfg.Sources.Arxiv.Delay(),
		a.logger.With("component", "source.arxiv")))
	registry.Register(source.NewOpenAlexClient(
		fetcher, cfg.Sources.OpenAlex.BaseURL, cfg.Sources.OpenAlex.Mailto, cfg.Sources.OpenAlex.Delay(),
		a.logger.With("component", "source.openalex")))
	registry.Register(source.NewCVFClient(
		fetcher, cfg.Sources.CVF.BaseURL, cfg.Sources.CVF.Venues, cfg.Sources.CVF.Years, cfg.Sources.CVF.Delay(),
		a.logger.With("component", "source.cvf")))
	registry.Register(source.NewRedditClient(
		fetcher, cfg.Sources.Reddit.BaseURL, cfg.Sources.Reddit.Subreddits, cfg.Sources.Reddit.UserAgent, cfg.Sources.Reddit.Delay(),
		a.logger.With("component", "source.reddit")))

	return registry.ResolveAll(cfg.Sources.Enabled)
}
