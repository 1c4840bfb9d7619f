package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "LITERATURE_AGENT_CONFIG"
	ledgerPathEnv      = "LEDGER_PATH"
	vllmBaseURLEnv     = "VLLM_BASE_URL"
	vllmAPIKeyEnv      = "VLLM_API_KEY"
	vllmModelEnv       = "VLLM_MODEL_NAME"
	openAlexMailtoEnv  = "OPENALEX_MAILTO"
	linkedInDryRunEnv  = "LINKEDIN_DRY_RUN"
	defaultModelName   = "meta-llama/Llama-3.1-8B-Instruct"
	defaultRedditAgent = "Literature-Agent/1.0 (Research paper monitoring)"
)

// Config holds high-level settings required across the application.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	LLM        LLMConfig        `yaml:"llm"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Reflection ReflectionConfig `yaml:"reflection"`
	HTTP       HTTPConfig       `yaml:"http"`
	Sources    SourcesConfig    `yaml:"sources"`
	Publish    PublishConfig    `yaml:"publish"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PathsConfig locates the ledger file and the digest output directory.
type PathsConfig struct {
	LedgerPath string `yaml:"ledgerPath"`
	OutputDir  string `yaml:"outputDir"`
}

// LLMConfig defines how to contact the OpenAI-compatible completion API.
type LLMConfig struct {
	BaseURL        string  `yaml:"baseUrl"`
	APIKey         string  `yaml:"apiKey"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"maxTokens"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
}

// Timeout returns the per-call deadline for completion requests.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// RetrievalConfig tunes the adaptive batch loop that fills the target.
type RetrievalConfig struct {
	Keywords         []string `yaml:"keywords"`
	DaysBack         int      `yaml:"daysBack"`
	TargetPapers     int      `yaml:"targetPapers"`
	InitialBatchSize int      `yaml:"initialBatchSize"`
	MaxBatchSize     int      `yaml:"maxBatchSize"`
	MaxRounds        int      `yaml:"maxRounds"`
	MinRoundGain     int      `yaml:"minRoundGain"`
}

// ReflectionConfig bounds the critique and revision loop.
type ReflectionConfig struct {
	MaxIterations       int     `yaml:"maxIterations"`
	AcceptanceThreshold float64 `yaml:"acceptanceThreshold"`
	Temperature         float64 `yaml:"temperature"`
}

// HTTPConfig applies to every outbound source request.
type HTTPConfig struct {
	MaxRetries        int     `yaml:"maxRetries"`
	RetryDelaySeconds float64 `yaml:"retryDelaySeconds"`
	TimeoutSeconds    int     `yaml:"timeoutSeconds"`
}

// Timeout returns the per-request deadline for source calls.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// RetryDelay returns the base backoff interval between retries.
func (h HTTPConfig) RetryDelay() time.Duration {
	return time.Duration(h.RetryDelaySeconds * float64(time.Second))
}

// SourcesConfig lists the enabled providers in merge order plus their
// provider-specific settings.
type SourcesConfig struct {
	Enabled  []string       `yaml:"enabled"`
	Arxiv    ArxivConfig    `yaml:"arxiv"`
	OpenAlex OpenAlexConfig `yaml:"openalex"`
	CVF      CVFConfig      `yaml:"cvf"`
	Reddit   RedditConfig   `yaml:"reddit"`
}

// ArxivConfig points at the arXiv Atom query API.
type ArxivConfig struct {
	BaseURL      string  `yaml:"baseUrl"`
	DelaySeconds float64 `yaml:"delaySeconds"`
}

// Delay returns the pause after each arXiv request.
func (a ArxivConfig) Delay() time.Duration {
	return time.Duration(a.DelaySeconds * float64(time.Second))
}

// OpenAlexConfig points at the OpenAlex works API. Mailto joins the
// polite pool and should identify the operator.
type OpenAlexConfig struct {
	BaseURL      string  `yaml:"baseUrl"`
	Mailto       string  `yaml:"mailto"`
	DelaySeconds float64 `yaml:"delaySeconds"`
}

// Delay returns the pause after each OpenAlex request.
func (o OpenAlexConfig) Delay() time.Duration {
	return time.Duration(o.DelaySeconds * float64(time.Second))
}

// CVFConfig selects the open-access proceedings pages to scrape.
type CVFConfig struct {
	BaseURL      string   `yaml:"baseUrl"`
	Venues       []string `yaml:"venues"`
	Years        []int    `yaml:"years"`
	DelaySeconds float64  `yaml:"delaySeconds"`
}

// Delay returns the pause after each proceedings page request.
func (c CVFConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds * float64(time.Second))
}

// RedditConfig selects the subreddits monitored for tools and threads.
type RedditConfig struct {
	BaseURL      string   `yaml:"baseUrl"`
	Subreddits   []string `yaml:"subreddits"`
	UserAgent    string   `yaml:"userAgent"`
	DelaySeconds float64  `yaml:"delaySeconds"`
}

// Delay returns the pause after each subreddit listing request.
func (r RedditConfig) Delay() time.Duration {
	return time.Duration(r.DelaySeconds * float64(time.Second))
}

// PublishConfig controls the LinkedIn publishing step.
type PublishConfig struct {
	DryRun       bool `yaml:"dryRun"`
	PostMinWords int  `yaml:"postMinWords"`
	PostMaxWords int  `yaml:"postMaxWords"`
}

// LoggingConfig selects log verbosity and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load builds the effective configuration: defaults, then the YAML file
// (path argument, or LITERATURE_AGENT_CONFIG when empty), then
// environment overrides. A named file that cannot be read or parsed is
// an error rather than a silent fallback.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(ledgerPathEnv); v != "" {
		c.Paths.LedgerPath = v
	}

	if v := os.Getenv(vllmBaseURLEnv); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(vllmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(vllmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(openAlexMailtoEnv); v != "" {
		c.Sources.OpenAlex.Mailto = v
	}

	if v := os.Getenv(linkedInDryRunEnv); v != "" {
		if dryRun, err := strconv.ParseBool(v); err == nil {
			c.Publish.DryRun = dryRun
		}
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Paths.LedgerPath == "" {
		return fmt.Errorf("paths.ledgerPath must not be empty")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.baseUrl must not be empty")
	}
	if c.Retrieval.TargetPapers < 1 {
		return fmt.Errorf("retrieval.targetPapers must be at least 1, got %d", c.Retrieval.TargetPapers)
	}
	if c.Retrieval.InitialBatchSize < 1 {
		return fmt.Errorf("retrieval.initialBatchSize must be at least 1, got %d", c.Retrieval.InitialBatchSize)
	}
	if c.Retrieval.MaxBatchSize < c.Retrieval.InitialBatchSize {
		return fmt.Errorf("retrieval.maxBatchSize %d is below initialBatchSize %d",
			c.Retrieval.MaxBatchSize, c.Retrieval.InitialBatchSize)
	}
	if c.Retrieval.MaxRounds < 1 {
		return fmt.Errorf("retrieval.maxRounds must be at least 1, got %d", c.Retrieval.MaxRounds)
	}
	if c.Reflection.MaxIterations < 0 {
		return fmt.Errorf("reflection.maxIterations must not be negative, got %d", c.Reflection.MaxIterations)
	}
	if c.Reflection.AcceptanceThreshold < 0 || c.Reflection.AcceptanceThreshold > 10 {
		return fmt.Errorf("reflection.acceptanceThreshold must be within [0, 10], got %g", c.Reflection.AcceptanceThreshold)
	}
	if len(c.Sources.Enabled) == 0 {
		return fmt.Errorf("sources.enabled must name at least one source")
	}
	for _, name := range c.Sources.Enabled {
		switch name {
		case "arxiv", "openalex", "cvf", "reddit":
		default:
			return fmt.Errorf("sources.enabled names unknown source %q", name)
		}
	}
	if c.Publish.PostMinWords < 1 || c.Publish.PostMaxWords < c.Publish.PostMinWords {
		return fmt.Errorf("publish post word bounds %d..%d are not a valid range",
			c.Publish.PostMinWords, c.Publish.PostMaxWords)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			LedgerPath: "data/ledger.csv",
			OutputDir:  "output",
		},
		LLM: LLMConfig{
			BaseURL:        "http://localhost:8000/v1",
			APIKey:         "EMPTY",
			Model:          defaultModelName,
			Temperature:    0.3,
			MaxTokens:      1024,
			TimeoutSeconds: 120,
		},
		Retrieval: RetrievalConfig{
			Keywords: []string{
				"gaussian splatting",
				"3DGS",
				"3D Gaussian Splatting",
				"splatting radiance field",
				"neural gaussian",
			},
			DaysBack:         7,
			TargetPapers:     3,
			InitialBatchSize: 10,
			MaxBatchSize:     50,
			MaxRounds:        5,
			MinRoundGain:     1,
		},
		Reflection: ReflectionConfig{
			MaxIterations:       1,
			AcceptanceThreshold: 8,
			Temperature:         0.3,
		},
		HTTP: HTTPConfig{
			MaxRetries:        3,
			RetryDelaySeconds: 2,
			TimeoutSeconds:    30,
		},
		Sources: SourcesConfig{
			Enabled: []string{"arxiv", "openalex", "cvf", "reddit"},
			Arxiv: ArxivConfig{
				BaseURL:      "https://export.arxiv.org/api/query",
				DelaySeconds: 3,
			},
			OpenAlex: OpenAlexConfig{
				BaseURL:      "https://api.openalex.org",
				Mailto:       "researcher@example.edu.au",
				DelaySeconds: 0.1,
			},
			CVF: CVFConfig{
				BaseURL:      "https://openaccess.thecvf.com",
				Venues:       []string{"CVPR", "ICCV", "ECCV"},
				Years:        []int{2024, 2023, 2022},
				DelaySeconds: 2,
			},
			Reddit: RedditConfig{
				BaseURL:      "https://www.reddit.com",
				Subreddits:   []string{"PlayCanvas", "GaussianSplatting"},
				UserAgent:    defaultRedditAgent,
				DelaySeconds: 2,
			},
		},
		Publish: PublishConfig{
			DryRun:       true,
			PostMinWords: 120,
			PostMaxWords: 180,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
