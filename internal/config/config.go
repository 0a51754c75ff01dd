package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Review ReviewConfig `yaml:"review"`
}

type LLMConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Key            string  `yaml:"key"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout is the per-call deadline, separate from the retry budget.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type ReviewConfig struct {
	Concurrency        int             `yaml:"concurrency"`
	MaxRetries         int             `yaml:"max_retries"`
	BackoffBaseMS      int             `yaml:"backoff_base_ms"`
	BackoffJitter      float64         `yaml:"backoff_jitter"`
	BatchCharBudget    int             `yaml:"batch_char_budget"`
	RelevanceThreshold float64         `yaml:"relevance_threshold"`
	RelevanceRules     []RelevanceRule `yaml:"relevance_rules"`
}

func (c ReviewConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMS) * time.Millisecond
}

// RelevanceRule is one keyword of the local pre-filter rule set. Batches
// whose summed weight stays under the threshold are skipped without a
// remote call.
type RelevanceRule struct {
	Keyword string  `yaml:"keyword"`
	Weight  float64 `yaml:"weight"`
}

const (
	defaultConcurrency     = 4
	defaultMaxRetries      = 3
	defaultBackoffBaseMS   = 500
	defaultBackoffJitter   = 0.5
	defaultBatchCharBudget = 6000
	defaultTimeoutSeconds  = 60
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a usable config when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Review.Concurrency <= 0 {
		cfg.Review.Concurrency = defaultConcurrency
	}
	if cfg.Review.MaxRetries <= 0 {
		cfg.Review.MaxRetries = defaultMaxRetries
	}
	if cfg.Review.BackoffBaseMS <= 0 {
		cfg.Review.BackoffBaseMS = defaultBackoffBaseMS
	}
	if cfg.Review.BackoffJitter <= 0 {
		cfg.Review.BackoffJitter = defaultBackoffJitter
	}
	if cfg.Review.BatchCharBudget <= 0 {
		cfg.Review.BatchCharBudget = defaultBatchCharBudget
	}
	if cfg.LLM.TimeoutSeconds <= 0 {
		cfg.LLM.TimeoutSeconds = defaultTimeoutSeconds
	}
	if len(cfg.Review.RelevanceRules) == 0 {
		cfg.Review.RelevanceRules = DefaultRelevanceRules()
	}
}

// DefaultRelevanceRules covers the clause families a contract review
// normally cares about. Weights are additive per batch.
func DefaultRelevanceRules() []RelevanceRule {
	return []RelevanceRule{
		{Keyword: "liability", Weight: 1.0},
		{Keyword: "indemn", Weight: 1.0},
		{Keyword: "terminat", Weight: 0.8},
		{Keyword: "confidential", Weight: 0.8},
		{Keyword: "warrant", Weight: 0.8},
		{Keyword: "damages", Weight: 0.8},
		{Keyword: "payment", Weight: 0.5},
		{Keyword: "penalty", Weight: 0.8},
		{Keyword: "governing law", Weight: 0.5},
		{Keyword: "intellectual property", Weight: 0.8},
		{Keyword: "assign", Weight: 0.4},
		{Keyword: "renew", Weight: 0.4},
	}
}
