package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Rerank    RerankConfig    `yaml:"rerank" mapstructure:"rerank"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Eval      EvalConfig      `yaml:"eval" mapstructure:"eval"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// SearchConfig holds similarity-search service settings.
type SearchConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Collection string `yaml:"collection" mapstructure:"collection"`
}

// RerankConfig holds relevance-reranker service settings.
type RerankConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings for generation and judging.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	Model          string `yaml:"model" mapstructure:"model"`
	JudgeModel     string `yaml:"judge_model" mapstructure:"judge_model"`
	MaxTokens      int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	JudgeMaxTokens int64  `yaml:"judge_max_tokens" mapstructure:"judge_max_tokens"`
}

// PipelineConfig configures the retrieve/rerank/generate pipeline.
type PipelineConfig struct {
	// NRetrieve over-retrieves so the rerank stage has a genuine pool.
	NRetrieve int    `yaml:"n_retrieve" mapstructure:"n_retrieve"`
	TopK      int    `yaml:"top_k" mapstructure:"top_k"`
	LogPath   string `yaml:"log_path" mapstructure:"log_path"`
}

// EvalConfig configures the evaluation runner and enrichment pass.
type EvalConfig struct {
	QueriesPath     string `yaml:"queries_path" mapstructure:"queries_path"`
	OutputPath      string `yaml:"output_path" mapstructure:"output_path"`
	WorstN          int    `yaml:"worst_n" mapstructure:"worst_n"`
	JudgeDelayMS    int    `yaml:"judge_delay_ms" mapstructure:"judge_delay_ms"`
	CitationPattern string `yaml:"citation_pattern" mapstructure:"citation_pattern"`
}

// StoreConfig configures the optional run store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RAGEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("search.base_url", "http://localhost:8901")
	v.SetDefault("search.collection", "space_debris_rag")
	v.SetDefault("rerank.base_url", "http://localhost:8902")
	v.SetDefault("rerank.model", "cross-encoder/ms-marco-MiniLM-L-6-v2")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.judge_model", "claude-opus-4-6")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.judge_max_tokens", 500)
	v.SetDefault("pipeline.n_retrieve", 20)
	v.SetDefault("pipeline.top_k", 10)
	v.SetDefault("pipeline.log_path", "logs/rag_queries.jsonl")
	v.SetDefault("eval.queries_path", "eval/queries.json")
	v.SetDefault("eval.output_path", "logs/eval_results.jsonl")
	v.SetDefault("eval.worst_n", 5)
	v.SetDefault("eval.judge_delay_ms", 500)
	v.SetDefault("eval.citation_pattern", `\((\w+\d{4}),\s*(sec[\w._]+)\)`)
	v.SetDefault("store.driver", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
