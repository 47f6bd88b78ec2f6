package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 30 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

type Config struct {
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`

	DBPath    string `yaml:"db_path"`
	RulesPath string `yaml:"rules_path"`

	SimilarityTopK      int     `yaml:"similarity_top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	CorrectionLimit     int     `yaml:"correction_limit"`

	LLMTimeoutSeconds          int `yaml:"llm_timeout_seconds"`
	SearchTimeoutSeconds       int `yaml:"search_timeout_seconds"`
	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	CacheTTLMinutes      int    `yaml:"cache_ttl_minutes"`
	CacheSweepSchedule   string `yaml:"cache_sweep_schedule"`
	IndexRebuildSchedule string `yaml:"index_rebuild_schedule"`
	IndexBootstrapLimit  int    `yaml:"index_bootstrap_limit"`

	SlackBotToken      string  `yaml:"slack_bot_token"`
	SlackReviewChannel string  `yaml:"slack_review_channel"`
	ReviewThreshold    float64 `yaml:"review_confidence_threshold"`

	ListenAddr string `yaml:"listen_addr"`
}

func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.EmbeddingModel, "EMBEDDING_MODEL")
	envOverrideInt(&cfg.EmbeddingDimensions, "EMBEDDING_DIMENSIONS")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.RulesPath, "RULES_PATH")
	envOverrideInt(&cfg.SimilarityTopK, "SIMILARITY_TOP_K")
	envOverrideFloat(&cfg.SimilarityThreshold, "SIMILARITY_THRESHOLD")
	envOverrideInt(&cfg.CorrectionLimit, "CORRECTION_LIMIT")
	envOverrideInt(&cfg.LLMTimeoutSeconds, "LLM_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.SearchTimeoutSeconds, "SEARCH_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.CacheTTLMinutes, "CACHE_TTL_MINUTES")
	envOverride(&cfg.CacheSweepSchedule, "CACHE_SWEEP_SCHEDULE")
	envOverride(&cfg.IndexRebuildSchedule, "INDEX_REBUILD_SCHEDULE")
	envOverrideInt(&cfg.IndexBootstrapLimit, "INDEX_BOOTSTRAP_LIMIT")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackReviewChannel, "SLACK_REVIEW_CHANNEL")
	envOverrideFloat(&cfg.ReviewThreshold, "REVIEW_CONFIDENCE_THRESHOLD")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")

	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "none"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.EmbeddingDimensions == 0 {
		cfg.EmbeddingDimensions = 256
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./triagebot.db"
	}
	if cfg.SimilarityTopK == 0 {
		cfg.SimilarityTopK = 5
	}
	if cfg.CorrectionLimit == 0 {
		cfg.CorrectionLimit = 3
	}
	if cfg.LLMTimeoutSeconds == 0 {
		cfg.LLMTimeoutSeconds = 8
	}
	if cfg.SearchTimeoutSeconds == 0 {
		cfg.SearchTimeoutSeconds = 5
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.CacheTTLMinutes == 0 {
		cfg.CacheTTLMinutes = 60
	}
	if cfg.CacheSweepSchedule == "" {
		cfg.CacheSweepSchedule = "@every 15m"
	}
	if cfg.IndexRebuildSchedule == "" {
		cfg.IndexRebuildSchedule = "@hourly"
	}
	if cfg.IndexBootstrapLimit == 0 {
		cfg.IndexBootstrapLimit = 500
	}
	if cfg.ReviewThreshold == 0 {
		cfg.ReviewThreshold = 0.5
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	case "none":
		log.Printf("LLM escalation disabled; classification runs on heuristics alone")
	default:
		log.Fatalf("llm_provider must be 'anthropic', 'openai' or 'none', got '%s'", cfg.LLMProvider)
	}

	if cfg.SlackBotToken != "" && cfg.SlackReviewChannel == "" {
		log.Fatalf("slack_bot_token is set but slack_review_channel is not configured")
	}
	if cfg.SlackBotToken == "" {
		log.Printf("WARNING: Slack is not configured. Low-confidence review notifications are disabled.")
	}

	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		log.Fatalf("invalid similarity_threshold '%f': must be between 0 and 1", cfg.SimilarityThreshold)
	}
	if cfg.ReviewThreshold < 0 || cfg.ReviewThreshold > 1 {
		log.Fatalf("invalid review_confidence_threshold '%f': must be between 0 and 1", cfg.ReviewThreshold)
	}
	if cfg.SimilarityTopK < 1 {
		log.Fatalf("invalid similarity_top_k '%d': must be >= 1", cfg.SimilarityTopK)
	}
	if cfg.CorrectionLimit < 1 {
		log.Fatalf("invalid correction_limit '%d': must be >= 1", cfg.CorrectionLimit)
	}
	if cfg.LLMTimeoutSeconds < 1 {
		log.Fatalf("invalid llm_timeout_seconds '%d': must be >= 1", cfg.LLMTimeoutSeconds)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.EmbeddingDimensions < 16 {
		log.Fatalf("invalid embedding_dimensions '%d': must be >= 16", cfg.EmbeddingDimensions)
	}
	if cfg.RulesPath != "" {
		if _, err := os.Stat(cfg.RulesPath); err != nil {
			log.Fatalf("invalid rules_path '%s': %v", cfg.RulesPath, err)
		}
	}

	return cfg
}

// LLMEnabled reports whether an escalation backend is configured.
func (c Config) LLMEnabled() bool {
	return c.LLMProvider == "anthropic" || c.LLMProvider == "openai"
}

// SlackEnabled reports whether review notifications are configured.
func (c Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackReviewChannel != ""
}

func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c Config) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutSeconds) * time.Second
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
