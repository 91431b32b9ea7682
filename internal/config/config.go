package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Catalog store drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

type Configuration struct {
	Server         ServerConfig         `mapstructure:",squash"`
	Catalog        CatalogConfig        `mapstructure:",squash"`
	Logging        LoggingConfig        `mapstructure:",squash"`
	LLM            LLMConfig            `mapstructure:",squash"`
	Recommendation RecommendationConfig `mapstructure:",squash"`
}

type ServerConfig struct {
	Addr               string `mapstructure:"server_addr" validate:"required"`
	FrontendURL        string `mapstructure:"frontend_url" validate:"required"`
	AdminToken         string `mapstructure:"admin_token"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute" validate:"gte=1"`
}

type CatalogConfig struct {
	Driver      string `mapstructure:"catalog_driver" validate:"oneof=file postgres"`
	Path        string `mapstructure:"catalog_path" validate:"required_if=Driver file"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Driver postgres"`
	DocumentID  string `mapstructure:"catalog_document_id" validate:"required"`
}

type LoggingConfig struct {
	Level string `mapstructure:"log_level" validate:"omitempty,oneof=DEBUG INFO WARN WARNING ERROR debug info warn warning error"`
}

type LLMConfig struct {
	APIKey     string        `mapstructure:"llm_api_key"`
	BaseURL    string        `mapstructure:"llm_base_url" validate:"required,url"`
	Model      string        `mapstructure:"llm_model" validate:"required"`
	Timeout    time.Duration `mapstructure:"llm_timeout" validate:"gt=0"`
	MaxRetries int           `mapstructure:"llm_max_retries" validate:"gte=0"`
}

// Enabled reports whether the recommendation collaborator is configured.
func (c LLMConfig) Enabled() bool { return c.APIKey != "" }

type RecommendationConfig struct {
	MaxQuestions   int           `mapstructure:"quiz_max_questions" validate:"gte=1"`
	ScoreThreshold float64       `mapstructure:"quiz_score_threshold" validate:"gt=0"`
	SessionTTL     time.Duration `mapstructure:"quiz_session_ttl" validate:"gt=0"`
}

var defaults = map[string]any{
	"server_addr":           ":8080",
	"frontend_url":          "http://localhost:8501",
	"admin_token":           "",
	"rate_limit_per_minute": 30,
	"catalog_driver":        DriverFile,
	"catalog_path":          "data/product_data.json",
	"database_url":          "",
	"catalog_document_id":   "default",
	"log_level":             "INFO",
	"llm_api_key":           "",
	"llm_base_url":          "https://api.openai.com/v1",
	"llm_model":             "gpt-4",
	"llm_timeout":           "30s",
	"llm_max_retries":       2,
	"quiz_max_questions":    5,
	"quiz_score_threshold":  5.0,
	"quiz_session_ttl":      "30m",
}

// Load reads configuration from an optional .env file and the environment.
// Every key is the upper-cased environment variable of the same name, e.g.
// CATALOG_PATH or LLM_API_KEY.
func Load() (*Configuration, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Configuration, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Configuration) Validate() error {
	return validator.New().Struct(c)
}
