package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	AI      AIConfig      `yaml:"ai" mapstructure:"ai"`
	OCR     OCRConfig     `yaml:"ocr" mapstructure:"ocr"`
	PDF     PDFConfig     `yaml:"pdf" mapstructure:"pdf"`
	Guide   GuideConfig   `yaml:"guide" mapstructure:"guide"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Pricing PricingConfig `yaml:"pricing" mapstructure:"pricing"`
}

// AIConfig configures the chat-completion endpoint.
type AIConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"`
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"` // empty selects the provider default
	Model        string  `yaml:"model" mapstructure:"model"`
	SystemPrompt string  `yaml:"system_prompt" mapstructure:"system_prompt"`
	Temperature  float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTokens    int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Timeout returns the request timeout as a duration.
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// OCRConfig configures image text recognition.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	TesseractPath string `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	Language      string `yaml:"language" mapstructure:"language"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// PDFConfig configures PDF text-layer extraction.
type PDFConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// GuideConfig configures the downloadable guide artifact.
type GuideConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// ServerConfig configures the HTTP API. RequestTimeoutSecs bounds an API
// request, including time spent waiting for the AI client to become free.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB        int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	RatePerSec         float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst              int      `yaml:"burst" mapstructure:"burst"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// RequestTimeout returns the per-request deadline as a duration.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PricingConfig holds per-model token pricing (USD per million tokens).
type PricingConfig struct {
	Models map[string]ModelPricing `yaml:"models" mapstructure:"models"`
}

// ModelPricing holds input/output token pricing for one model.
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ErrMissingAPIKey is returned by Validate when no AI credential is configured.
var ErrMissingAPIKey = eris.New("AI API key not configured: set LAB_AI_KEY (or OPENROUTER_API_KEY)")

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("ai.key", "LAB_AI_KEY", "OPENROUTER_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind ai.key")
	}

	// Defaults
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "llama3-70b-8192")
	v.SetDefault("ai.system_prompt", "You are a helpful science teacher providing detailed explanations.")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.timeout_secs", 120)
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("ocr.provider", "tesseract")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.mistral_api_key", "")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("pdf.provider", "pdfcpu")
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("guide.output_dir", ".")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.rate_per_sec", 2.0)
	v.SetDefault("server.burst", 5)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pricing.models", map[string]any{
		"llama3-70b-8192":            map[string]any{"input": 0.59, "output": 0.79},
		"claude-haiku-4-5-20251001":  map[string]any{"input": 0.80, "output": 4.00},
		"claude-sonnet-4-5-20250929": map[string]any{"input": 3.00, "output": 15.00},
	})

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

// Validate checks settings the application cannot start without. A missing
// AI key is reported on its own as ErrMissingAPIKey; other problems are
// collected into one error. Mode "serve" also checks the HTTP settings.
func (c *Config) Validate(mode string) error {
	if strings.TrimSpace(c.AI.Key) == "" {
		return ErrMissingAPIKey
	}

	var problems []string
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		problems = append(problems, fmt.Sprintf("ai.provider %q is not one of openai, anthropic", c.AI.Provider))
	}
	if c.AI.Model == "" {
		problems = append(problems, "ai.model is required")
	}
	if c.AI.TimeoutSecs <= 0 {
		problems = append(problems, "ai.timeout_secs must be > 0")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		problems = append(problems, "ai.temperature must be between 0 and 2")
	}

	switch mode {
	case "cli":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			problems = append(problems, "server.max_upload_mb must be > 0")
		}
		if c.Server.RatePerSec <= 0 || c.Server.Burst <= 0 {
			problems = append(problems, "server.rate_per_sec and server.burst must be > 0")
		}
		if c.Server.RequestTimeoutSecs <= 0 {
			problems = append(problems, "server.request_timeout_secs must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
