package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Webhook    WebhookConfig
	Zendesk    ZendeskConfig
	LLM        LLMConfig
	Classifier ClassifierConfig
	Pipeline   PipelineConfig
	Redis      RedisConfig
	Admin      AdminConfig
	Alert      AlertConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// WebhookConfig holds the shared secret used to sign inbound deliveries.
type WebhookConfig struct {
	SigningSecret string
}

// ZendeskConfig holds ticketing API credentials.
type ZendeskConfig struct {
	Subdomain string
	Username  string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
}

// LLMConfig holds classification API settings.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ClassifierConfig tunes the cheap classification stages.
type ClassifierConfig struct {
	TokenCeiling   int
	ClosingPhrases []string
	MatchPolicy    string
}

// PipelineConfig controls background processing of accepted events.
type PipelineConfig struct {
	Timeout      time.Duration
	AutoSolveTag string
}

// RedisConfig holds Redis connection values. An empty Addr disables the resolve guard.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	DedupTTL time.Duration
}

// AdminConfig defines operator API authentication. An empty secret disables the admin routes.
type AdminConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// AlertConfig holds the optional alert sink endpoint.
type AlertConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	subdomain := os.Getenv("ZD_SUBDOMAIN")
	zendeskBase := getEnv("ZENDESK_BASE_URL", "")
	if zendeskBase == "" && subdomain != "" {
		zendeskBase = fmt.Sprintf("https://%s.zendesk.com", subdomain)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "autoresolve"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Webhook: WebhookConfig{
			SigningSecret: os.Getenv("ZD_SIGNING_SECRET"),
		},
		Zendesk: ZendeskConfig{
			Subdomain: subdomain,
			Username:  os.Getenv("ZD_USERNAME"),
			APIKey:    os.Getenv("ZD_API_KEY"),
			BaseURL:   strings.TrimSuffix(zendeskBase, "/"),
			Timeout:   getEnvAsDuration("ZENDESK_TIMEOUT", 10*time.Second),
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			Timeout: getEnvAsDuration("LLM_TIMEOUT", 15*time.Second),
		},
		Classifier: ClassifierConfig{
			TokenCeiling:   getEnvAsInt("TOKEN_CEILING", 300),
			ClosingPhrases: getEnvAsList("CLOSING_PHRASES", []string{"thank you", "thanks", "appreciate it"}),
			MatchPolicy:    strings.ToLower(getEnv("RULE_MATCH_POLICY", "exact")),
		},
		Pipeline: PipelineConfig{
			Timeout:      getEnvAsDuration("PIPELINE_TIMEOUT", 60*time.Second),
			AutoSolveTag: getEnv("AUTO_SOLVE_TAG", "auto_solve"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			DedupTTL: getEnvAsDuration("RESOLVE_DEDUP_TTL", 10*time.Minute),
		},
		Admin: AdminConfig{
			JWTSecret:             os.Getenv("ADMIN_JWT_SECRET"),
			AccessTokenTTLMinutes: getEnvAsInt("ADMIN_TOKEN_TTL_MINUTES", 60),
		},
		Alert: AlertConfig{
			WebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing required value at once.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"ZD_SIGNING_SECRET": c.Webhook.SigningSecret,
		"ZD_USERNAME":       c.Zendesk.Username,
		"ZD_API_KEY":        c.Zendesk.APIKey,
		"OPENAI_API_KEY":    c.LLM.APIKey,
	}
	for _, key := range []string{"ZD_SIGNING_SECRET", "ZD_USERNAME", "ZD_API_KEY", "OPENAI_API_KEY"} {
		if strings.TrimSpace(required[key]) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if c.Zendesk.BaseURL == "" {
		errs = append(errs, errors.New("ZD_SUBDOMAIN or ZENDESK_BASE_URL is required"))
	}
	if c.Classifier.TokenCeiling <= 0 {
		errs = append(errs, errors.New("TOKEN_CEILING must be positive"))
	}
	switch c.Classifier.MatchPolicy {
	case "exact", "substring":
	default:
		errs = append(errs, fmt.Errorf("RULE_MATCH_POLICY %q must be exact or substring", c.Classifier.MatchPolicy))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// Enabled reports whether the operator API is switched on.
func (a AdminConfig) Enabled() bool {
	return strings.TrimSpace(a.JWTSecret) != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
