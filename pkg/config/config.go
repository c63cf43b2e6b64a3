package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var languageCodePattern = regexp.MustCompile(`^[A-Z]{2,3}$`)

// Config holds all configuration for lingua-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (database password, provider API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// MigrationsPath is where the SQL migration files live.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Redis configuration for the completeness cache (optional)
	Redis RedisConfig `yaml:"redis"`

	// Translation engine configuration
	Translation TranslationConfig `yaml:"translation"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"lingua"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"lingua_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis connection settings for the completeness cache.
// The cache is best-effort; an empty host disables it.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ProviderConfig describes one machine-translation provider endpoint.
// API keys are injected from the environment, never from YAML.
type ProviderConfig struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"` // openai | anthropic | mock
	Priority  int    `yaml:"priority"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Active    bool   `yaml:"active"`
	APIKey    string `yaml:"-"` // Injected from env by type in parseComplexFields
}

// AutoTranslateConfig holds the deployment defaults for automatic translation.
type AutoTranslateConfig struct {
	Threshold         float64 `yaml:"threshold" env:"AUTO_TRANSLATE_THRESHOLD" env-default:"0.85"`
	MinimumConfidence float64 `yaml:"minimum_confidence" env:"AUTO_TRANSLATE_MIN_CONFIDENCE" env-default:"0.5"`
	FallbackToSource  bool    `yaml:"fallback_to_source" env:"AUTO_TRANSLATE_FALLBACK_TO_SOURCE" env-default:"true"`
}

// TranslationConfig holds the translation-engine options.
type TranslationConfig struct {
	DefaultLanguage         string              `yaml:"default_language" env:"DEFAULT_LANGUAGE" env-default:"EN"`
	ReviewRequiredByDefault bool                `yaml:"review_required_by_default" env:"REVIEW_REQUIRED_BY_DEFAULT" env-default:"true"`
	MaxProviderAttempts     int                 `yaml:"max_provider_attempts" env:"MAX_PROVIDER_ATTEMPTS" env-default:"3"`
	ProviderTimeoutMs       int                 `yaml:"provider_timeout_ms" env:"PROVIDER_TIMEOUT_MS" env-default:"10000"`
	ProviderDeadlineMs      int                 `yaml:"provider_deadline_ms" env:"PROVIDER_DEADLINE_MS" env-default:"30000"`
	PendingQueryTimeoutMs   int                 `yaml:"pending_query_timeout_ms" env:"PENDING_QUERY_TIMEOUT_MS" env-default:"5000"`
	CompletenessCacheTTLMs  int                 `yaml:"completeness_cache_ttl_ms" env:"COMPLETENESS_CACHE_TTL_MS" env-default:"60000"`
	QueueWorkers            int                 `yaml:"queue_workers" env:"QUEUE_WORKERS" env-default:"4"`
	AutoTranslate           AutoTranslateConfig `yaml:"auto_translate"`
	Providers               []ProviderConfig    `yaml:"providers"`
	SeedFile                string              `yaml:"seed_file" env:"LANGUAGE_SEED_FILE" env-default:""`

	// Provider secrets - environment only
	OpenAIAPIKey    string `yaml:"-" env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"`
}

// ProviderTimeout returns the per-attempt timeout as a duration.
func (t *TranslationConfig) ProviderTimeout() time.Duration {
	return time.Duration(t.ProviderTimeoutMs) * time.Millisecond
}

// ProviderDeadline returns the fallback-chain deadline as a duration.
func (t *TranslationConfig) ProviderDeadline() time.Duration {
	return time.Duration(t.ProviderDeadlineMs) * time.Millisecond
}

// PendingQueryTimeout returns the review-queue query timeout as a duration.
func (t *TranslationConfig) PendingQueryTimeout() time.Duration {
	return time.Duration(t.PendingQueryTimeoutMs) * time.Millisecond
}

// CompletenessCacheTTL returns the completeness cache TTL as a duration.
func (t *TranslationConfig) CompletenessCacheTTL() time.Duration {
	return time.Duration(t.CompletenessCacheTTLMs) * time.Millisecond
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	c.Auth.JWKSEndpoints = parseJWKSEndpoints(c.Auth.JWKSEndpointsStr)

	// Inject provider API keys from environment by provider type.
	for i := range c.Translation.Providers {
		switch c.Translation.Providers[i].Type {
		case "openai":
			c.Translation.Providers[i].APIKey = c.Translation.OpenAIAPIKey
		case "anthropic":
			c.Translation.Providers[i].APIKey = c.Translation.AnthropicAPIKey
		}
		if c.Translation.Providers[i].TimeoutMs == 0 {
			c.Translation.Providers[i].TimeoutMs = c.Translation.ProviderTimeoutMs
		}
	}
	return nil
}

// validate checks invariants that cannot be expressed as struct tags.
func (c *Config) validate() error {
	c.Translation.DefaultLanguage = strings.ToUpper(strings.TrimSpace(c.Translation.DefaultLanguage))
	if !languageCodePattern.MatchString(c.Translation.DefaultLanguage) {
		return fmt.Errorf("default_language %q must be 2-3 uppercase letters", c.Translation.DefaultLanguage)
	}
	if c.Translation.MaxProviderAttempts < 1 {
		return fmt.Errorf("max_provider_attempts must be at least 1")
	}
	if c.Translation.AutoTranslate.Threshold < 0 || c.Translation.AutoTranslate.Threshold > 1 {
		return fmt.Errorf("auto_translate.threshold must be within [0,1]")
	}
	seen := make(map[string]bool)
	for _, p := range c.Translation.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider name must not be empty")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true
		switch p.Type {
		case "openai", "anthropic", "mock":
		default:
			return fmt.Errorf("provider %q has unknown type %q", p.Name, p.Type)
		}
	}
	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.Split(pair, "=")
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
