// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.docent/config.yaml)
//  3. Default values
//
// The config layer is an external collaborator for the retrieval core: values
// arriving here are validated once at load and treated as trusted downstream.
//
// Error Handling:
//   - Sentinel errors for errors.Is() checks
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidBackend indicates the backend type is not supported.
	ErrInvalidBackend = errors.New("invalid backend")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimensions indicates the embedder dimension is out of range.
	ErrInvalidEmbedderDimensions = errors.New("invalid embedder dimensions")

	// ErrInvalidMaxSteps indicates the agent step cap is out of range.
	ErrInvalidMaxSteps = errors.New("invalid max steps")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidServerURL indicates the external server URL is malformed.
	ErrInvalidServerURL = errors.New("invalid server URL")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// Backend type tags used in Config.Backend.
const (
	BackendEngine    = "engine"
	BackendAssistant = "assistant"
	BackendServer    = "server"
)

// Defaults mirroring the hosted documentation stack.
const (
	// DefaultEmbedderModel is the default OpenAI embedding model.
	DefaultEmbedderModel = "text-embedding-3-small"

	// DefaultEmbedderDimensions is the output dimensionality of
	// text-embedding-3-small. The knowledge store records this value for
	// its lifetime; switching embedders without re-seeding corrupts
	// similarity comparisons.
	DefaultEmbedderDimensions = 1536

	// DefaultMaxSteps caps tool invocations per question.
	DefaultMaxSteps = 3
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Project identifies the documentation corpus this instance serves.
	Project string `mapstructure:"project" json:"project"`

	// Backend selects the answering variant: "engine" (in-process),
	// "assistant" (hosted assistant API), or "server" (external process).
	Backend string `mapstructure:"backend" json:"backend"`

	// AI provider and model configuration
	Provider  string `mapstructure:"provider" json:"provider"`     // "openai" (default), "googleai"
	ModelName string `mapstructure:"model_name" json:"model_name"` // e.g. "gpt-4o-mini", "gemini-2.5-flash"

	// Embedding configuration
	EmbedderModel      string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimensions int    `mapstructure:"embedder_dimensions" json:"embedder_dimensions"`

	// Agent loop configuration
	MaxSteps int `mapstructure:"max_steps" json:"max_steps"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Assistant proxy configuration
	AssistantBaseURL string `mapstructure:"assistant_base_url" json:"assistant_base_url"`
	DocsBaseURL      string `mapstructure:"docs_base_url" json:"docs_base_url"` // absolute base for rewriting root-relative links

	// External server configuration
	ServerURL string `mapstructure:"server_url" json:"server_url"`
}

// Load loads configuration from an explicitly constructed viper instance.
// Priority: environment variables > config file > defaults.
// "Reset for testing" is re-construction: call Load again, no global state.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".docent")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("project", "docs")
	v.SetDefault("backend", BackendEngine)

	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("model_name", "gpt-4o-mini")

	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedder_dimensions", DefaultEmbedderDimensions)

	v.SetDefault("max_steps", DefaultMaxSteps)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "docent")
	v.SetDefault("postgres_password", "docent_dev_password")
	v.SetDefault("postgres_db_name", "docent")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("server_url", "http://localhost:7777")
}

// bindEnvVariables binds environment overrides explicitly.
// Provider API keys (OPENAI_API_KEY, GEMINI_API_KEY) are read directly by the
// provider clients, not via viper; Validate() checks their presence.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("project", "DOCENT_PROJECT")
	mustBind("backend", "DOCENT_BACKEND")
	mustBind("provider", "DOCENT_PROVIDER")
	mustBind("model_name", "DOCENT_MODEL_NAME")
	mustBind("assistant_base_url", "DOCENT_ASSISTANT_BASE_URL")
	mustBind("docs_base_url", "DOCENT_DOCS_BASE_URL")
	mustBind("server_url", "DOCENT_SERVER_URL")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep the
// first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "openai/gpt-4o-mini", "googleai/gemini-2.5-flash".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderGoogleAI:
		return ProviderGoogleAI + "/" + c.ModelName
	default:
		return ProviderOpenAI + "/" + c.ModelName
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
