package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Backend and provider selection
	validBackends := []string{BackendEngine, BackendAssistant, BackendServer}
	if !slices.Contains(validBackends, c.Backend) {
		return fmt.Errorf("%w: %q, must be one of: %v", ErrInvalidBackend, c.Backend, validBackends)
	}

	validProviders := []string{ProviderOpenAI, ProviderGoogleAI}
	if !slices.Contains(validProviders, c.Provider) {
		return fmt.Errorf("%w: %q, must be one of: %v", ErrInvalidProvider, c.Provider, validProviders)
	}

	// 2. API key presence for the selected provider. Only the in-process
	// engine talks to a model provider directly; the proxy variants carry
	// their own credentials on the remote side.
	if c.Backend == BackendEngine {
		switch c.Provider {
		case ProviderOpenAI:
			if os.Getenv("OPENAI_API_KEY") == "" {
				return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required\n"+
					"Get your API key at: https://platform.openai.com/api-keys",
					ErrMissingAPIKey)
			}
		case ProviderGoogleAI:
			if os.Getenv("GEMINI_API_KEY") == "" {
				return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
					"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
					ErrMissingAPIKey)
			}
		}
	}

	// 3. Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// Embedder dimensions: 1 to 3072 (largest supported output dimensionality)
	if c.EmbedderDimensions < 1 || c.EmbedderDimensions > 3072 {
		return fmt.Errorf("%w: must be between 1 and 3072, got %d",
			ErrInvalidEmbedderDimensions, c.EmbedderDimensions)
	}

	// 4. Agent loop cap
	if c.MaxSteps < 1 || c.MaxSteps > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidMaxSteps, c.MaxSteps)
	}

	// 5. PostgreSQL configuration (engine backend owns the store)
	if c.Backend == BackendEngine {
		if c.PostgresHost == "" {
			return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
		}
		if c.PostgresDBName == "" {
			return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
		}

		// Modern SSL modes only; allow/prefer are deprecated (MITM vulnerable)
		validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
		if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
			return fmt.Errorf("%w: %q is not valid, must be one of: %v",
				ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
		}
	}

	// 6. External server URL
	if c.Backend == BackendServer {
		u, err := url.Parse(c.ServerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q must be an absolute http(s) URL", ErrInvalidServerURL, c.ServerURL)
		}
	}

	return nil
}
