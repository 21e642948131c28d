package config

import (
	"fmt"
	"os"
	"strings"
)

// validSSLModes per libpq documentation.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration and fails fast with sentinel errors.
// Called by Load; safe to call again after manual mutation.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	for _, m := range []struct {
		name  string
		value string
	}{
		{"turn_model", c.TurnModel},
		{"synthesis_model", c.SynthesisModel},
		{"generation_model", c.GenerationModel},
		{"generation_fallback_model", c.GenerationFallbackModel},
	} {
		if strings.TrimSpace(m.value) == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidModelName, m.name)
		}
	}

	if c.FreeTierQuota <= 0 {
		return fmt.Errorf("%w: free_tier_quota must be positive, got %d", ErrInvalidQuota, c.FreeTierQuota)
	}
	if c.ProTierQuota <= 0 {
		return fmt.Errorf("%w: pro_tier_quota must be positive, got %d", ErrInvalidQuota, c.ProTierQuota)
	}
	if c.ProTierQuota < c.FreeTierQuota {
		return fmt.Errorf("%w: pro_tier_quota (%d) below free_tier_quota (%d)",
			ErrInvalidQuota, c.ProTierQuota, c.FreeTierQuota)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

// ValidateServe performs the additional checks required before serving
// traffic. GEMINI_API_KEY is consumed directly by the Genkit plugin, so
// its absence must be caught here, before any network call is attempted.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required", ErrMissingAPIKey)
	}
	return nil
}
