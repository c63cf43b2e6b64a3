package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJWKSEndpoints(t *testing.T) {
	endpoints := parseJWKSEndpoints("https://auth.example.com=https://auth.example.com/.well-known/jwks.json")
	require.Len(t, endpoints, 1)
	assert.Equal(t, "https://auth.example.com/.well-known/jwks.json", endpoints["https://auth.example.com"])

	assert.Empty(t, parseJWKSEndpoints(""))
	assert.Empty(t, parseJWKSEndpoints("malformed"))
}

func TestValidateDefaultLanguage(t *testing.T) {
	cfg := &Config{}
	cfg.Translation.DefaultLanguage = "en"
	cfg.Translation.MaxProviderAttempts = 3
	cfg.Translation.AutoTranslate.Threshold = 0.85

	require.NoError(t, cfg.validate())
	assert.Equal(t, "EN", cfg.Translation.DefaultLanguage, "code should be normalized to uppercase")

	cfg.Translation.DefaultLanguage = "english"
	assert.Error(t, cfg.validate())
}

func TestValidateProviders(t *testing.T) {
	cfg := &Config{}
	cfg.Translation.DefaultLanguage = "EN"
	cfg.Translation.MaxProviderAttempts = 3
	cfg.Translation.Providers = []ProviderConfig{
		{Name: "primary", Type: "openai", Priority: 1},
		{Name: "primary", Type: "anthropic", Priority: 2},
	}
	assert.Error(t, cfg.validate(), "duplicate provider names should be rejected")

	cfg.Translation.Providers[1].Name = "secondary"
	assert.NoError(t, cfg.validate())

	cfg.Translation.Providers[1].Type = "carrier-pigeon"
	assert.Error(t, cfg.validate(), "unknown provider type should be rejected")
}

func TestAPIKeyInjection(t *testing.T) {
	cfg := &Config{}
	cfg.Translation.OpenAIAPIKey = "sk-test"
	cfg.Translation.AnthropicAPIKey = "ak-test"
	cfg.Translation.ProviderTimeoutMs = 10000
	cfg.Translation.Providers = []ProviderConfig{
		{Name: "primary", Type: "openai", Priority: 1},
		{Name: "secondary", Type: "anthropic", Priority: 2, TimeoutMs: 5000},
	}

	require.NoError(t, cfg.parseComplexFields())
	assert.Equal(t, "sk-test", cfg.Translation.Providers[0].APIKey)
	assert.Equal(t, "ak-test", cfg.Translation.Providers[1].APIKey)
	assert.Equal(t, 10000, cfg.Translation.Providers[0].TimeoutMs, "missing timeout should inherit the default")
	assert.Equal(t, 5000, cfg.Translation.Providers[1].TimeoutMs)
}
