package cli

import (
	"errors"
	"fmt"
)

// Provider names accepted by --provider and the provider config key.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
)

// Environment variables holding provider API keys.
// Keys are never read from the config file.
const (
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvDeepSeekAPIKey = "DEEPSEEK_API_KEY"
)

// Provider represents a validated completion service provider.
// Zero value is invalid and must not be used.
// Use ParseProvider to create from user input, or the pre-parsed values.
type Provider struct {
	name string
}

// Compile-time interface compliance check.
var _ fmt.Stringer = Provider{}

// ErrInvalidProvider indicates an invalid provider name was specified.
var ErrInvalidProvider = errors.New("invalid provider")

// Pre-parsed providers for use in code.
var (
	OpenAIProvider   = Provider{name: ProviderOpenAI}
	DeepSeekProvider = Provider{name: ProviderDeepSeek}
)

// providerEndpoint describes how to reach a provider through an
// OpenAI-compatible client.
type providerEndpoint struct {
	baseURL      string
	defaultModel string
	apiKeyEnv    string
}

var endpoints = map[string]providerEndpoint{
	ProviderOpenAI: {
		baseURL:      "https://api.openai.com/v1",
		defaultModel: "gpt-4o-mini",
		apiKeyEnv:    EnvOpenAIAPIKey,
	},
	ProviderDeepSeek: {
		baseURL:      "https://api.deepseek.com/v1",
		defaultModel: "deepseek-chat",
		apiKeyEnv:    EnvDeepSeekAPIKey,
	},
}

// ParseProvider validates and parses a provider name string.
// Returns ErrInvalidProvider if the name is not recognized.
func ParseProvider(s string) (Provider, error) {
	if s == "" {
		return Provider{}, fmt.Errorf("provider cannot be empty: %w", ErrInvalidProvider)
	}
	if _, ok := endpoints[s]; !ok {
		return Provider{}, fmt.Errorf("unknown provider %q (use 'openai' or 'deepseek'): %w", s, ErrInvalidProvider)
	}
	return Provider{name: s}, nil
}

// MustParseProvider parses a provider name, panicking if invalid.
// Use only for constants and tests.
func MustParseProvider(s string) Provider {
	p, err := ParseProvider(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the provider name string.
// Returns empty string for zero value.
func (p Provider) String() string {
	return p.name
}

// IsZero returns true if this is the zero value (no provider set).
func (p Provider) IsZero() bool {
	return p.name == ""
}

// IsDeepSeek returns true if this provider is DeepSeek.
func (p Provider) IsDeepSeek() bool {
	return p.name == ProviderDeepSeek
}

// IsOpenAI returns true if this provider is OpenAI.
func (p Provider) IsOpenAI() bool {
	return p.name == ProviderOpenAI
}

// OrDefault returns the provider, or OpenAIProvider if zero.
func (p Provider) OrDefault() Provider {
	if p.IsZero() {
		return OpenAIProvider
	}
	return p
}

// BaseURL returns the provider's OpenAI-compatible API root.
func (p Provider) BaseURL() string {
	return endpoints[p.OrDefault().name].baseURL
}

// DefaultModel returns the model used when none is configured.
func (p Provider) DefaultModel() string {
	return endpoints[p.OrDefault().name].defaultModel
}

// APIKeyEnv returns the environment variable that holds the provider's key.
func (p Provider) APIKeyEnv() string {
	return endpoints[p.OrDefault().name].apiKeyEnv
}
