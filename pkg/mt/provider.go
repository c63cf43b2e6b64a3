// Package mt provides the machine-translation provider gateway: a uniform
// façade over external translation services with priority ordering,
// per-provider circuit breaking and fallback.
package mt

import "context"

// Request is one translation request routed through the gateway.
type Request struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
	// Context is an optional delivery hint (channel, audience) forwarded
	// to the provider prompt.
	Context string
	// MaxLength caps the translated text length; zero means unbounded.
	MaxLength int
}

// Result is a completed translation. Confidence is normalized to [0,1].
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Provider   string  `json:"provider"`
}

// Detection is the outcome of language detection.
type Detection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// ProviderHealth is the advisory health of one provider, derived from its
// circuit breaker. It is process-local.
type ProviderHealth struct {
	Name                string `json:"name"`
	State               string `json:"state"`
	Up                  bool   `json:"up"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
}

// Provider is one external machine-translation service.
type Provider interface {
	Name() string
	Translate(ctx context.Context, req Request) (*Result, error)
	DetectLanguage(ctx context.Context, text string) (*Detection, error)
	SupportedLanguages(ctx context.Context) ([]string, error)
}
