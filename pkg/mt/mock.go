package mt

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider is a configurable mock for testing gateway and workflow
// behavior. Set the function fields to control behavior in tests.
type MockProvider struct {
	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// TranslateFunc is called when Translate is invoked.
	// If nil, returns a deterministic pseudo-translation with confidence 0.95.
	TranslateFunc func(ctx context.Context, req Request) (*Result, error)

	// DetectFunc is called when DetectLanguage is invoked.
	// If nil, returns EN with confidence 0.9.
	DetectFunc func(ctx context.Context, text string) (*Detection, error)

	// SupportedFunc is called when SupportedLanguages is invoked.
	// If nil, returns the common code list.
	SupportedFunc func(ctx context.Context) ([]string, error)

	// Call tracking for verification
	TranslateCalls int
	DetectCalls    int
}

// NewMockProvider creates a mock with sensible defaults.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{ProviderName: name}
}

var _ Provider = (*MockProvider)(nil)

// Name implements Provider.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Translate implements Provider.
func (m *MockProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	m.TranslateCalls++
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, req)
	}
	return &Result{
		Text:       fmt.Sprintf("[%s] %s", strings.ToLower(req.TargetLanguage), req.Text),
		Confidence: 0.95,
		Provider:   m.Name(),
	}, nil
}

// DetectLanguage implements Provider.
func (m *MockProvider) DetectLanguage(ctx context.Context, text string) (*Detection, error) {
	m.DetectCalls++
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, text)
	}
	return &Detection{Language: "EN", Confidence: 0.9}, nil
}

// SupportedLanguages implements Provider.
func (m *MockProvider) SupportedLanguages(ctx context.Context) ([]string, error) {
	if m.SupportedFunc != nil {
		return m.SupportedFunc(ctx)
	}
	return commonLanguageCodes(), nil
}
