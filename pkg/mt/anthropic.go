package mt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicProvider translates through the Anthropic Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	name   string
	model  string
	logger *zap.Logger
}

// NewAnthropicProvider creates a provider backed by the Anthropic API.
func NewAnthropicProvider(settings ProviderSettings, logger *zap.Logger) (*AnthropicProvider, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if settings.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	name := settings.Name
	if name == "" {
		name = "anthropic"
	}

	var opts []anthropic.ClientOption
	if settings.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(settings.BaseURL, "/")))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(settings.APIKey, opts...),
		name:   name,
		model:  settings.Model,
		logger: logger.Named("mt-anthropic"),
	}, nil
}

var _ Provider = (*AnthropicProvider)(nil)

// Name implements Provider.
func (p *AnthropicProvider) Name() string {
	return p.name
}

// Translate implements Provider.
func (p *AnthropicProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	prompt := buildTranslatePrompt(req)

	p.logger.Debug("translate request",
		zap.String("model", p.model),
		zap.String("from", req.SourceLanguage),
		zap.String("to", req.TargetLanguage),
		zap.Int("text_len", len(req.Text)))

	start := time.Now()
	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		MaxTokens: 2000,
		System:    translateSystemPrompt,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		p.logger.Warn("translate request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(p.name, err)
	}

	content := firstTextBlock(resp)
	if content == "" {
		return nil, NewError(ErrorTypeUnknown, p.name, "empty completion", true, nil)
	}

	var payload translatePayload
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &payload); err != nil || payload.Translation == "" {
		payload.Translation = strings.TrimSpace(content)
		payload.Confidence = 0.7
	}

	return &Result{
		Text:       payload.Translation,
		Confidence: clampConfidence(payload.Confidence),
		Provider:   p.name,
	}, nil
}

// DetectLanguage implements Provider.
func (p *AnthropicProvider) DetectLanguage(ctx context.Context, text string) (*Detection, error) {
	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		MaxTokens: 100,
		System:    detectSystemPrompt,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(text),
		},
	})
	if err != nil {
		return nil, ClassifyError(p.name, err)
	}

	content := firstTextBlock(resp)
	var payload detectPayload
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &payload); err != nil {
		return nil, NewError(ErrorTypeUnknown, p.name, "unparseable detection response", false, err)
	}

	return &Detection{
		Language:   strings.ToUpper(strings.TrimSpace(payload.Language)),
		Confidence: clampConfidence(payload.Confidence),
	}, nil
}

// SupportedLanguages implements Provider.
func (p *AnthropicProvider) SupportedLanguages(ctx context.Context) ([]string, error) {
	return commonLanguageCodes(), nil
}

func firstTextBlock(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}
