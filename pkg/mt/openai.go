package mt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ProviderSettings configures a single provider client.
type ProviderSettings struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIProvider translates through an OpenAI-compatible chat endpoint.
type OpenAIProvider struct {
	client *openai.Client
	name   string
	model  string
	logger *zap.Logger
}

// NewOpenAIProvider creates a provider backed by an OpenAI-compatible endpoint.
func NewOpenAIProvider(settings ProviderSettings, logger *zap.Logger) (*OpenAIProvider, error) {
	if settings.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(settings.BaseURL, "/")
	}

	name := settings.Name
	if name == "" {
		name = "openai"
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		name:   name,
		model:  settings.Model,
		logger: logger.Named("mt-openai"),
	}, nil
}

var _ Provider = (*OpenAIProvider)(nil)

// Name implements Provider.
func (p *OpenAIProvider) Name() string {
	return p.name
}

const translateSystemPrompt = `You are a professional translator for hotel and travel content.
Translate the user's text faithfully, preserving tone, placeholders like {name},
and HTML markup if present. Respond with a JSON object:
{"translation": "<translated text>", "confidence": <0.0-1.0>}`

const detectSystemPrompt = `You identify the language of hotel and travel content.
Respond with a JSON object: {"language": "<ISO 639-1/2 code, uppercase>", "confidence": <0.0-1.0>}`

type translatePayload struct {
	Translation string  `json:"translation"`
	Confidence  float64 `json:"confidence"`
}

type detectPayload struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Translate implements Provider.
func (p *OpenAIProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	prompt := buildTranslatePrompt(req)

	p.logger.Debug("translate request",
		zap.String("model", p.model),
		zap.String("from", req.SourceLanguage),
		zap.String("to", req.TargetLanguage),
		zap.Int("text_len", len(req.Text)))

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		p.logger.Warn("translate request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewError(ErrorTypeUnknown, p.name, "empty completion", true, nil)
	}

	var payload translatePayload
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &payload); err != nil || payload.Translation == "" {
		// Some models answer with bare text despite the format request.
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
func (p *OpenAIProvider) DetectLanguage(ctx context.Context, text string) (*Detection, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: detectSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, ClassifyError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewError(ErrorTypeUnknown, p.name, "empty completion", true, nil)
	}

	var payload detectPayload
	if err := json.Unmarshal([]byte(extractJSONObject(resp.Choices[0].Message.Content)), &payload); err != nil {
		return nil, NewError(ErrorTypeUnknown, p.name, "unparseable detection response", false, err)
	}

	return &Detection{
		Language:   strings.ToUpper(strings.TrimSpace(payload.Language)),
		Confidence: clampConfidence(payload.Confidence),
	}, nil
}

// SupportedLanguages implements Provider. LLM-backed providers translate any
// pair; the list covers the codes the PMS ships with.
func (p *OpenAIProvider) SupportedLanguages(ctx context.Context) ([]string, error) {
	return commonLanguageCodes(), nil
}

// ============================================================================
// Shared prompt helpers
// ============================================================================

func buildTranslatePrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate from %s to %s.\n", req.SourceLanguage, req.TargetLanguage)
	if req.Context != "" {
		fmt.Fprintf(&b, "Context: %s.\n", req.Context)
	}
	if req.MaxLength > 0 {
		fmt.Fprintf(&b, "Keep the translation under %d characters.\n", req.MaxLength)
	}
	b.WriteString("Text:\n")
	b.WriteString(req.Text)
	return b.String()
}

// extractJSONObject pulls the outermost JSON object out of a response that
// may be wrapped in prose or code fences.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func clampConfidence(c float64) float64 {
	if c <= 0 {
		return 0.7
	}
	if c > 1 {
		return 1
	}
	return c
}

func commonLanguageCodes() []string {
	return []string{"EN", "ES", "FR", "DE", "IT", "PT", "NL", "RU", "ZH", "JA", "KO", "AR", "HE", "TR", "PL", "SV"}
}
