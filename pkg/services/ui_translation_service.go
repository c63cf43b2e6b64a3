package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/mt"
	"github.com/hotelier-tech/lingua-engine/pkg/repositories"
)

// UITranslationService manages UI strings grouped into namespaces. Unlike
// resource translations, UI strings keep every language on one document and
// do not carry version history.
type UITranslationService struct {
	repo      repositories.UITranslationRepository
	languages repositories.LanguageRepository
	gateway   *mt.Gateway
	logger    *zap.Logger
}

// NewUITranslationService creates a new UITranslationService.
func NewUITranslationService(
	repo repositories.UITranslationRepository,
	languages repositories.LanguageRepository,
	gateway *mt.Gateway,
	logger *zap.Logger,
) *UITranslationService {
	return &UITranslationService{
		repo:      repo,
		languages: languages,
		gateway:   gateway,
		logger:    logger.Named("ui-translation-service"),
	}
}

// ListNamespaces returns every namespace with its key count.
func (s *UITranslationService) ListNamespaces(ctx context.Context) ([]repositories.NamespaceSummary, error) {
	return s.repo.ListNamespaces(ctx)
}

// GetNamespace returns all keys of a namespace. When language is non-empty,
// keys without an entry for that language get a synthesized pending entry
// carrying the source text, so consumers always render something.
func (s *UITranslationService) GetNamespace(ctx context.Context, namespace, language string) ([]*models.UITranslation, error) {
	if namespace == "" {
		return nil, apperrors.Validation("namespace", "namespace is required")
	}
	docs, err := s.repo.ListNamespace(ctx, namespace, true)
	if err != nil {
		return nil, err
	}

	language = models.NormalizeLanguageCode(language)
	if language != "" {
		for _, doc := range docs {
			if doc.SourceLanguage == language {
				continue
			}
			if _, ok := doc.EntryFor(language); !ok {
				doc.SetEntry(models.UILanguageEntry{
					Language: language,
					Text:     doc.SourceText,
					Status:   models.UIStatusPending,
				})
			}
		}
	}
	return docs, nil
}

// GetBatch returns the named keys of a namespace, used by frontends that
// load a screen's strings in one call.
func (s *UITranslationService) GetBatch(ctx context.Context, namespace string, keys []string) ([]*models.UITranslation, error) {
	if namespace == "" {
		return nil, apperrors.Validation("namespace", "namespace is required")
	}
	if len(keys) == 0 {
		return nil, apperrors.Validation("keys", "at least one key is required")
	}
	return s.repo.GetBatch(ctx, namespace, keys)
}

// SaveUIStringRequest carries a UI string definition or translation update.
type SaveUIStringRequest struct {
	Namespace      string                     `json:"namespace"`
	Key            string                     `json:"key"`
	SourceLanguage string                     `json:"sourceLanguage"`
	SourceText     string                     `json:"sourceText"`
	Contexts       []string                   `json:"contexts,omitempty"`
	Priority       models.TranslationPriority `json:"priority,omitempty"`
	Tags           []string                   `json:"tags,omitempty"`
	Entries        []models.UILanguageEntry   `json:"entries,omitempty"`
	// AutoApprove marks submitted entries approved instead of translated.
	AutoApprove bool   `json:"autoApprove,omitempty"`
	Actor       string `json:"-"`
}

// Save upserts a UI string. Submitted entries replace any existing entry for
// the same language; entries for other languages are preserved.
func (s *UITranslationService) Save(ctx context.Context, req SaveUIStringRequest) (*models.UITranslation, error) {
	if req.Namespace == "" {
		return nil, apperrors.Validation("namespace", "namespace is required")
	}
	if req.Key == "" {
		return nil, apperrors.Validation("key", "key is required")
	}
	if req.SourceText == "" {
		return nil, apperrors.Validation("sourceText", "source text is required")
	}
	source := models.NormalizeLanguageCode(req.SourceLanguage)
	if !models.IsValidLanguageCode(source) {
		return nil, apperrors.Validation("sourceLanguage", "invalid source language %q", req.SourceLanguage)
	}
	if err := screenText(req.SourceText); err != nil {
		return nil, err
	}

	doc, err := s.repo.GetByKey(ctx, req.Namespace, req.Key)
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindNotFound {
			return nil, err
		}
		doc = &models.UITranslation{
			Namespace: req.Namespace,
			Key:       req.Key,
			IsActive:  true,
		}
	}

	doc.SourceLanguage = source
	doc.SourceText = req.SourceText
	doc.Contexts = req.Contexts
	doc.Tags = req.Tags
	doc.Priority = req.Priority
	if doc.Priority == "" {
		doc.Priority = models.PriorityMedium
	}
	if !doc.Priority.IsValid() {
		return nil, apperrors.Validation("priority", "unknown priority %q", doc.Priority)
	}

	now := time.Now().UTC()
	for _, entry := range req.Entries {
		entry.Language = models.NormalizeLanguageCode(entry.Language)
		if !models.IsValidLanguageCode(entry.Language) {
			return nil, apperrors.Validation("entries", "invalid language %q", entry.Language)
		}
		if entry.Language == source {
			return nil, apperrors.Validation("entries", "entry language must differ from the source language")
		}
		if err := screenText(entry.Text); err != nil {
			return nil, err
		}
		if entry.Status == "" {
			entry.Status = models.UIStatusTranslated
		}
		if req.AutoApprove {
			entry.Status = models.UIStatusApproved
			entry.Reviewer = req.Actor
			entry.ReviewedAt = &now
		}
		if entry.TranslatedAt == nil {
			entry.TranslatedAt = &now
		}
		doc.SetEntry(entry)
	}

	if err := s.repo.Upsert(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ApproveEntry marks one language entry of a key approved.
func (s *UITranslationService) ApproveEntry(ctx context.Context, namespace, key, language, reviewer string) (*models.UITranslation, error) {
	doc, err := s.repo.GetByKey(ctx, namespace, key)
	if err != nil {
		return nil, err
	}

	language = models.NormalizeLanguageCode(language)
	entry, ok := doc.EntryFor(language)
	if !ok {
		return nil, apperrors.NotFound("no %s entry for %s.%s", language, namespace, key)
	}
	if entry.Status == models.UIStatusPending {
		return nil, apperrors.WorkflowState("entry %s.%s/%s has no translation to approve", namespace, key, language)
	}

	now := time.Now().UTC()
	entry.Status = models.UIStatusApproved
	entry.Reviewer = reviewer
	entry.ReviewedAt = &now

	if err := s.repo.Upsert(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteKey removes a UI string entirely.
func (s *UITranslationService) DeleteKey(ctx context.Context, namespace, key string) error {
	return s.repo.Delete(ctx, namespace, key)
}

// TranslateNamespace machine-translates every key of a namespace that lacks
// an entry for the target language. Returns how many entries were written.
func (s *UITranslationService) TranslateNamespace(ctx context.Context, namespace, language string) (int, error) {
	language = models.NormalizeLanguageCode(language)
	if !models.IsValidLanguageCode(language) {
		return 0, apperrors.Validation("language", "invalid language code %q", language)
	}

	lang, err := s.languages.GetByCode(ctx, language)
	if err != nil {
		return 0, err
	}

	docs, err := s.repo.ListNamespace(ctx, namespace, true)
	if err != nil {
		return 0, err
	}

	translated := 0
	now := time.Now().UTC()
	for _, doc := range docs {
		if doc.SourceLanguage == language {
			continue
		}
		if entry, ok := doc.EntryFor(language); ok && entry.Text != "" {
			continue
		}

		result, err := s.gateway.Translate(ctx, mt.Request{
			Text:           doc.SourceText,
			SourceLanguage: doc.SourceLanguage,
			TargetLanguage: language,
		}, lang.Translation.Providers)
		if err != nil {
			// One provider outage should not abandon a half-translated
			// namespace; report what landed.
			s.logger.Warn("namespace translation stopped",
				zap.String("namespace", namespace),
				zap.String("key", doc.Key),
				zap.Error(err))
			return translated, err
		}

		doc.SetEntry(models.UILanguageEntry{
			Language:     language,
			Text:         result.Text,
			Status:       models.UIStatusTranslated,
			Confidence:   result.Confidence,
			Provider:     result.Provider,
			TranslatedAt: &now,
		})
		if err := s.repo.Upsert(ctx, doc); err != nil {
			return translated, err
		}
		translated++
	}

	s.logger.Info("namespace translated",
		zap.String("namespace", namespace),
		zap.String("language", language),
		zap.Int("entries", translated))
	return translated, nil
}

// Stats computes completeness of a namespace for one language. Only approved
// and published entries count toward completeness.
func (s *UITranslationService) Stats(ctx context.Context, namespace, language string) (*models.NamespaceStats, error) {
	language = models.NormalizeLanguageCode(language)
	if !models.IsValidLanguageCode(language) {
		return nil, apperrors.Validation("language", "invalid language code %q", language)
	}

	docs, err := s.repo.ListNamespace(ctx, namespace, true)
	if err != nil {
		return nil, err
	}

	stats := &models.NamespaceStats{Namespace: namespace, Language: language}
	for _, doc := range docs {
		if doc.SourceLanguage == language {
			continue
		}
		stats.TotalKeys++
		entry, ok := doc.EntryFor(language)
		switch {
		case !ok || entry.Text == "":
			stats.Missing++
		case entry.Status.CountsTowardCompleteness():
			stats.Approved++
		default:
			stats.Translated++
		}
	}
	if stats.TotalKeys > 0 {
		stats.Completeness = int(float64(stats.Approved)/float64(stats.TotalKeys)*100 + 0.5)
	}
	return stats, nil
}
