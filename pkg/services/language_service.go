package services

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/repositories"
)

// LanguageService manages the language registry: which languages the
// property supports, which is the default, and how each maps onto delivery
// channels and contexts.
type LanguageService struct {
	repo   repositories.LanguageRepository
	logger *zap.Logger
}

// NewLanguageService creates a new LanguageService.
func NewLanguageService(repo repositories.LanguageRepository, logger *zap.Logger) *LanguageService {
	return &LanguageService{
		repo:   repo,
		logger: logger.Named("language-service"),
	}
}

// CreateLanguageRequest carries the fields accepted on language creation.
// It doubles as the per-language shape of the YAML seed file.
type CreateLanguageRequest struct {
	Code        string                         `json:"code" yaml:"code"`
	Name        string                         `json:"name" yaml:"name"`
	NativeName  string                         `json:"nativeName" yaml:"nativeName"`
	Locale      string                         `json:"locale" yaml:"locale"`
	Direction   models.TextDirection           `json:"direction,omitempty" yaml:"direction"`
	Formatting  models.LanguageFormatting      `json:"formatting,omitempty" yaml:"formatting"`
	Translation *models.TranslationPreferences `json:"translation,omitempty" yaml:"translation"`
	Contexts    []models.LanguageContext       `json:"contexts,omitempty" yaml:"contexts"`
	IsDefault   bool                           `json:"isDefault,omitempty" yaml:"isDefault"`
}

// Create registers a new language. The code must be unique; a duplicate
// yields a conflict error from the repository.
func (s *LanguageService) Create(ctx context.Context, req CreateLanguageRequest) (*models.Language, error) {
	lang := &models.Language{
		Code:       models.NormalizeLanguageCode(req.Code),
		Name:       req.Name,
		NativeName: req.NativeName,
		Locale:     models.NormalizeLocale(req.Locale),
		Direction:  req.Direction,
		Formatting: req.Formatting,
		Contexts:   req.Contexts,
		IsActive:   true,
		IsDefault:  req.IsDefault,
	}
	if req.Translation != nil {
		lang.Translation = *req.Translation
	}
	if lang.Direction == "" {
		lang.Direction = models.DirectionLTR
	}

	if err := s.validate(lang); err != nil {
		return nil, err
	}

	// A newly created default demotes every other default; the repository
	// does both in one transaction.
	if err := s.repo.Create(ctx, lang); err != nil {
		return nil, err
	}

	s.logger.Info("language created",
		zap.String("code", lang.Code),
		zap.Bool("default", lang.IsDefault))
	return lang, nil
}

// UpdateLanguageRequest carries the mutable fields of a language. The
// revision must match the stored document or the update is rejected.
type UpdateLanguageRequest struct {
	Name        *string                        `json:"name,omitempty"`
	NativeName  *string                        `json:"nativeName,omitempty"`
	Locale      *string                        `json:"locale,omitempty"`
	Direction   *models.TextDirection          `json:"direction,omitempty"`
	Formatting  *models.LanguageFormatting     `json:"formatting,omitempty"`
	Translation *models.TranslationPreferences `json:"translation,omitempty"`
	Contexts    []models.LanguageContext       `json:"contexts,omitempty"`
	IsActive    *bool                          `json:"isActive,omitempty"`
	Revision    int64                          `json:"revision"`
}

// Update applies a guarded partial update to a language document.
func (s *LanguageService) Update(ctx context.Context, code string, req UpdateLanguageRequest) (*models.Language, error) {
	lang, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		lang.Name = *req.Name
	}
	if req.NativeName != nil {
		lang.NativeName = *req.NativeName
	}
	if req.Locale != nil {
		lang.Locale = models.NormalizeLocale(*req.Locale)
	}
	if req.Direction != nil {
		lang.Direction = *req.Direction
	}
	if req.Formatting != nil {
		lang.Formatting = *req.Formatting
	}
	if req.Translation != nil {
		lang.Translation = *req.Translation
	}
	if req.Contexts != nil {
		lang.Contexts = req.Contexts
	}
	if req.IsActive != nil {
		if !*req.IsActive && lang.IsDefault {
			return nil, apperrors.Conflict("isActive", "the default language cannot be deactivated")
		}
		lang.IsActive = *req.IsActive
	}
	lang.Revision = req.Revision

	if err := s.validate(lang); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, lang); err != nil {
		return nil, err
	}
	return lang, nil
}

// Deactivate marks a language inactive. The default language cannot be
// deactivated; promote another language first.
func (s *LanguageService) Deactivate(ctx context.Context, code string, revision int64) (*models.Language, error) {
	inactive := false
	return s.Update(ctx, code, UpdateLanguageRequest{IsActive: &inactive, Revision: revision})
}

// GetByCode looks up a language by its code, case-insensitively.
func (s *LanguageService) GetByCode(ctx context.Context, code string) (*models.Language, error) {
	return s.repo.GetByCode(ctx, code)
}

// GetByID looks up a language by id.
func (s *LanguageService) GetByID(ctx context.Context, id uuid.UUID) (*models.Language, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns languages, optionally restricted to active ones.
func (s *LanguageService) List(ctx context.Context, activeOnly bool) ([]*models.Language, error) {
	return s.repo.List(ctx, activeOnly)
}

// ListByChannel returns active languages that carry a mapping for the given
// channel, each paired with its channel mapping.
func (s *LanguageService) ListByChannel(ctx context.Context, channel string) ([]*models.Language, error) {
	langs, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Language, 0, len(langs))
	for _, lang := range langs {
		if _, ok := lang.MappingFor(channel); ok {
			out = append(out, lang)
		}
	}
	return out, nil
}

// ListByContext returns active languages enabled for the given delivery
// context.
func (s *LanguageService) ListByContext(ctx context.Context, contextName string) ([]*models.Language, error) {
	if !models.IsValidContextName(contextName) {
		return nil, apperrors.Validation("context", "unknown context %q", contextName)
	}

	langs, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Language, 0, len(langs))
	for _, lang := range langs {
		if lang.ContextEnabled(contextName) {
			out = append(out, lang)
		}
	}
	return out, nil
}

// GetDefault returns the property's default language.
func (s *LanguageService) GetDefault(ctx context.Context) (*models.Language, error) {
	return s.repo.GetDefault(ctx)
}

// SetDefault promotes the given language to property default. The language
// must exist and be active; every other default is demoted atomically.
func (s *LanguageService) SetDefault(ctx context.Context, code string) (*models.Language, error) {
	if err := s.repo.SetDefault(ctx, code); err != nil {
		return nil, err
	}
	return s.repo.GetByCode(ctx, code)
}

// SetChannelMapping upserts the channel mapping on a language. When the
// mapping claims the channel default, the previous default for that channel
// is cleared in the same transaction as the guarded update, so a stale
// revision leaves the channel untouched.
func (s *LanguageService) SetChannelMapping(ctx context.Context, code string, revision int64, mapping models.ChannelMapping) (*models.Language, error) {
	if mapping.Channel == "" {
		return nil, apperrors.Validation("channel", "channel is required")
	}
	if mapping.ChannelLanguageCode == "" {
		return nil, apperrors.Validation("channelLanguageCode", "channel language code is required")
	}

	lang, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	lang.SetChannelMapping(mapping)
	lang.Revision = revision
	if mapping.IsDefault {
		err = s.repo.UpdateWithChannelDefault(ctx, lang, mapping.Channel)
	} else {
		err = s.repo.Update(ctx, lang)
	}
	if err != nil {
		return nil, err
	}
	return lang, nil
}

// EnsureSingleDefault repairs the registry at startup: if several languages
// claim the default flag, the first by creation wins and the rest are
// demoted. Returns the number of demoted languages.
func (s *LanguageService) EnsureSingleDefault(ctx context.Context) (int64, error) {
	def, err := s.repo.GetDefault(ctx)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return 0, nil
		}
		return 0, err
	}

	demoted, err := s.repo.DemoteDefaultsExcept(ctx, def.Code)
	if err != nil {
		return 0, err
	}
	if demoted > 0 {
		s.logger.Warn("demoted extra default languages",
			zap.String("kept", def.Code),
			zap.Int64("demoted", demoted))
	}
	return demoted, nil
}

// seedFile is the YAML shape of the language seed file.
type seedFile struct {
	Languages []CreateLanguageRequest `yaml:"languages"`
}

// Seed loads languages from a YAML file, creating any that do not exist yet.
// Existing languages are left untouched. Returns the number created.
func (s *LanguageService) Seed(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}

	created := 0
	for _, req := range seed.Languages {
		code := models.NormalizeLanguageCode(req.Code)
		if _, err := s.repo.GetByCode(ctx, code); err == nil {
			continue
		} else if apperrors.KindOf(err) != apperrors.KindNotFound {
			return created, err
		}

		if _, err := s.Create(ctx, req); err != nil {
			return created, fmt.Errorf("failed to seed language %s: %w", code, err)
		}
		created++
	}

	if created > 0 {
		s.logger.Info("seeded languages", zap.Int("created", created), zap.String("file", path))
	}
	return created, nil
}

// validate checks the invariants of a language document.
func (s *LanguageService) validate(lang *models.Language) error {
	lang.Normalize()

	if !models.IsValidLanguageCode(lang.Code) {
		return apperrors.Validation("code", "language code must be 2-3 uppercase letters, got %q", lang.Code)
	}
	if lang.Name == "" {
		return apperrors.Validation("name", "name is required")
	}
	if lang.Locale != "" && !models.IsValidLocale(lang.Locale) {
		return apperrors.Validation("locale", "locale must look like xx-yy, got %q", lang.Locale)
	}
	if !lang.Direction.IsValid() {
		return apperrors.Validation("direction", "direction must be ltr or rtl, got %q", lang.Direction)
	}
	for _, c := range lang.Contexts {
		if !models.IsValidContextName(c.Name) {
			return apperrors.Validation("contexts", "unknown context %q", c.Name)
		}
	}

	at := lang.Translation.AutoTranslate
	if at.Threshold < 0 || at.Threshold > 1 {
		return apperrors.Validation("translation.autoTranslate.threshold", "threshold must be within [0,1]")
	}
	if at.MinimumConfidence < 0 || at.MinimumConfidence > 1 {
		return apperrors.Validation("translation.autoTranslate.minimumConfidence", "minimum confidence must be within [0,1]")
	}

	seen := make(map[string]bool, len(lang.Translation.Providers))
	for _, p := range lang.Translation.Providers {
		if p.Name == "" {
			return apperrors.Validation("translation.providers", "provider name is required")
		}
		if seen[p.Name] {
			return apperrors.Validation("translation.providers", "duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
	}

	return nil
}
