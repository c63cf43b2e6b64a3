package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/repositories"
)

// StatsService computes content-completeness figures. Completeness of a
// resource in a language is the share of its translatable fields with a
// served translation. Figures are cached in Redis when a client is
// configured; a nil client disables caching.
type StatsService struct {
	translations repositories.TranslationRepository
	roomTypes    repositories.RoomTypeRepository
	languages    repositories.LanguageRepository
	localization *LocalizationService
	cache        *redis.Client
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewStatsService creates a new StatsService.
func NewStatsService(
	translations repositories.TranslationRepository,
	roomTypes repositories.RoomTypeRepository,
	languages repositories.LanguageRepository,
	localization *LocalizationService,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *StatsService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &StatsService{
		translations: translations,
		roomTypes:    roomTypes,
		languages:    languages,
		localization: localization,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger.Named("stats-service"),
	}
}

// LanguageOverview aggregates translation counts per target language,
// optionally filtered to one resource type.
func (s *StatsService) LanguageOverview(ctx context.Context, resourceType string) ([]models.LanguageStats, error) {
	return s.translations.StatsByLanguage(ctx, resourceType)
}

// RoomTypeCompleteness returns the completeness percentage of one room type
// in one language, cached under a short TTL.
func (s *StatsService) RoomTypeCompleteness(ctx context.Context, id uuid.UUID, language string) (float64, error) {
	language = models.NormalizeLanguageCode(language)

	if pct, ok := s.cached(ctx, id, language); ok {
		return pct, nil
	}

	rt, err := s.roomTypes.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	pct, err := s.compute(ctx, rt, language)
	if err != nil {
		return 0, err
	}

	s.store(ctx, id, language, pct)
	return pct, nil
}

// RefreshRoomType recomputes completeness of one room type for every active
// non-base language, writes the cached status onto the catalog entry and
// invalidates the Redis entries.
func (s *StatsService) RefreshRoomType(ctx context.Context, id uuid.UUID) (map[string]float64, error) {
	rt, err := s.roomTypes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	langs, err := s.languages.List(ctx, true)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	now := time.Now().UTC()
	for _, lang := range langs {
		if lang.Code == rt.BaseLanguage {
			continue
		}
		pct, err := s.compute(ctx, rt, lang.Code)
		if err != nil {
			return nil, err
		}
		out[lang.Code] = pct

		status := models.ResourceTranslationStatus{
			Status:       statusForCompleteness(pct),
			Completeness: int(pct + 0.5),
			LastUpdated:  now,
		}
		if err := s.roomTypes.SetTranslationStatus(ctx, rt.ID, lang.Code, status); err != nil {
			return nil, err
		}
		s.store(ctx, rt.ID, lang.Code, pct)
	}
	return out, nil
}

// RefreshLanguageCompleteness recomputes the room-type completeness figure
// cached on a language document: the average across all active room types.
func (s *StatsService) RefreshLanguageCompleteness(ctx context.Context, languageCode string) (float64, error) {
	languageCode = models.NormalizeLanguageCode(languageCode)

	roomTypes, err := s.roomTypes.List(ctx, true)
	if err != nil {
		return 0, err
	}

	var sum float64
	counted := 0
	for _, rt := range roomTypes {
		if rt.BaseLanguage == languageCode {
			continue
		}
		pct, err := s.compute(ctx, rt, languageCode)
		if err != nil {
			return 0, err
		}
		sum += pct
		counted++
	}

	avg := 0.0
	if counted > 0 {
		avg = sum / float64(counted)
	}
	if err := s.languages.UpdateCompleteness(ctx, languageCode, ResourceTypeRoomType, avg); err != nil {
		return 0, err
	}
	return avg, nil
}

// compute derives completeness from served-row counts. Amenity fields are
// counted against the owning room type even though their rows live under the
// amenity resource type.
func (s *StatsService) compute(ctx context.Context, rt *models.RoomType, language string) (float64, error) {
	total := s.localization.TranslatableFieldCount(rt)
	if total == 0 {
		return 100, nil
	}

	served, err := s.translations.CountServed(ctx, ResourceTypeRoomType, rt.ID.String(), language)
	if err != nil {
		return 0, err
	}

	for _, code := range rt.AmenityCodes() {
		n, err := s.translations.CountServed(ctx, ResourceTypeAmenity, code, language)
		if err != nil {
			return 0, err
		}
		served += n
	}

	if served > total {
		served = total
	}
	return float64(served) / float64(total) * 100, nil
}

func (s *StatsService) cached(ctx context.Context, id uuid.UUID, language string) (float64, bool) {
	if s.cache == nil {
		return 0, false
	}
	val, err := s.cache.Get(ctx, completenessKey(id, language)).Result()
	if err != nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

func (s *StatsService) store(ctx context.Context, id uuid.UUID, language string, pct float64) {
	if s.cache == nil {
		return
	}
	err := s.cache.Set(ctx, completenessKey(id, language),
		strconv.FormatFloat(pct, 'f', 2, 64), s.cacheTTL).Err()
	if err != nil {
		s.logger.Debug("completeness cache write failed", zap.Error(err))
	}
}

func completenessKey(id uuid.UUID, language string) string {
	return fmt.Sprintf("completeness:%s:%s:%s", ResourceTypeRoomType, id, language)
}

// statusForCompleteness buckets a percentage into the embedded status.
func statusForCompleteness(pct float64) models.UIEntryStatus {
	switch {
	case pct >= 100:
		return models.UIStatusApproved
	case pct > 0:
		return models.UIStatusTranslated
	default:
		return models.UIStatusPending
	}
}
