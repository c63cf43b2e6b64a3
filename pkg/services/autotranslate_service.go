package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/mt"
	"github.com/hotelier-tech/lingua-engine/pkg/repositories"
)

// AutoTranslateConfig tunes the automatic translation pipeline.
type AutoTranslateConfig struct {
	// Threshold is the confidence at or above which a machine translation
	// proceeds to normal review. Below it the row is tagged needs_review.
	Threshold float64
	// MinimumConfidence is the floor below which a machine translation is
	// discarded and the row stays pending for a human.
	MinimumConfidence float64
}

// queueItem is one enqueued machine-translation job.
type queueItem struct {
	id  uuid.UUID
	key models.TranslationKey
}

// AutoTranslateService holds the in-memory queue of translation rows waiting
// for machine translation and drains it through the provider gateway with
// bounded parallelism. A key is enqueued at most once until its job
// finishes.
type AutoTranslateService struct {
	gateway      *mt.Gateway
	translations repositories.TranslationRepository
	languages    repositories.LanguageRepository
	pool         *mt.WorkerPool
	cfg          AutoTranslateConfig
	logger       *zap.Logger

	mu      sync.Mutex
	pending map[string]queueItem
}

// NewAutoTranslateService creates a new AutoTranslateService.
func NewAutoTranslateService(
	gateway *mt.Gateway,
	translations repositories.TranslationRepository,
	languages repositories.LanguageRepository,
	pool *mt.WorkerPool,
	cfg AutoTranslateConfig,
	logger *zap.Logger,
) *AutoTranslateService {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.85
	}
	if cfg.MinimumConfidence <= 0 {
		cfg.MinimumConfidence = 0.5
	}
	return &AutoTranslateService{
		gateway:      gateway,
		translations: translations,
		languages:    languages,
		pool:         pool,
		cfg:          cfg,
		logger:       logger.Named("auto-translate"),
	}
}

// Enqueue registers a translation row for machine translation. Returns false
// when the key is already queued or in flight.
func (s *AutoTranslateService) Enqueue(id uuid.UUID, key models.TranslationKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		s.pending = make(map[string]queueItem)
	}
	token := key.String()
	if _, exists := s.pending[token]; exists {
		return false
	}
	s.pending[token] = queueItem{id: id, key: key}
	return true
}

// QueueDepth reports how many jobs are queued or in flight.
func (s *AutoTranslateService) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// claim takes a snapshot of the queue. Claimed items stay in the pending map
// so re-enqueues dedup against in-flight work; complete removes them.
func (s *AutoTranslateService) claim() []queueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]queueItem, 0, len(s.pending))
	for _, item := range s.pending {
		items = append(items, item)
	}
	return items
}

func (s *AutoTranslateService) complete(key models.TranslationKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key.String())
}

// ProcessQueued drains the queue through the worker pool. Jobs that fail are
// removed from the queue; the fan-out re-enqueues them on the next resource
// edit, and the pending review queue keeps them visible to humans meanwhile.
// Returns the number of rows translated and the number of failures.
func (s *AutoTranslateService) ProcessQueued(ctx context.Context) (translated, failed int) {
	claimed := s.claim()
	if len(claimed) == 0 {
		return 0, 0
	}

	items := make([]mt.WorkItem[*models.Translation], 0, len(claimed))
	for _, item := range claimed {
		item := item
		items = append(items, mt.WorkItem[*models.Translation]{
			ID: item.key.String(),
			Execute: func(ctx context.Context) (*models.Translation, error) {
				defer s.complete(item.key)
				return s.translateOne(ctx, item)
			},
		})
	}

	results := mt.Process(ctx, s.pool, items, nil)
	for _, r := range results {
		if r.Err != nil {
			failed++
			s.logger.Warn("auto-translation failed",
				zap.String("key", r.ID), zap.Error(r.Err))
			continue
		}
		if r.Result != nil {
			translated++
		}
	}

	if translated > 0 || failed > 0 {
		s.logger.Info("auto-translate queue drained",
			zap.Int("translated", translated), zap.Int("failed", failed))
	}
	return translated, failed
}

// translateOne machine-translates a single row. Returns nil without error
// when the row no longer needs translation or the result was below the
// confidence floor.
func (s *AutoTranslateService) translateOne(ctx context.Context, item queueItem) (*models.Translation, error) {
	t, err := s.translations.GetByID(ctx, item.id)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	// The row may have been superseded or hand-translated since enqueue.
	if !t.IsActive || t.TranslatedText != "" {
		return nil, nil
	}

	lang, err := s.languages.GetByCode(ctx, t.TargetLanguage)
	if err != nil {
		return nil, err
	}
	if !lang.Translation.AutoTranslate.Enabled {
		return nil, nil
	}

	result, err := s.gateway.Translate(ctx, mt.Request{
		Text:           t.OriginalText,
		SourceLanguage: t.SourceLanguage,
		TargetLanguage: t.TargetLanguage,
		Context:        t.Context.Tone,
		MaxLength:      t.Context.MaxLength,
	}, lang.Translation.Providers)
	if err != nil {
		return nil, err
	}

	minimum := lang.Translation.AutoTranslate.MinimumConfidence
	if minimum <= 0 {
		minimum = s.cfg.MinimumConfidence
	}
	if result.Confidence < minimum {
		s.logger.Debug("discarding low-confidence machine translation",
			zap.String("key", item.key.String()),
			zap.Float64("confidence", result.Confidence))
		return nil, nil
	}

	threshold := lang.Translation.AutoTranslate.Threshold
	if threshold <= 0 {
		threshold = s.cfg.Threshold
	}

	t.TranslatedText = result.Text
	t.Method = models.MethodAutomatic
	t.Provider = result.Provider
	t.Quality.Confidence = result.Confidence
	// Machine output passes through the translation stage on its way to
	// review; only legal stage moves are written.
	for _, next := range []models.TranslationStage{models.StageTranslation, models.StageReview} {
		if t.Workflow.Stage == next {
			continue
		}
		if !t.Workflow.Stage.CanTransitionTo(next) {
			return nil, apperrors.WorkflowState("cannot move %s from %s to %s",
				item.key.String(), t.Workflow.Stage, next)
		}
		t.Workflow.Stage = next
	}
	if result.Confidence < threshold {
		t.Quality.ReviewStatus = models.ReviewNeedsReview
	} else {
		t.Quality.ReviewStatus = models.ReviewPending
	}
	t.UpdatedBy = "auto-translate"

	if err := s.translations.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
