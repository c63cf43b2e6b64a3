package services

import (
	"context"
	"time"

	"github.com/corazawaf/libinjection-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/repositories"
)

// TranslationService owns the versioned translation store and the workflow
// that moves rows from draft through review to published.
type TranslationService struct {
	repo                repositories.TranslationRepository
	languages           repositories.LanguageRepository
	reviewRequired      bool
	pendingQueryTimeout time.Duration
	logger              *zap.Logger
}

// NewTranslationService creates a new TranslationService.
func NewTranslationService(
	repo repositories.TranslationRepository,
	languages repositories.LanguageRepository,
	reviewRequired bool,
	pendingQueryTimeout time.Duration,
	logger *zap.Logger,
) *TranslationService {
	if pendingQueryTimeout <= 0 {
		pendingQueryTimeout = 5 * time.Second
	}
	return &TranslationService{
		repo:                repo,
		languages:           languages,
		reviewRequired:      reviewRequired,
		pendingQueryTimeout: pendingQueryTimeout,
		logger:              logger.Named("translation-service"),
	}
}

// ============================================================================
// Creation and versioning
// ============================================================================

// CreateTranslationRequest carries the fields accepted when opening a new
// translation key.
type CreateTranslationRequest struct {
	ResourceType   string                     `json:"resourceType"`
	ResourceID     string                     `json:"resourceId"`
	FieldName      string                     `json:"fieldName"`
	SourceLanguage string                     `json:"sourceLanguage"`
	TargetLanguage string                     `json:"targetLanguage"`
	OriginalText   string                     `json:"originalText"`
	TranslatedText string                     `json:"translatedText,omitempty"`
	Method         models.TranslationMethod   `json:"method,omitempty"`
	Provider       string                     `json:"provider,omitempty"`
	Confidence     float64                    `json:"confidence,omitempty"`
	Assignee       string                     `json:"assignee,omitempty"`
	DueDate        *time.Time                 `json:"dueDate,omitempty"`
	Priority       models.TranslationPriority `json:"priority,omitempty"`
	Tags           []string                   `json:"tags,omitempty"`
	Context        models.TranslationContext  `json:"context,omitempty"`
	CreatedBy      string                     `json:"-"`
}

// Create opens a new translation key at version 1. The key must not already
// have an active row; that case goes through UpdateText which versions the
// chain instead.
func (s *TranslationService) Create(ctx context.Context, req CreateTranslationRequest) (*models.Translation, error) {
	t := &models.Translation{
		ResourceType:   req.ResourceType,
		ResourceID:     req.ResourceID,
		FieldName:      req.FieldName,
		SourceLanguage: models.NormalizeLanguageCode(req.SourceLanguage),
		TargetLanguage: models.NormalizeLanguageCode(req.TargetLanguage),
		OriginalText:   req.OriginalText,
		TranslatedText: req.TranslatedText,
		Method:         req.Method,
		Provider:       req.Provider,
		Quality: models.TranslationQuality{
			Confidence:   req.Confidence,
			ReviewStatus: models.ReviewPending,
		},
		Workflow: models.TranslationWorkflow{
			Stage:    models.StageDraft,
			Assignee: req.Assignee,
			DueDate:  req.DueDate,
			Priority: req.Priority,
			Tags:     req.Tags,
		},
		Version:   1,
		IsActive:  true,
		Context:   req.Context,
		CreatedBy: req.CreatedBy,
		UpdatedBy: req.CreatedBy,
	}
	if t.Method == "" {
		t.Method = models.MethodManual
	}
	if t.Workflow.Priority == "" {
		t.Workflow.Priority = models.PriorityMedium
	}
	// A row that already carries translated text skips straight to the
	// translation stage; drafts exist to reserve the key.
	if t.TranslatedText != "" {
		t.Workflow.Stage = models.StageTranslation
	}

	if err := s.validateNew(ctx, t); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("translation created",
		zap.String("key", t.Key().String()),
		zap.String("stage", string(t.Workflow.Stage)))
	return t, nil
}

// UpdateTextRequest carries a text revision for an existing key.
type UpdateTextRequest struct {
	TranslatedText string                   `json:"translatedText"`
	Method         models.TranslationMethod `json:"method,omitempty"`
	Provider       string                   `json:"provider,omitempty"`
	Confidence     float64                  `json:"confidence,omitempty"`
	Notes          string                   `json:"notes,omitempty"`
	UpdatedBy      string                   `json:"-"`
}

// UpdateText supersedes the active row of a key with a new version carrying
// the revised text. The new version restarts in the translation stage with a
// pending review; published history stays intact behind it.
func (s *TranslationService) UpdateText(ctx context.Context, id uuid.UUID, req UpdateTextRequest) (*models.Translation, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsActive {
		return nil, apperrors.Conflict("id", "translation %s has been superseded", id)
	}
	if req.TranslatedText == "" {
		return nil, apperrors.Validation("translatedText", "translated text is required")
	}
	if err := screenText(req.TranslatedText); err != nil {
		return nil, err
	}

	successor := &models.Translation{
		ResourceType:   current.ResourceType,
		ResourceID:     current.ResourceID,
		FieldName:      current.FieldName,
		SourceLanguage: current.SourceLanguage,
		TargetLanguage: current.TargetLanguage,
		OriginalText:   current.OriginalText,
		TranslatedText: req.TranslatedText,
		Method:         req.Method,
		Provider:       req.Provider,
		Quality: models.TranslationQuality{
			Confidence:   req.Confidence,
			ReviewStatus: models.ReviewPending,
		},
		Workflow: models.TranslationWorkflow{
			Stage:    models.StageTranslation,
			Assignee: current.Workflow.Assignee,
			DueDate:  current.Workflow.DueDate,
			Priority: current.Workflow.Priority,
			Tags:     current.Workflow.Tags,
			Notes:    req.Notes,
		},
		Version:         current.Version + 1,
		PreviousVersion: &current.ID,
		IsActive:        true,
		Context:         current.Context,
		CreatedBy:       current.CreatedBy,
		UpdatedBy:       req.UpdatedBy,
	}
	if successor.Method == "" {
		successor.Method = models.MethodManual
	}

	if err := s.repo.CreateVersion(ctx, current.ID, successor); err != nil {
		return nil, err
	}

	s.logger.Info("translation versioned",
		zap.String("key", successor.Key().String()),
		zap.Int("version", successor.Version))
	return successor, nil
}

// ============================================================================
// Workflow transitions
// ============================================================================

// SubmitForReview moves a row from the translation stage into review. When
// review is not required, the row is approved directly instead.
func (s *TranslationService) SubmitForReview(ctx context.Context, id uuid.UUID, updatedBy string) (*models.Translation, error) {
	t, err := s.activeRow(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.TranslatedText == "" {
		return nil, apperrors.Validation("translatedText", "cannot submit an empty translation for review")
	}

	if t.Workflow.Stage == models.StageDraft {
		// Drafts advance through the translation stage implicitly.
		t.Workflow.Stage = models.StageTranslation
	}
	if err := s.transition(t, models.StageReview); err != nil {
		return nil, err
	}

	if !s.reviewRequired {
		// The submitter stands in as reviewer; approved rows always carry a
		// reviewer and a review time.
		now := time.Now().UTC()
		t.Workflow.Stage = models.StageApproved
		t.Quality.ReviewStatus = models.ReviewApproved
		t.Quality.Reviewer = updatedBy
		t.Quality.ReviewedAt = &now
		if t.Quality.QualityScore < models.MinApprovedQualityScore {
			t.Quality.QualityScore = models.MinApprovedQualityScore
		}
	}

	t.UpdatedBy = updatedBy
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ReviewRequest carries a single review decision.
type ReviewRequest struct {
	Reviewer     string `json:"-"`
	QualityScore int    `json:"qualityScore,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Approve records an approving review on a row in the review stage. The
// quality score is floored at the approval minimum.
func (s *TranslationService) Approve(ctx context.Context, id uuid.UUID, req ReviewRequest) (*models.Translation, error) {
	t, err := s.activeRow(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Reviewer == "" {
		return nil, apperrors.Validation("reviewer", "reviewer identity is required")
	}
	if req.QualityScore < 0 || req.QualityScore > 100 {
		return nil, apperrors.Validation("qualityScore", "quality score must be within [0,100]")
	}
	if err := s.transition(t, models.StageApproved); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t.Quality.ReviewStatus = models.ReviewApproved
	t.Quality.Reviewer = req.Reviewer
	t.Quality.ReviewedAt = &now
	t.Quality.ReviewNotes = req.Notes
	t.Quality.QualityScore = req.QualityScore
	if t.Quality.QualityScore < models.MinApprovedQualityScore {
		t.Quality.QualityScore = models.MinApprovedQualityScore
	}
	t.UpdatedBy = req.Reviewer

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("translation approved",
		zap.String("key", t.Key().String()),
		zap.String("reviewer", req.Reviewer),
		zap.Int("score", t.Quality.QualityScore))
	return t, nil
}

// Reject records a rejecting review and sends the row back to the
// translation stage for rework. Notes are mandatory so the translator knows
// what to fix.
func (s *TranslationService) Reject(ctx context.Context, id uuid.UUID, req ReviewRequest) (*models.Translation, error) {
	t, err := s.activeRow(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Reviewer == "" {
		return nil, apperrors.Validation("reviewer", "reviewer identity is required")
	}
	if req.Notes == "" {
		return nil, apperrors.Validation("notes", "rejection notes are required")
	}
	if err := s.transition(t, models.StageTranslation); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t.Quality.ReviewStatus = models.ReviewRejected
	t.Quality.Reviewer = req.Reviewer
	t.Quality.ReviewedAt = &now
	t.Quality.ReviewNotes = req.Notes
	t.UpdatedBy = req.Reviewer

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Publish moves an approved row to published. Publishing is optional; an
// approved row is already served.
func (s *TranslationService) Publish(ctx context.Context, id uuid.UUID, updatedBy string) (*models.Translation, error) {
	t, err := s.activeRow(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(t, models.StagePublished); err != nil {
		return nil, err
	}

	t.UpdatedBy = updatedBy
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// BulkReviewRequest applies one review decision across many rows.
type BulkReviewRequest struct {
	IDs      []uuid.UUID `json:"ids"`
	Approve  bool        `json:"approve"`
	Reviewer string      `json:"-"`
	Notes    string      `json:"notes,omitempty"`
}

// BulkReviewResult reports what a bulk decision touched. Rows that were not
// in the review stage are counted but not modified.
type BulkReviewResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
	Skipped  int64 `json:"skipped"`
}

// BulkReview approves or rejects a batch of review-stage rows in a single
// transaction.
func (s *TranslationService) BulkReview(ctx context.Context, req BulkReviewRequest) (*BulkReviewResult, error) {
	if len(req.IDs) == 0 {
		return nil, apperrors.Validation("ids", "at least one translation id is required")
	}
	if req.Reviewer == "" {
		return nil, apperrors.Validation("reviewer", "reviewer identity is required")
	}

	status := models.ReviewApproved
	stage := models.StageApproved
	minScore := models.MinApprovedQualityScore
	if !req.Approve {
		if req.Notes == "" {
			return nil, apperrors.Validation("notes", "rejection notes are required")
		}
		status = models.ReviewRejected
		stage = models.StageTranslation
		minScore = 0
	}

	matched, modified, err := s.repo.BulkApplyReview(ctx, req.IDs, status, stage, req.Reviewer, req.Notes, minScore)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bulk review applied",
		zap.Bool("approve", req.Approve),
		zap.Int64("matched", matched),
		zap.Int64("modified", modified))
	return &BulkReviewResult{
		Matched:  matched,
		Modified: modified,
		Skipped:  matched - modified,
	}, nil
}

// ============================================================================
// Reads
// ============================================================================

// Resolution is the outcome of a localized field lookup.
type Resolution struct {
	Translation *models.Translation `json:"translation,omitempty"`
	// Text is the served text, which is the source text when Fallback is set.
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// GetField resolves the served text for one translated field. A key keeps
// serving its newest approved text even while a draft successor is in flight;
// only keys that never had an approved version fall back. When no served
// translation exists and fallback is allowed, the source text of the active
// row is returned flagged as a fallback.
func (s *TranslationService) GetField(ctx context.Context, key models.TranslationKey, fallbackToSource bool) (*Resolution, error) {
	served, err := s.repo.GetServed(ctx, key)
	if err == nil {
		return &Resolution{Translation: served, Text: served.TranslatedText}, nil
	}
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		return nil, err
	}

	active, err := s.repo.GetActive(ctx, key)
	if err != nil {
		return nil, err
	}
	if fallbackToSource {
		return &Resolution{Translation: active, Text: active.OriginalText, Fallback: true}, nil
	}
	return nil, apperrors.NotFound("no served translation for %s", key.String())
}

// GetByID returns one translation row, active or superseded.
func (s *TranslationService) GetByID(ctx context.Context, id uuid.UUID) (*models.Translation, error) {
	return s.repo.GetByID(ctx, id)
}

// GetHistory returns the full version chain of a key, newest first.
func (s *TranslationService) GetHistory(ctx context.Context, key models.TranslationKey) ([]*models.Translation, error) {
	return s.repo.GetHistory(ctx, key)
}

// GetForResource returns translations for one resource.
func (s *TranslationService) GetForResource(ctx context.Context, resourceType, resourceID string, q repositories.ResourceQuery) ([]*models.Translation, error) {
	q.TargetLanguage = models.NormalizeLanguageCode(q.TargetLanguage)
	return s.repo.GetForResource(ctx, resourceType, resourceID, q)
}

// ListPending returns the review queue ordered by due date, priority and
// age. The query runs under its own timeout so a slow queue scan cannot
// stall the editorial UI.
func (s *TranslationService) ListPending(ctx context.Context, filter repositories.PendingFilter) ([]*models.Translation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.pendingQueryTimeout)
	defer cancel()

	filter.TargetLanguage = models.NormalizeLanguageCode(filter.TargetLanguage)
	rows, err := s.repo.ListPending(ctx, filter)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.Timeout(err, "pending queue query exceeded %s", s.pendingQueryTimeout)
		}
		return nil, err
	}
	return rows, nil
}

// TrackUsage bumps usage counters on a row. Usage may be recorded on
// superseded rows; impressions often arrive after a new version shipped.
func (s *TranslationService) TrackUsage(ctx context.Context, id uuid.UUID, usageContext string) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.TrackUsage(ctx, id, usageContext); err != nil {
		return err
	}

	// Language usage counters are best-effort aggregates.
	if err := s.languages.IncrementUsage(ctx, t.TargetLanguage); err != nil {
		s.logger.Warn("failed to increment language usage",
			zap.String("language", t.TargetLanguage), zap.Error(err))
	}
	return nil
}

// Stats aggregates per-language counts for one resource type, or all types
// when resourceType is empty.
func (s *TranslationService) Stats(ctx context.Context, resourceType string) ([]models.LanguageStats, error) {
	return s.repo.StatsByLanguage(ctx, resourceType)
}

// ============================================================================
// Internals
// ============================================================================

// activeRow fetches a row and insists it is the active version of its key.
func (s *TranslationService) activeRow(ctx context.Context, id uuid.UUID) (*models.Translation, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, apperrors.Conflict("id", "translation %s has been superseded", id)
	}
	return t, nil
}

// transition applies a stage change or reports why it is not allowed.
func (s *TranslationService) transition(t *models.Translation, target models.TranslationStage) error {
	if !t.Workflow.Stage.CanTransitionTo(target) {
		return apperrors.WorkflowState("cannot move %s from %s to %s",
			t.Key().String(), t.Workflow.Stage, target)
	}
	t.Workflow.Stage = target
	return nil
}

// validateNew checks the invariants of a fresh translation row.
func (s *TranslationService) validateNew(ctx context.Context, t *models.Translation) error {
	if t.ResourceType == "" {
		return apperrors.Validation("resourceType", "resource type is required")
	}
	if t.ResourceID == "" {
		return apperrors.Validation("resourceId", "resource id is required")
	}
	if t.FieldName == "" {
		return apperrors.Validation("fieldName", "field name is required")
	}
	if t.OriginalText == "" {
		return apperrors.Validation("originalText", "original text is required")
	}
	if !models.IsValidLanguageCode(t.SourceLanguage) {
		return apperrors.Validation("sourceLanguage", "invalid source language %q", t.SourceLanguage)
	}
	if !models.IsValidLanguageCode(t.TargetLanguage) {
		return apperrors.Validation("targetLanguage", "invalid target language %q", t.TargetLanguage)
	}
	if t.SourceLanguage == t.TargetLanguage {
		return apperrors.Validation("targetLanguage", "source and target language must differ")
	}
	if !t.Method.IsValid() {
		return apperrors.Validation("method", "unknown method %q", t.Method)
	}
	if !t.Workflow.Priority.IsValid() {
		return apperrors.Validation("priority", "unknown priority %q", t.Workflow.Priority)
	}
	if t.Quality.Confidence < 0 || t.Quality.Confidence > 1 {
		return apperrors.Validation("confidence", "confidence must be within [0,1]")
	}
	if err := screenText(t.TranslatedText); err != nil {
		return err
	}

	// The target must be a registered active language.
	lang, err := s.languages.GetByCode(ctx, t.TargetLanguage)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return apperrors.Validation("targetLanguage", "language %s is not registered", t.TargetLanguage)
		}
		return err
	}
	if !lang.IsActive {
		return apperrors.Validation("targetLanguage", "language %s is not active", t.TargetLanguage)
	}
	return nil
}

// screenText rejects submitted text that looks like an injection payload.
// Guest-facing strings are rendered into many surfaces we do not control.
func screenText(text string) error {
	if text == "" {
		return nil
	}
	if libinjection.IsXSS(text) {
		return apperrors.Validation("translatedText", "text contains markup that is not allowed")
	}
	return nil
}
