package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/database"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
)

// ResourceQuery narrows GetForResource.
type ResourceQuery struct {
	TargetLanguage string
	// ServedOnly selects the newest approved/published row per field,
	// regardless of the active flag: a field keeps serving its last
	// approved text while a draft successor is in flight.
	ServedOnly bool
	// IncludeHistory returns superseded versions as well.
	IncludeHistory bool
}

// PendingFilter narrows the review queue.
type PendingFilter struct {
	ResourceType   string
	TargetLanguage string
	Assignee       string
	Limit          int
}

// TranslationRepository provides data access for versioned translation rows.
type TranslationRepository interface {
	Create(ctx context.Context, t *models.Translation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Translation, error)
	// GetActive returns the single active row for the key.
	GetActive(ctx context.Context, key models.TranslationKey) (*models.Translation, error)
	// GetServed returns the newest approved or published row for the key,
	// active or not. A superseded approved row still serves until its
	// successor is approved.
	GetServed(ctx context.Context, key models.TranslationKey) (*models.Translation, error)
	// GetHistory returns the full version chain for the key, newest first.
	GetHistory(ctx context.Context, key models.TranslationKey) ([]*models.Translation, error)
	GetForResource(ctx context.Context, resourceType, resourceID string, q ResourceQuery) ([]*models.Translation, error)
	// GetActiveForResources fetches active rows across several resource ids
	// of one type, used for coded sub-collections like amenities.
	GetActiveForResources(ctx context.Context, resourceType string, resourceIDs []string, targetLanguage string, servedOnly bool) ([]*models.Translation, error)
	ListPending(ctx context.Context, filter PendingFilter) ([]*models.Translation, error)
	// Update rewrites a row's mutable fields. Only active rows may be
	// updated; usage counters on inactive rows go through TrackUsage.
	Update(ctx context.Context, t *models.Translation) error
	// CreateVersion atomically deactivates the predecessor and inserts the
	// successor. The caller loses the race when the predecessor is no
	// longer active, surfaced as a conflict error.
	CreateVersion(ctx context.Context, predecessorID uuid.UUID, successor *models.Translation) error
	// BulkApplyReview applies one review decision across many active rows
	// in a single transaction. Returns matched and modified counts.
	BulkApplyReview(ctx context.Context, ids []uuid.UUID, status models.ReviewStatus, stage models.TranslationStage, reviewer, notes string, minScore int) (matched, modified int64, err error)
	// TrackUsage bumps usage counters; permitted on inactive rows.
	TrackUsage(ctx context.Context, id uuid.UUID, usageContext string) error
	// StatsByLanguage aggregates active-row counts per target language.
	StatsByLanguage(ctx context.Context, resourceType string) ([]models.LanguageStats, error)
	// CountServed counts the fields of a resource with a served translation
	// in the given language, counting keys whose approved text is currently
	// superseded by an unapproved successor.
	CountServed(ctx context.Context, resourceType, resourceID, targetLanguage string) (int, error)
}

type translationRepository struct {
	db *database.DB
}

// NewTranslationRepository creates a new TranslationRepository.
func NewTranslationRepository(db *database.DB) TranslationRepository {
	return &translationRepository{db: db}
}

var _ TranslationRepository = (*translationRepository)(nil)

const translationColumns = `id, resource_type, resource_id, field_name,
	source_language, target_language, original_text, translated_text,
	method, provider, confidence, review_status, reviewer, reviewed_at,
	review_notes, quality_score, stage, assignee, due_date, priority,
	tags, notes, version, previous_version, is_active, context,
	impressions, last_used, usage_contexts, created_by, updated_by,
	created_at, updated_at`

// ============================================================================
// CRUD Operations
// ============================================================================

func (r *translationRepository) Create(ctx context.Context, t *models.Translation) error {
	return r.insert(ctx, r.db, t)
}

func (r *translationRepository) insert(ctx context.Context, q querier, t *models.Translation) error {
	now := time.Now().UTC()
	if t.Version < 1 {
		t.Version = 1
	}

	query := `
		INSERT INTO translations (
			resource_type, resource_id, field_name,
			source_language, target_language, original_text, translated_text,
			method, provider, confidence, review_status, reviewer, reviewed_at,
			review_notes, quality_score, stage, assignee, due_date, priority,
			tags, notes, version, previous_version, is_active, context,
			impressions, last_used, usage_contexts, created_by, updated_by,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25,
			$26, $27, $28, $29, $30, $31, $31)
		RETURNING id, created_at, updated_at`

	err := q.QueryRow(ctx, query,
		t.ResourceType,
		t.ResourceID,
		t.FieldName,
		t.SourceLanguage,
		t.TargetLanguage,
		t.OriginalText,
		nullString(t.TranslatedText),
		string(t.Method),
		nullString(t.Provider),
		t.Quality.Confidence,
		string(t.Quality.ReviewStatus),
		nullString(t.Quality.Reviewer),
		nullTime(t.Quality.ReviewedAt),
		nullString(t.Quality.ReviewNotes),
		t.Quality.QualityScore,
		string(t.Workflow.Stage),
		nullString(t.Workflow.Assignee),
		nullTime(t.Workflow.DueDate),
		string(t.Workflow.Priority),
		t.Workflow.Tags,
		nullString(t.Workflow.Notes),
		t.Version,
		t.PreviousVersion,
		t.IsActive,
		jsonbValue(t.Context),
		t.Usage.Impressions,
		nullTime(t.Usage.LastUsed),
		t.Usage.Contexts,
		nullString(t.CreatedBy),
		nullString(t.UpdatedBy),
		now,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.Conflict("key", "an active translation already exists for %s", t.Key())
		}
		return fmt.Errorf("failed to create translation: %w", err)
	}
	return nil
}

func (r *translationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Translation, error) {
	query := `SELECT ` + translationColumns + ` FROM translations WHERE id = $1`

	t, err := scanTranslation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("translation %s not found", id)
		}
		return nil, err
	}
	return t, nil
}

func (r *translationRepository) GetActive(ctx context.Context, key models.TranslationKey) (*models.Translation, error) {
	query := `SELECT ` + translationColumns + ` FROM translations
		WHERE resource_type = $1 AND resource_id = $2 AND field_name = $3
		  AND target_language = $4 AND is_active = true`

	t, err := scanTranslation(r.db.QueryRow(ctx, query,
		key.ResourceType, key.ResourceID, key.FieldName, key.TargetLanguage))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("no active translation for %s", key)
		}
		return nil, err
	}
	return t, nil
}

func (r *translationRepository) GetServed(ctx context.Context, key models.TranslationKey) (*models.Translation, error) {
	query := `SELECT ` + translationColumns + ` FROM translations
		WHERE resource_type = $1 AND resource_id = $2 AND field_name = $3
		  AND target_language = $4 AND stage IN ('approved', 'published')
		ORDER BY version DESC LIMIT 1`

	t, err := scanTranslation(r.db.QueryRow(ctx, query,
		key.ResourceType, key.ResourceID, key.FieldName, key.TargetLanguage))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("no served translation for %s", key)
		}
		return nil, err
	}
	return t, nil
}

func (r *translationRepository) GetHistory(ctx context.Context, key models.TranslationKey) ([]*models.Translation, error) {
	query := `SELECT ` + translationColumns + ` FROM translations
		WHERE resource_type = $1 AND resource_id = $2 AND field_name = $3
		  AND target_language = $4
		ORDER BY version DESC`

	rows, err := r.db.Query(ctx, query,
		key.ResourceType, key.ResourceID, key.FieldName, key.TargetLanguage)
	if err != nil {
		return nil, fmt.Errorf("failed to query translation history: %w", err)
	}
	defer rows.Close()

	return collectTranslations(rows)
}

func (r *translationRepository) GetForResource(ctx context.Context, resourceType, resourceID string, q ResourceQuery) ([]*models.Translation, error) {
	if q.ServedOnly {
		return r.servedForResource(ctx, resourceType, resourceID, q.TargetLanguage)
	}

	query := `SELECT ` + translationColumns + ` FROM translations
		WHERE resource_type = $1 AND resource_id = $2`
	args := []any{resourceType, resourceID}

	if q.TargetLanguage != "" {
		args = append(args, q.TargetLanguage)
		query += fmt.Sprintf(" AND target_language = $%d", len(args))
	}
	if !q.IncludeHistory {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY field_name ASC, version DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query translations for resource: %w", err)
	}
	defer rows.Close()

	return collectTranslations(rows)
}

// servedForResource picks the newest approved/published row per field and
// language. The active flag is irrelevant here: a superseded approved row
// serves until its successor clears review.
func (r *translationRepository) servedForResource(ctx context.Context, resourceType, resourceID, targetLanguage string) ([]*models.Translation, error) {
	query := `SELECT DISTINCT ON (field_name, target_language) ` + translationColumns + `
		FROM translations
		WHERE resource_type = $1 AND resource_id = $2
		  AND stage IN ('approved', 'published')`
	args := []any{resourceType, resourceID}

	if targetLanguage != "" {
		args = append(args, targetLanguage)
		query += fmt.Sprintf(" AND target_language = $%d", len(args))
	}
	query += ` ORDER BY field_name ASC, target_language ASC, version DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query served translations for resource: %w", err)
	}
	defer rows.Close()

	return collectTranslations(rows)
}

func (r *translationRepository) GetActiveForResources(ctx context.Context, resourceType string, resourceIDs []string, targetLanguage string, servedOnly bool) ([]*models.Translation, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + translationColumns + ` FROM translations
		WHERE resource_type = $1 AND resource_id = ANY($2)
		  AND target_language = $3 AND is_active = true
		ORDER BY resource_id ASC, field_name ASC`
	if servedOnly {
		query = `SELECT DISTINCT ON (resource_id, field_name) ` + translationColumns + `
			FROM translations
			WHERE resource_type = $1 AND resource_id = ANY($2)
			  AND target_language = $3 AND stage IN ('approved', 'published')
			ORDER BY resource_id ASC, field_name ASC, version DESC`
	}

	rows, err := r.db.Query(ctx, query, resourceType, resourceIDs, targetLanguage)
	if err != nil {
		return nil, fmt.Errorf("failed to query translations for resources: %w", err)
	}
	defer rows.Close()

	return collectTranslations(rows)
}

// ListPending returns active rows still awaiting translation or review,
// ordered by due date (nulls last), priority and age.
func (r *translationRepository) ListPending(ctx context.Context, filter PendingFilter) ([]*models.Translation, error) {
	query := `SELECT ` + translationColumns + ` FROM translations
		WHERE is_active = true AND review_status IN ('pending', 'needs_review')`
	var args []any

	if filter.ResourceType != "" {
		args = append(args, filter.ResourceType)
		query += fmt.Sprintf(" AND resource_type = $%d", len(args))
	}
	if filter.TargetLanguage != "" {
		args = append(args, filter.TargetLanguage)
		query += fmt.Sprintf(" AND target_language = $%d", len(args))
	}
	if filter.Assignee != "" {
		args = append(args, filter.Assignee)
		query += fmt.Sprintf(" AND assignee = $%d", len(args))
	}

	query += `
		ORDER BY due_date ASC NULLS LAST,
		         CASE priority
		             WHEN 'urgent' THEN 4
		             WHEN 'high' THEN 3
		             WHEN 'medium' THEN 2
		             WHEN 'low' THEN 1
		             ELSE 0
		         END DESC,
		         created_at ASC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending translations: %w", err)
	}
	defer rows.Close()

	return collectTranslations(rows)
}

func (r *translationRepository) Update(ctx context.Context, t *models.Translation) error {
	query := `
		UPDATE translations
		SET translated_text = $2, method = $3, provider = $4,
		    confidence = $5, review_status = $6, reviewer = $7, reviewed_at = $8,
		    review_notes = $9, quality_score = $10, stage = $11, assignee = $12,
		    due_date = $13, priority = $14, tags = $15, notes = $16,
		    context = $17, updated_by = $18, updated_at = $19
		WHERE id = $1 AND is_active = true
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		t.ID,
		nullString(t.TranslatedText),
		string(t.Method),
		nullString(t.Provider),
		t.Quality.Confidence,
		string(t.Quality.ReviewStatus),
		nullString(t.Quality.Reviewer),
		nullTime(t.Quality.ReviewedAt),
		nullString(t.Quality.ReviewNotes),
		t.Quality.QualityScore,
		string(t.Workflow.Stage),
		nullString(t.Workflow.Assignee),
		nullTime(t.Workflow.DueDate),
		string(t.Workflow.Priority),
		t.Workflow.Tags,
		nullString(t.Workflow.Notes),
		jsonbValue(t.Context),
		nullString(t.UpdatedBy),
		time.Now().UTC(),
	).Scan(&t.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NotFound("active translation %s not found", t.ID)
		}
		return fmt.Errorf("failed to update translation: %w", err)
	}
	return nil
}

// ============================================================================
// Versioning
// ============================================================================

func (r *translationRepository) CreateVersion(ctx context.Context, predecessorID uuid.UUID, successor *models.Translation) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Compare-and-set on is_active: zero rows affected means another writer
	// already superseded this version.
	result, err := tx.Exec(ctx, `
		UPDATE translations
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active = true`, predecessorID)
	if err != nil {
		return fmt.Errorf("failed to deactivate predecessor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.Conflict("version", "translation %s was superseded concurrently", predecessorID)
	}

	successor.IsActive = true
	if err := r.insert(ctx, tx, successor); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ============================================================================
// Bulk review
// ============================================================================

func (r *translationRepository) BulkApplyReview(ctx context.Context, ids []uuid.UUID, status models.ReviewStatus, stage models.TranslationStage, reviewer, notes string, minScore int) (int64, int64, error) {
	if len(ids) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var matched int64
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM translations WHERE id = ANY($1) AND is_active = true`,
		ids).Scan(&matched); err != nil {
		return 0, 0, fmt.Errorf("failed to count matched translations: %w", err)
	}

	result, err := tx.Exec(ctx, `
		UPDATE translations
		SET review_status = $2, stage = $3, reviewer = $4, reviewed_at = now(),
		    review_notes = $5, quality_score = GREATEST(quality_score, $6),
		    updated_by = $4, updated_at = now()
		WHERE id = ANY($1) AND is_active = true AND stage = 'review'`,
		ids, string(status), string(stage), reviewer, nullString(notes), minScore)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to apply bulk review: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return matched, result.RowsAffected(), nil
}

// ============================================================================
// Usage and statistics
// ============================================================================

func (r *translationRepository) TrackUsage(ctx context.Context, id uuid.UUID, usageContext string) error {
	query := `
		UPDATE translations
		SET impressions = impressions + 1,
		    last_used = now(),
		    usage_contexts = CASE
		        WHEN $2 = '' OR $2 = ANY(COALESCE(usage_contexts, '{}')) THEN usage_contexts
		        ELSE array_append(COALESCE(usage_contexts, '{}'), $2)
		    END
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, usageContext)
	if err != nil {
		return fmt.Errorf("failed to track translation usage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("translation %s not found", id)
	}
	return nil
}

func (r *translationRepository) StatsByLanguage(ctx context.Context, resourceType string) ([]models.LanguageStats, error) {
	query := `
		SELECT target_language,
		       count(*) AS total,
		       count(*) FILTER (WHERE review_status = 'approved') AS approved,
		       count(*) FILTER (WHERE review_status = 'pending') AS pending,
		       count(*) FILTER (WHERE review_status = 'rejected') AS rejected,
		       count(*) FILTER (WHERE review_status = 'needs_review') AS needs_review
		FROM translations
		WHERE is_active = true`
	var args []any
	if resourceType != "" {
		args = append(args, resourceType)
		query += ` AND resource_type = $1`
	}
	query += ` GROUP BY target_language ORDER BY target_language ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query translation stats: %w", err)
	}
	defer rows.Close()

	var stats []models.LanguageStats
	for rows.Next() {
		var s models.LanguageStats
		if err := rows.Scan(&s.TargetLanguage, &s.Total, &s.Approved, &s.Pending, &s.Rejected, &s.NeedsReview); err != nil {
			return nil, fmt.Errorf("failed to scan translation stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *translationRepository) CountServed(ctx context.Context, resourceType, resourceID, targetLanguage string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT count(DISTINCT field_name) FROM translations
		WHERE resource_type = $1 AND resource_id = $2 AND target_language = $3
		  AND stage IN ('approved', 'published')`,
		resourceType, resourceID, targetLanguage).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count served translations: %w", err)
	}
	return count, nil
}

// ============================================================================
// Helper Functions
// ============================================================================

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func collectTranslations(rows pgx.Rows) ([]*models.Translation, error) {
	var translations []*models.Translation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		translations = append(translations, t)
	}
	return translations, rows.Err()
}

func scanTranslation(row pgx.Row) (*models.Translation, error) {
	var t models.Translation
	var translatedText, provider, reviewer, reviewNotes, assignee, notes, createdBy, updatedBy *string
	var method, reviewStatus, stage, priority string
	var contextData []byte

	err := row.Scan(
		&t.ID,
		&t.ResourceType,
		&t.ResourceID,
		&t.FieldName,
		&t.SourceLanguage,
		&t.TargetLanguage,
		&t.OriginalText,
		&translatedText,
		&method,
		&provider,
		&t.Quality.Confidence,
		&reviewStatus,
		&reviewer,
		&t.Quality.ReviewedAt,
		&reviewNotes,
		&t.Quality.QualityScore,
		&stage,
		&assignee,
		&t.Workflow.DueDate,
		&priority,
		&t.Workflow.Tags,
		&notes,
		&t.Version,
		&t.PreviousVersion,
		&t.IsActive,
		&contextData,
		&t.Usage.Impressions,
		&t.Usage.LastUsed,
		&t.Usage.Contexts,
		&createdBy,
		&updatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan translation: %w", err)
	}

	t.Method = models.TranslationMethod(method)
	t.Quality.ReviewStatus = models.ReviewStatus(reviewStatus)
	t.Workflow.Stage = models.TranslationStage(stage)
	t.Workflow.Priority = models.TranslationPriority(priority)

	if translatedText != nil {
		t.TranslatedText = *translatedText
	}
	if provider != nil {
		t.Provider = *provider
	}
	if reviewer != nil {
		t.Quality.Reviewer = *reviewer
	}
	if reviewNotes != nil {
		t.Quality.ReviewNotes = *reviewNotes
	}
	if assignee != nil {
		t.Workflow.Assignee = *assignee
	}
	if notes != nil {
		t.Workflow.Notes = *notes
	}
	if createdBy != nil {
		t.CreatedBy = *createdBy
	}
	if updatedBy != nil {
		t.UpdatedBy = *updatedBy
	}

	if err := jsonUnmarshal(contextData, &t.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal translation context: %w", err)
	}

	return &t, nil
}
