package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/database"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
)

// NamespaceSummary is one namespace with its key count.
type NamespaceSummary struct {
	Namespace string `json:"namespace"`
	KeyCount  int    `json:"keyCount"`
}

// UITranslationRepository provides data access for UI-namespace strings.
type UITranslationRepository interface {
	// Upsert inserts or replaces the document for (namespace, key).
	Upsert(ctx context.Context, u *models.UITranslation) error
	GetByKey(ctx context.Context, namespace, key string) (*models.UITranslation, error)
	ListNamespace(ctx context.Context, namespace string, activeOnly bool) ([]*models.UITranslation, error)
	ListNamespaces(ctx context.Context) ([]NamespaceSummary, error)
	GetBatch(ctx context.Context, namespace string, keys []string) ([]*models.UITranslation, error)
	Delete(ctx context.Context, namespace, key string) error
}

type uiTranslationRepository struct {
	db *database.DB
}

// NewUITranslationRepository creates a new UITranslationRepository.
func NewUITranslationRepository(db *database.DB) UITranslationRepository {
	return &uiTranslationRepository{db: db}
}

var _ UITranslationRepository = (*uiTranslationRepository)(nil)

const uiTranslationColumns = `id, namespace, key, source_language, source_text,
	translations, contexts, priority, tags, is_active, created_at, updated_at`

func (r *uiTranslationRepository) Upsert(ctx context.Context, u *models.UITranslation) error {
	now := time.Now().UTC()

	query := `
		INSERT INTO ui_translations (
			namespace, key, source_language, source_text, translations,
			contexts, priority, tags, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (namespace, key) DO UPDATE
		SET source_language = EXCLUDED.source_language,
		    source_text = EXCLUDED.source_text,
		    translations = EXCLUDED.translations,
		    contexts = EXCLUDED.contexts,
		    priority = EXCLUDED.priority,
		    tags = EXCLUDED.tags,
		    is_active = EXCLUDED.is_active,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.Namespace,
		u.Key,
		u.SourceLanguage,
		u.SourceText,
		jsonbValue(u.Translations),
		u.Contexts,
		string(u.Priority),
		u.Tags,
		u.IsActive,
		now,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert ui translation: %w", err)
	}
	return nil
}

func (r *uiTranslationRepository) GetByKey(ctx context.Context, namespace, key string) (*models.UITranslation, error) {
	query := `SELECT ` + uiTranslationColumns + ` FROM ui_translations
		WHERE namespace = $1 AND key = $2`

	u, err := scanUITranslation(r.db.QueryRow(ctx, query, namespace, key))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("ui translation %s.%s not found", namespace, key)
		}
		return nil, err
	}
	return u, nil
}

func (r *uiTranslationRepository) ListNamespace(ctx context.Context, namespace string, activeOnly bool) ([]*models.UITranslation, error) {
	query := `SELECT ` + uiTranslationColumns + ` FROM ui_translations WHERE namespace = $1`
	if activeOnly {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY key ASC`

	rows, err := r.db.Query(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace %s: %w", namespace, err)
	}
	defer rows.Close()

	return collectUITranslations(rows)
}

func (r *uiTranslationRepository) ListNamespaces(ctx context.Context) ([]NamespaceSummary, error) {
	query := `
		SELECT namespace, count(*) AS key_count
		FROM ui_translations
		WHERE is_active = true
		GROUP BY namespace
		ORDER BY namespace ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	defer rows.Close()

	var summaries []NamespaceSummary
	for rows.Next() {
		var s NamespaceSummary
		if err := rows.Scan(&s.Namespace, &s.KeyCount); err != nil {
			return nil, fmt.Errorf("failed to scan namespace summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *uiTranslationRepository) GetBatch(ctx context.Context, namespace string, keys []string) ([]*models.UITranslation, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	query := `SELECT ` + uiTranslationColumns + ` FROM ui_translations
		WHERE namespace = $1 AND key = ANY($2) AND is_active = true
		ORDER BY key ASC`

	rows, err := r.db.Query(ctx, query, namespace, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ui translation batch: %w", err)
	}
	defer rows.Close()

	return collectUITranslations(rows)
}

func (r *uiTranslationRepository) Delete(ctx context.Context, namespace, key string) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM ui_translations WHERE namespace = $1 AND key = $2`,
		namespace, key)
	if err != nil {
		return fmt.Errorf("failed to delete ui translation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("ui translation %s.%s not found", namespace, key)
	}
	return nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func collectUITranslations(rows pgx.Rows) ([]*models.UITranslation, error) {
	var out []*models.UITranslation
	for rows.Next() {
		u, err := scanUITranslation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUITranslation(row pgx.Row) (*models.UITranslation, error) {
	var u models.UITranslation
	var priority string
	var translations []byte

	err := row.Scan(
		&u.ID,
		&u.Namespace,
		&u.Key,
		&u.SourceLanguage,
		&u.SourceText,
		&translations,
		&u.Contexts,
		&priority,
		&u.Tags,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan ui translation: %w", err)
	}

	u.Priority = models.TranslationPriority(priority)
	if err := jsonUnmarshal(translations, &u.Translations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ui translation entries: %w", err)
	}

	return &u, nil
}
