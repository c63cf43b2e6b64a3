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

// LanguageRepository provides data access for the language registry.
type LanguageRepository interface {
	// Create inserts a language. When the new language claims the default
	// flag, every previous default is demoted in the same transaction.
	Create(ctx context.Context, lang *models.Language) error
	// Update writes the document guarded by its revision; a stale revision
	// yields a conflict error.
	Update(ctx context.Context, lang *models.Language) error
	// UpdateWithChannelDefault performs the guarded update and, in the same
	// transaction, clears the default flag for the given channel on every
	// other language. A stale revision rolls both back.
	UpdateWithChannelDefault(ctx context.Context, lang *models.Language, channel string) error
	GetByCode(ctx context.Context, code string) (*models.Language, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Language, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Language, error)
	GetDefault(ctx context.Context) (*models.Language, error)
	// SetDefault promotes code and demotes every other default in one
	// transaction.
	SetDefault(ctx context.Context, code string) error
	// DemoteDefaultsExcept clears is_default on every language except the
	// given code. Returns the number of demoted rows.
	DemoteDefaultsExcept(ctx context.Context, keepCode string) (int64, error)
	IncrementUsage(ctx context.Context, code string) error
	UpdateCompleteness(ctx context.Context, code, resourceClass string, pct float64) error
}

type languageRepository struct {
	db *database.DB
}

// NewLanguageRepository creates a new LanguageRepository.
func NewLanguageRepository(db *database.DB) LanguageRepository {
	return &languageRepository{db: db}
}

var _ LanguageRepository = (*languageRepository)(nil)

const languageColumns = `id, code, name, native_name, locale, direction,
	formatting, translation, channel_mappings, contexts,
	is_active, is_default, usage, completeness, revision, created_at, updated_at`

// ============================================================================
// CRUD Operations
// ============================================================================

func (r *languageRepository) Create(ctx context.Context, lang *models.Language) error {
	if !lang.IsDefault {
		return r.insert(ctx, r.db, lang)
	}

	// A new default and the demotion of the previous one land in one
	// transaction; the registry never holds two defaults.
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE languages
		SET is_default = false, revision = revision + 1, updated_at = now()
		WHERE is_default = true`); err != nil {
		return fmt.Errorf("failed to demote previous default: %w", err)
	}
	if err := r.insert(ctx, tx, lang); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *languageRepository) insert(ctx context.Context, q querier, lang *models.Language) error {
	now := time.Now().UTC()

	query := `
		INSERT INTO languages (
			code, name, native_name, locale, direction,
			formatting, translation, channel_mappings, contexts,
			is_active, is_default, usage, completeness, revision, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1, $14, $14)
		RETURNING id, revision, created_at, updated_at`

	err := q.QueryRow(ctx, query,
		lang.Code,
		lang.Name,
		lang.NativeName,
		lang.Locale,
		string(lang.Direction),
		jsonbValue(lang.Formatting),
		jsonbValue(lang.Translation),
		jsonbValue(lang.ChannelMappings),
		jsonbValue(lang.Contexts),
		lang.IsActive,
		lang.IsDefault,
		jsonbValue(lang.Usage),
		jsonbValue(lang.Completeness),
		now,
	).Scan(&lang.ID, &lang.Revision, &lang.CreatedAt, &lang.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.Conflict("code", "language code %s already exists", lang.Code)
		}
		return fmt.Errorf("failed to create language: %w", err)
	}

	return nil
}

func (r *languageRepository) Update(ctx context.Context, lang *models.Language) error {
	return r.update(ctx, r.db, lang)
}

func (r *languageRepository) update(ctx context.Context, q querier, lang *models.Language) error {
	query := `
		UPDATE languages
		SET name = $3, native_name = $4, locale = $5, direction = $6,
		    formatting = $7, translation = $8, channel_mappings = $9, contexts = $10,
		    is_active = $11, is_default = $12, usage = $13, completeness = $14,
		    revision = revision + 1, updated_at = $15
		WHERE id = $1 AND revision = $2
		RETURNING revision, updated_at`

	err := q.QueryRow(ctx, query,
		lang.ID,
		lang.Revision,
		lang.Name,
		lang.NativeName,
		lang.Locale,
		string(lang.Direction),
		jsonbValue(lang.Formatting),
		jsonbValue(lang.Translation),
		jsonbValue(lang.ChannelMappings),
		jsonbValue(lang.Contexts),
		lang.IsActive,
		lang.IsDefault,
		jsonbValue(lang.Usage),
		jsonbValue(lang.Completeness),
		time.Now().UTC(),
	).Scan(&lang.Revision, &lang.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Distinguish a missing row from a stale revision.
			var exists bool
			checkErr := q.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM languages WHERE id = $1)`, lang.ID).Scan(&exists)
			if checkErr == nil && exists {
				return apperrors.Conflict("revision", "language %s was modified concurrently", lang.Code)
			}
			return apperrors.NotFound("language %s not found", lang.Code)
		}
		return fmt.Errorf("failed to update language: %w", err)
	}

	return nil
}

func (r *languageRepository) GetByCode(ctx context.Context, code string) (*models.Language, error) {
	query := `SELECT ` + languageColumns + ` FROM languages WHERE UPPER(code) = UPPER($1)`

	lang, err := scanLanguage(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("language %s not found", code)
		}
		return nil, err
	}
	return lang, nil
}

func (r *languageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Language, error) {
	query := `SELECT ` + languageColumns + ` FROM languages WHERE id = $1`

	lang, err := scanLanguage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("language %s not found", id)
		}
		return nil, err
	}
	return lang, nil
}

func (r *languageRepository) List(ctx context.Context, activeOnly bool) ([]*models.Language, error) {
	query := `SELECT ` + languageColumns + ` FROM languages`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY is_default DESC, code ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	defer rows.Close()

	var languages []*models.Language
	for rows.Next() {
		lang, err := scanLanguage(rows)
		if err != nil {
			return nil, err
		}
		languages = append(languages, lang)
	}
	return languages, rows.Err()
}

func (r *languageRepository) GetDefault(ctx context.Context) (*models.Language, error) {
	query := `SELECT ` + languageColumns + ` FROM languages
		WHERE is_default = true AND is_active = true
		ORDER BY updated_at ASC LIMIT 1`

	lang, err := scanLanguage(r.db.QueryRow(ctx, query))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("no default language configured")
		}
		return nil, err
	}
	return lang, nil
}

// ============================================================================
// Default and channel management
// ============================================================================

func (r *languageRepository) SetDefault(ctx context.Context, code string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := tx.Exec(ctx, `
		UPDATE languages
		SET is_default = true, revision = revision + 1, updated_at = now()
		WHERE UPPER(code) = UPPER($1) AND is_active = true`, code)
	if err != nil {
		return fmt.Errorf("failed to promote default language: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("active language %s not found", code)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE languages
		SET is_default = false, revision = revision + 1, updated_at = now()
		WHERE UPPER(code) <> UPPER($1) AND is_default = true`, code); err != nil {
		return fmt.Errorf("failed to demote previous default: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *languageRepository) DemoteDefaultsExcept(ctx context.Context, keepCode string) (int64, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE languages
		SET is_default = false, revision = revision + 1, updated_at = now()
		WHERE UPPER(code) <> UPPER($1) AND is_default = true`, keepCode)
	if err != nil {
		return 0, fmt.Errorf("failed to demote defaults: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *languageRepository) UpdateWithChannelDefault(ctx context.Context, lang *models.Language, channel string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The guarded update runs first so a stale revision rolls back before
	// any other language loses its channel default.
	if err := r.update(ctx, tx, lang); err != nil {
		return err
	}
	if err := r.clearChannelDefault(ctx, tx, channel, lang.Code); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *languageRepository) clearChannelDefault(ctx context.Context, q querier, channel, keepCode string) error {
	// Rewrites the channel_mappings array in place, flipping is_default off
	// for the matching channel on every other language.
	query := `
		UPDATE languages
		SET channel_mappings = (
			SELECT COALESCE(jsonb_agg(
				CASE WHEN elem->>'channel' = $1
				     THEN jsonb_set(elem, '{isDefault}', 'false')
				     ELSE elem
				END), '[]'::jsonb)
			FROM jsonb_array_elements(channel_mappings) AS elem
		),
		revision = revision + 1, updated_at = now()
		WHERE UPPER(code) <> UPPER($2)
		  AND channel_mappings @> jsonb_build_array(jsonb_build_object('channel', $1::text, 'isDefault', true))`

	if _, err := q.Exec(ctx, query, channel, keepCode); err != nil {
		return fmt.Errorf("failed to clear channel default for %s: %w", channel, err)
	}
	return nil
}

// ============================================================================
// Counters
// ============================================================================

func (r *languageRepository) IncrementUsage(ctx context.Context, code string) error {
	query := `
		UPDATE languages
		SET usage = jsonb_set(
			jsonb_set(COALESCE(usage, '{}'::jsonb), '{translationCount}',
				to_jsonb(COALESCE((usage->>'translationCount')::bigint, 0) + 1)),
			'{lastUsed}', to_jsonb(now())),
		    updated_at = now()
		WHERE UPPER(code) = UPPER($1)`

	if _, err := r.db.Exec(ctx, query, code); err != nil {
		return fmt.Errorf("failed to increment language usage: %w", err)
	}
	return nil
}

func (r *languageRepository) UpdateCompleteness(ctx context.Context, code, resourceClass string, pct float64) error {
	query := `
		UPDATE languages
		SET completeness = jsonb_set(COALESCE(completeness, '{}'::jsonb), ARRAY[$2], to_jsonb($3::float8)),
		    updated_at = now()
		WHERE UPPER(code) = UPPER($1)`

	if _, err := r.db.Exec(ctx, query, code, resourceClass, pct); err != nil {
		return fmt.Errorf("failed to update language completeness: %w", err)
	}
	return nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func scanLanguage(row pgx.Row) (*models.Language, error) {
	var l models.Language
	var direction string
	var formatting, translation, channelMappings, contexts, usage, completeness []byte

	err := row.Scan(
		&l.ID,
		&l.Code,
		&l.Name,
		&l.NativeName,
		&l.Locale,
		&direction,
		&formatting,
		&translation,
		&channelMappings,
		&contexts,
		&l.IsActive,
		&l.IsDefault,
		&usage,
		&completeness,
		&l.Revision,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan language: %w", err)
	}

	l.Direction = models.TextDirection(direction)

	if err := jsonUnmarshal(formatting, &l.Formatting); err != nil {
		return nil, fmt.Errorf("failed to unmarshal formatting: %w", err)
	}
	if err := jsonUnmarshal(translation, &l.Translation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal translation preferences: %w", err)
	}
	if err := jsonUnmarshal(channelMappings, &l.ChannelMappings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal channel mappings: %w", err)
	}
	if err := jsonUnmarshal(contexts, &l.Contexts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contexts: %w", err)
	}
	if err := jsonUnmarshal(usage, &l.Usage); err != nil {
		return nil, fmt.Errorf("failed to unmarshal usage: %w", err)
	}
	if err := jsonUnmarshal(completeness, &l.Completeness); err != nil {
		return nil, fmt.Errorf("failed to unmarshal completeness: %w", err)
	}

	return &l, nil
}
