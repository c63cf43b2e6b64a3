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

// RoomTypeRepository provides data access for the room-type catalog.
type RoomTypeRepository interface {
	Create(ctx context.Context, rt *models.RoomType) error
	Update(ctx context.Context, rt *models.RoomType) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RoomType, error)
	GetByCode(ctx context.Context, code string) (*models.RoomType, error)
	List(ctx context.Context, activeOnly bool) ([]*models.RoomType, error)
	// SetTranslationStatus writes one language's cached translation status
	// onto the embedded status map.
	SetTranslationStatus(ctx context.Context, id uuid.UUID, language string, status models.ResourceTranslationStatus) error
}

type roomTypeRepository struct {
	db *database.DB
}

// NewRoomTypeRepository creates a new RoomTypeRepository.
func NewRoomTypeRepository(db *database.DB) RoomTypeRepository {
	return &roomTypeRepository{db: db}
}

var _ RoomTypeRepository = (*roomTypeRepository)(nil)

const roomTypeColumns = `id, code, name, description, short_description,
	base_language, auto_translate, translation_priority, max_occupancy,
	images, amenities, translation_status, is_active, created_at, updated_at`

func (r *roomTypeRepository) Create(ctx context.Context, rt *models.RoomType) error {
	now := time.Now().UTC()

	query := `
		INSERT INTO room_types (
			code, name, description, short_description,
			base_language, auto_translate, translation_priority, max_occupancy,
			images, amenities, translation_status, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		rt.Code,
		rt.Name,
		nullString(rt.Description),
		nullString(rt.ShortDescription),
		rt.BaseLanguage,
		rt.AutoTranslate,
		string(rt.Priority),
		rt.MaxOccupancy,
		jsonbValue(rt.Images),
		jsonbValue(rt.Amenities),
		jsonbValue(rt.TranslationState),
		rt.IsActive,
		now,
	).Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.Conflict("code", "room type code %s already exists", rt.Code)
		}
		return fmt.Errorf("failed to create room type: %w", err)
	}
	return nil
}

func (r *roomTypeRepository) Update(ctx context.Context, rt *models.RoomType) error {
	query := `
		UPDATE room_types
		SET name = $2, description = $3, short_description = $4,
		    base_language = $5, auto_translate = $6, translation_priority = $7,
		    max_occupancy = $8, images = $9, amenities = $10, is_active = $11,
		    updated_at = $12
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		rt.ID,
		rt.Name,
		nullString(rt.Description),
		nullString(rt.ShortDescription),
		rt.BaseLanguage,
		rt.AutoTranslate,
		string(rt.Priority),
		rt.MaxOccupancy,
		jsonbValue(rt.Images),
		jsonbValue(rt.Amenities),
		rt.IsActive,
		time.Now().UTC(),
	).Scan(&rt.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NotFound("room type %s not found", rt.ID)
		}
		return fmt.Errorf("failed to update room type: %w", err)
	}
	return nil
}

func (r *roomTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RoomType, error) {
	query := `SELECT ` + roomTypeColumns + ` FROM room_types WHERE id = $1`

	rt, err := scanRoomType(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("room type %s not found", id)
		}
		return nil, err
	}
	return rt, nil
}

func (r *roomTypeRepository) GetByCode(ctx context.Context, code string) (*models.RoomType, error) {
	query := `SELECT ` + roomTypeColumns + ` FROM room_types WHERE code = $1`

	rt, err := scanRoomType(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("room type %s not found", code)
		}
		return nil, err
	}
	return rt, nil
}

func (r *roomTypeRepository) List(ctx context.Context, activeOnly bool) ([]*models.RoomType, error) {
	query := `SELECT ` + roomTypeColumns + ` FROM room_types`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY code ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list room types: %w", err)
	}
	defer rows.Close()

	var roomTypes []*models.RoomType
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, err
		}
		roomTypes = append(roomTypes, rt)
	}
	return roomTypes, rows.Err()
}

func (r *roomTypeRepository) SetTranslationStatus(ctx context.Context, id uuid.UUID, language string, status models.ResourceTranslationStatus) error {
	query := `
		UPDATE room_types
		SET translation_status = jsonb_set(COALESCE(translation_status, '{}'::jsonb), ARRAY[$2], $3::jsonb),
		    updated_at = now()
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, language, jsonbValue(status))
	if err != nil {
		return fmt.Errorf("failed to set translation status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("room type %s not found", id)
	}
	return nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func scanRoomType(row pgx.Row) (*models.RoomType, error) {
	var rt models.RoomType
	var description, shortDescription *string
	var priority string
	var images, amenities, status []byte

	err := row.Scan(
		&rt.ID,
		&rt.Code,
		&rt.Name,
		&description,
		&shortDescription,
		&rt.BaseLanguage,
		&rt.AutoTranslate,
		&priority,
		&rt.MaxOccupancy,
		&images,
		&amenities,
		&status,
		&rt.IsActive,
		&rt.CreatedAt,
		&rt.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan room type: %w", err)
	}

	rt.Priority = models.TranslationPriority(priority)
	if description != nil {
		rt.Description = *description
	}
	if shortDescription != nil {
		rt.ShortDescription = *shortDescription
	}

	if err := jsonUnmarshal(images, &rt.Images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal images: %w", err)
	}
	if err := jsonUnmarshal(amenities, &rt.Amenities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal amenities: %w", err)
	}
	if err := jsonUnmarshal(status, &rt.TranslationState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal translation status: %w", err)
	}

	return &rt, nil
}
