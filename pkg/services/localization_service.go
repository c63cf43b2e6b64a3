package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/repositories"
)

// Resource type tags used in the translation store.
const (
	ResourceTypeRoomType = "room_type"
	ResourceTypeAmenity  = "amenity"
)

// CodedField describes a coded sub-collection whose elements are translated
// under their own resource type, keyed by code rather than the owner's id.
type CodedField struct {
	Path         string   // JSON path on the owner, e.g. "amenities"
	ResourceType string   // resource type tag of the elements
	Fields       []string // translatable fields of each element
}

// ArrayField describes an indexed collection whose caption-like field is
// translated under index-derived field names.
type ArrayField struct {
	Path         string // JSON path on the owner, e.g. "images"
	CaptionField string // field-name prefix, e.g. "image_caption"
}

// TranslatableFields declares which parts of a resource carry guest-facing
// text.
type TranslatableFields struct {
	Scalars []string
	Arrays  []ArrayField
	Coded   []CodedField
}

// ResourceDescriptor registers one resource type with the localization
// layer.
type ResourceDescriptor struct {
	Type   string
	Fields TranslatableFields
}

// NormalizeResourceType canonicalizes a resource type tag: lowercase,
// singular, spaces and dashes folded to underscores. "RoomTypes" and
// "room-type" both resolve to "room_type".
func NormalizeResourceType(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.NewReplacer(" ", "_", "-", "_").Replace(tag)
	parts := strings.Split(tag, "_")
	if len(parts) > 0 {
		parts[len(parts)-1] = inflection.Singular(parts[len(parts)-1])
	}
	return strings.Join(parts, "_")
}

// RoomTypeDescriptor declares the translatable surface of the room-type
// catalog.
func RoomTypeDescriptor() ResourceDescriptor {
	return ResourceDescriptor{
		Type: ResourceTypeRoomType,
		Fields: TranslatableFields{
			Scalars: []string{"name", "description", "short_description"},
			Arrays:  []ArrayField{{Path: "images", CaptionField: "image_caption"}},
			Coded: []CodedField{{
				Path:         "amenities",
				ResourceType: ResourceTypeAmenity,
				Fields:       []string{"name", "description"},
			}},
		},
	}
}

// LocalizedRoomType is a room type with served translations overlaid, plus
// the fields that fell back to the base language.
type LocalizedRoomType struct {
	*models.RoomType
	Language       string   `json:"language"`
	MissingFields  []string `json:"missingFields,omitempty"`
	FullyLocalized bool     `json:"fullyLocalized"`
}

// LocalizationService overlays served translations onto owning resources and
// fans resource edits out into pending translation work.
type LocalizationService struct {
	roomTypes    repositories.RoomTypeRepository
	translations repositories.TranslationRepository
	languages    repositories.LanguageRepository
	queue        *AutoTranslateService
	descriptors  map[string]ResourceDescriptor
	logger       *zap.Logger
}

// NewLocalizationService creates a LocalizationService with the built-in
// room-type descriptor registered.
func NewLocalizationService(
	roomTypes repositories.RoomTypeRepository,
	translations repositories.TranslationRepository,
	languages repositories.LanguageRepository,
	queue *AutoTranslateService,
	logger *zap.Logger,
) *LocalizationService {
	s := &LocalizationService{
		roomTypes:    roomTypes,
		translations: translations,
		languages:    languages,
		queue:        queue,
		descriptors:  make(map[string]ResourceDescriptor),
		logger:       logger.Named("localization-service"),
	}
	s.RegisterDescriptor(RoomTypeDescriptor())
	return s
}

// RegisterDescriptor adds or replaces a resource descriptor. The type tag is
// normalized, so plural or dashed variants register the same descriptor.
func (s *LocalizationService) RegisterDescriptor(d ResourceDescriptor) {
	d.Type = NormalizeResourceType(d.Type)
	s.descriptors[d.Type] = d
}

// Descriptor resolves the descriptor for a resource type tag.
func (s *LocalizationService) Descriptor(tag string) (ResourceDescriptor, bool) {
	d, ok := s.descriptors[NormalizeResourceType(tag)]
	return d, ok
}

// TranslatableFieldCount returns how many field names the descriptor yields
// for a concrete room type, the denominator for completeness.
func (s *LocalizationService) TranslatableFieldCount(rt *models.RoomType) int {
	d := s.descriptors[ResourceTypeRoomType]
	count := 0
	for _, f := range d.Fields.Scalars {
		if scalarText(rt, f) != "" {
			count++
		}
	}
	for i := range rt.Images {
		if rt.Images[i].Caption != "" {
			count++
		}
	}
	for _, a := range rt.Amenities {
		if a.Name != "" {
			count++
		}
		if a.Description != "" {
			count++
		}
	}
	return count
}

// ============================================================================
// Read path
// ============================================================================

// LocalizeRoomType returns the room type with every served translation for
// the target language overlaid. Fields without a served translation keep the
// base-language text and are reported in MissingFields. Requesting the base
// language returns the resource untouched without hitting the store.
func (s *LocalizationService) LocalizeRoomType(ctx context.Context, id uuid.UUID, language string) (*LocalizedRoomType, error) {
	rt, err := s.roomTypes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.localize(ctx, rt, language)
}

// LocalizeRoomTypeByCode is LocalizeRoomType addressed by catalog code.
func (s *LocalizationService) LocalizeRoomTypeByCode(ctx context.Context, code, language string) (*LocalizedRoomType, error) {
	rt, err := s.roomTypes.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.localize(ctx, rt, language)
}

func (s *LocalizationService) localize(ctx context.Context, rt *models.RoomType, language string) (*LocalizedRoomType, error) {
	language = models.NormalizeLanguageCode(language)
	if language == "" || language == rt.BaseLanguage {
		return &LocalizedRoomType{RoomType: rt.Clone(), Language: rt.BaseLanguage, FullyLocalized: true}, nil
	}
	if !models.IsValidLanguageCode(language) {
		return nil, apperrors.Validation("language", "invalid language code %q", language)
	}

	clone := rt.Clone()
	var missing []string

	rows, err := s.translations.GetForResource(ctx, ResourceTypeRoomType, rt.ID.String(), repositories.ResourceQuery{
		TargetLanguage: language,
		ServedOnly:     true,
	})
	if err != nil {
		return nil, err
	}

	served := make(map[string]string, len(rows))
	for _, row := range rows {
		served[row.FieldName] = row.TranslatedText
	}

	overlayScalar := func(field string, dst *string) {
		if *dst == "" {
			return
		}
		if text, ok := served[field]; ok && text != "" {
			*dst = text
		} else {
			missing = append(missing, field)
		}
	}
	overlayScalar("name", &clone.Name)
	overlayScalar("description", &clone.Description)
	overlayScalar("short_description", &clone.ShortDescription)

	for i := range clone.Images {
		if clone.Images[i].Caption == "" {
			continue
		}
		field := imageCaptionField(i)
		if text, ok := served[field]; ok && text != "" {
			clone.Images[i].Caption = text
		} else {
			missing = append(missing, field)
		}
	}

	// Amenity translations are shared across room types, keyed by code.
	if codes := clone.AmenityCodes(); len(codes) > 0 {
		amenityRows, err := s.translations.GetActiveForResources(ctx, ResourceTypeAmenity, codes, language, true)
		if err != nil {
			return nil, err
		}
		byCode := make(map[string]map[string]string)
		for _, row := range amenityRows {
			if byCode[row.ResourceID] == nil {
				byCode[row.ResourceID] = make(map[string]string)
			}
			byCode[row.ResourceID][row.FieldName] = row.TranslatedText
		}
		for i := range clone.Amenities {
			a := &clone.Amenities[i]
			fields := byCode[a.Code]
			if text := fields["name"]; text != "" {
				a.Name = text
			} else if a.Name != "" {
				missing = append(missing, amenityField(a.Code, "name"))
			}
			if a.Description == "" {
				continue
			}
			if text := fields["description"]; text != "" {
				a.Description = text
			} else {
				missing = append(missing, amenityField(a.Code, "description"))
			}
		}
	}

	return &LocalizedRoomType{
		RoomType:       clone,
		Language:       language,
		MissingFields:  missing,
		FullyLocalized: len(missing) == 0,
	}, nil
}

// ============================================================================
// Write path
// ============================================================================

// CreateRoomType registers a room type and fans its translatable fields out
// as pending work for every active target language.
func (s *LocalizationService) CreateRoomType(ctx context.Context, rt *models.RoomType, actor string) (*models.RoomType, error) {
	if err := s.validateRoomType(rt); err != nil {
		return nil, err
	}
	rt.IsActive = true

	if err := s.roomTypes.Create(ctx, rt); err != nil {
		return nil, err
	}

	if err := s.fanOut(ctx, nil, rt, actor); err != nil {
		// The catalog write stands; translation fan-out failures surface in
		// the pending queue and statistics rather than failing the edit.
		s.logger.Error("translation fan-out failed after create",
			zap.String("code", rt.Code), zap.Error(err))
	}
	return rt, nil
}

// UpdateRoomType updates the catalog entry and versions translations for
// every field whose source text changed.
func (s *LocalizationService) UpdateRoomType(ctx context.Context, rt *models.RoomType, actor string) (*models.RoomType, error) {
	if err := s.validateRoomType(rt); err != nil {
		return nil, err
	}

	before, err := s.roomTypes.GetByID(ctx, rt.ID)
	if err != nil {
		return nil, err
	}

	if err := s.roomTypes.Update(ctx, rt); err != nil {
		return nil, err
	}

	if err := s.fanOut(ctx, before, rt, actor); err != nil {
		s.logger.Error("translation fan-out failed after update",
			zap.String("code", rt.Code), zap.Error(err))
	}
	return rt, nil
}

// GetRoomType returns a catalog entry without localization.
func (s *LocalizationService) GetRoomType(ctx context.Context, id uuid.UUID) (*models.RoomType, error) {
	return s.roomTypes.GetByID(ctx, id)
}

// ListRoomTypes lists catalog entries.
func (s *LocalizationService) ListRoomTypes(ctx context.Context, activeOnly bool) ([]*models.RoomType, error) {
	return s.roomTypes.List(ctx, activeOnly)
}

// fieldEdit is one translatable field whose source text is current.
type fieldEdit struct {
	resourceType string
	resourceID   string
	field        string
	text         string
}

// fanOut diffs the translatable fields of a resource edit and opens or
// versions pending translation rows for every active target language.
// Passing a nil before treats every non-empty field as changed.
func (s *LocalizationService) fanOut(ctx context.Context, before, after *models.RoomType, actor string) error {
	edits := diffRoomType(before, after)
	if len(edits) == 0 {
		return nil
	}

	langs, err := s.languages.List(ctx, true)
	if err != nil {
		return err
	}

	base := models.NormalizeLanguageCode(after.BaseLanguage)
	for _, lang := range langs {
		if lang.Code == base {
			continue
		}
		autoTranslate := after.AutoTranslate && lang.Translation.AutoTranslate.Enabled
		for _, edit := range edits {
			if err := s.openPending(ctx, edit, base, lang.Code, after.Priority, actor, autoTranslate); err != nil {
				return err
			}
		}
	}
	return nil
}

// openPending opens a v1 pending row for the key, or supersedes the active
// row when its source text is stale. Unchanged keys are left alone.
func (s *LocalizationService) openPending(ctx context.Context, edit fieldEdit, source, target string, priority models.TranslationPriority, actor string, autoTranslate bool) error {
	if priority == "" {
		priority = models.PriorityMedium
	}
	key := models.TranslationKey{
		ResourceType:   edit.resourceType,
		ResourceID:     edit.resourceID,
		FieldName:      edit.field,
		TargetLanguage: target,
	}

	current, err := s.translations.GetActive(ctx, key)
	switch {
	case err == nil:
		if current.OriginalText == edit.text {
			return nil
		}
		successor := &models.Translation{
			ResourceType:   edit.resourceType,
			ResourceID:     edit.resourceID,
			FieldName:      edit.field,
			SourceLanguage: source,
			TargetLanguage: target,
			OriginalText:   edit.text,
			Method:         models.MethodManual,
			Quality:        models.TranslationQuality{ReviewStatus: models.ReviewPending},
			Workflow: models.TranslationWorkflow{
				Stage:    models.StageDraft,
				Priority: priority,
				Tags:     []string{"source_changed"},
			},
			Version:         current.Version + 1,
			PreviousVersion: &current.ID,
			IsActive:        true,
			CreatedBy:       actor,
			UpdatedBy:       actor,
		}
		if err := s.translations.CreateVersion(ctx, current.ID, successor); err != nil {
			return fmt.Errorf("failed to version %s: %w", key.String(), err)
		}
		if autoTranslate {
			s.queue.Enqueue(successor.ID, key)
		}
		return nil

	case apperrors.KindOf(err) == apperrors.KindNotFound:
		t := &models.Translation{
			ResourceType:   edit.resourceType,
			ResourceID:     edit.resourceID,
			FieldName:      edit.field,
			SourceLanguage: source,
			TargetLanguage: target,
			OriginalText:   edit.text,
			Method:         models.MethodManual,
			Quality:        models.TranslationQuality{ReviewStatus: models.ReviewPending},
			Workflow: models.TranslationWorkflow{
				Stage:    models.StageDraft,
				Priority: priority,
			},
			Version:   1,
			IsActive:  true,
			CreatedBy: actor,
			UpdatedBy: actor,
		}
		if err := s.translations.Create(ctx, t); err != nil {
			return fmt.Errorf("failed to open %s: %w", key.String(), err)
		}
		if autoTranslate {
			s.queue.Enqueue(t.ID, key)
		}
		return nil

	default:
		return err
	}
}

// diffRoomType lists the translatable fields of after whose text differs
// from before. A nil before yields every non-empty field.
func diffRoomType(before, after *models.RoomType) []fieldEdit {
	id := after.ID.String()
	var edits []fieldEdit

	add := func(rt, rid, field, now, was string) {
		if now == "" || now == was {
			return
		}
		edits = append(edits, fieldEdit{resourceType: rt, resourceID: rid, field: field, text: now})
	}

	var b models.RoomType
	if before != nil {
		b = *before
	}

	add(ResourceTypeRoomType, id, "name", after.Name, b.Name)
	add(ResourceTypeRoomType, id, "description", after.Description, b.Description)
	add(ResourceTypeRoomType, id, "short_description", after.ShortDescription, b.ShortDescription)

	for i := range after.Images {
		was := ""
		if i < len(b.Images) {
			was = b.Images[i].Caption
		}
		add(ResourceTypeRoomType, id, imageCaptionField(i), after.Images[i].Caption, was)
	}

	beforeAmenities := make(map[string]models.Amenity, len(b.Amenities))
	for _, a := range b.Amenities {
		beforeAmenities[a.Code] = a
	}
	for _, a := range after.Amenities {
		was := beforeAmenities[a.Code]
		add(ResourceTypeAmenity, a.Code, "name", a.Name, was.Name)
		add(ResourceTypeAmenity, a.Code, "description", a.Description, was.Description)
	}

	return edits
}

func (s *LocalizationService) validateRoomType(rt *models.RoomType) error {
	if rt.Code == "" {
		return apperrors.Validation("code", "room type code is required")
	}
	if rt.Name == "" {
		return apperrors.Validation("name", "room type name is required")
	}
	rt.BaseLanguage = models.NormalizeLanguageCode(rt.BaseLanguage)
	if !models.IsValidLanguageCode(rt.BaseLanguage) {
		return apperrors.Validation("baseLanguage", "invalid base language %q", rt.BaseLanguage)
	}
	if rt.Priority == "" {
		rt.Priority = models.PriorityMedium
	}
	if !rt.Priority.IsValid() {
		return apperrors.Validation("translationPriority", "unknown priority %q", rt.Priority)
	}
	for _, a := range rt.Amenities {
		if a.Code == "" {
			return apperrors.Validation("amenities", "amenity code is required")
		}
	}
	return nil
}

func imageCaptionField(index int) string {
	return "image_caption_" + strconv.Itoa(index)
}

func amenityField(code, field string) string {
	return "amenity/" + code + "/" + field
}

func scalarText(rt *models.RoomType, field string) string {
	switch field {
	case "name":
		return rt.Name
	case "description":
		return rt.Description
	case "short_description":
		return rt.ShortDescription
	}
	return ""
}
