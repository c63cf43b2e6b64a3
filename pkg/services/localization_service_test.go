package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/mt"
	"github.com/hotelier-tech/lingua-engine/pkg/repositories"
)

func newLocalizationFixture(t *testing.T) (*LocalizationService, *mockTranslationRepo, *mockRoomTypeRepo, *AutoTranslateService) {
	t.Helper()
	translations := newMockTranslationRepo()
	languages := newMockLanguageRepo(activeLanguage("EN"), activeLanguage("ES"), activeLanguage("DE"))
	roomTypes := newMockRoomTypeRepo()

	gateway := mt.NewGateway(mt.DefaultGatewayConfig(), zap.NewNop())
	gateway.Register(mt.NewMockProvider("mock"))
	pool := mt.NewWorkerPool(mt.DefaultWorkerPoolConfig(), zap.NewNop())
	queue := NewAutoTranslateService(gateway, translations, languages, pool, AutoTranslateConfig{}, zap.NewNop())

	svc := NewLocalizationService(roomTypes, translations, languages, queue, zap.NewNop())
	return svc, translations, roomTypes, queue
}

func seaViewSuite() *models.RoomType {
	return &models.RoomType{
		Code:             "SVS",
		Name:             "Sea View Suite",
		Description:      "A spacious suite overlooking the bay.",
		ShortDescription: "Suite with sea view",
		BaseLanguage:     "EN",
		Priority:         models.PriorityHigh,
		Images: []models.RoomTypeImage{
			{URL: "https://img.example/1.jpg", Caption: "The terrace at sunset", SortOrder: 0},
		},
		Amenities: []models.Amenity{
			{Code: "wifi", Name: "Free WiFi"},
			{Code: "minibar", Name: "Minibar", Description: "Restocked daily"},
		},
	}
}

func TestNormalizeResourceType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"room_type", "room_type"},
		{"RoomTypes", "roomtype"},
		{"room-types", "room_type"},
		{"room types", "room_type"},
		{"Amenities", "amenity"},
		{"amenity", "amenity"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeResourceType(tt.in))
		})
	}
}

func TestCreateRoomTypeFansOutPendingWork(t *testing.T) {
	svc, translations, _, _ := newLocalizationFixture(t)

	rt, err := svc.CreateRoomType(context.Background(), seaViewSuite(), "manager")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, rt.ID)

	// Per target language: 3 scalars + 1 image caption on the room type.
	roomRows, err := translations.GetForResource(context.Background(), ResourceTypeRoomType, rt.ID.String(),
		repositories.ResourceQuery{TargetLanguage: "ES"})
	require.NoError(t, err)
	assert.Len(t, roomRows, 4)
	for _, row := range roomRows {
		assert.Equal(t, models.StageDraft, row.Workflow.Stage)
		assert.Equal(t, models.PriorityHigh, row.Workflow.Priority)
		assert.Equal(t, 1, row.Version)
		assert.Empty(t, row.TranslatedText)
	}

	// Amenity fields land under the amenity resource type keyed by code.
	wifiRows, err := translations.GetActiveForResources(context.Background(), ResourceTypeAmenity,
		[]string{"wifi", "minibar"}, "DE", false)
	require.NoError(t, err)
	assert.Len(t, wifiRows, 3) // wifi name + minibar name + minibar description
}

func TestLocalizeOverlaysServedTranslations(t *testing.T) {
	svc, translations, roomTypes, _ := newLocalizationFixture(t)

	rt := seaViewSuite()
	rt.IsActive = true
	require.NoError(t, roomTypes.Create(context.Background(), rt))

	served := func(resourceType, resourceID, field, text string) {
		translations.add(&models.Translation{
			ResourceType: resourceType, ResourceID: resourceID, FieldName: field,
			SourceLanguage: "EN", TargetLanguage: "ES",
			OriginalText: "x", TranslatedText: text,
			Workflow: models.TranslationWorkflow{Stage: models.StageApproved, Priority: models.PriorityMedium},
			Quality:  models.TranslationQuality{ReviewStatus: models.ReviewApproved, QualityScore: 90},
			Version:  1, IsActive: true,
		})
	}
	served(ResourceTypeRoomType, rt.ID.String(), "name", "Suite Vista Mar")
	served(ResourceTypeRoomType, rt.ID.String(), "image_caption_0", "La terraza al atardecer")
	served(ResourceTypeAmenity, "wifi", "name", "WiFi gratis")

	// A draft must not be served.
	translations.add(&models.Translation{
		ResourceType: ResourceTypeRoomType, ResourceID: rt.ID.String(), FieldName: "description",
		SourceLanguage: "EN", TargetLanguage: "ES",
		OriginalText: "x", TranslatedText: "borrador",
		Workflow: models.TranslationWorkflow{Stage: models.StageDraft, Priority: models.PriorityMedium},
		Quality:  models.TranslationQuality{ReviewStatus: models.ReviewPending},
		Version:  1, IsActive: true,
	})

	got, err := svc.LocalizeRoomType(context.Background(), rt.ID, "es")
	require.NoError(t, err)

	assert.Equal(t, "ES", got.Language)
	assert.Equal(t, "Suite Vista Mar", got.Name)
	assert.Equal(t, "La terraza al atardecer", got.Images[0].Caption)
	assert.Equal(t, "WiFi gratis", got.Amenities[0].Name)

	// Unserved fields fall back to base text and are reported missing.
	assert.Equal(t, "A spacious suite overlooking the bay.", got.Description)
	assert.False(t, got.FullyLocalized)
	assert.Contains(t, got.MissingFields, "description")
	assert.Contains(t, got.MissingFields, "short_description")

	// The stored catalog entry is untouched.
	assert.Equal(t, "Sea View Suite", rt.Name)
}

func TestLocalizeBaseLanguageSkipsStore(t *testing.T) {
	svc, translations, roomTypes, _ := newLocalizationFixture(t)

	rt := seaViewSuite()
	rt.IsActive = true
	require.NoError(t, roomTypes.Create(context.Background(), rt))

	// Poison the store: any lookup would overlay this.
	translations.add(&models.Translation{
		ResourceType: ResourceTypeRoomType, ResourceID: rt.ID.String(), FieldName: "name",
		SourceLanguage: "EN", TargetLanguage: "EN",
		OriginalText: "x", TranslatedText: "should never appear",
		Workflow: models.TranslationWorkflow{Stage: models.StageApproved, Priority: models.PriorityMedium},
		Version:  1, IsActive: true,
	})

	got, err := svc.LocalizeRoomType(context.Background(), rt.ID, "EN")
	require.NoError(t, err)
	assert.Equal(t, "Sea View Suite", got.Name)
	assert.True(t, got.FullyLocalized)
	assert.Empty(t, got.MissingFields)
}

func TestUpdateRoomTypeVersionsChangedFieldsOnly(t *testing.T) {
	svc, translations, _, _ := newLocalizationFixture(t)

	rt, err := svc.CreateRoomType(context.Background(), seaViewSuite(), "manager")
	require.NoError(t, err)

	nameKey := models.TranslationKey{
		ResourceType: ResourceTypeRoomType, ResourceID: rt.ID.String(),
		FieldName: "name", TargetLanguage: "ES",
	}
	v1, err := translations.GetActive(context.Background(), nameKey)
	require.NoError(t, err)

	edited := rt.Clone()
	edited.Name = "Sea View Suite Deluxe"
	_, err = svc.UpdateRoomType(context.Background(), edited, "manager")
	require.NoError(t, err)

	v2, err := translations.GetActive(context.Background(), nameKey)
	require.NoError(t, err)
	assert.NotEqual(t, v1.ID, v2.ID)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, "Sea View Suite Deluxe", v2.OriginalText)
	assert.Contains(t, v2.Workflow.Tags, "source_changed")

	// Unchanged description keeps its version-1 row.
	descKey := nameKey
	descKey.FieldName = "description"
	desc, err := translations.GetActive(context.Background(), descKey)
	require.NoError(t, err)
	assert.Equal(t, 1, desc.Version)
}

func TestFanOutEnqueuesAutoTranslate(t *testing.T) {
	svc, _, _, queue := newLocalizationFixture(t)

	rt := seaViewSuite()
	rt.AutoTranslate = true
	_, err := svc.CreateRoomType(context.Background(), rt, "manager")
	require.NoError(t, err)

	assert.Greater(t, queue.QueueDepth(), 0)
}

func TestCreateRoomTypeValidation(t *testing.T) {
	svc, _, _, _ := newLocalizationFixture(t)

	rt := seaViewSuite()
	rt.BaseLanguage = "english"
	_, err := svc.CreateRoomType(context.Background(), rt, "manager")
	require.Error(t, err)

	rt = seaViewSuite()
	rt.Code = ""
	_, err = svc.CreateRoomType(context.Background(), rt, "manager")
	require.Error(t, err)
}
