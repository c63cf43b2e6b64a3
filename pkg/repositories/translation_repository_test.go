//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/testhelpers"
)

// translationTestContext holds test dependencies for translation repository
// tests.
type translationTestContext struct {
	t        *testing.T
	engineDB *testhelpers.EngineDB
	repo     TranslationRepository
}

func setupTranslationTest(t *testing.T) *translationTestContext {
	engineDB := testhelpers.GetEngineDB(t)
	tc := &translationTestContext{
		t:        t,
		engineDB: engineDB,
		repo:     NewTranslationRepository(engineDB.DB),
	}
	tc.cleanup()
	t.Cleanup(tc.cleanup)
	return tc
}

func (tc *translationTestContext) cleanup() {
	tc.t.Helper()
	_, _ = tc.engineDB.DB.Exec(context.Background(), "DELETE FROM translations")
}

func (tc *translationTestContext) createRow(resourceID, field, lang string) *models.Translation {
	tc.t.Helper()
	row := &models.Translation{
		ResourceType:   "room_type",
		ResourceID:     resourceID,
		FieldName:      field,
		SourceLanguage: "EN",
		TargetLanguage: lang,
		OriginalText:   "Sea view suite",
		Method:         models.MethodManual,
		Quality:        models.TranslationQuality{ReviewStatus: models.ReviewPending},
		Workflow: models.TranslationWorkflow{
			Stage:    models.StageDraft,
			Priority: models.PriorityMedium,
		},
		IsActive:  true,
		CreatedBy: "test",
	}
	if err := tc.repo.Create(context.Background(), row); err != nil {
		tc.t.Fatalf("failed to create translation: %v", err)
	}
	return row
}

func TestTranslationRepository_CreateAndGetActive(t *testing.T) {
	tc := setupTranslationTest(t)
	ctx := context.Background()

	row := tc.createRow("rt-1", "name", "ES")
	if row.Version != 1 {
		t.Errorf("expected version 1, got %d", row.Version)
	}

	active, err := tc.repo.GetActive(ctx, row.Key())
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if active.ID != row.ID {
		t.Errorf("expected id %s, got %s", row.ID, active.ID)
	}
}

func TestTranslationRepository_OneActiveRowPerKey(t *testing.T) {
	tc := setupTranslationTest(t)

	tc.createRow("rt-1", "name", "ES")

	// A second active row for the same key violates the partial unique index.
	dup := &models.Translation{
		ResourceType:   "room_type",
		ResourceID:     "rt-1",
		FieldName:      "name",
		SourceLanguage: "EN",
		TargetLanguage: "ES",
		OriginalText:   "Sea view suite",
		Method:         models.MethodManual,
		Workflow:       models.TranslationWorkflow{Stage: models.StageDraft, Priority: models.PriorityMedium},
		IsActive:       true,
	}
	err := tc.repo.Create(context.Background(), dup)
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict for duplicate active row, got %v", err)
	}
}

func TestTranslationRepository_CreateVersionSupersedes(t *testing.T) {
	tc := setupTranslationTest(t)
	ctx := context.Background()

	v1 := tc.createRow("rt-1", "description", "ES")

	v2 := *v1
	v2.ID = uuid.Nil
	v2.TranslatedText = "Suite con vista al mar"
	v2.Version = 2
	v2.PreviousVersion = &v1.ID
	if err := tc.repo.CreateVersion(ctx, v1.ID, &v2); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	active, err := tc.repo.GetActive(ctx, v1.Key())
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if active.Version != 2 {
		t.Errorf("expected active version 2, got %d", active.Version)
	}

	old, err := tc.repo.GetByID(ctx, v1.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if old.IsActive {
		t.Error("expected predecessor to be deactivated")
	}

	history, err := tc.repo.GetHistory(ctx, v1.Key())
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 versions in history, got %d", len(history))
	}
}

func TestTranslationRepository_CreateVersionLosesRace(t *testing.T) {
	tc := setupTranslationTest(t)
	ctx := context.Background()

	v1 := tc.createRow("rt-2", "name", "ES")

	winner := *v1
	winner.ID = uuid.Nil
	winner.Version = 2
	winner.PreviousVersion = &v1.ID
	if err := tc.repo.CreateVersion(ctx, v1.ID, &winner); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	// The predecessor is no longer active; a second successor must lose.
	loser := *v1
	loser.ID = uuid.Nil
	loser.Version = 2
	loser.PreviousVersion = &v1.ID
	err := tc.repo.CreateVersion(ctx, v1.ID, &loser)
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict for superseded predecessor, got %v", err)
	}
}

func TestTranslationRepository_ListPendingFilters(t *testing.T) {
	tc := setupTranslationTest(t)
	ctx := context.Background()

	inReview := tc.createRow("rt-1", "name", "ES")
	inReview.Workflow.Stage = models.StageReview
	if err := tc.repo.Update(ctx, inReview); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	tc.createRow("rt-1", "name", "FR")

	pending, err := tc.repo.ListPending(ctx, PendingFilter{TargetLanguage: "ES"})
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending row for ES, got %d", len(pending))
	}
	if pending[0].ID != inReview.ID {
		t.Errorf("expected row %s, got %s", inReview.ID, pending[0].ID)
	}
}

func TestTranslationRepository_BulkApplyReview(t *testing.T) {
	tc := setupTranslationTest(t)
	ctx := context.Background()

	first := tc.createRow("rt-1", "name", "ES")
	first.Workflow.Stage = models.StageReview
	if err := tc.repo.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	stillDraft := tc.createRow("rt-1", "description", "ES")

	matched, modified, err := tc.repo.BulkApplyReview(ctx,
		[]uuid.UUID{first.ID, stillDraft.ID},
		models.ReviewApproved, models.StageApproved, "reviewer@hotel.test", "", models.MinApprovedQualityScore)
	if err != nil {
		t.Fatalf("BulkApplyReview failed: %v", err)
	}
	if matched != 2 {
		t.Errorf("expected 2 matched, got %d", matched)
	}
	// Only the row in review stage is eligible.
	if modified != 1 {
		t.Errorf("expected 1 modified, got %d", modified)
	}

	approved, err := tc.repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if approved.Workflow.Stage != models.StageApproved {
		t.Errorf("expected approved stage, got %s", approved.Workflow.Stage)
	}
	if approved.Quality.QualityScore < models.MinApprovedQualityScore {
		t.Errorf("expected quality score floor %d, got %d",
			models.MinApprovedQualityScore, approved.Quality.QualityScore)
	}
}

func TestTranslationRepository_ServedSurvivesSuccessor(t *testing.T) {
	tc := setupTranslationTest(t)
	ctx := context.Background()

	v1 := tc.createRow("rt-1", "name", "ES")
	v1.TranslatedText = "Suite de lujo"
	v1.Workflow.Stage = models.StageApproved
	v1.Quality.ReviewStatus = models.ReviewApproved
	if err := tc.repo.Update(ctx, v1); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	v2 := *v1
	v2.ID = uuid.Nil
	v2.TranslatedText = "Suite de lujo renovada"
	v2.Workflow.Stage = models.StageTranslation
	v2.Quality.ReviewStatus = models.ReviewPending
	v2.Version = 2
	v2.PreviousVersion = &v1.ID
	if err := tc.repo.CreateVersion(ctx, v1.ID, &v2); err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	// The unapproved successor is the active head, but the superseded
	// approved row keeps serving.
	served, err := tc.repo.GetServed(ctx, v1.Key())
	if err != nil {
		t.Fatalf("GetServed failed: %v", err)
	}
	if served.ID != v1.ID {
		t.Errorf("expected approved version 1 to serve, got version %d", served.Version)
	}

	rows, err := tc.repo.GetForResource(ctx, "room_type", "rt-1", ResourceQuery{
		TargetLanguage: "ES",
		ServedOnly:     true,
	})
	if err != nil {
		t.Fatalf("GetForResource failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != v1.ID {
		t.Errorf("expected the approved row in the served set, got %d rows", len(rows))
	}

	count, err := tc.repo.CountServed(ctx, "room_type", "rt-1", "ES")
	if err != nil {
		t.Fatalf("CountServed failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 served field, got %d", count)
	}
}

func TestTranslationRepository_CountServed(t *testing.T) {
	tc := setupTranslationTest(t)
	ctx := context.Background()

	served := tc.createRow("rt-1", "name", "ES")
	served.Workflow.Stage = models.StageApproved
	served.Quality.ReviewStatus = models.ReviewApproved
	if err := tc.repo.Update(ctx, served); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	tc.createRow("rt-1", "description", "ES")

	count, err := tc.repo.CountServed(ctx, "room_type", "rt-1", "ES")
	if err != nil {
		t.Fatalf("CountServed failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 served row, got %d", count)
	}
}
