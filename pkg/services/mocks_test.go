package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/repositories"
)

// ============================================================================
// Language repository mock
// ============================================================================

type mockLanguageRepo struct {
	byCode map[string]*models.Language

	createFunc       func(ctx context.Context, lang *models.Language) error
	updateFunc       func(ctx context.Context, lang *models.Language) error
	demoted          int64
	channelCleared   []string
	completenessSets map[string]float64
	usageBumps       map[string]int
}

var _ repositories.LanguageRepository = (*mockLanguageRepo)(nil)

func newMockLanguageRepo(langs ...*models.Language) *mockLanguageRepo {
	m := &mockLanguageRepo{
		byCode:           make(map[string]*models.Language),
		completenessSets: make(map[string]float64),
		usageBumps:       make(map[string]int),
	}
	for _, l := range langs {
		m.byCode[l.Code] = l
	}
	return m
}

func (m *mockLanguageRepo) Create(ctx context.Context, lang *models.Language) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, lang)
	}
	if _, exists := m.byCode[lang.Code]; exists {
		return apperrors.Conflict("code", "language %s already exists", lang.Code)
	}
	if lang.IsDefault {
		for _, l := range m.byCode {
			if l.IsDefault {
				l.IsDefault = false
				m.demoted++
			}
		}
	}
	lang.ID = uuid.New()
	m.byCode[lang.Code] = lang
	return nil
}

func (m *mockLanguageRepo) Update(ctx context.Context, lang *models.Language) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, lang)
	}
	if _, exists := m.byCode[lang.Code]; !exists {
		return apperrors.NotFound("language %s not found", lang.Code)
	}
	lang.Revision++
	m.byCode[lang.Code] = lang
	return nil
}

func (m *mockLanguageRepo) GetByCode(ctx context.Context, code string) (*models.Language, error) {
	lang, ok := m.byCode[models.NormalizeLanguageCode(code)]
	if !ok {
		return nil, apperrors.NotFound("language %s not found", code)
	}
	return lang, nil
}

func (m *mockLanguageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Language, error) {
	for _, l := range m.byCode {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, apperrors.NotFound("language %s not found", id)
}

func (m *mockLanguageRepo) List(ctx context.Context, activeOnly bool) ([]*models.Language, error) {
	var out []*models.Language
	for _, l := range m.byCode {
		if activeOnly && !l.IsActive {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *mockLanguageRepo) GetDefault(ctx context.Context) (*models.Language, error) {
	for _, l := range m.byCode {
		if l.IsDefault {
			return l, nil
		}
	}
	return nil, apperrors.NotFound("no default language configured")
}

func (m *mockLanguageRepo) SetDefault(ctx context.Context, code string) error {
	code = models.NormalizeLanguageCode(code)
	target, ok := m.byCode[code]
	if !ok || !target.IsActive {
		return apperrors.NotFound("language %s not found or inactive", code)
	}
	for _, l := range m.byCode {
		l.IsDefault = l.Code == code
	}
	return nil
}

func (m *mockLanguageRepo) DemoteDefaultsExcept(ctx context.Context, keepCode string) (int64, error) {
	var n int64
	for _, l := range m.byCode {
		if l.Code != keepCode && l.IsDefault {
			l.IsDefault = false
			n++
		}
	}
	m.demoted += n
	return n, nil
}

func (m *mockLanguageRepo) UpdateWithChannelDefault(ctx context.Context, lang *models.Language, channel string) error {
	// Mirrors the transactional repository: a failed guarded update leaves
	// every other language's channel default in place.
	if err := m.Update(ctx, lang); err != nil {
		return err
	}
	m.channelCleared = append(m.channelCleared, channel)
	for _, l := range m.byCode {
		if l.Code == lang.Code {
			continue
		}
		for i := range l.ChannelMappings {
			if l.ChannelMappings[i].Channel == channel {
				l.ChannelMappings[i].IsDefault = false
			}
		}
	}
	return nil
}

func (m *mockLanguageRepo) IncrementUsage(ctx context.Context, code string) error {
	m.usageBumps[code]++
	return nil
}

func (m *mockLanguageRepo) UpdateCompleteness(ctx context.Context, code, resourceClass string, pct float64) error {
	m.completenessSets[code+"/"+resourceClass] = pct
	return nil
}

// ============================================================================
// Translation repository mock
// ============================================================================

type mockTranslationRepo struct {
	rows map[uuid.UUID]*models.Translation

	createErr  error
	versionErr error
}

var _ repositories.TranslationRepository = (*mockTranslationRepo)(nil)

func newMockTranslationRepo() *mockTranslationRepo {
	return &mockTranslationRepo{rows: make(map[uuid.UUID]*models.Translation)}
}

func (m *mockTranslationRepo) add(t *models.Translation) *models.Translation {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.rows[t.ID] = t
	return t
}

func (m *mockTranslationRepo) Create(ctx context.Context, t *models.Translation) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, row := range m.rows {
		if row.IsActive && row.Key() == t.Key() {
			return apperrors.Conflict("key", "active row already exists for %s", t.Key().String())
		}
	}
	m.add(t)
	return nil
}

func (m *mockTranslationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Translation, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NotFound("translation %s not found", id)
	}
	return t, nil
}

func (m *mockTranslationRepo) GetActive(ctx context.Context, key models.TranslationKey) (*models.Translation, error) {
	for _, t := range m.rows {
		if t.IsActive && t.Key() == key {
			return t, nil
		}
	}
	return nil, apperrors.NotFound("no active translation for %s", key.String())
}

// servedRows mirrors the repository's served reads: the newest approved or
// published row per key, whether or not it is still the active version.
func (m *mockTranslationRepo) servedRows(match func(*models.Translation) bool) []*models.Translation {
	best := make(map[models.TranslationKey]*models.Translation)
	for _, t := range m.rows {
		if !match(t) {
			continue
		}
		if t.Workflow.Stage != models.StageApproved && t.Workflow.Stage != models.StagePublished {
			continue
		}
		if cur, ok := best[t.Key()]; !ok || t.Version > cur.Version {
			best[t.Key()] = t
		}
	}
	out := make([]*models.Translation, 0, len(best))
	for _, t := range best {
		out = append(out, t)
	}
	return out
}

func (m *mockTranslationRepo) GetServed(ctx context.Context, key models.TranslationKey) (*models.Translation, error) {
	rows := m.servedRows(func(t *models.Translation) bool { return t.Key() == key })
	if len(rows) == 0 {
		return nil, apperrors.NotFound("no served translation for %s", key.String())
	}
	return rows[0], nil
}

func (m *mockTranslationRepo) GetHistory(ctx context.Context, key models.TranslationKey) ([]*models.Translation, error) {
	var out []*models.Translation
	for _, t := range m.rows {
		if t.Key() == key {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTranslationRepo) GetForResource(ctx context.Context, resourceType, resourceID string, q repositories.ResourceQuery) ([]*models.Translation, error) {
	if q.ServedOnly {
		return m.servedRows(func(t *models.Translation) bool {
			if t.ResourceType != resourceType || t.ResourceID != resourceID {
				return false
			}
			return q.TargetLanguage == "" || t.TargetLanguage == q.TargetLanguage
		}), nil
	}

	var out []*models.Translation
	for _, t := range m.rows {
		if t.ResourceType != resourceType || t.ResourceID != resourceID {
			continue
		}
		if q.TargetLanguage != "" && t.TargetLanguage != q.TargetLanguage {
			continue
		}
		if !q.IncludeHistory && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTranslationRepo) GetActiveForResources(ctx context.Context, resourceType string, resourceIDs []string, targetLanguage string, servedOnly bool) ([]*models.Translation, error) {
	ids := make(map[string]bool, len(resourceIDs))
	for _, id := range resourceIDs {
		ids[id] = true
	}
	if servedOnly {
		return m.servedRows(func(t *models.Translation) bool {
			return t.ResourceType == resourceType && ids[t.ResourceID] && t.TargetLanguage == targetLanguage
		}), nil
	}

	var out []*models.Translation
	for _, t := range m.rows {
		if t.ResourceType != resourceType || !ids[t.ResourceID] || t.TargetLanguage != targetLanguage {
			continue
		}
		if !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTranslationRepo) ListPending(ctx context.Context, filter repositories.PendingFilter) ([]*models.Translation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*models.Translation
	for _, t := range m.rows {
		if !t.IsActive || t.Quality.ReviewStatus == models.ReviewApproved {
			continue
		}
		if filter.ResourceType != "" && t.ResourceType != filter.ResourceType {
			continue
		}
		if filter.TargetLanguage != "" && t.TargetLanguage != filter.TargetLanguage {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTranslationRepo) Update(ctx context.Context, t *models.Translation) error {
	existing, ok := m.rows[t.ID]
	if !ok || !existing.IsActive {
		return apperrors.NotFound("active translation %s not found", t.ID)
	}
	m.rows[t.ID] = t
	return nil
}

func (m *mockTranslationRepo) CreateVersion(ctx context.Context, predecessorID uuid.UUID, successor *models.Translation) error {
	if m.versionErr != nil {
		return m.versionErr
	}
	pred, ok := m.rows[predecessorID]
	if !ok {
		return apperrors.NotFound("translation %s not found", predecessorID)
	}
	if !pred.IsActive {
		return apperrors.Conflict("id", "translation %s is no longer active", predecessorID)
	}
	pred.IsActive = false
	m.add(successor)
	return nil
}

func (m *mockTranslationRepo) BulkApplyReview(ctx context.Context, ids []uuid.UUID, status models.ReviewStatus, stage models.TranslationStage, reviewer, notes string, minScore int) (int64, int64, error) {
	var matched, modified int64
	for _, id := range ids {
		t, ok := m.rows[id]
		if !ok {
			continue
		}
		matched++
		if !t.IsActive || t.Workflow.Stage != models.StageReview {
			continue
		}
		t.Quality.ReviewStatus = status
		t.Workflow.Stage = stage
		t.Quality.Reviewer = reviewer
		t.Quality.ReviewNotes = notes
		if t.Quality.QualityScore < minScore {
			t.Quality.QualityScore = minScore
		}
		modified++
	}
	return matched, modified, nil
}

func (m *mockTranslationRepo) TrackUsage(ctx context.Context, id uuid.UUID, usageContext string) error {
	t, ok := m.rows[id]
	if !ok {
		return apperrors.NotFound("translation %s not found", id)
	}
	t.Usage.Impressions++
	return nil
}

func (m *mockTranslationRepo) StatsByLanguage(ctx context.Context, resourceType string) ([]models.LanguageStats, error) {
	byLang := make(map[string]*models.LanguageStats)
	for _, t := range m.rows {
		if !t.IsActive {
			continue
		}
		if resourceType != "" && t.ResourceType != resourceType {
			continue
		}
		s, ok := byLang[t.TargetLanguage]
		if !ok {
			s = &models.LanguageStats{TargetLanguage: t.TargetLanguage}
			byLang[t.TargetLanguage] = s
		}
		s.Total++
		switch t.Quality.ReviewStatus {
		case models.ReviewApproved:
			s.Approved++
		case models.ReviewRejected:
			s.Rejected++
		case models.ReviewNeedsReview:
			s.NeedsReview++
		default:
			s.Pending++
		}
	}
	out := make([]models.LanguageStats, 0, len(byLang))
	for _, s := range byLang {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockTranslationRepo) CountServed(ctx context.Context, resourceType, resourceID, targetLanguage string) (int, error) {
	rows := m.servedRows(func(t *models.Translation) bool {
		return t.ResourceType == resourceType && t.ResourceID == resourceID &&
			t.TargetLanguage == targetLanguage
	})
	return len(rows), nil
}

// ============================================================================
// Room type repository mock
// ============================================================================

type mockRoomTypeRepo struct {
	byID       map[uuid.UUID]*models.RoomType
	statusSets int
}

var _ repositories.RoomTypeRepository = (*mockRoomTypeRepo)(nil)

func newMockRoomTypeRepo(roomTypes ...*models.RoomType) *mockRoomTypeRepo {
	m := &mockRoomTypeRepo{byID: make(map[uuid.UUID]*models.RoomType)}
	for _, rt := range roomTypes {
		if rt.ID == uuid.Nil {
			rt.ID = uuid.New()
		}
		m.byID[rt.ID] = rt
	}
	return m
}

func (m *mockRoomTypeRepo) Create(ctx context.Context, rt *models.RoomType) error {
	for _, existing := range m.byID {
		if existing.Code == rt.Code {
			return apperrors.Conflict("code", "room type code %s already exists", rt.Code)
		}
	}
	rt.ID = uuid.New()
	m.byID[rt.ID] = rt
	return nil
}

func (m *mockRoomTypeRepo) Update(ctx context.Context, rt *models.RoomType) error {
	if _, ok := m.byID[rt.ID]; !ok {
		return apperrors.NotFound("room type %s not found", rt.ID)
	}
	m.byID[rt.ID] = rt
	return nil
}

func (m *mockRoomTypeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RoomType, error) {
	rt, ok := m.byID[id]
	if !ok {
		return nil, apperrors.NotFound("room type %s not found", id)
	}
	return rt, nil
}

func (m *mockRoomTypeRepo) GetByCode(ctx context.Context, code string) (*models.RoomType, error) {
	for _, rt := range m.byID {
		if rt.Code == code {
			return rt, nil
		}
	}
	return nil, apperrors.NotFound("room type %s not found", code)
}

func (m *mockRoomTypeRepo) List(ctx context.Context, activeOnly bool) ([]*models.RoomType, error) {
	var out []*models.RoomType
	for _, rt := range m.byID {
		if activeOnly && !rt.IsActive {
			continue
		}
		out = append(out, rt)
	}
	return out, nil
}

func (m *mockRoomTypeRepo) SetTranslationStatus(ctx context.Context, id uuid.UUID, language string, status models.ResourceTranslationStatus) error {
	rt, ok := m.byID[id]
	if !ok {
		return apperrors.NotFound("room type %s not found", id)
	}
	if rt.TranslationState == nil {
		rt.TranslationState = make(map[string]models.ResourceTranslationStatus)
	}
	rt.TranslationState[language] = status
	m.statusSets++
	return nil
}

// ============================================================================
// UI translation repository mock
// ============================================================================

type mockUITranslationRepo struct {
	docs map[string]*models.UITranslation
}

var _ repositories.UITranslationRepository = (*mockUITranslationRepo)(nil)

func newMockUITranslationRepo(docs ...*models.UITranslation) *mockUITranslationRepo {
	m := &mockUITranslationRepo{docs: make(map[string]*models.UITranslation)}
	for _, d := range docs {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		m.docs[d.Namespace+"/"+d.Key] = d
	}
	return m
}

func (m *mockUITranslationRepo) Upsert(ctx context.Context, u *models.UITranslation) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.docs[u.Namespace+"/"+u.Key] = u
	return nil
}

func (m *mockUITranslationRepo) GetByKey(ctx context.Context, namespace, key string) (*models.UITranslation, error) {
	d, ok := m.docs[namespace+"/"+key]
	if !ok {
		return nil, apperrors.NotFound("ui translation %s.%s not found", namespace, key)
	}
	return d, nil
}

func (m *mockUITranslationRepo) ListNamespace(ctx context.Context, namespace string, activeOnly bool) ([]*models.UITranslation, error) {
	var out []*models.UITranslation
	for _, d := range m.docs {
		if d.Namespace != namespace {
			continue
		}
		if activeOnly && !d.IsActive {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *mockUITranslationRepo) ListNamespaces(ctx context.Context) ([]repositories.NamespaceSummary, error) {
	counts := make(map[string]int)
	for _, d := range m.docs {
		counts[d.Namespace]++
	}
	out := make([]repositories.NamespaceSummary, 0, len(counts))
	for ns, n := range counts {
		out = append(out, repositories.NamespaceSummary{Namespace: ns, KeyCount: n})
	}
	return out, nil
}

func (m *mockUITranslationRepo) GetBatch(ctx context.Context, namespace string, keys []string) ([]*models.UITranslation, error) {
	var out []*models.UITranslation
	for _, key := range keys {
		if d, ok := m.docs[namespace+"/"+key]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockUITranslationRepo) Delete(ctx context.Context, namespace, key string) error {
	token := namespace + "/" + key
	if _, ok := m.docs[token]; !ok {
		return apperrors.NotFound("ui translation %s.%s not found", namespace, key)
	}
	delete(m.docs, token)
	return nil
}

// ============================================================================
// Fixtures
// ============================================================================

func activeLanguage(code string) *models.Language {
	return &models.Language{
		ID:       uuid.New(),
		Code:     code,
		Name:     code,
		IsActive: true,
		Translation: models.TranslationPreferences{
			AutoTranslate: models.AutoTranslateSettings{
				Enabled:           true,
				Threshold:         0.85,
				MinimumConfidence: 0.5,
			},
		},
	}
}
