package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/auth"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/services"
)

// ============================================================================
// Test doubles
// ============================================================================

// fakeJWKS maps bearer tokens to claims without touching a real JWKS
// endpoint.
type fakeJWKS struct{}

func (f *fakeJWKS) ValidateToken(tokenString string) (*auth.Claims, error) {
	switch tokenString {
	case "admin-token":
		return &auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"},
			Email:            "admin@hotel.test",
			Roles:            []string{auth.RoleAdmin},
		}, nil
	case "viewer-token":
		return &auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "viewer-1"},
			Email:            "viewer@hotel.test",
		}, nil
	default:
		return nil, errors.New("unknown token")
	}
}

func (f *fakeJWKS) Close() {}

// fakeLanguageRepo keeps languages in a map keyed by code.
type fakeLanguageRepo struct {
	byCode map[string]*models.Language
}

func newFakeLanguageRepo() *fakeLanguageRepo {
	return &fakeLanguageRepo{byCode: make(map[string]*models.Language)}
}

func (r *fakeLanguageRepo) Create(_ context.Context, lang *models.Language) error {
	if _, ok := r.byCode[lang.Code]; ok {
		return apperrors.Conflict("code", "language %s already exists", lang.Code)
	}
	if lang.IsDefault {
		for _, existing := range r.byCode {
			existing.IsDefault = false
		}
	}
	lang.ID = uuid.New()
	r.byCode[lang.Code] = lang
	return nil
}

func (r *fakeLanguageRepo) Update(_ context.Context, lang *models.Language) error {
	if _, ok := r.byCode[lang.Code]; !ok {
		return apperrors.NotFound("language %s not found", lang.Code)
	}
	lang.Revision++
	r.byCode[lang.Code] = lang
	return nil
}

func (r *fakeLanguageRepo) GetByCode(_ context.Context, code string) (*models.Language, error) {
	lang, ok := r.byCode[models.NormalizeLanguageCode(code)]
	if !ok {
		return nil, apperrors.NotFound("language %s not found", code)
	}
	return lang, nil
}

func (r *fakeLanguageRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Language, error) {
	for _, lang := range r.byCode {
		if lang.ID == id {
			return lang, nil
		}
	}
	return nil, apperrors.NotFound("language %s not found", id)
}

func (r *fakeLanguageRepo) List(_ context.Context, activeOnly bool) ([]*models.Language, error) {
	out := make([]*models.Language, 0, len(r.byCode))
	for _, lang := range r.byCode {
		if activeOnly && !lang.IsActive {
			continue
		}
		out = append(out, lang)
	}
	return out, nil
}

func (r *fakeLanguageRepo) GetDefault(_ context.Context) (*models.Language, error) {
	for _, lang := range r.byCode {
		if lang.IsDefault {
			return lang, nil
		}
	}
	return nil, apperrors.NotFound("no default language configured")
}

func (r *fakeLanguageRepo) SetDefault(_ context.Context, code string) error {
	target, ok := r.byCode[models.NormalizeLanguageCode(code)]
	if !ok {
		return apperrors.NotFound("language %s not found", code)
	}
	for _, lang := range r.byCode {
		lang.IsDefault = false
	}
	target.IsDefault = true
	return nil
}

func (r *fakeLanguageRepo) DemoteDefaultsExcept(_ context.Context, keepCode string) (int64, error) {
	var demoted int64
	for code, lang := range r.byCode {
		if code != keepCode && lang.IsDefault {
			lang.IsDefault = false
			demoted++
		}
	}
	return demoted, nil
}

func (r *fakeLanguageRepo) UpdateWithChannelDefault(ctx context.Context, lang *models.Language, channel string) error {
	if err := r.Update(ctx, lang); err != nil {
		return err
	}
	for _, other := range r.byCode {
		if other.Code == lang.Code {
			continue
		}
		for i := range other.ChannelMappings {
			if other.ChannelMappings[i].Channel == channel {
				other.ChannelMappings[i].IsDefault = false
			}
		}
	}
	return nil
}

func (r *fakeLanguageRepo) IncrementUsage(_ context.Context, code string) error { return nil }

func (r *fakeLanguageRepo) UpdateCompleteness(_ context.Context, code, resourceClass string, pct float64) error {
	return nil
}

// ============================================================================
// Fixtures
// ============================================================================

func newLanguageServer(t *testing.T) (*http.ServeMux, *fakeLanguageRepo) {
	t.Helper()

	repo := newFakeLanguageRepo()
	repo.byCode["EN"] = &models.Language{
		ID:        uuid.New(),
		Code:      "EN",
		Name:      "English",
		Locale:    "en-us",
		Direction: models.DirectionLTR,
		IsActive:  true,
		IsDefault: true,
	}

	logger := zap.NewNop()
	svc := services.NewLanguageService(repo, logger)
	middleware := auth.NewMiddleware(&fakeJWKS{}, logger)

	mux := http.NewServeMux()
	NewLanguageHandler(svc, logger).RegisterRoutes(mux, middleware)
	return mux, repo
}

func doRequest(mux *http.ServeMux, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) ApiResponse {
	t.Helper()
	var resp ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ============================================================================
// Auth surface
// ============================================================================

func TestRoutesRejectMissingToken(t *testing.T) {
	mux, _ := newLanguageServer(t)

	rec := doRequest(mux, http.MethodGet, "/api/languages", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestWriteRoutesRequireAdminRole(t *testing.T) {
	mux, _ := newLanguageServer(t)

	body := map[string]any{"code": "es", "name": "Spanish"}
	rec := doRequest(mux, http.MethodPost, "/api/languages", "viewer-token", body)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ============================================================================
// Language routes
// ============================================================================

func TestListLanguages(t *testing.T) {
	mux, _ := newLanguageServer(t)

	rec := doRequest(mux, http.MethodGet, "/api/languages", "viewer-token", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	rows, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, rows, 1)
}

func TestCreateLanguageNormalizesCode(t *testing.T) {
	mux, repo := newLanguageServer(t)

	body := map[string]any{
		"code":       "es",
		"name":       "Spanish",
		"nativeName": "Español",
		"locale":     "ES-es",
	}
	rec := doRequest(mux, http.MethodPost, "/api/languages", "admin-token", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	created, ok := repo.byCode["ES"]
	require.True(t, ok)
	assert.Equal(t, "es-es", created.Locale)
	assert.True(t, created.IsActive)
}

func TestCreateLanguageValidationFailure(t *testing.T) {
	mux, _ := newLanguageServer(t)

	body := map[string]any{"code": "english", "name": "English"}
	rec := doRequest(mux, http.MethodPost, "/api/languages", "admin-token", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation")
}

func TestCreateLanguageRejectsUnknownFields(t *testing.T) {
	mux, _ := newLanguageServer(t)

	body := map[string]any{"code": "es", "name": "Spanish", "bogus": true}
	rec := doRequest(mux, http.MethodPost, "/api/languages", "admin-token", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLanguageNotFound(t *testing.T) {
	mux, _ := newLanguageServer(t)

	rec := doRequest(mux, http.MethodGet, "/api/languages/ZZ", "viewer-token", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestSetDefaultLanguage(t *testing.T) {
	mux, repo := newLanguageServer(t)
	repo.byCode["FR"] = &models.Language{
		ID:        uuid.New(),
		Code:      "FR",
		Name:      "French",
		Direction: models.DirectionLTR,
		IsActive:  true,
	}

	rec := doRequest(mux, http.MethodPost, "/api/languages/FR/default", "admin-token", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, repo.byCode["FR"].IsDefault)
	assert.False(t, repo.byCode["EN"].IsDefault)
}

func TestDeactivateDefaultLanguageConflicts(t *testing.T) {
	mux, _ := newLanguageServer(t)

	rec := doRequest(mux, http.MethodDelete, "/api/languages/EN?revision=0", "admin-token", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "conflict")
}

// ============================================================================
// Error mapping and parameter helpers
// ============================================================================

func TestStatusForKindMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperrors.Validation("field", "bad value"), http.StatusBadRequest},
		{apperrors.NotFound("missing"), http.StatusNotFound},
		{apperrors.Conflict("field", "stale"), http.StatusConflict},
		{apperrors.WorkflowState("wrong stage"), http.StatusUnprocessableEntity},
		{apperrors.ProviderUnavailable(errors.New("down"), "all providers failed"), http.StatusBadGateway},
		{apperrors.Timeout(errors.New("deadline"), "too slow"), http.StatusGatewayTimeout},
		{apperrors.Permission("no access"), http.StatusForbidden},
		{apperrors.Internal(errors.New("boom"), "broke"), http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, "error %v", tc.err)
	}
}

func TestWriteErrorHidesUnclassifiedDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"))

	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestPathUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetPathValue("id", "not-a-uuid")
	_, err := pathUUID(req, "id")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	id := uuid.New()
	req.SetPathValue("id", id.String())
	parsed, err := pathUUID(req, "id")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?active=false&limit=25&junk=x", nil)

	assert.False(t, queryBool(req, "active", true))
	assert.True(t, queryBool(req, "missing", true))
	assert.Equal(t, 25, queryInt(req, "limit", 50))
	assert.Equal(t, 50, queryInt(req, "junk", 50))
}

func TestDecodeBodyRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	var dst map[string]any
	err := decodeBody(req, &dst)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}
