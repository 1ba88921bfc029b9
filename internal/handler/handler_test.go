package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/user/shortlinks/internal/auth"
	"github.com/user/shortlinks/internal/logging"
	"github.com/user/shortlinks/internal/middleware"
	"github.com/user/shortlinks/internal/models"
	"github.com/user/shortlinks/internal/service"
)

const testSecret = "test-secret"

type mockLinks struct{ mock.Mock }

func (m *mockLinks) Create(ctx context.Context, req models.CreateLinkRequest, owner *string) (*models.CreateLinkResponse, error) {
	args := m.Called(ctx, req, owner)
	resp, _ := args.Get(0).(*models.CreateLinkResponse)
	return resp, args.Error(1)
}

func (m *mockLinks) List(ctx context.Context, owner string) ([]models.Link, error) {
	args := m.Called(ctx, owner)
	links, _ := args.Get(0).([]models.Link)
	return links, args.Error(1)
}

func (m *mockLinks) Get(ctx context.Context, id uuid.UUID, owner string) (*models.Link, error) {
	args := m.Called(ctx, id, owner)
	link, _ := args.Get(0).(*models.Link)
	return link, args.Error(1)
}

func (m *mockLinks) Details(ctx context.Context, id uuid.UUID, owner string) (*models.LinkDetails, error) {
	args := m.Called(ctx, id, owner)
	details, _ := args.Get(0).(*models.LinkDetails)
	return details, args.Error(1)
}

func (m *mockLinks) Delete(ctx context.Context, id uuid.UUID, owner string) error {
	return m.Called(ctx, id, owner).Error(0)
}

func (m *mockLinks) QR(ctx context.Context, id uuid.UUID, owner string) ([]byte, error) {
	args := m.Called(ctx, id, owner)
	png, _ := args.Get(0).([]byte)
	return png, args.Error(1)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, code string, rc models.RequestContext) (models.Outcome, error) {
	args := m.Called(ctx, code, rc)
	return args.Get(0).(models.Outcome), args.Error(1)
}

type mockAnalytics struct{ mock.Mock }

func (m *mockAnalytics) Summarize(ctx context.Context, linkID uuid.UUID) (*models.AnalyticsSummary, error) {
	args := m.Called(ctx, linkID)
	summary, _ := args.Get(0).(*models.AnalyticsSummary)
	return summary, args.Error(1)
}

type HandlerSuite struct {
	suite.Suite
	links     *mockLinks
	resolver  *mockResolver
	analytics *mockAnalytics
	router    *gin.Engine
	token     string
}

func (s *HandlerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := logging.Discard()

	s.links = new(mockLinks)
	s.resolver = new(mockResolver)
	s.analytics = new(mockAnalytics)

	s.router = NewRouter(Router{
		Links:     NewLinkHandler(s.links, s.analytics, log),
		Redirects: NewRedirectHandler(s.resolver, log),
		Pages:     NewPagesHandler(),
		Health:    NewHealthHandler(map[string]Pinger{"database": PingFunc(func(context.Context) error { return nil })}, "test"),
		Auth:      middleware.NewAuth(auth.NewVerifier(testSecret)),
		Logger:    log,
	})

	token, err := auth.NewIssuer(testSecret, time.Hour).Token("user-1")
	s.Require().NoError(err)
	s.token = token
}

func (s *HandlerSuite) TearDownTest() {
	s.links.AssertExpectations(s.T())
	s.resolver.AssertExpectations(s.T())
	s.analytics.AssertExpectations(s.T())
}

func (s *HandlerSuite) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) errorCode(w *httptest.ResponseRecorder) string {
	var resp models.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func (s *HandlerSuite) TestCreate_Anonymous() {
	created := &models.CreateLinkResponse{ID: uuid.New(), ShortCode: "abcd2345", ShortURL: "https://sho.rt/abcd2345"}
	s.links.On("Create", mock.Anything, models.CreateLinkRequest{URL: "example.com/page"}, (*string)(nil)).
		Return(created, nil).Once()

	w := s.do(http.MethodPost, "/api/links", `{"url":"example.com/page"}`, false)

	s.Equal(http.StatusCreated, w.Code)
	var resp models.CreateLinkResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("abcd2345", resp.ShortCode)
}

func (s *HandlerSuite) TestCreate_PassesOwner() {
	s.links.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(owner *string) bool {
		return owner != nil && *owner == "user-1"
	})).Return(&models.CreateLinkResponse{ShortCode: "mine"}, nil).Once()

	w := s.do(http.MethodPost, "/api/links", `{"url":"https://example.com","customCode":"mine"}`, true)
	s.Equal(http.StatusCreated, w.Code)
}

func (s *HandlerSuite) TestCreate_MissingURL() {
	w := s.do(http.MethodPost, "/api/links", `{"customCode":"x"}`, false)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(models.ErrCodeInvalidInput, s.errorCode(w))
}

func (s *HandlerSuite) TestCreate_ErrorMapping() {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{service.ErrInvalidURL, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{service.ErrInvalidCode, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{service.ErrInvalidInput, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{service.ErrReservedCode, http.StatusBadRequest, models.ErrCodeReserved},
		{service.ErrCodeTaken, http.StatusConflict, models.ErrCodeConflict},
		{service.ErrUnauthorized, http.StatusUnauthorized, models.ErrCodeUnauthorized},
		{errors.New("db down"), http.StatusInternalServerError, models.ErrCodeInternalError},
	}

	for _, tt := range tests {
		s.Run(tt.err.Error(), func() {
			s.links.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := s.do(http.MethodPost, "/api/links", `{"url":"https://example.com"}`, false)
			s.Equal(tt.wantStatus, w.Code)
			s.Equal(tt.wantCode, s.errorCode(w))
			s.NotContains(w.Body.String(), "db down")
		})
	}
}

func (s *HandlerSuite) TestOwnerRoutesRequireAuth() {
	id := uuid.NewString()
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/links"},
		{http.MethodGet, "/api/links/" + id},
		{http.MethodDelete, "/api/links/" + id},
		{http.MethodGet, "/api/links/" + id + "/analytics"},
		{http.MethodGet, "/api/links/" + id + "/qr"},
	} {
		w := s.do(route.method, route.path, "", false)
		s.Equal(http.StatusUnauthorized, w.Code, route.path)
		s.Equal(models.ErrCodeUnauthorized, s.errorCode(w))
	}
}

func (s *HandlerSuite) TestList_EmptyIsArray() {
	s.links.On("List", mock.Anything, "user-1").Return(nil, nil).Once()

	w := s.do(http.MethodGet, "/api/links", "", true)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, w.Body.String())
}

func (s *HandlerSuite) TestGet_Details() {
	id := uuid.New()
	s.links.On("Details", mock.Anything, id, "user-1").Return(&models.LinkDetails{
		Link:         models.Link{ID: id, ShortCode: "abc"},
		ShortURL:     "https://sho.rt/abc",
		ClickHistory: []models.DailyCount{{Date: "2026-01-01", Clicks: 3}},
	}, nil).Once()

	w := s.do(http.MethodGet, "/api/links/"+id.String(), "", true)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"clickHistory":[{"date":"2026-01-01","clicks":3}]`)
}

func (s *HandlerSuite) TestGet_BadID() {
	w := s.do(http.MethodGet, "/api/links/not-a-uuid", "", true)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestOwnershipErrors() {
	id := uuid.New()
	s.links.On("Details", mock.Anything, id, "user-1").Return(nil, service.ErrForbidden).Once()
	s.links.On("Delete", mock.Anything, id, "user-1").Return(service.ErrNotFound).Once()

	w := s.do(http.MethodGet, "/api/links/"+id.String(), "", true)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal(models.ErrCodeForbidden, s.errorCode(w))

	w = s.do(http.MethodDelete, "/api/links/"+id.String(), "", true)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal(models.ErrCodeNotFound, s.errorCode(w))
}

func (s *HandlerSuite) TestDelete() {
	id := uuid.New()
	s.links.On("Delete", mock.Anything, id, "user-1").Return(nil).Once()

	w := s.do(http.MethodDelete, "/api/links/"+id.String(), "", true)
	s.Equal(http.StatusNoContent, w.Code)
	s.Empty(w.Body.String())
}

func (s *HandlerSuite) TestAnalytics() {
	id := uuid.New()
	s.links.On("Get", mock.Anything, id, "user-1").Return(&models.Link{ID: id}, nil).Once()
	s.analytics.On("Summarize", mock.Anything, id).Return(&models.AnalyticsSummary{
		TotalClicks:      7,
		UniqueClicks:     3,
		DeviceBreakdown:  []models.BreakdownItem{},
		BrowserBreakdown: []models.BreakdownItem{},
		CountryBreakdown: []models.BreakdownItem{},
	}, nil).Once()

	w := s.do(http.MethodGet, "/api/links/"+id.String()+"/analytics", "", true)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"totalClicks":7`)
}

func (s *HandlerSuite) TestAnalytics_ForbiddenSkipsSummary() {
	id := uuid.New()
	s.links.On("Get", mock.Anything, id, "user-1").Return(nil, service.ErrForbidden).Once()

	w := s.do(http.MethodGet, "/api/links/"+id.String()+"/analytics", "", true)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlerSuite) TestQR() {
	id := uuid.New()
	s.links.On("QR", mock.Anything, id, "user-1").Return([]byte("\x89PNG"), nil).Once()

	w := s.do(http.MethodGet, "/api/links/"+id.String()+"/qr", "", true)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("image/png", w.Header().Get("Content-Type"))
	s.Equal("\x89PNG", w.Body.String())
}

func (s *HandlerSuite) TestRedirect_Outcomes() {
	tests := []struct {
		outcome  models.Outcome
		err      error
		location string
	}{
		{models.Outcome{State: models.StateRedirect, Target: "https://example.com/page"}, nil, "https://example.com/page"},
		{models.Outcome{State: models.StateNotFound}, nil, PathNotFound},
		{models.Outcome{State: models.StateExpired}, nil, PathExpired},
		{models.Outcome{State: models.StateLimitReached}, nil, PathLimitReached},
		{models.Outcome{}, errors.New("db down"), PathError},
	}

	for _, tt := range tests {
		s.Run(tt.location, func() {
			s.resolver.On("Resolve", mock.Anything, "abc", mock.Anything).Return(tt.outcome, tt.err).Once()

			w := s.do(http.MethodGet, "/abc", "", false)
			s.Equal(http.StatusFound, w.Code)
			s.Equal(tt.location, w.Header().Get("Location"))
		})
	}
}

func (s *HandlerSuite) TestRedirect_PassesRequestContext() {
	s.resolver.On("Resolve", mock.Anything, "abc", mock.MatchedBy(func(rc models.RequestContext) bool {
		return rc.IP == "203.0.113.9" && rc.UserAgent == "curl/8.4.0" &&
			rc.Referrer == "https://news.example" && !rc.At.IsZero()
	})).Return(models.Outcome{State: models.StateRedirect, Target: "https://example.com"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/abc", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("User-Agent", "curl/8.4.0")
	req.Header.Set("Referer", "https://news.example")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusFound, w.Code)
}

func (s *HandlerSuite) TestPages() {
	tests := []struct {
		path   string
		status int
		title  string
	}{
		{PathNotFound, http.StatusNotFound, "Link not found"},
		{PathExpired, http.StatusGone, "Link expired"},
		{PathLimitReached, http.StatusGone, "Link limit reached"},
		{PathError, http.StatusInternalServerError, "Something went wrong"},
	}

	for _, tt := range tests {
		w := s.do(http.MethodGet, tt.path, "", false)
		s.Equal(tt.status, w.Code, tt.path)
		s.Contains(w.Header().Get("Content-Type"), "text/html")
		s.Contains(w.Body.String(), tt.title)
	}
}

func (s *HandlerSuite) TestHealth() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/live", "", false).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/ready", "", false).Code)

	w := s.do(http.MethodGet, "/health", "", false)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"database":"ok"`)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func TestHealth_Unhealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
		"skipped":  nil,
	}, "test")

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, map[string]string{"database": "ok", "redis": "error: connection refused"}, resp.Services)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
