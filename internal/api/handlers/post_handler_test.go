package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	service.ScheduleService
	scheduled *transfer.ScheduleRequest
	scheduleE error
	cancelE   error
	cancelled []string
	posts     map[string]*models.ScheduledPost
	events    []models.CalendarEvent
}

func (s *fakeService) Schedule(_ context.Context, req *transfer.ScheduleRequest) (*transfer.ScheduleResult, error) {
	s.scheduled = req
	if s.scheduleE != nil {
		return nil, s.scheduleE
	}
	return &transfer.ScheduleResult{ScheduledPostID: "p1", JobID: "publish:p1"}, nil
}

func (s *fakeService) Get(_ context.Context, ownerID, postID string) (*models.ScheduledPost, error) {
	p, ok := s.posts[postID]
	if !ok || p.OwnerID != ownerID {
		return nil, models.ErrPostNotFound
	}
	return p, nil
}

func (s *fakeService) Cancel(_ context.Context, postID string) error {
	s.cancelled = append(s.cancelled, postID)
	return s.cancelE
}

func (s *fakeService) List(context.Context, string, models.PostStatus, int) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (s *fakeService) Events(context.Context, string, time.Time, time.Time) ([]models.CalendarEvent, error) {
	return s.events, nil
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestApp(t *testing.T, svc service.ScheduleService) (*fiber.App, string) {
	t.Helper()
	app := fiber.New()
	api := app.Group("/api")
	api.Use(middleware.NewAuthMiddleware(config.Config{SecretKey: testSecret}).AuthMiddleware())
	NewPostHandler(svc).Register(api)

	token, err := utils.GenerateToken(testSecret, "user-1", time.Hour)
	require.NoError(t, err)
	return app, token
}

func do(t *testing.T, app *fiber.App, method, target, token, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestSchedulePostUsesCaller(t *testing.T) {
	svc := &fakeService{}
	app, token := newTestApp(t, svc)

	status, body := do(t, app, http.MethodPost, "/api/posts", token,
		`{"owner_id":"someone-else","platforms":["twitter","facebook"],"text":"Hello","scheduled_at":"2026-10-14T12:00:00Z"}`)

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "p1", body["scheduled_post_id"])
	assert.Equal(t, "publish:p1", body["job_id"])
	require.NotNil(t, svc.scheduled)
	assert.Equal(t, "user-1", svc.scheduled.OwnerID)
	assert.Equal(t, []models.Platform{models.PlatformTwitter, models.PlatformFacebook}, svc.scheduled.Platforms)
}

func TestSchedulePostValidationError(t *testing.T) {
	svc := &fakeService{scheduleE: &models.ValidationError{}}
	app, token := newTestApp(t, svc)

	status, _ := do(t, app, http.MethodPost, "/api/posts", token, `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRequiresToken(t *testing.T) {
	app, _ := newTestApp(t, &fakeService{})

	status, _ := do(t, app, http.MethodGet, "/api/posts", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, app, http.MethodGet, "/api/posts", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCancelPost(t *testing.T) {
	svc := &fakeService{posts: map[string]*models.ScheduledPost{
		"mine":      {ID: "mine", OwnerID: "user-1"},
		"published": {ID: "published", OwnerID: "user-1"},
		"theirs":    {ID: "theirs", OwnerID: "user-2"},
	}}
	app, token := newTestApp(t, svc)

	status, _ := do(t, app, http.MethodPost, "/api/posts/mine/cancel", token, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodPost, "/api/posts/theirs/cancel", token, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, []string{"mine"}, svc.cancelled)

	svc.cancelE = models.ErrAlreadyPublished
	status, body := do(t, app, http.MethodPost, "/api/posts/published/cancel", token, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already published", body["error"])
}

func TestCalendarEvents(t *testing.T) {
	svc := &fakeService{events: []models.CalendarEvent{{ID: "p1", Status: models.PostStatusPublished, ColorHint: "green"}}}
	app, token := newTestApp(t, svc)

	status, _ := do(t, app, http.MethodGet, "/api/calendar?start=bad&end=2026-10-15T00:00:00Z", token, "")
	assert.Equal(t, http.StatusBadRequest, status)

	req := httptest.NewRequest(http.MethodGet, "/api/calendar?start=2026-10-01T00:00:00Z&end=2026-10-31T00:00:00Z", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []models.CalendarEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 1)
	assert.Equal(t, "green", events[0].ColorHint)
}
