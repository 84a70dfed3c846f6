package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-management-api/internal/audit"
	"github.com/iliyamo/cinema-management-api/internal/config"
	"github.com/iliyamo/cinema-management-api/internal/integrity"
	"github.com/iliyamo/cinema-management-api/internal/store"
	"github.com/iliyamo/cinema-management-api/internal/utils"
)

type countingSink struct {
	mu sync.Mutex
	n  int
}

func (s *countingSink) Write(context.Context, audit.Entry) error {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
	return nil
}

func newApp(t *testing.T) (*echo.Echo, *countingSink) {
	t.Helper()
	logger := log.New("test")
	logger.SetOutput(io.Discard)

	e := echo.New()
	e.Logger = logger
	st := store.NewMemoryStore()
	sink := &countingSink{}
	Setup(e, Deps{
		Cfg:     config.Config{JWTSecret: "k", LogsDir: t.TempDir()},
		Store:   st,
		Manager: integrity.NewManager(st, integrity.NewLocalLocker(), logger),
		Sink:    sink,
	})
	return e, sink
}

func serve(e *echo.Echo, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	e, sink := newApp(t)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/rooms", "", `{"room_name":"Sala 1","capacity":10}`).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/rooms/", "", "").Code, "trailing slash is removed")
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/reports/revenue", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/complex-queries/director-performance-analysis", "", "").Code)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 6, sink.n, "every request is audited")
}

func TestLogsRequireAdmin(t *testing.T) {
	e, _ := newApp(t)

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/logs/health", "", "").Code)

	viewer, err := utils.NewAccessToken("k", "bob", "VIEWER", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/logs/health", viewer.Token, "").Code)

	admin, err := utils.NewAccessToken("k", "admin", "ADMIN", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/logs/health", admin.Token, "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/logs/files", admin.Token, "").Code)
}
