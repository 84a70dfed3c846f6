package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-management-api/internal/audit"
	"github.com/iliyamo/cinema-management-api/internal/config"
	"github.com/iliyamo/cinema-management-api/internal/utils"
)

type recordingSink struct {
	mu  sync.Mutex
	got []audit.Entry
}

func (r *recordingSink) Write(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
	return nil
}

func TestAuditRecordsMaskedBody(t *testing.T) {
	sink := &recordingSink{}
	e := echo.New()
	e.Use(Audit(sink))

	var seen string
	e.POST("/auth/token", func(c echo.Context) error {
		b, _ := io.ReadAll(c.Request().Body)
		seen = string(b)
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})

	body := `{"username":"admin","password":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, seen, "handler still sees the original body")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	require.Len(t, sink.got, 1)
	entry := sink.got[0]
	assert.Equal(t, audit.LevelInfo, entry.Level)
	assert.Equal(t, "[POST] /auth/token - Status: 200", entry.Message)
	reqData := entry.Data["request_data"].(map[string]any)
	assert.Equal(t, "***MASKED***", reqData["password"])
	assert.Equal(t, "admin", reqData["username"])
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), entry.Data["request_id"])
}

func TestAuditRecordsErrors(t *testing.T) {
	sink := &recordingSink{}
	e := echo.New()
	e.Use(Audit(sink))
	e.GET("/movies/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "movie not found")
	})

	req := httptest.NewRequest(http.MethodGet, "/movies/abc", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.Len(t, sink.got, 1)
	assert.Equal(t, audit.LevelError, sink.got[0].Level)
	assert.Equal(t, "HTTP 404 error", sink.got[0].Data["error_message"])
	assert.Equal(t, "req-1", sink.got[0].Data["request_id"])
	assert.NotContains(t, sink.got[0].Data, "request_data")
}

func TestJWTAuthAndRole(t *testing.T) {
	const secret = "test-secret"
	e := echo.New()
	g := e.Group("/logs", JWTAuth(secret), RequireRole("ADMIN"))
	g.GET("/files", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	})

	do := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/logs/files", nil)
		if auth != "" {
			req.Header.Set(echo.HeaderAuthorization, auth)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	viewer, err := utils.NewAccessToken(secret, "bob", "VIEWER", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do("Bearer "+viewer.Token).Code)

	admin, err := utils.NewAccessToken(secret, "admin", "ADMIN", 5)
	require.NoError(t, err)
	rec := do("Bearer " + admin.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())

	forged, err := utils.NewAccessToken("other", "admin", "ADMIN", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+forged.Token).Code)
}

func TestValidator(t *testing.T) {
	type payload struct {
		Name  string `validate:"required"`
		Count int    `validate:"gte=0"`
	}
	v := NewValidator()
	assert.NoError(t, v.Validate(payload{Name: "x"}))
	assert.Error(t, v.Validate(payload{Count: 1}))
	assert.Error(t, v.Validate(payload{Name: "x", Count: -1}))
	assert.NoError(t, v.ValidatePartial(payload{Count: 2}, "Count"))
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/rooms")

	key := func(strategy string) string {
		cfg := configFor(strategy)
		return buildRateKey(cfg, c)
	}
	assert.Equal(t, "rl:ip:10.0.0.1", key("ip"))
	assert.Equal(t, "rl:user:anon", key("user"))
	assert.Equal(t, "rl:ip:10.0.0.1:route:GET /rooms", key("ip_route"))

	c.Set("user_id", "admin")
	assert.Equal(t, "rl:ip:10.0.0.1:user:admin:route:GET /rooms", key(""))
}

func configFor(strategy string) config.RateLimitConfig {
	return config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{echo.HeaderContentType: {echo.MIMEApplicationJSON}}
	payload, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, echo.MIMEApplicationJSON, gotHdr.Get(echo.HeaderContentType))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(payload[:5])
	assert.False(t, ok)
}

func TestCacheDisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "c"}
	e.GET("/reports/revenue", func(c echo.Context) error {
		return c.String(http.StatusOK, "fresh")
	}, NewRedisCache(cfg, nil), InvalidateCache(cfg, nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/revenue", nil))
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestParseDecision(t *testing.T) {
	d, ok := parseDecision([]interface{}{int64(0), int64(0), int64(1500)})
	require.True(t, ok)
	assert.False(t, d.allowed)
	assert.Equal(t, 1500*time.Millisecond, d.retry)

	_, ok = parseDecision([]interface{}{"1", int64(2)})
	assert.False(t, ok)
}
