package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cashflow/internal/cache"
	"cashflow/internal/database"
	"cashflow/internal/events"
	"cashflow/internal/metrics"
	"cashflow/internal/model"
	"cashflow/internal/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSetupRoutes(t *testing.T) {
	e := echo.New()
	Setup(e, Deps{DB: &database.FakeDB{}, Cache: &cache.FakeCache{}, Metrics: metrics.New()})

	got := map[string]struct{}{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = struct{}{}
	}

	expected := []string{
		http.MethodGet + " /swagger/*",
		http.MethodGet + " /metrics",
		http.MethodGet + " /api/ping",
		http.MethodGet + " /api/auth/github",
		http.MethodGet + " /api/auth/github/callback",
		http.MethodGet + " /api/auth/session",
		http.MethodPost + " /api/auth/logout",
		http.MethodPost + " /api/oauth/token",
		http.MethodGet + " /api/clients",
		http.MethodPost + " /api/clients",
		http.MethodDelete + " /api/clients/:client_id",
		http.MethodGet + " /api/movements",
		http.MethodPost + " /api/movements",
		http.MethodGet + " /api/movements/:id",
		http.MethodPut + " /api/movements/:id",
		http.MethodDelete + " /api/movements/:id",
		http.MethodGet + " /api/users",
		http.MethodGet + " /api/users/me",
		http.MethodGet + " /api/users/:id",
		http.MethodPut + " /api/users/:id",
		http.MethodGet + " /api/reports/financial",
		http.MethodGet + " /api/reports/csv",
	}

	require.Equal(t, len(expected), len(got))
	for _, k := range expected {
		_, ok := got[k]
		require.True(t, ok, "missing route %s", k)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := echo.New()
	Setup(e, Deps{DB: &database.FakeDB{}, Cache: &cache.FakeCache{}})

	for _, target := range []string{"/api/movements", "/api/users", "/api/reports/csv", "/api/users/me"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, target)
		require.Contains(t, rec.Body.String(), `"hint"`, target)
	}
}

const (
	testSessionID = "sess-router"
	movementPath  = "/api/movements/3f1c2b9e-2f43-4c1e-9a57-0d7c6b1e8a11"
)

var errBackend = errors.New("backend unavailable")

// userRow 只填入 middleware 需要的欄位
type userRow struct{ user model.User }

func (r userRow) Scan(dest ...any) error {
	*dest[0].(*int) = r.user.ID
	*dest[2].(*string) = r.user.Name
	*dest[3].(*string) = r.user.Email
	*dest[6].(*model.Role) = r.user.Role
	return nil
}

type errRow struct{}

func (errRow) Scan(...any) error { return errBackend }

// newRoleServer 建立一個已登入為指定角色的路由與對應的 Bearer token
func newRoleServer(t *testing.T, role model.Role) (*echo.Echo, string) {
	t.Helper()
	t.Setenv("JWT_SECRET", "router-test-secret")
	user := model.User{ID: 42, Name: "Casey", Email: "casey@example.com", Role: role}

	db := &database.FakeDB{
		QueryRowFn: func(_ context.Context, sql string, _ ...any) pgx.Row {
			if strings.Contains(sql, "FROM users WHERE id = $1") {
				return userRow{user: user}
			}
			return errRow{}
		},
		QueryFn: func(context.Context, string, ...any) (pgx.Rows, error) { return nil, errBackend },
		ExecFn: func(context.Context, string, ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, errBackend
		},
	}
	session, err := json.Marshal(service.SessionData{UserID: user.ID})
	require.NoError(t, err)
	rc := &cache.FakeCache{
		GetFn: func(_ context.Context, key string) *redis.StringCmd {
			if strings.HasSuffix(key, testSessionID) {
				return redis.NewStringResult(string(session), nil)
			}
			return redis.NewStringResult("", errBackend)
		},
		DelFn: func(context.Context, ...string) *redis.IntCmd { return redis.NewIntResult(1, nil) },
	}

	e := echo.New()
	e.Use(echomw.Recover())
	Setup(e, Deps{DB: db, Cache: rc, Notifier: nopNotifier{}, ReportCacheTTL: time.Minute})

	token, err := service.IssueSessionToken(user, testSessionID, time.Hour)
	require.NoError(t, err)
	return e, token
}

type nopNotifier struct{}

func (nopNotifier) MovementChanged(context.Context, events.Action, string, int) {}

func serve(e *echo.Echo, token, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// adminRoutes 的輸入讓 handler 不必碰到資料即可回應
var adminRoutes = []struct {
	method string
	target string
	body   string
}{
	{http.MethodGet, "/api/clients", ""},
	{http.MethodPost, "/api/clients", "{"},
	{http.MethodDelete, "/api/clients/c_missing", ""},
	{http.MethodPost, "/api/movements", "{"},
	{http.MethodPut, "/api/movements/nope", `{"concept":"x"}`},
	{http.MethodDelete, "/api/movements/nope", ""},
	{http.MethodPut, movementPath, "{"},
	{http.MethodDelete, "/api/movements/not-a-uuid", ""},
	{http.MethodGet, "/api/users", ""},
	{http.MethodGet, "/api/users/abc", ""},
	{http.MethodPut, "/api/users/abc", `{"name":"x"}`},
	{http.MethodGet, "/api/reports/financial?startDate=bad&endDate=2024-01-01", ""},
	{http.MethodGet, "/api/reports/csv?type=pdf", ""},
}

func TestAdminRoutesRejectUserRole(t *testing.T) {
	e, token := newRoleServer(t, model.RoleUser)
	for _, r := range adminRoutes {
		rec := serve(e, token, r.method, r.target, r.body)
		require.Equal(t, http.StatusForbidden, rec.Code, "%s %s", r.method, r.target)
		require.Contains(t, rec.Body.String(), "admin privileges required", "%s %s", r.method, r.target)
	}
}

func TestAdminRoutesAllowAdminRole(t *testing.T) {
	e, token := newRoleServer(t, model.RoleAdmin)
	for _, r := range adminRoutes {
		rec := serve(e, token, r.method, r.target, r.body)
		require.NotEqual(t, http.StatusForbidden, rec.Code, "%s %s", r.method, r.target)
		require.NotEqual(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.target)
	}
}

func TestAuthenticatedRoutesAllowUserRole(t *testing.T) {
	e, token := newRoleServer(t, model.RoleUser)
	cases := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, "/api/users/me", http.StatusOK},
		{http.MethodGet, "/api/movements?dateFrom=bad", http.StatusBadRequest},
		{http.MethodGet, "/api/movements/not-a-uuid", http.StatusNotFound},
		{http.MethodGet, "/api/auth/session", http.StatusOK},
		{http.MethodPost, "/api/auth/logout", http.StatusNoContent},
	}
	for _, tc := range cases {
		rec := serve(e, token, tc.method, tc.target, "")
		require.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.target)
	}
}
