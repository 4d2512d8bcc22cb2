package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/movements/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/api/fail", func(c echo.Context) error { return echo.NewHTTPError(http.StatusForbidden) })
	e.GET("/api/boom", func(c echo.Context) error { return errors.New("boom") })

	for _, path := range []string{"/api/movements/a", "/api/movements/b", "/api/fail", "/api/boom"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/movements/:id", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/fail", "403")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/boom", "500")))
	require.Equal(t, 3, testutil.CollectAndCount(m.duration))
}

func TestOperationCounters(t *testing.T) {
	m := New()
	m.MovementOperation("created")
	m.MovementOperation("created")
	m.CSVExport("summary")
	require.Equal(t, 2.0, testutil.ToFloat64(m.movementOps.WithLabelValues("created")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.csvExports.WithLabelValues("summary")))

	var nilMetrics *Metrics
	nilMetrics.MovementOperation("created")
	nilMetrics.CSVExport("users")
}

func TestHandler(t *testing.T) {
	m := New()
	m.CSVExport("movements")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `cashflow_csv_exports_total{type="movements"} 1`)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
