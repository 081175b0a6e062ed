package metrics

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"tsu-combat/internal/pkg/ctxkey"
)

func TestMiddleware_RecordsRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetricsWithRegistry("test", reg)

	originalMetrics := DefaultHTTPMetrics
	DefaultHTTPMetrics = metrics
	defer func() { DefaultHTTPMetrics = originalMetrics }()

	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/v1/combat/sessions/:session_id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/combat/sessions/abc", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	// 指标用路由模板而非实际路径作为标签
	count := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues(
		GetServiceName(), "/api/v1/combat/sessions/:session_id", "GET", "200"))
	assert.Equal(t, float64(1), count)

	// 请求结束后进行中计数归零
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.RequestsInProgress.WithLabelValues(GetServiceName())))
}

func TestMiddleware_SkipsHealthEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetricsWithRegistry("test", reg)

	originalMetrics := DefaultHTTPMetrics
	DefaultHTTPMetrics = metrics
	defer func() { DefaultHTTPMetrics = originalMetrics }()

	e := echo.New()
	e.Use(Middleware())
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	count := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues(
		GetServiceName(), "/health", "GET", "200"))
	assert.Equal(t, float64(0), count)
}

func TestMiddleware_StoresHTTPMethod(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())

	var gotMethod string
	e.POST("/api/v1/combat/sessions", func(c echo.Context) error {
		gotMethod = ctxkey.GetString(c.Request().Context(), ctxkey.HTTPMethod)
		return c.NoContent(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/combat/sessions", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "POST", gotMethod)
}

func TestPathLimitTracker_Limit(t *testing.T) {
	tracker := NewPathLimitTracker(3)

	assert.Equal(t, "/a", tracker.TrackPath("/a"))
	assert.Equal(t, "/b", tracker.TrackPath("/b"))
	assert.Equal(t, "/c", tracker.TrackPath("/c"))

	// 超出上限归为 other
	assert.Equal(t, "other", tracker.TrackPath("/d"))

	// 已追踪的路径不受影响
	assert.Equal(t, "/a", tracker.TrackPath("/a"))
	assert.Equal(t, 3, tracker.GetTrackedCount())

	assert.Equal(t, "unknown", tracker.TrackPath(""))
}

func TestPathLimitTracker_ConcurrentAccess(t *testing.T) {
	tracker := NewPathLimitTracker(10)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.TrackPath("/api/v1/combat/sessions")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, tracker.GetTrackedCount())
}
