package metrics

import (
	"net/http"
	"time"

	"tsu-combat/internal/pkg/ctxkey"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 路由模板缺失时用原始路径兜底，上限防止标签基数爆炸
var fallbackPathTracker = NewPathLimitTracker(64)

// Middleware Echo 中间件 - 记录HTTP请求指标并将HTTP方法存储到 context 中
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// 将 HTTP 方法存储到 context
			ctx := c.Request().Context()
			ctx = ctxkey.WithValue(ctx, ctxkey.HTTPMethod, c.Request().Method)
			c.SetRequest(c.Request().WithContext(ctx))

			if IsHealthCheckEndpoint(c.Request().URL.Path) {
				return next(c)
			}

			service := GetServiceName()
			DefaultHTTPMetrics.IncInProgress(service)
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			DefaultHTTPMetrics.DecInProgress(service)

			route := c.Path()
			if route == "" {
				route = fallbackPathTracker.TrackPath(c.Request().URL.Path)
			}

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				// 错误尚未被错误中间件转换时，以 HTTPError 的状态为准
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			DefaultHTTPMetrics.RecordRequest(service, route, c.Request().Method, status, duration)
			return err
		}
	}
}

// Handler 返回 Prometheus metrics HTTP 处理器
// 用于暴露 /metrics 端点
func Handler() http.Handler {
	return promhttp.Handler()
}

// EchoHandler Echo 框架的 Prometheus metrics 处理器
func EchoHandler() echo.HandlerFunc {
	h := promhttp.Handler()
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	}
}
