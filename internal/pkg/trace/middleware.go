package trace

import (
	"github.com/labstack/echo/v4"
)

// Middleware 为每个请求注入追踪ID
// 优先复用上游传入的ID，否则生成新ID，并通过响应头回传
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			traceID := ExtractFromHeader(c.Request().Header)
			if traceID == "" {
				traceID = GenerateTraceID()
			}

			ctx := WithTraceID(c.Request().Context(), traceID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(HeaderTraceID, traceID)

			return next(c)
		}
	}
}
