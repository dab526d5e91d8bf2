package middleware

import (
	"examprep-billing/internal/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RequestLogger pushes the request id into the context and logs one line per
// request through the process logger.
func RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		BeforeNextFunc: func(c echo.Context) {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logger.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l := logger.FromContext(c.Request().Context())
			if v.Error != nil {
				l.Error("request", "method", v.Method, "uri", v.URI, "status", v.Status,
					"latency", v.Latency.String(), "error", v.Error)
			} else {
				l.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status,
					"latency", v.Latency.String())
			}
			return nil
		},
	})
}
