package logging

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/tms-api/internal/auth"
)

// RequestLogger logs one line per request with method, path, status,
// latency and the caller when a session is present.  Server errors are
// logged at error level, client errors at warn.
func RequestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.Int64("duration_ms", v.Latency.Milliseconds()),
				slog.String("remote", v.RemoteIP),
				slog.String("user_agent", v.UserAgent),
			}
			if s, ok := auth.SessionFrom(c.Request().Context()); ok {
				attrs = append(attrs, slog.String("user_id", s.Subject))
			}
			level := slog.LevelInfo
			switch {
			case v.Status >= 500:
				level = slog.LevelError
			case v.Status >= 400:
				level = slog.LevelWarn
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			log.LogAttrs(context.Background(), level, "http.request", attrs...)
			return nil
		},
	})
}

// BodyLogger dumps redacted request and response bodies at debug level.
// It is skipped entirely unless the logger has debug enabled.
func BodyLogger(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Skipper: func(echo.Context) bool {
			return !log.Enabled(context.Background(), slog.LevelDebug)
		},
		Handler: func(c echo.Context, req, res []byte) {
			log.Debug("http.body",
				"method", c.Request().Method,
				"path", c.Path(),
				"request", RedactJSON(req),
				"response", RedactJSON(res),
			)
		},
	})
}
