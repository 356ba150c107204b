package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/practrac/practrac/core/coach"
)

// adminMiddleware only lets admins through. When roles are given, the coach needs one of them too.
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, err := getContextCoach(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context coach")
			}
			if c.IsAdmin() && hasAnyRole(c, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func hasAnyRole(c coach.Coach, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if c.RoleStartsWith(role) {
			return true
		}
	}
	return false
}

// rateLimitMiddleware allows perWindow requests per client IP in every window, with bursts of perWindow.
func rateLimitMiddleware(perWindow int, window time.Duration) echo.MiddlewareFunc {
	if perWindow <= 0 {
		perWindow = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Every(window / time.Duration(perWindow)),
		Burst:     perWindow,
		ExpiresIn: window,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return errHttpForbidden
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return errTooManyRequests
		},
	})
}

// requestLoggerMiddleware writes one access log line per request.
func requestLoggerMiddleware(zl zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(ctx echo.Context, v middleware.RequestLoggerValues) error {
			ev := zl.Info()
			if v.Status >= 500 {
				ev = zl.Error().Err(v.Error)
			}
			if c, err := getContextCoach(ctx); err == nil {
				ev = ev.Str("coach_id", c.ID)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Str("route", v.RoutePath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
