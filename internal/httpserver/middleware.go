package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eisbar/shop/internal/logging"
	"github.com/eisbar/shop/internal/service/auth"
)

const (
	ctxAccountID = "accountID"
	ctxAdmin     = "admin"
)

// accessToken reads the session token from the Authorization header or the
// access cookie. The resolved account travels in the echo context from here
// on; nothing below the boundary holds session state.
func accessToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > 7 && header[:7] == "Bearer " {
		return header[7:]
	}
	if cookie, err := c.Cookie("accessToken"); err == nil {
		return cookie.Value
	}
	return ""
}

func AccountID(c echo.Context) uint {
	if id, ok := c.Get(ctxAccountID).(uint); ok {
		return id
	}
	return 0
}

func IsAdmin(c echo.Context) bool {
	admin, _ := c.Get(ctxAdmin).(bool)
	return admin
}

func RequireLogin(svc *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := accessToken(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}

			accountID, admin, err := svc.ParseAccessToken(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ctxAccountID, accountID)
			c.Set(ctxAdmin, admin)
			return next(c)
		}
	}
}

func RequireAdmin(svc *auth.Service) echo.MiddlewareFunc {
	login := RequireLogin(svc)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return login(func(c echo.Context) error {
			if !IsAdmin(c) {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		})
	}
}

func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)

			l := base.With(
				"method", c.Request().Method,
				"path", c.Path(),
				"remote_ip", c.RealIP(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}

			req := c.Request().WithContext(logging.IntoContext(c.Request().Context(), l))
			c.SetRequest(req)

			start := time.Now()
			err := next(c)
			dur := time.Since(start)
			status := c.Response().Status

			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
				status = c.Response().Status
			}

			switch {
			case err != nil || status >= 500:
				l.Error("request completed", "status", status, "duration_ms", dur.Milliseconds(), "error", errStr(err))
			case status >= 400:
				l.Warn("request completed", "status", status, "duration_ms", dur.Milliseconds())
			default:
				l.Info("request completed", "status", status, "duration_ms", dur.Milliseconds(), "bytes", c.Response().Size)
			}
			return nil
		}
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%v", err)
}
