package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eisbar/shop/internal/logging"
	"github.com/eisbar/shop/internal/service/account"
	"github.com/eisbar/shop/internal/service/auth"
	"github.com/eisbar/shop/internal/transport"
)

type AuthHandler struct {
	Auth     *auth.Service
	Accounts *account.Service
}

func createCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	acc, err := h.Accounts.Register(ctx, req)
	if err != nil {
		var fields account.FieldErrors
		if errors.As(err, &fields) {
			l.Warn("register_failed", "status", 400, "reason", "field validation")
			return c.JSON(http.StatusBadRequest, map[string]any{
				"error":  "invalid account fields",
				"fields": fields,
			})
		}
		if errors.Is(err, account.ErrEmailTaken) {
			l.Warn("register_failed", "status", 409, "reason", "email taken")
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		}
		l.Error("register_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot register account")
	}

	l.Info("register_success", "account_id", acc.ID)
	return c.JSON(http.StatusCreated, acc)
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			l.Warn("login_failed", "status", 401, "reason", "invalid credentials")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, auth.ErrAccountClosed):
			l.Warn("login_failed", "status", 403, "reason", "account closed")
			return echo.NewHTTPError(http.StatusForbidden, "account closed")
		default:
			l.Error("login_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot log in")
		}
	}

	c.SetCookie(createCookie("accessToken", res.AccessToken, res.AccessExp))
	c.SetCookie(createCookie("refreshToken", res.RefreshToken, res.RefreshExp))

	l.Info("login_success", "account_id", res.AccountID)
	return c.JSON(http.StatusOK, map[string]any{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
		"admin":         res.Admin,
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	cookie, err := c.Cookie("refreshToken")
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	res, err := h.Auth.Refresh(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			l.Warn("refresh_failed", "status", 401, "reason", "invalid refresh token")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot refresh session")
	}

	c.SetCookie(createCookie("accessToken", res.AccessToken, res.AccessExp))
	c.SetCookie(createCookie("refreshToken", res.RefreshToken, res.RefreshExp))

	return c.JSON(http.StatusOK, map[string]any{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	raw := ""
	if cookie, err := c.Cookie("refreshToken"); err == nil {
		raw = cookie.Value
	}
	if err := h.Auth.Logout(ctx, raw); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot log out")
	}

	c.SetCookie(createCookie("accessToken", "", time.Unix(0, 0)))
	c.SetCookie(createCookie("refreshToken", "", time.Unix(0, 0)))
	return c.NoContent(http.StatusNoContent)
}
