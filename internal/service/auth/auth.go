package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/hash"
	"github.com/eisbar/shop/internal/logging"
	"github.com/eisbar/shop/internal/models"
	"github.com/eisbar/shop/internal/repo"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrAccountClosed       = errors.New("account closed")
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

type Service struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
}

type LoginResult struct {
	AccountID    uint
	Admin        bool
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func (s *Service) SignAccessToken(accountID uint, admin bool, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   float64(accountID),
		"admin": admin,
		"exp":   exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.JWTSecret)
}

func (s *Service) signRefreshToken(accountID uint, admin bool, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   float64(accountID),
		"admin": admin,
		"exp":   exp.Unix(),
		"typ":   "refresh",
		"jti":   uuid.NewString(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.RefreshSecret)
}

// ParseAccessToken resolves an access token to the session's account identity.
func (s *Service) ParseAccessToken(raw string) (accountID uint, admin bool, err error) {
	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.JWTSecret, nil
	})
	if err != nil || !t.Valid {
		return 0, false, fmt.Errorf("invalid access token: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false, errors.New("invalid access token claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, false, errors.New("invalid access token subject")
	}
	isAdmin, _ := claims["admin"].(bool)
	return uint(sub), isAdmin, nil
}

func (s *Service) issuePair(ctx context.Context, accountID uint, admin bool) (*LoginResult, error) {
	accessExp := time.Now().Add(AccessTTL)
	accessToken, err := s.SignAccessToken(accountID, admin, accessExp)
	if err != nil {
		return nil, err
	}

	refreshExp := time.Now().Add(RefreshTTL)
	refreshToken, err := s.signRefreshToken(accountID, admin, refreshExp)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.SaveRefreshToken(ctx, refreshToken, accountID, refreshExp.Unix()); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccountID:    accountID,
		Admin:        admin,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	acc, err := s.Repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	if !hash.CheckPassword(acc.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if acc.Status == models.StatusClosed {
		return nil, ErrAccountClosed
	}

	return s.issuePair(ctx, acc.ID, acc.Admin)
}

// Refresh rotates a refresh token: the old one is revoked and a fresh pair is
// issued.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	accountID, admin, err := s.validateRefresh(ctx, rawRefresh)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.RevokeRefreshToken(ctx, rawRefresh); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return s.issuePair(ctx, accountID, admin)
}

func (s *Service) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	if err := s.Repo.RevokeRefreshToken(ctx, rawRefresh); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *Service) validateRefresh(ctx context.Context, raw string) (uint, bool, error) {
	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.RefreshSecret, nil
	})
	if err != nil || !t.Valid {
		return 0, false, ErrInvalidRefreshToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false, ErrInvalidRefreshToken
	}
	if typ, ok := claims["typ"].(string); !ok || typ != "refresh" {
		return 0, false, ErrInvalidRefreshToken
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, false, ErrInvalidRefreshToken
	}

	stored, err := s.Repo.GetRefreshToken(ctx, raw)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, ErrInvalidRefreshToken
		}
		return 0, false, err
	}
	if stored.Revoked || time.Now().Unix() > stored.ExpiresAt {
		return 0, false, ErrInvalidRefreshToken
	}

	admin, _ := claims["admin"].(bool)
	return uint(sub), admin, nil
}
