package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/hash"
	"github.com/eisbar/shop/internal/models"
	"github.com/eisbar/shop/internal/repo"
	"github.com/eisbar/shop/internal/service/ledger"
	"github.com/eisbar/shop/internal/transport"
)

var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrNoSuchAccount = errors.New("no such account")
	ErrInvalidStatus = errors.New("invalid status")
)

// FieldError names one offending registration field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// FieldErrors carries every failing field at once instead of stopping at the
// first.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Reason)
	}
	return "invalid account fields: " + strings.Join(parts, ", ")
}

type Service struct {
	Repo     *repo.GormRepo
	MinAge   int
	validate *validator.Validate
}

func New(r *repo.GormRepo, minAge int) *Service {
	return &Service{
		Repo:     r,
		MinAge:   minAge,
		validate: validator.New(),
	}
}

type registration struct {
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=8"`
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	Phone     string `validate:"omitempty,e164"`
}

// Register creates a new standard account. Every failing field is collected
// into one FieldErrors value so the caller can surface them all together.
func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) (*models.Account, error) {
	var fields FieldErrors

	reg := registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}
	if err := s.validate.Struct(reg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		for _, ve := range verrs {
			fields = append(fields, FieldError{
				Field:  strings.ToLower(ve.Field()),
				Reason: fmt.Sprintf("failed %q constraint", ve.Tag()),
			})
		}
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	switch {
	case err != nil:
		fields = append(fields, FieldError{Field: "birth_date", Reason: "must be a YYYY-MM-DD date"})
	case age(birthDate, time.Now()) < s.MinAge:
		fields = append(fields, FieldError{Field: "birth_date", Reason: fmt.Sprintf("must be at least %d years old", s.MinAge)})
	}

	if len(fields) > 0 {
		return nil, fields
	}

	taken, err := s.Repo.AccountExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	acc := &models.Account{
		Email:        req.Email,
		PasswordHash: pwHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		BirthDate:    birthDate,
		Phone:        req.Phone,
		Status:       models.StatusStandard,
		Balance:      decimal.Zero,
		DebtLimit:    decimal.Zero,
	}
	if err := s.Repo.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func age(birthDate, now time.Time) int {
	years := now.Year() - birthDate.Year()
	anniversary := birthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// Patch applies admin edits: status transitions, admin flag, debt limit
// (coerced non-positive) and phone. Accounts are never deleted, only closed.
func (s *Service) Patch(ctx context.Context, id uint, req transport.PatchAccountRequest) (*models.Account, error) {
	acc, err := s.Repo.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchAccount
		}
		return nil, err
	}

	if req.Status != nil {
		status := models.AccountStatus(*req.Status)
		switch status {
		case models.StatusStandard, models.StatusPrivileged, models.StatusRestricted, models.StatusClosed:
			acc.Status = status
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}
	}
	if req.Admin != nil {
		acc.Admin = *req.Admin
	}
	if req.DebtLimit != nil {
		acc.DebtLimit = ledger.NormalizeDebtLimit(*req.DebtLimit)
	}
	if req.Phone != nil {
		acc.Phone = *req.Phone
	}

	if err := s.Repo.SaveAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Account, error) {
	acc, err := s.Repo.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchAccount
		}
		return nil, err
	}
	return acc, nil
}

func (s *Service) List(ctx context.Context, offset, limit int) (int64, []models.Account, error) {
	return s.Repo.ListAccounts(ctx, offset, limit)
}
