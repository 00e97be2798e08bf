package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/models"
)

var ErrInsufficientCoverage = errors.New("insufficient coverage")

// Covers reports whether debiting amount keeps the balance at or above the
// debt limit.
func Covers(acc *models.Account, amount decimal.Decimal) bool {
	return acc.Balance.Sub(amount).GreaterThanOrEqual(acc.DebtLimit)
}

// ApplyDelta mutates the balance by amount and persists it inside tx. Debits
// that would cross the debt limit leave the row untouched. Status gating is
// the caller's responsibility.
func ApplyDelta(tx *gorm.DB, acc *models.Account, amount decimal.Decimal) error {
	next := acc.Balance.Add(amount)
	if amount.IsNegative() && next.LessThan(acc.DebtLimit) {
		return ErrInsufficientCoverage
	}

	acc.Balance = next
	return tx.Model(&models.Account{}).Where("id = ?", acc.ID).Update("balance", next).Error
}

// NormalizeDebtLimit coerces a debt limit to the non-positive range.
func NormalizeDebtLimit(limit decimal.Decimal) decimal.Decimal {
	if limit.IsPositive() {
		return limit.Neg()
	}
	return limit
}
