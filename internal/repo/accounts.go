package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/models"
)

func (r *GormRepo) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	var acc models.Account
	if err := r.DB.WithContext(ctx).First(&acc, id).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *GormRepo) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var acc models.Account
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&acc).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *GormRepo) AccountExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) CreateAccount(ctx context.Context, acc *models.Account) error {
	return r.DB.WithContext(ctx).Create(acc).Error
}

func (r *GormRepo) SaveAccount(ctx context.Context, acc *models.Account) error {
	return r.DB.WithContext(ctx).Save(acc).Error
}

func (r *GormRepo) ListAccounts(ctx context.Context, offset, limit int) (int64, []models.Account, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Account{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var accounts []models.Account
	if err := r.DB.WithContext(ctx).Model(&models.Account{}).Order("id ASC").Offset(offset).Limit(limit).Find(&accounts).Error; err != nil {
		return 0, nil, err
	}
	return total, accounts, nil
}

// LockAccount reads an account under a row lock inside tx. Used by the
// purchase path so coverage is re-checked against current state right before
// the balance moves.
func LockAccount(tx *gorm.DB, id uint) (*models.Account, error) {
	var acc models.Account
	if err := forUpdate(tx).First(&acc, id).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}

// LockAccountPair locks two accounts in ascending ID order so concurrent
// transfers between the same pair cannot deadlock. Equal IDs yield the same
// row twice, never two independent copies.
func LockAccountPair(tx *gorm.DB, aID, bID uint) (*models.Account, *models.Account, error) {
	if aID == bID {
		acc, err := LockAccount(tx, aID)
		if err != nil {
			return nil, nil, err
		}
		return acc, acc, nil
	}

	firstID, secondID := aID, bID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	first, err := LockAccount(tx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := LockAccount(tx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if firstID != aID {
		first, second = second, first
	}
	return first, second, nil
}
