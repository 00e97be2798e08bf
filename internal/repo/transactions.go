package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/models"
)

// AppendTransaction writes one audit row inside tx. There is deliberately no
// update or delete counterpart.
func AppendTransaction(tx *gorm.DB, t *models.Transaction) error {
	return tx.Create(t).Error
}

func (r *GormRepo) TransactionsByAccount(ctx context.Context, accountID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := r.DB.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", accountID, accountID).
		Order("id ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *GormRepo) ListTransactions(ctx context.Context, offset, limit int) (int64, []models.Transaction, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Transaction{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var txs []models.Transaction
	if err := r.DB.WithContext(ctx).Model(&models.Transaction{}).Order("id DESC").Offset(offset).Limit(limit).Find(&txs).Error; err != nil {
		return 0, nil, err
	}
	return total, txs, nil
}
