package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/models"
)

func (r *GormRepo) SaveRefreshToken(ctx context.Context, token string, accountID uint, expiresAt int64) error {
	row := models.RefreshToken{
		Token:     token,
		AccountID: accountID,
		ExpiresAt: expiresAt,
	}
	return r.DB.WithContext(ctx).Create(&row).Error
}

func (r *GormRepo) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var row models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).Where("token = ?", token).Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) RevokeAccountTokens(ctx context.Context, accountID uint) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).Where("account_id = ?", accountID).Update("revoked", true).Error
}
