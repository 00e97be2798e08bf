package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/models"
)

func (r *GormRepo) GetCart(ctx context.Context, accountID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).Where("account_id = ?", accountID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// AddToCart merges the quantity into an existing line for the same item or
// creates a new one.
func (r *GormRepo) AddToCart(ctx context.Context, accountID, itemID, quantity uint) (*models.CartItem, error) {
	var line models.CartItem
	err := r.DB.WithContext(ctx).Where("account_id = ? AND item_id = ?", accountID, itemID).First(&line).Error
	if err == nil {
		line.Quantity += quantity
		if err := r.DB.WithContext(ctx).Save(&line).Error; err != nil {
			return nil, err
		}
		return &line, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	line = models.CartItem{
		AccountID: accountID,
		ItemID:    itemID,
		Quantity:  quantity,
	}
	if err := r.DB.WithContext(ctx).Create(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// RemoveFromCart decrements a line's quantity and deletes it once it reaches
// zero.
func (r *GormRepo) RemoveFromCart(ctx context.Context, accountID, itemID, quantity uint) (*models.CartItem, error) {
	var line models.CartItem
	if err := r.DB.WithContext(ctx).Where("account_id = ? AND item_id = ?", accountID, itemID).First(&line).Error; err != nil {
		return nil, err
	}

	if line.Quantity > quantity {
		line.Quantity -= quantity
		if err := r.DB.WithContext(ctx).Save(&line).Error; err != nil {
			return nil, err
		}
		return &line, nil
	}

	if err := r.DB.WithContext(ctx).Delete(&line).Error; err != nil {
		return nil, err
	}
	return nil, nil
}

// ClearCart deletes only the given account's cart lines. Never system-wide.
func ClearCart(tx *gorm.DB, accountID uint) error {
	return tx.Where("account_id = ?", accountID).Delete(&models.CartItem{}).Error
}

func (r *GormRepo) ClearCart(ctx context.Context, accountID uint) error {
	return ClearCart(r.DB.WithContext(ctx), accountID)
}
