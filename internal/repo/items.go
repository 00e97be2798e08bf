package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/models"
	"github.com/eisbar/shop/internal/transport"
)

func (r *GormRepo) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	if err := r.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) GetItems(ctx context.Context, offset, limit int) (int64, []models.Item, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Item{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Item
	if err := r.DB.WithContext(ctx).Model(&models.Item{}).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateItem(ctx context.Context, item *models.Item) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *GormRepo) PatchItem(ctx context.Context, req transport.PatchItemRequest, id uint) (*models.Item, error) {
	var item models.Item
	if err := r.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.ImageURL != nil {
		item.ImageURL = *req.ImageURL
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if req.Stock != nil {
		item.Stock = *req.Stock
	}

	if err := r.DB.WithContext(ctx).Save(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) DeleteItem(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Item{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LockItem reads an item under a row lock inside tx.
func LockItem(tx *gorm.DB, id uint) (*models.Item, error) {
	var item models.Item
	if err := forUpdate(tx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// LockItems locks a set of items in ascending ID order.
func LockItems(tx *gorm.DB, ids []uint) (map[uint]*models.Item, error) {
	var rows []models.Item
	if err := forUpdate(tx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make(map[uint]*models.Item, len(rows))
	for i := range rows {
		items[rows[i].ID] = &rows[i]
	}
	return items, nil
}
