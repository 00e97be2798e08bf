package stock

import (
	"errors"

	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/models"
)

var (
	// ErrOutOfStock means the item has no stock left at all.
	ErrOutOfStock = errors.New("out of stock")
	// ErrInsufficientStock means the requested quantity exceeds the stock.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// CanReserve reports whether qty units can come out of the item's stock.
func CanReserve(item *models.Item, qty uint) error {
	if item.Stock == 0 {
		return ErrOutOfStock
	}
	if qty < 1 || qty > item.Stock {
		return ErrInsufficientStock
	}
	return nil
}

// Reserve decrements the item's stock by qty and persists it inside tx.
// Not transactional across items on its own: a multi-line caller must
// validate every line before reserving any (the cart aggregator does).
func Reserve(tx *gorm.DB, item *models.Item, qty uint) error {
	if err := CanReserve(item, qty); err != nil {
		return err
	}

	item.Stock -= qty
	return tx.Model(&models.Item{}).Where("id = ?", item.ID).Update("stock", item.Stock).Error
}
