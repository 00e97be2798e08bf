package stock

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Item{}))
	return db
}

func seed(t *testing.T, db *gorm.DB, stock uint) *models.Item {
	t.Helper()
	item := &models.Item{Name: "Lemonade", Price: decimal.New(3, 0), Stock: stock}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestCanReserve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stock   uint
		qty     uint
		wantErr error
	}{
		{"available", 5, 3, nil},
		{"whole stock", 5, 5, nil},
		{"empty stock", 0, 1, ErrOutOfStock},
		{"too much", 3, 4, ErrInsufficientStock},
		{"zero quantity", 3, 0, ErrInsufficientStock},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := CanReserve(&models.Item{Stock: tt.stock}, tt.qty)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestReserve_DecrementsAndPersists(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	item := seed(t, db, 5)

	require.NoError(t, Reserve(db, item, 2))
	assert.Equal(t, uint(3), item.Stock)

	var stored models.Item
	require.NoError(t, db.First(&stored, item.ID).Error)
	assert.Equal(t, uint(3), stored.Stock)
}

func TestReserve_RejectionLeavesStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	item := seed(t, db, 2)

	err := Reserve(db, item, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, uint(2), item.Stock)

	var stored models.Item
	require.NoError(t, db.First(&stored, item.ID).Error)
	assert.Equal(t, uint(2), stored.Stock)
}
