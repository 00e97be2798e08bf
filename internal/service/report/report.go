package report

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/models"
)

// Service aggregates the transaction log for the admin consumption chart.
// Reads only; the log itself is append-only.
type Service struct {
	DB          *gorm.DB
	MasterEmail string
}

type DailyRevenue struct {
	Day     string          `json:"day"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int64           `json:"count"`
}

type AccountConsumption struct {
	AccountID uint            `json:"account_id"`
	Email     string          `json:"email"`
	Total     decimal.Decimal `json:"total"`
	Count     int64           `json:"count"`
}

func (s *Service) masterID(ctx context.Context) (uint, error) {
	var master models.Account
	if err := s.DB.WithContext(ctx).Where("email = ?", s.MasterEmail).First(&master).Error; err != nil {
		return 0, err
	}
	return master.ID, nil
}

// RevenueByDay sums shop sales (transactions received by the master account)
// per calendar day.
func (s *Service) RevenueByDay(ctx context.Context) ([]DailyRevenue, error) {
	masterID, err := s.masterID(ctx)
	if err != nil {
		return nil, err
	}

	var rows []DailyRevenue
	if err := s.DB.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("date(created_at) AS day, SUM(amount) AS revenue, COUNT(*) AS count").
		Where("receiver_id = ?", masterID).
		Group("date(created_at)").
		Order("day ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ConsumptionByAccount sums each account's spend at the shop, highest first.
func (s *Service) ConsumptionByAccount(ctx context.Context, limit int) ([]AccountConsumption, error) {
	masterID, err := s.masterID(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows []AccountConsumption
	if err := s.DB.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("transactions.sender_id AS account_id, accounts.email AS email, SUM(transactions.amount) AS total, COUNT(*) AS count").
		Joins("JOIN accounts ON accounts.id = transactions.sender_id").
		Where("transactions.receiver_id = ?", masterID).
		Group("transactions.sender_id, accounts.email").
		Order("total DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
