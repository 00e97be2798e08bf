package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/logging"
	"github.com/eisbar/shop/internal/models"
	"github.com/eisbar/shop/internal/notify"
	"github.com/eisbar/shop/internal/repo"
	"github.com/eisbar/shop/internal/service/ledger"
	"github.com/eisbar/shop/internal/service/stock"
)

var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrAccountClosed     = errors.New("account closed")
	ErrAccountRestricted = errors.New("account restricted")
	ErrNoSuchAccount     = errors.New("no such account")
	ErrNoSuchItem        = errors.New("no such item")
	ErrCartExceedsStock  = errors.New("cart exceeds stock")
	ErrEmptyCart         = errors.New("empty cart")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrSelfTransfer      = errors.New("transfer to self")
)

// Service commits purchases and transfers. Every money or stock movement
// re-checks coverage and stock under row locks inside one DB transaction.
type Service struct {
	DB          *gorm.DB
	Repo        *repo.GormRepo
	Notifier    notify.Notifier
	MasterEmail string
	LowStockAt  uint
}

type Receipt struct {
	Transaction models.Transaction `json:"transaction"`
	Balance     decimal.Decimal    `json:"balance"`
}

func gateStatus(acc *models.Account) error {
	switch acc.Status {
	case models.StatusClosed:
		return ErrAccountClosed
	case models.StatusRestricted:
		return ErrAccountRestricted
	}
	return nil
}

func (s *Service) masterID(ctx context.Context) (uint, error) {
	master, err := s.Repo.GetAccountByEmail(ctx, s.MasterEmail)
	if err != nil {
		return 0, fmt.Errorf("master account: %w", err)
	}
	return master.ID, nil
}

// BuyItem purchases a single unit. The first failing check wins and nothing
// is mutated on rejection.
func (s *Service) BuyItem(ctx context.Context, accountID, itemID uint) (*Receipt, error) {
	if accountID == 0 {
		return nil, ErrNotAuthenticated
	}

	masterID, err := s.masterID(ctx)
	if err != nil {
		return nil, err
	}
	if accountID == masterID {
		return nil, ErrSelfTransfer
	}

	var (
		receipt  *Receipt
		lowStock *models.Item
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		buyer, master, err := repo.LockAccountPair(tx, accountID, masterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoSuchAccount
			}
			return err
		}
		if err := gateStatus(buyer); err != nil {
			return err
		}

		item, err := repo.LockItem(tx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoSuchItem
			}
			return err
		}

		if !ledger.Covers(buyer, item.Price) {
			return ledger.ErrInsufficientCoverage
		}
		if item.Stock == 0 {
			return stock.ErrOutOfStock
		}

		if err := ledger.ApplyDelta(tx, buyer, item.Price.Neg()); err != nil {
			return err
		}
		if err := ledger.ApplyDelta(tx, master, item.Price); err != nil {
			return err
		}
		if err := stock.Reserve(tx, item, 1); err != nil {
			return err
		}

		t := models.Transaction{
			Reference:  uuid.New(),
			SenderID:   buyer.ID,
			ReceiverID: master.ID,
			Amount:     item.Price,
			Text:       item.Name,
		}
		if err := repo.AppendTransaction(tx, &t); err != nil {
			return err
		}

		receipt = &Receipt{Transaction: t, Balance: buyer.Balance}
		if item.Stock <= s.LowStockAt {
			snapshot := *item
			lowStock = &snapshot
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.warnLowStock(ctx, lowStock)
	return receipt, nil
}

// Checkout commits the account's whole cart as one purchase, or nothing: every
// line is validated against stock before any item is mutated.
func (s *Service) Checkout(ctx context.Context, accountID uint) (*Receipt, error) {
	if accountID == 0 {
		return nil, ErrNotAuthenticated
	}

	masterID, err := s.masterID(ctx)
	if err != nil {
		return nil, err
	}
	if accountID == masterID {
		return nil, ErrSelfTransfer
	}

	var (
		receipt  *Receipt
		lowStock []*models.Item
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		buyer, master, err := repo.LockAccountPair(tx, accountID, masterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoSuchAccount
			}
			return err
		}
		if err := gateStatus(buyer); err != nil {
			return err
		}

		var lines []models.CartItem
		if err := tx.Where("account_id = ?", accountID).Order("id ASC").Find(&lines).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		ids := make([]uint, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ItemID)
		}
		items, err := repo.LockItems(tx, ids)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, line := range lines {
			item, ok := items[line.ItemID]
			if !ok {
				return ErrNoSuchItem
			}
			total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		if !ledger.Covers(buyer, total) {
			return ledger.ErrInsufficientCoverage
		}

		for _, line := range lines {
			if err := stock.CanReserve(items[line.ItemID], line.Quantity); err != nil {
				return fmt.Errorf("%w: %s", ErrCartExceedsStock, items[line.ItemID].Name)
			}
		}

		var text strings.Builder
		for _, line := range lines {
			item := items[line.ItemID]
			if err := stock.Reserve(tx, item, line.Quantity); err != nil {
				return err
			}
			fmt.Fprintf(&text, "%s x %d; ", item.Name, line.Quantity)
			if item.Stock <= s.LowStockAt {
				snapshot := *item
				lowStock = append(lowStock, &snapshot)
			}
		}

		if err := ledger.ApplyDelta(tx, buyer, total.Neg()); err != nil {
			return err
		}
		if err := ledger.ApplyDelta(tx, master, total); err != nil {
			return err
		}

		t := models.Transaction{
			Reference:  uuid.New(),
			SenderID:   buyer.ID,
			ReceiverID: master.ID,
			Amount:     total,
			Text:       text.String(),
		}
		if err := repo.AppendTransaction(tx, &t); err != nil {
			return err
		}

		if err := repo.ClearCart(tx, accountID); err != nil {
			return err
		}

		receipt = &Receipt{Transaction: t, Balance: buyer.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, item := range lowStock {
		s.warnLowStock(ctx, item)
	}
	return receipt, nil
}

func (s *Service) Transfer(ctx context.Context, senderID uint, receiverEmail string, amount decimal.Decimal, text string) (*Receipt, error) {
	if senderID == 0 {
		return nil, ErrNotAuthenticated
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	receiver, err := s.Repo.GetAccountByEmail(ctx, receiverEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchAccount
		}
		return nil, err
	}
	if receiver.ID == senderID {
		return nil, ErrSelfTransfer
	}

	var receipt *Receipt
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sender, recv, err := repo.LockAccountPair(tx, senderID, receiver.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoSuchAccount
			}
			return err
		}
		if err := gateStatus(sender); err != nil {
			return err
		}
		if recv.Status == models.StatusClosed {
			return ErrAccountClosed
		}

		if !ledger.Covers(sender, amount) {
			return ledger.ErrInsufficientCoverage
		}

		if err := ledger.ApplyDelta(tx, sender, amount.Neg()); err != nil {
			return err
		}
		if err := ledger.ApplyDelta(tx, recv, amount); err != nil {
			return err
		}

		t := models.Transaction{
			Reference:  uuid.New(),
			SenderID:   sender.ID,
			ReceiverID: recv.ID,
			Amount:     amount,
			Text:       text,
		}
		if err := repo.AppendTransaction(tx, &t); err != nil {
			return err
		}

		receipt = &Receipt{Transaction: t, Balance: sender.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Deposit credits an account from the master account.
func (s *Service) Deposit(ctx context.Context, accountID uint, amount decimal.Decimal, text string) (*Receipt, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	masterID, err := s.masterID(ctx)
	if err != nil {
		return nil, err
	}
	if accountID == masterID {
		return nil, ErrSelfTransfer
	}

	var receipt *Receipt
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		master, acc, err := repo.LockAccountPair(tx, masterID, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoSuchAccount
			}
			return err
		}
		if acc.Status == models.StatusClosed {
			return ErrAccountClosed
		}

		if err := ledger.ApplyDelta(tx, master, amount.Neg()); err != nil {
			return err
		}
		if err := ledger.ApplyDelta(tx, acc, amount); err != nil {
			return err
		}

		t := models.Transaction{
			Reference:  uuid.New(),
			SenderID:   master.ID,
			ReceiverID: acc.ID,
			Amount:     amount,
			Text:       text,
		}
		if err := repo.AppendTransaction(tx, &t); err != nil {
			return err
		}

		receipt = &Receipt{Transaction: t, Balance: acc.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *Service) History(ctx context.Context, accountID uint) ([]models.Transaction, error) {
	if accountID == 0 {
		return nil, ErrNotAuthenticated
	}
	return s.Repo.TransactionsByAccount(ctx, accountID)
}

// Best-effort: failures never surface into the purchase flow.
func (s *Service) warnLowStock(ctx context.Context, item *models.Item) {
	if item == nil || s.Notifier == nil {
		return
	}

	err := s.Notifier.Publish(ctx, notify.Event{
		Kind:    notify.KindLowStock,
		Subject: fmt.Sprintf("low stock: %s", item.Name),
		Payload: map[string]any{
			"item_id": item.ID,
			"name":    item.Name,
			"stock":   item.Stock,
		},
	})
	if err != nil {
		logging.FromContext(ctx).Warn("low_stock_notify_failed", "item_id", item.ID, "error", err)
	}
}
