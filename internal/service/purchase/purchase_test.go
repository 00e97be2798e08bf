package purchase

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/config"
	"github.com/eisbar/shop/internal/models"
	"github.com/eisbar/shop/internal/notify"
	"github.com/eisbar/shop/internal/repo"
	"github.com/eisbar/shop/internal/service/ledger"
	"github.com/eisbar/shop/internal/service/stock"
)

const masterEmail = "shop@test.local"

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Publish(_ context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	require.NoError(t, config.EnsureMasterAccount(db, masterEmail, "master-secret"))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recordingNotifier) {
	t.Helper()

	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := &Service{
		DB:          db,
		Repo:        &repo.GormRepo{DB: db},
		Notifier:    notifier,
		MasterEmail: masterEmail,
		LowStockAt:  0,
	}
	return svc, db, notifier
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func seedAccount(t *testing.T, db *gorm.DB, email, balance, debtLimit string, status models.AccountStatus) *models.Account {
	t.Helper()

	acc := &models.Account{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "Account",
		Status:       status,
		Balance:      dec(t, balance),
		DebtLimit:    dec(t, debtLimit),
	}
	require.NoError(t, db.Create(acc).Error)
	return acc
}

func seedItem(t *testing.T, db *gorm.DB, name, price string, stock uint) *models.Item {
	t.Helper()

	item := &models.Item{
		Name:  name,
		Price: dec(t, price),
		Stock: stock,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func reloadAccount(t *testing.T, db *gorm.DB, id uint) *models.Account {
	t.Helper()
	var acc models.Account
	require.NoError(t, db.First(&acc, id).Error)
	return &acc
}

func reloadItem(t *testing.T, db *gorm.DB, id uint) *models.Item {
	t.Helper()
	var item models.Item
	require.NoError(t, db.First(&item, id).Error)
	return &item
}

func transactionCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	return count
}

func TestBuyItem_CommitsWithinDebtLimit(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "0", "-200", models.StatusStandard)
	item := seedItem(t, db, "Raspberry Sundae", "50", 3)

	receipt, err := svc.BuyItem(ctx, buyer.ID, item.ID)
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.True(t, dec(t, "-50").Equal(receipt.Balance), "got %s", receipt.Balance)
	assert.True(t, dec(t, "50").Equal(receipt.Transaction.Amount))
	assert.Equal(t, "Raspberry Sundae", receipt.Transaction.Text)

	assert.True(t, dec(t, "-50").Equal(reloadAccount(t, db, buyer.ID).Balance))
	assert.Equal(t, uint(2), reloadItem(t, db, item.ID).Stock)
	assert.Equal(t, int64(1), transactionCount(t, db))
}

func TestBuyItem_CreditsMasterAccount(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "100", "0", models.StatusStandard)
	item := seedItem(t, db, "Cola", "2.50", 10)

	_, err := svc.BuyItem(ctx, buyer.ID, item.ID)
	require.NoError(t, err)

	var master models.Account
	require.NoError(t, db.Where("email = ?", masterEmail).First(&master).Error)
	assert.True(t, dec(t, "2.50").Equal(master.Balance))

	// Money is conserved: buyer delta + master delta = 0.
	assert.True(t, reloadAccount(t, db, buyer.ID).Balance.Add(master.Balance).Equal(dec(t, "100")))
}

func TestBuyItem_InsufficientCoverage(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "-180", "-200", models.StatusStandard)
	item := seedItem(t, db, "Espresso", "30", 5)

	_, err := svc.BuyItem(ctx, buyer.ID, item.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientCoverage)

	assert.True(t, dec(t, "-180").Equal(reloadAccount(t, db, buyer.ID).Balance))
	assert.Equal(t, uint(5), reloadItem(t, db, item.ID).Stock)
	assert.Equal(t, int64(0), transactionCount(t, db))
}

func TestBuyItem_ExactlyAtDebtLimit(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "-170", "-200", models.StatusStandard)
	item := seedItem(t, db, "Espresso", "30", 5)

	_, err := svc.BuyItem(ctx, buyer.ID, item.ID)
	require.NoError(t, err)
	assert.True(t, dec(t, "-200").Equal(reloadAccount(t, db, buyer.ID).Balance))
}

func TestBuyItem_OutOfStock(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "1000", "0", models.StatusStandard)
	item := seedItem(t, db, "Sold Out Special", "1", 0)

	_, err := svc.BuyItem(ctx, buyer.ID, item.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, stock.ErrOutOfStock)

	assert.True(t, dec(t, "1000").Equal(reloadAccount(t, db, buyer.ID).Balance))
	assert.Equal(t, int64(0), transactionCount(t, db))
}

func TestBuyItem_RestrictedBeforeOtherChecks(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	// Both coverage and stock would also fail; restriction must win.
	buyer := seedAccount(t, db, "a@test.local", "-500", "-200", models.StatusRestricted)
	item := seedItem(t, db, "Anything", "30", 0)

	_, err := svc.BuyItem(ctx, buyer.ID, item.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccountRestricted)
}

func TestBuyItem_ClosedAccount(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "1000", "0", models.StatusClosed)
	item := seedItem(t, db, "Cola", "2.50", 10)

	_, err := svc.BuyItem(ctx, buyer.ID, item.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccountClosed)
}

func TestBuyItem_NotAuthenticated(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	item := seedItem(t, db, "Cola", "2.50", 10)

	_, err := svc.BuyItem(context.Background(), 0, item.ID)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestBuyItem_UnknownAccountAndItem(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	item := seedItem(t, db, "Cola", "2.50", 10)
	_, err := svc.BuyItem(ctx, 9999, item.ID)
	assert.ErrorIs(t, err, ErrNoSuchAccount)

	buyer := seedAccount(t, db, "a@test.local", "10", "0", models.StatusStandard)
	_, err = svc.BuyItem(ctx, buyer.ID, 9999)
	assert.ErrorIs(t, err, ErrNoSuchItem)
}

func TestBuyItem_NotIdempotent(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "0", "-200", models.StatusStandard)
	item := seedItem(t, db, "Iced Tea", "10", 5)

	_, err := svc.BuyItem(ctx, buyer.ID, item.ID)
	require.NoError(t, err)
	_, err = svc.BuyItem(ctx, buyer.ID, item.ID)
	require.NoError(t, err)

	assert.True(t, dec(t, "-20").Equal(reloadAccount(t, db, buyer.ID).Balance))
	assert.Equal(t, uint(3), reloadItem(t, db, item.ID).Stock)
	assert.Equal(t, int64(2), transactionCount(t, db))
}

func TestBuyItem_LowStockNotification(t *testing.T) {
	t.Parallel()

	svc, db, notifier := newTestService(t)
	svc.LowStockAt = 2
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "100", "0", models.StatusStandard)
	item := seedItem(t, db, "Last Scoops", "5", 3)

	_, err := svc.BuyItem(ctx, buyer.ID, item.ID)
	require.NoError(t, err)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, notify.KindLowStock, notifier.events[0].Kind)
	assert.Equal(t, uint(2), notifier.events[0].Payload["stock"])
}

func TestCheckout_CommitsWholeCart(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "100", "0", models.StatusStandard)
	itemA := seedItem(t, db, "Vanilla Shake", "4", 5)
	itemB := seedItem(t, db, "Waffle", "3", 3)

	require.NoError(t, db.Create(&models.CartItem{AccountID: buyer.ID, ItemID: itemA.ID, Quantity: 2}).Error)
	require.NoError(t, db.Create(&models.CartItem{AccountID: buyer.ID, ItemID: itemB.ID, Quantity: 1}).Error)

	receipt, err := svc.Checkout(ctx, buyer.ID)
	require.NoError(t, err)

	assert.True(t, dec(t, "11").Equal(receipt.Transaction.Amount))
	assert.Equal(t, "Vanilla Shake x 2; Waffle x 1; ", receipt.Transaction.Text)
	assert.True(t, dec(t, "89").Equal(reloadAccount(t, db, buyer.ID).Balance))
	assert.Equal(t, uint(3), reloadItem(t, db, itemA.ID).Stock)
	assert.Equal(t, uint(2), reloadItem(t, db, itemB.ID).Stock)
	assert.Equal(t, int64(1), transactionCount(t, db))

	var remaining int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("account_id = ?", buyer.ID).Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}

func TestCheckout_AllOrNothingOnStock(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "1000", "0", models.StatusStandard)
	itemA := seedItem(t, db, "Vanilla Shake", "4", 5)
	itemB := seedItem(t, db, "Waffle", "3", 3)

	require.NoError(t, db.Create(&models.CartItem{AccountID: buyer.ID, ItemID: itemA.ID, Quantity: 2}).Error)
	require.NoError(t, db.Create(&models.CartItem{AccountID: buyer.ID, ItemID: itemB.ID, Quantity: 10}).Error)

	_, err := svc.Checkout(ctx, buyer.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCartExceedsStock)

	assert.Equal(t, uint(5), reloadItem(t, db, itemA.ID).Stock)
	assert.Equal(t, uint(3), reloadItem(t, db, itemB.ID).Stock)
	assert.True(t, dec(t, "1000").Equal(reloadAccount(t, db, buyer.ID).Balance))
	assert.Equal(t, int64(0), transactionCount(t, db))

	var remaining int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("account_id = ?", buyer.ID).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining, "rejected checkout must not touch the cart")
}

func TestCheckout_CoverageAgainstTotal(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "5", "0", models.StatusStandard)
	item := seedItem(t, db, "Vanilla Shake", "4", 5)

	require.NoError(t, db.Create(&models.CartItem{AccountID: buyer.ID, ItemID: item.ID, Quantity: 2}).Error)

	_, err := svc.Checkout(ctx, buyer.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientCoverage)
	assert.Equal(t, uint(5), reloadItem(t, db, item.ID).Stock)
}

func TestCheckout_ClearsOnlyBuyersCart(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	buyer := seedAccount(t, db, "a@test.local", "100", "0", models.StatusStandard)
	other := seedAccount(t, db, "b@test.local", "100", "0", models.StatusStandard)
	item := seedItem(t, db, "Waffle", "3", 10)

	require.NoError(t, db.Create(&models.CartItem{AccountID: buyer.ID, ItemID: item.ID, Quantity: 1}).Error)
	require.NoError(t, db.Create(&models.CartItem{AccountID: other.ID, ItemID: item.ID, Quantity: 2}).Error)

	_, err := svc.Checkout(ctx, buyer.ID)
	require.NoError(t, err)

	var otherCart int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("account_id = ?", other.ID).Count(&otherCart).Error)
	assert.Equal(t, int64(1), otherCart)
}

func TestCheckout_EmptyCart(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	buyer := seedAccount(t, db, "a@test.local", "100", "0", models.StatusStandard)

	_, err := svc.Checkout(context.Background(), buyer.ID)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestTransfer_MovesMoneyAndConserves(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	sender := seedAccount(t, db, "a@test.local", "100", "0", models.StatusStandard)
	receiver := seedAccount(t, db, "b@test.local", "10", "0", models.StatusStandard)

	receipt, err := svc.Transfer(ctx, sender.ID, receiver.Email, dec(t, "25"), "lunch")
	require.NoError(t, err)

	assert.True(t, dec(t, "75").Equal(reloadAccount(t, db, sender.ID).Balance))
	assert.True(t, dec(t, "35").Equal(reloadAccount(t, db, receiver.ID).Balance))
	assert.Equal(t, "lunch", receipt.Transaction.Text)
	assert.Equal(t, sender.ID, receipt.Transaction.SenderID)
	assert.Equal(t, receiver.ID, receipt.Transaction.ReceiverID)
}

func TestTransfer_Rejections(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	sender := seedAccount(t, db, "a@test.local", "10", "0", models.StatusStandard)
	receiver := seedAccount(t, db, "b@test.local", "0", "0", models.StatusStandard)
	closed := seedAccount(t, db, "c@test.local", "0", "0", models.StatusClosed)

	_, err := svc.Transfer(ctx, sender.ID, receiver.Email, dec(t, "0"), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Transfer(ctx, sender.ID, sender.Email, dec(t, "5"), "")
	assert.ErrorIs(t, err, ErrSelfTransfer)

	_, err = svc.Transfer(ctx, sender.ID, "nobody@test.local", dec(t, "5"), "")
	assert.ErrorIs(t, err, ErrNoSuchAccount)

	_, err = svc.Transfer(ctx, sender.ID, closed.Email, dec(t, "5"), "")
	assert.ErrorIs(t, err, ErrAccountClosed)

	_, err = svc.Transfer(ctx, sender.ID, receiver.Email, dec(t, "50"), "")
	assert.ErrorIs(t, err, ledger.ErrInsufficientCoverage)

	assert.True(t, dec(t, "10").Equal(reloadAccount(t, db, sender.ID).Balance))
	assert.Equal(t, int64(0), transactionCount(t, db))
}

func TestDeposit_CreditsFromMaster(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	acc := seedAccount(t, db, "a@test.local", "0", "0", models.StatusStandard)

	receipt, err := svc.Deposit(ctx, acc.ID, dec(t, "40"), "top up")
	require.NoError(t, err)

	assert.True(t, dec(t, "40").Equal(reloadAccount(t, db, acc.ID).Balance))
	assert.Equal(t, acc.ID, receipt.Transaction.ReceiverID)

	var master models.Account
	require.NoError(t, db.Where("email = ?", masterEmail).First(&master).Error)
	assert.Equal(t, master.ID, receipt.Transaction.SenderID)
	assert.True(t, dec(t, "-40").Equal(master.Balance))
}

func TestHistory_ReturnsBothDirections(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	a := seedAccount(t, db, "a@test.local", "100", "0", models.StatusStandard)
	b := seedAccount(t, db, "b@test.local", "100", "0", models.StatusStandard)
	c := seedAccount(t, db, "c@test.local", "100", "0", models.StatusStandard)

	_, err := svc.Transfer(ctx, a.ID, b.Email, dec(t, "5"), "")
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, b.ID, c.Email, dec(t, "5"), "")
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, c.ID, a.Email, dec(t, "5"), "")
	require.NoError(t, err)

	txs, err := svc.History(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	_, err = svc.History(ctx, 0)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestBuyItem_MasterAccountCannotBuyFromItself(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	var master models.Account
	require.NoError(t, db.Where("email = ?", masterEmail).First(&master).Error)
	item := seedItem(t, db, "Espresso", "10", 3)

	_, err := svc.BuyItem(ctx, master.ID, item.ID)
	assert.ErrorIs(t, err, ErrSelfTransfer)

	after := reloadAccount(t, db, master.ID)
	assert.True(t, master.Balance.Equal(after.Balance), "master balance must not move on a self-purchase")
	assert.Equal(t, uint(3), reloadItem(t, db, item.ID).Stock)
	assert.Equal(t, int64(0), transactionCount(t, db))
}

func TestCheckout_MasterAccountCannotBuyFromItself(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	var master models.Account
	require.NoError(t, db.Where("email = ?", masterEmail).First(&master).Error)
	item := seedItem(t, db, "Espresso", "10", 3)
	require.NoError(t, db.Create(&models.CartItem{AccountID: master.ID, ItemID: item.ID, Quantity: 1}).Error)

	_, err := svc.Checkout(ctx, master.ID)
	assert.ErrorIs(t, err, ErrSelfTransfer)

	after := reloadAccount(t, db, master.ID)
	assert.True(t, master.Balance.Equal(after.Balance))
	assert.Equal(t, uint(3), reloadItem(t, db, item.ID).Stock)
	assert.Equal(t, int64(0), transactionCount(t, db))
}
