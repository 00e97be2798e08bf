package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eisbar/shop/internal/logging"
	"github.com/eisbar/shop/internal/service/ledger"
	"github.com/eisbar/shop/internal/service/purchase"
	"github.com/eisbar/shop/internal/service/stock"
	"github.com/eisbar/shop/internal/transport"
)

type PurchaseHandler struct {
	Purchase *purchase.Service
}

// purchaseError maps the purchase error taxonomy onto HTTP statuses. Every
// rejection is an expected condition; only unknown errors become 500s.
func purchaseError(c echo.Context, l *slog.Logger, event string, err error) error {
	for _, m := range []struct {
		target error
		status int
		msg    string
	}{
		{purchase.ErrNotAuthenticated, http.StatusUnauthorized, "not authenticated"},
		{purchase.ErrAccountClosed, http.StatusForbidden, "account closed"},
		{purchase.ErrAccountRestricted, http.StatusForbidden, "account restricted"},
		{ledger.ErrInsufficientCoverage, http.StatusUnprocessableEntity, "insufficient coverage"},
		{stock.ErrOutOfStock, http.StatusConflict, "out of stock"},
		{stock.ErrInsufficientStock, http.StatusConflict, "insufficient stock"},
		{purchase.ErrCartExceedsStock, http.StatusConflict, "cart exceeds stock"},
		{purchase.ErrEmptyCart, http.StatusBadRequest, "cart is empty"},
		{purchase.ErrNoSuchAccount, http.StatusNotFound, "account not found"},
		{purchase.ErrNoSuchItem, http.StatusNotFound, "item not found"},
		{purchase.ErrInvalidAmount, http.StatusBadRequest, "amount must be positive"},
		{purchase.ErrSelfTransfer, http.StatusBadRequest, "cannot transfer to self"},
	} {
		if errors.Is(err, m.target) {
			l.Warn(event, "status", m.status, "reason", m.msg)
			return echo.NewHTTPError(m.status, m.msg)
		}
	}

	l.Error(event, "status", 500, "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "purchase failed")
}

func (h *PurchaseHandler) BuyItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "purchase.buy_item")

	itemID, err := parseID(c)
	if err != nil {
		return err
	}

	receipt, err := h.Purchase.BuyItem(ctx, AccountID(c), itemID)
	if err != nil {
		return purchaseError(c, l, "buy_item_failed", err)
	}

	l.Info("buy_item_success", "item_id", itemID, "transaction", receipt.Transaction.Reference)
	return c.JSON(http.StatusOK, receipt)
}

func (h *PurchaseHandler) Transfer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "purchase.transfer")

	var req transport.TransferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	receipt, err := h.Purchase.Transfer(ctx, AccountID(c), req.ReceiverEmail, req.Amount, req.Text)
	if err != nil {
		return purchaseError(c, l, "transfer_failed", err)
	}

	l.Info("transfer_success", "transaction", receipt.Transaction.Reference)
	return c.JSON(http.StatusOK, receipt)
}

func (h *PurchaseHandler) History(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "purchase.history")

	txs, err := h.Purchase.History(ctx, AccountID(c))
	if err != nil {
		return purchaseError(c, l, "history_failed", err)
	}

	return c.JSON(http.StatusOK, txs)
}
