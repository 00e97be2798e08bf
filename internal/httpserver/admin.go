package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eisbar/shop/internal/logging"
	"github.com/eisbar/shop/internal/notify"
	"github.com/eisbar/shop/internal/repo"
	"github.com/eisbar/shop/internal/service/account"
	"github.com/eisbar/shop/internal/service/purchase"
	"github.com/eisbar/shop/internal/service/report"
	"github.com/eisbar/shop/internal/transport"
	"github.com/eisbar/shop/internal/util"
)

type AdminHandler struct {
	Repo     *repo.GormRepo
	Accounts *account.Service
	Purchase *purchase.Service
	Report   *report.Service
	Notifier notify.Notifier
}

func (h *AdminHandler) ListAccounts(c echo.Context) error {
	ctx := c.Request().Context()

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, accounts, err := h.Accounts.List(ctx, offset, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list accounts")
	}

	return c.JSON(http.StatusOK, map[string]any{"total": total, "data": accounts})
}

func (h *AdminHandler) GetAccount(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}

	acc, err := h.Accounts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNoSuchAccount) {
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get account")
	}
	return c.JSON(http.StatusOK, acc)
}

func (h *AdminHandler) PatchAccount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.patch_account")

	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req transport.PatchAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	acc, err := h.Accounts.Patch(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrNoSuchAccount):
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		case errors.Is(err, account.ErrInvalidStatus):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			l.Error("patch_account_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot patch account")
		}
	}

	l.Info("patch_account_success", "account_id", acc.ID)
	return c.JSON(http.StatusOK, acc)
}

func (h *AdminHandler) Deposit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.deposit")

	var req transport.DepositRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	receipt, err := h.Purchase.Deposit(ctx, req.AccountID, req.Amount, req.Text)
	if err != nil {
		return purchaseError(c, l, "deposit_failed", err)
	}

	l.Info("deposit_success", "account_id", req.AccountID, "transaction", receipt.Transaction.Reference)
	return c.JSON(http.StatusOK, receipt)
}

func (h *AdminHandler) ListTransactions(c echo.Context) error {
	ctx := c.Request().Context()

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, txs, err := h.Repo.ListTransactions(ctx, offset, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list transactions")
	}

	return c.JSON(http.StatusOK, map[string]any{"total": total, "data": txs})
}

func (h *AdminHandler) RevenueByDay(c echo.Context) error {
	ctx := c.Request().Context()

	rows, err := h.Report.RevenueByDay(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot build report")
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *AdminHandler) ConsumptionByAccount(c echo.Context) error {
	ctx := c.Request().Context()

	limit := util.ParseIntDefault(c.QueryParam("limit"), 20)
	rows, err := h.Report.ConsumptionByAccount(ctx, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot build report")
	}
	return c.JSON(http.StatusOK, rows)
}

// SendSuggestion publishes a suggestion mail event for the relay. Best-effort
// like every other notification.
func (h *AdminHandler) SendSuggestion(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.suggestion")

	var req transport.SuggestionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Subject == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject required")
	}

	err := h.Notifier.Publish(ctx, notify.Event{
		Kind:    notify.KindSuggestion,
		Subject: req.Subject,
		Payload: map[string]any{"body": req.Body},
	})
	if err != nil {
		l.Warn("suggestion_publish_failed", "error", err)
	}

	return c.NoContent(http.StatusAccepted)
}
