package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/logging"
	"github.com/eisbar/shop/internal/repo"
	"github.com/eisbar/shop/internal/service/purchase"
	"github.com/eisbar/shop/internal/transport"
)

type CartHandler struct {
	Repo     *repo.GormRepo
	Purchase *purchase.Service
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	items, err := h.Repo.GetCart(ctx, AccountID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get cart")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req transport.CartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	if _, err := h.Repo.GetItem(ctx, req.ItemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add to cart")
	}

	line, err := h.Repo.AddToCart(ctx, AccountID(c), req.ItemID, req.Quantity)
	if err != nil {
		l.Error("add_to_cart_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add to cart")
	}

	return c.JSON(http.StatusOK, line)
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.CartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	line, err := h.Repo.RemoveFromCart(ctx, AccountID(c), req.ItemID, req.Quantity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not in cart")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot remove from cart")
	}
	if line == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, line)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.Repo.ClearCart(ctx, AccountID(c)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot clear cart")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	receipt, err := h.Purchase.Checkout(ctx, AccountID(c))
	if err != nil {
		return purchaseError(c, l, "checkout_failed", err)
	}

	l.Info("checkout_success", "transaction", receipt.Transaction.Reference)
	return c.JSON(http.StatusOK, receipt)
}
