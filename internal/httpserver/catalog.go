package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/logging"
	"github.com/eisbar/shop/internal/models"
	"github.com/eisbar/shop/internal/repo"
	"github.com/eisbar/shop/internal/search"
	"github.com/eisbar/shop/internal/transport"
	"github.com/eisbar/shop/internal/util"
)

type CatalogHandler struct {
	Repo   *repo.GormRepo
	Search *search.Client
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}
	return uint(id), nil
}

func (h *CatalogHandler) GetItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_item")

	id, err := parseID(c)
	if err != nil {
		return err
	}

	item, err := h.Repo.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("get_item_failed", "status", 404, "item_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		l.Error("get_item_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get item")
	}

	return c.JSON(http.StatusOK, item)
}

func (h *CatalogHandler) GetItems(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_items")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Repo.GetItems(ctx, offset, limit)
	if err != nil {
		l.Error("get_items_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list items")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *CatalogHandler) SearchItems(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search")

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing query")
	}
	if h.Search == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search unavailable")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, items, err := h.Search.SearchItems(ctx, q, from, limit)
	if err != nil {
		l.Error("search_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	return c.JSON(http.StatusOK, map[string]any{"total": total, "items": items})
}

func (h *CatalogHandler) CreateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_item")

	var req transport.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}
	if req.Price.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}

	item := models.Item{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	if err := h.Repo.CreateItem(ctx, &item); err != nil {
		l.Error("create_item_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create item")
	}

	if h.Search != nil {
		h.Search.IndexItem(ctx, &item)
	}

	l.Info("create_item_success", "item_id", item.ID)
	return c.JSON(http.StatusCreated, item)
}

func (h *CatalogHandler) PatchItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.patch_item")

	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req transport.PatchItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Price != nil && req.Price.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}

	item, err := h.Repo.PatchItem(ctx, req, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		l.Error("patch_item_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot patch item")
	}

	if h.Search != nil {
		h.Search.IndexItem(ctx, item)
	}

	return c.JSON(http.StatusOK, item)
}

func (h *CatalogHandler) DeleteItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_item")

	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.Repo.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		l.Error("delete_item_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete item")
	}

	if h.Search != nil {
		h.Search.DeleteItem(ctx, id)
	}

	return c.NoContent(http.StatusNoContent)
}
