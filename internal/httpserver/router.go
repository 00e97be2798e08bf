package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eisbar/shop/internal/service/auth"
)

type Deps struct {
	AuthHandler     *AuthHandler
	CatalogHandler  *CatalogHandler
	CartHandler     *CartHandler
	PurchaseHandler *PurchaseHandler
	AdminHandler    *AdminHandler
	Auth            *auth.Service
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/refresh", d.AuthHandler.Refresh)
	v1.POST("/logout", d.AuthHandler.Logout)

	items := v1.Group("/items")
	items.GET("", d.CatalogHandler.GetItems)
	items.GET("/search", d.CatalogHandler.SearchItems)
	items.GET("/:id", d.CatalogHandler.GetItem)

	login := RequireLogin(d.Auth)

	cart := v1.Group("/cart", login)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("", d.CartHandler.RemoveFromCart)
	cart.DELETE("/all", d.CartHandler.ClearCart)
	cart.POST("/checkout", d.CartHandler.Checkout)

	v1.POST("/items/:id/buy", d.PurchaseHandler.BuyItem, login)
	v1.POST("/transfer", d.PurchaseHandler.Transfer, login)
	v1.GET("/transactions", d.PurchaseHandler.History, login)

	admin := v1.Group("/admin", RequireAdmin(d.Auth))
	admin.POST("/items", d.CatalogHandler.CreateItem)
	admin.PATCH("/items/:id", d.CatalogHandler.PatchItem)
	admin.DELETE("/items/:id", d.CatalogHandler.DeleteItem)
	admin.GET("/accounts", d.AdminHandler.ListAccounts)
	admin.GET("/accounts/:id", d.AdminHandler.GetAccount)
	admin.PATCH("/accounts/:id", d.AdminHandler.PatchAccount)
	admin.POST("/deposit", d.AdminHandler.Deposit)
	admin.GET("/transactions", d.AdminHandler.ListTransactions)
	admin.GET("/reports/revenue", d.AdminHandler.RevenueByDay)
	admin.GET("/reports/consumption", d.AdminHandler.ConsumptionByAccount)
	admin.POST("/suggestions", d.AdminHandler.SendSuggestion)
}
