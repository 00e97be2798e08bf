package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eisbar/shop/internal/config"
	"github.com/eisbar/shop/internal/httpserver"
	"github.com/eisbar/shop/internal/logging"
	"github.com/eisbar/shop/internal/notify"
	"github.com/eisbar/shop/internal/repo"
	"github.com/eisbar/shop/internal/search"
	"github.com/eisbar/shop/internal/service/account"
	"github.com/eisbar/shop/internal/service/auth"
	"github.com/eisbar/shop/internal/service/purchase"
	"github.com/eisbar/shop/internal/service/report"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LOG_LEVEL)

	db, err := config.InitDB(context.Background(), cfg)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var notifier notify.Notifier = &notify.LogNotifier{Log: logger}
	var kafkaNotifier *notify.KafkaNotifier
	if cfg.KAFKA_ADDRESS != "" {
		kafkaNotifier = notify.NewKafkaNotifier(cfg.KAFKA_ADDRESS, cfg.MAIL_TOPIC)
		notifier = kafkaNotifier
	}

	var esClient *search.Client
	if cfg.ES_URL != "" {
		esClient, err = search.NewClient(cfg.ES_URL, cfg.ES_USER, cfg.ES_PASSWORD)
		if err != nil {
			log.Printf("search unavailable: %v", err)
		}
	}

	r := &repo.GormRepo{DB: db}
	authSvc := &auth.Service{
		Repo:          r,
		JWTSecret:     []byte(cfg.JWT_SECRET),
		RefreshSecret: []byte(cfg.REFRESH_SECRET),
	}
	accountSvc := account.New(r, cfg.MIN_ACCOUNT_AGE)
	purchaseSvc := &purchase.Service{
		DB:          db,
		Repo:        r,
		Notifier:    notifier,
		MasterEmail: cfg.MASTER_EMAIL,
		LowStockAt:  cfg.LOW_STOCK_AT,
	}
	reportSvc := &report.Service{DB: db, MasterEmail: cfg.MASTER_EMAIL}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), httpserver.RequestLogger(logger))

	deps := httpserver.Deps{
		AuthHandler:     &httpserver.AuthHandler{Auth: authSvc, Accounts: accountSvc},
		CatalogHandler:  &httpserver.CatalogHandler{Repo: r, Search: esClient},
		CartHandler:     &httpserver.CartHandler{Repo: r, Purchase: purchaseSvc},
		PurchaseHandler: &httpserver.PurchaseHandler{Purchase: purchaseSvc},
		AdminHandler: &httpserver.AdminHandler{
			Repo:     r,
			Accounts: accountSvc,
			Purchase: purchaseSvc,
			Report:   reportSvc,
			Notifier: notifier,
		},
		Auth: authSvc,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         cfg.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
