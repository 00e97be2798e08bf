package config

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/eisbar/shop/internal/hash"
	"github.com/eisbar/shop/internal/models"
)

type Config struct {
	HTTP_ADDR       string
	DB_HOST         string
	DB_PORT         string
	DB_USER         string
	DB_PASSWORD     string
	DB_NAME         string
	ES_URL          string
	ES_USER         string
	ES_PASSWORD     string
	JWT_SECRET      string
	REFRESH_SECRET  string
	KAFKA_ADDRESS   string
	MAIL_TOPIC      string
	MASTER_EMAIL    string
	MASTER_PASSWORD string
	LOG_LEVEL       string
	MIN_ACCOUNT_AGE int
	LOW_STOCK_AT    uint
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		HTTP_ADDR:       getDefault("HTTP_ADDR", ":8080"),
		DB_HOST:         os.Getenv("DB_HOST"),
		DB_PORT:         os.Getenv("DB_PORT"),
		DB_USER:         os.Getenv("DB_USER"),
		DB_PASSWORD:     os.Getenv("DB_PASSWORD"),
		DB_NAME:         os.Getenv("DB_NAME"),
		ES_URL:          os.Getenv("ES_URL"),
		ES_USER:         os.Getenv("ES_USER"),
		ES_PASSWORD:     os.Getenv("ES_PASSWORD"),
		JWT_SECRET:      os.Getenv("JWT_SECRET"),
		REFRESH_SECRET:  os.Getenv("REFRESH_SECRET"),
		KAFKA_ADDRESS:   os.Getenv("KAFKA_ADDRESS"),
		MAIL_TOPIC:      getDefault("MAIL_TOPIC", "mail_events"),
		MASTER_EMAIL:    getDefault("MASTER_EMAIL", "shop@eisbar.local"),
		MASTER_PASSWORD: os.Getenv("MASTER_PASSWORD"),
		LOG_LEVEL:       getDefault("LOG_LEVEL", "info"),
		MIN_ACCOUNT_AGE: getIntDefault("MIN_ACCOUNT_AGE", 16),
		LOW_STOCK_AT:    uint(getIntDefault("LOW_STOCK_AT", 5)),
	}

	return config, nil
}

func getDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func configurePool(sqlDB *sql.DB) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

func InitDB(ctx context.Context, cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		NowFunc:     func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB: %w", err)
	}
	configurePool(sqlDB)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := EnsureMasterAccount(db, cfg.MASTER_EMAIL, cfg.MASTER_PASSWORD); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Account{},
		&models.Item{},
		&models.CartItem{},
		&models.Transaction{},
		&models.RefreshToken{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// EnsureMasterAccount seeds the technical counter-party account that receives
// every shop purchase. Its debt limit is the deepest the decimal(12,2) balance
// columns can hold, so deposits can always be booked as a transfer out of it.
func EnsureMasterAccount(db *gorm.DB, email, password string) error {
	var existing models.Account
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("master account lookup: %w", err)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("master account password: %w", err)
	}

	master := models.Account{
		Email:        email,
		PasswordHash: pwHash,
		FirstName:    "Shop",
		LastName:     "Master",
		BirthDate:    time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:       models.StatusStandard,
		Admin:        true,
		Balance:      decimal.Zero,
		DebtLimit:    decimal.New(-1, 9),
	}
	if err := db.Create(&master).Error; err != nil {
		return fmt.Errorf("master account create: %w", err)
	}
	return nil
}
