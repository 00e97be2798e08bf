package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	StatusStandard   AccountStatus = "standard"
	StatusPrivileged AccountStatus = "privileged"
	StatusRestricted AccountStatus = "restricted"
	StatusClosed     AccountStatus = "closed"
)

type Account struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"        json:"id"`
	Email        string          `gorm:"unique;not null"                 json:"email"`
	PasswordHash string          `gorm:"not null"                        json:"-"`
	FirstName    string          `gorm:"not null"                        json:"first_name"`
	LastName     string          `gorm:"not null"                        json:"last_name"`
	BirthDate    time.Time       `gorm:"not null"                        json:"birth_date"`
	Phone        string          `json:"phone,omitempty"`
	Status       AccountStatus   `gorm:"not null;default:standard"       json:"status"`
	Admin        bool            `gorm:"not null;default:false"          json:"admin"`
	Balance      decimal.Decimal `gorm:"type:decimal(12,2);not null"     json:"balance"`
	// DebtLimit is the most negative balance the account may reach, always <= 0.
	DebtLimit decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"debt_limit"`
}

type Item struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	Name        string          `gorm:"not null"                    json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       uint            `json:"stock"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"                  json:"id"`
	AccountID uint `gorm:"index;not null"              json:"account_id"`
	ItemID    uint `gorm:"not null"                    json:"item_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"  json:"quantity"`
}

// Transaction is the append-only audit record of a money movement.
// Rows are only ever created, never updated or deleted.
type Transaction struct {
	ID         uint            `gorm:"primaryKey"                  json:"id"`
	Reference  uuid.UUID       `gorm:"type:uuid;unique;not null"   json:"reference"`
	SenderID   uint            `gorm:"index;not null"              json:"sender_id"`
	ReceiverID uint            `gorm:"index;not null"              json:"receiver_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Text       string          `json:"text,omitempty"`
	CreatedAt  time.Time       `gorm:"not null"                    json:"created_at"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	AccountID uint   `gorm:"index;not null"      json:"account_id"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}
