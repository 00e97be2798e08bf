package transport

import "github.com/shopspring/decimal"

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Phone     string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price"`
	Stock       uint            `json:"stock"`
}

type PatchItemRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"image_url"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *uint            `json:"stock"`
}

type CartRequest struct {
	ItemID   uint `json:"item_id"`
	Quantity uint `json:"quantity"`
}

type TransferRequest struct {
	ReceiverEmail string          `json:"receiver_email"`
	Amount        decimal.Decimal `json:"amount"`
	Text          string          `json:"text"`
}

type DepositRequest struct {
	AccountID uint            `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Text      string          `json:"text"`
}

type PatchAccountRequest struct {
	Status    *string          `json:"status"`
	Admin     *bool            `json:"admin"`
	DebtLimit *decimal.Decimal `json:"debt_limit"`
	Phone     *string          `json:"phone"`
}

type SuggestionRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
