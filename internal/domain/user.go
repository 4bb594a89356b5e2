package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID       `json:"id"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type UserRepository interface {
	GetUser(id uuid.UUID) (*User, error)

	// CreditBalance adds amount to the user's balance.
	CreditBalance(id uuid.UUID, amount decimal.Decimal) error

	// DebitBalance subtracts amount, guarded by a balance >= amount condition;
	// returns ErrInsufficientBalance when the guard fails.
	DebitBalance(id uuid.UUID, amount decimal.Decimal) error
}
