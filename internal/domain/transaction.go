package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindPayment    TransactionKind = "payment"
	KindWithdrawal TransactionKind = "withdrawal"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Terminal reports whether no further status transitions are permitted.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TransitionResult is the outcome of a settle attempt against a reference.
type TransitionResult int

const (
	// TransitionApplied means this caller moved the transaction out of pending.
	TransitionApplied TransitionResult = iota
	// TransitionAlreadyTerminal means the transaction was already settled;
	// duplicate and late deliveries land here.
	TransitionAlreadyTerminal
	// TransitionNotFound means no transaction carries the reference.
	TransitionNotFound
)

func (r TransitionResult) String() string {
	switch r {
	case TransitionApplied:
		return "applied"
	case TransitionAlreadyTerminal:
		return "already_terminal"
	case TransitionNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

type Transaction struct {
	ID                   uuid.UUID         `json:"id"`
	UserID               uuid.UUID         `json:"user_id"`
	Amount               decimal.Decimal   `json:"amount"`
	Kind                 TransactionKind   `json:"kind"`
	Status               TransactionStatus `json:"status"`
	Reference            string            `json:"reference"`
	GatewayTransactionID *string           `json:"gateway_transaction_id,omitempty"`
	SettledAt            *time.Time        `json:"settled_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

type TransactionRepository interface {
	CreateTransaction(tx *Transaction) error
	GetTransactionByReference(reference string) (*Transaction, error)
	ListTransactionsByUser(userID uuid.UUID, limit, offset int) ([]Transaction, error)

	// SettleTransaction performs the conditional pending->terminal transition as
	// a single guarded update. Of two racing callers for the same reference
	// exactly one observes TransitionApplied; the other observes
	// TransitionAlreadyTerminal. gatewayTxnID is recorded only for StatusCompleted.
	SettleTransaction(reference string, status TransactionStatus, gatewayTxnID string) (*Transaction, TransitionResult, error)
}
