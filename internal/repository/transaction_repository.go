package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"reward-payments/internal/domain"
	"reward-payments/internal/errors"
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, user_id, amount, kind, status, reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now()

	_, err := r.db.Exec(
		query,
		tx.ID,
		tx.UserID,
		tx.Amount.String(),
		tx.Kind,
		tx.Status,
		tx.Reference,
		now,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				r.logger.Warn("Duplicate transaction reference", "reference", tx.Reference)
				return errors.ErrDuplicateReference
			}
		}
		r.logger.Error("Failed to create transaction",
			"user_id", tx.UserID,
			"reference", tx.Reference,
			"kind", tx.Kind,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create transaction").WithDetails(err.Error())
	}

	tx.CreatedAt = now
	tx.UpdatedAt = now
	r.logger.Info("Transaction created", "transaction_id", tx.ID, "reference", tx.Reference, "kind", tx.Kind)
	return nil
}

func (r *transactionRepository) GetTransactionByReference(reference string) (*domain.Transaction, error) {
	query := `
		SELECT id, user_id, amount, kind, status, reference, gateway_transaction_id, settled_at, created_at, updated_at
		FROM transactions WHERE reference = $1
	`

	return r.scanTransaction(r.db.QueryRow(query, reference))
}

func (r *transactionRepository) ListTransactionsByUser(userID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	query := `
		SELECT id, user_id, amount, kind, status, reference, gateway_transaction_id, settled_at, created_at, updated_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions", "user_id", userID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list transactions").WithDetails(err.Error())
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := r.scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list transactions").WithDetails(err.Error())
	}
	return out, nil
}

// SettleTransaction is the idempotency guard: a single conditional update on
// status='pending'. Two concurrent deliveries for the same reference serialize
// on the row lock and only one matches the guard; the loser re-reads and
// reports the terminal state it lost to.
func (r *transactionRepository) SettleTransaction(reference string, status domain.TransactionStatus, gatewayTxnID string) (*domain.Transaction, domain.TransitionResult, error) {
	query := `
		UPDATE transactions
		SET status = $2,
		    gateway_transaction_id = $3,
		    settled_at = $4,
		    updated_at = $5
		WHERE reference = $1 AND status = 'pending'
		RETURNING id, user_id, amount, kind, status, reference, gateway_transaction_id, settled_at, created_at, updated_at
	`

	now := time.Now()
	var gwID interface{}
	var settledAt interface{}
	if status == domain.StatusCompleted {
		gwID = gatewayTxnID
		settledAt = now
	}

	tx, err := r.scanTransaction(r.db.QueryRow(query, reference, status, gwID, settledAt, now))
	if err == nil {
		r.logger.Info("Transaction settled",
			"reference", reference,
			"status", status,
			"gateway_transaction_id", gatewayTxnID)
		return tx, domain.TransitionApplied, nil
	}

	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ReferenceNotFound {
		return nil, domain.TransitionNotFound, err
	}

	// Guard did not match: either the reference is unknown or the transaction
	// is already terminal. Distinguish by re-reading.
	existing, err := r.GetTransactionByReference(reference)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ReferenceNotFound {
			return nil, domain.TransitionNotFound, nil
		}
		return nil, domain.TransitionNotFound, err
	}

	r.logger.Info("Transaction already terminal, no transition applied",
		"reference", reference,
		"status", existing.Status,
		"requested_status", status)
	return existing, domain.TransitionAlreadyTerminal, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *transactionRepository) scanTransaction(row *sql.Row) (*domain.Transaction, error) {
	return r.scanTransactionRow(row)
}

func (r *transactionRepository) scanTransactionRow(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amountStr string
	var gwID sql.NullString
	var settledAt sql.NullTime

	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&amountStr,
		&tx.Kind,
		&tx.Status,
		&tx.Reference,
		&gwID,
		&settledAt,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrReferenceNotFound
		}
		r.logger.Error("Failed to scan transaction", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get transaction").WithDetails(err.Error())
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse amount").WithDetails(err.Error())
	}
	tx.Amount = amount

	if gwID.Valid {
		tx.GatewayTransactionID = &gwID.String
	}
	if settledAt.Valid {
		tx.SettledAt = &settledAt.Time
	}

	return &tx, nil
}
