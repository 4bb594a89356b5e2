package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"reward-payments/internal/domain"
	"reward-payments/internal/errors"
)

type userRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewUserRepository(db SQLExecutor, logger *slog.Logger) domain.UserRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

func (r *userRepository) GetUser(id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, balance, created_at, updated_at
		FROM users WHERE id = $1
	`

	var user domain.User
	var balanceStr string

	err := r.db.QueryRow(query, id).Scan(
		&user.ID,
		&user.Email,
		&balanceStr,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("User not found", "user_id", id)
			return nil, errors.ErrUserNotFound
		}
		r.logger.Error("Failed to get user", "user_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get user").WithDetails(err.Error())
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("Failed to parse balance", "user_id", id, "balance_str", balanceStr, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
	}

	user.Balance = balance
	return &user, nil
}

func (r *userRepository) CreditBalance(id uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE users
		SET balance = balance + $2::numeric, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.Exec(query, id, amount.String(), time.Now())
	if err != nil {
		r.logger.Error("Failed to credit balance", "user_id", id, "amount", amount, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to credit balance").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		r.logger.Warn("No user found to credit", "user_id", id)
		return errors.ErrUserNotFound
	}

	r.logger.Info("Balance credited", "user_id", id, "amount", amount)
	return nil
}

// DebitBalance guards the subtraction with balance >= amount in the update
// itself, so concurrent debits cannot overdraw the balance.
func (r *userRepository) DebitBalance(id uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE users
		SET balance = balance - $2::numeric, updated_at = $3
		WHERE id = $1 AND balance >= $2::numeric
	`

	result, err := r.db.Exec(query, id, amount.String(), time.Now())
	if err != nil {
		r.logger.Error("Failed to debit balance", "user_id", id, "amount", amount, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to debit balance").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		// Either the user does not exist or the guard failed; tell them apart.
		if _, err := r.GetUser(id); err != nil {
			return err
		}
		r.logger.Warn("Debit rejected, insufficient balance", "user_id", id, "amount", amount)
		return errors.ErrInsufficientBalance
	}

	r.logger.Info("Balance debited", "user_id", id, "amount", amount)
	return nil
}
