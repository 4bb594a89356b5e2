package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"reward-payments/internal/domain"
	"reward-payments/internal/errors"
	"reward-payments/internal/gateway"
	"reward-payments/internal/metrics"
	"reward-payments/internal/notifier"
	"reward-payments/internal/webhook"
)

// Gateway is the outbound collaborator contract the service consumes. The
// concrete client lives in internal/gateway; tests substitute a stub.
type Gateway interface {
	InitializeTransaction(ctx context.Context, email string, amountMinor int64, reference string, metadata map[string]string) (*gateway.InitializeResponse, error)
	VerifyTransaction(ctx context.Context, reference string) (*gateway.VerifyResponse, error)
	CreateTransfer(ctx context.Context, amountMinor int64, recipientCode, reason, reference string) (*gateway.TransferResponse, error)
}

// RouteResult is the outcome of dispatching one webhook delivery.
type RouteResult string

const (
	RouteApplied         RouteResult = "applied"
	RouteAlreadyTerminal RouteResult = "already_terminal"
	RouteNotFound        RouteResult = "not_found"
	RouteIgnored         RouteResult = "ignored"
)

type PaymentService struct {
	store    domain.Store
	gateway  Gateway
	notifier notifier.Dispatcher
	logger   *slog.Logger
}

func NewPaymentService(store domain.Store, gw Gateway, dispatcher notifier.Dispatcher, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		store:    store,
		gateway:  gw,
		notifier: dispatcher,
		logger:   logger,
	}
}

type InitializePaymentResult struct {
	Transaction      *domain.Transaction
	AuthorizationURL string
	AccessCode       string
}

// InitializePayment creates the pending transaction with a fresh unique
// reference before the outbound call, so a webhook arriving for it always
// finds local state. A gateway failure leaves the transaction pending; the
// caller may retry with a new initialize or reconcile later via verify.
func (s *PaymentService) InitializePayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*InitializePaymentResult, error) {
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	user, err := s.store.Users().GetUser(userID)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:        uuid.New(),
		UserID:    user.ID,
		Amount:    amount,
		Kind:      domain.KindPayment,
		Status:    domain.StatusPending,
		Reference: uuid.NewString(),
	}
	if err := s.store.Transactions().CreateTransaction(tx); err != nil {
		return nil, err
	}

	// Outbound call happens outside any database transaction.
	init, err := s.gateway.InitializeTransaction(ctx, user.Email, minorUnits(amount), tx.Reference, map[string]string{
		"user_id": user.ID.String(),
	})
	if err != nil {
		s.logger.Error("Gateway initialize failed", "reference", tx.Reference, "error", err)
		return nil, err
	}

	s.logger.Info("Payment initialized", "reference", tx.Reference, "user_id", user.ID, "amount", amount)
	return &InitializePaymentResult{
		Transaction:      tx,
		AuthorizationURL: init.AuthorizationURL,
		AccessCode:       init.AccessCode,
	}, nil
}

// InitiateWithdrawal debits the balance and creates the pending transaction in
// one atomic unit, then asks the gateway for the payout. If the gateway call
// fails the withdrawal settles failed, which refunds the initiation debit.
func (s *PaymentService) InitiateWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, recipientCode string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	tx := &domain.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Kind:      domain.KindWithdrawal,
		Status:    domain.StatusPending,
		Reference: uuid.NewString(),
	}

	err := s.store.WithTransaction(func(st domain.Store) error {
		if err := st.Users().DebitBalance(userID, amount); err != nil {
			return err
		}
		return st.Transactions().CreateTransaction(tx)
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.gateway.CreateTransfer(ctx, minorUnits(amount), recipientCode, "withdrawal", tx.Reference); err != nil {
		s.logger.Error("Gateway transfer failed, failing withdrawal", "reference", tx.Reference, "error", err)
		if _, _, settleErr := s.settle(tx.Reference, domain.StatusFailed, ""); settleErr != nil {
			// The debit stands and the transaction is still pending; the
			// failure webhook or a reconciliation pass settles it later.
			s.logger.Error("Failed to settle failed withdrawal", "reference", tx.Reference, "error", settleErr)
		}
		return nil, err
	}

	s.logger.Info("Withdrawal initiated", "reference", tx.Reference, "user_id", userID, "amount", amount)
	return tx, nil
}

// VerifyPayment asks the gateway for the state of a charge and funnels any
// terminal answer through the same transition logic as the webhook path.
// Verify covers charges only; a withdrawal reference is reported as not found
// so a charge answer can never settle a withdrawal.
func (s *PaymentService) VerifyPayment(ctx context.Context, reference string) (*domain.Transaction, error) {
	existing, err := s.store.Transactions().GetTransactionByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing.Kind != domain.KindPayment {
		s.logger.Warn("Verify requested for a non-payment reference",
			"reference", reference,
			"kind", existing.Kind)
		return nil, errors.ErrReferenceNotFound
	}

	verified, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}

	var target domain.TransactionStatus
	switch verified.Status {
	case "success":
		target = domain.StatusCompleted
	case "failed", "abandoned", "reversed":
		target = domain.StatusFailed
	default:
		// Still pending at the gateway; report local state unchanged.
		return s.store.Transactions().GetTransactionByReference(reference)
	}

	tx, result, err := s.settle(reference, target, verified.GatewayTransactionID)
	if err != nil {
		return nil, err
	}
	if result == domain.TransitionNotFound {
		return nil, errors.ErrReferenceNotFound
	}
	// Same notification policy as the webhook path: only completed settlements.
	if result == domain.TransitionApplied && target == domain.StatusCompleted {
		s.notifySettled(ctx, tx)
	}
	return tx, nil
}

// HandleWebhookEvent dispatches one verified delivery. Unknown event kinds
// are acknowledged without touching state; so are events whose kind does not
// match the referenced transaction.
func (s *PaymentService) HandleWebhookEvent(ctx context.Context, ev webhook.Event) (RouteResult, error) {
	target, ok := ev.Kind.TargetStatus()
	if !ok {
		s.logger.Info("Ignoring unrecognized webhook event", "event", ev.RawType)
		metrics.WebhookEventsTotal.WithLabelValues(ev.RawType, string(RouteIgnored)).Inc()
		return RouteIgnored, nil
	}

	tx, result, err := s.settleEvent(ev, target)
	if err != nil {
		return "", err
	}

	route := routeFromTransition(result)
	metrics.WebhookEventsTotal.WithLabelValues(ev.Kind.String(), string(route)).Inc()

	switch result {
	case domain.TransitionApplied:
		if target == domain.StatusCompleted {
			s.notifySettled(ctx, tx)
		}
	case domain.TransitionAlreadyTerminal:
		s.logger.Info("Duplicate or late webhook delivery",
			"reference", ev.Reference,
			"event", ev.Kind.String(),
			"status", tx.Status)
	case domain.TransitionNotFound:
		s.logger.Warn("Webhook references unknown transaction",
			"reference", ev.Reference,
			"event", ev.Kind.String())
	}

	return route, nil
}

func (s *PaymentService) GetTransaction(ctx context.Context, reference string) (*domain.Transaction, error) {
	return s.store.Transactions().GetTransactionByReference(reference)
}

func (s *PaymentService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	return s.store.Transactions().ListTransactionsByUser(userID, limit, offset)
}

// settleEvent checks the event/transaction kind pairing before settling.
// Charge events settle payments and transfer events settle withdrawals; a
// mismatch is reported as not found and leaves state untouched.
func (s *PaymentService) settleEvent(ev webhook.Event, target domain.TransactionStatus) (*domain.Transaction, domain.TransitionResult, error) {
	wantKind, _ := ev.Kind.TransactionKind()

	existing, err := s.store.Transactions().GetTransactionByReference(ev.Reference)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ReferenceNotFound {
			return nil, domain.TransitionNotFound, nil
		}
		return nil, domain.TransitionNotFound, err
	}
	if existing.Kind != wantKind {
		s.logger.Warn("Webhook event kind does not match transaction kind",
			"reference", ev.Reference,
			"event", ev.Kind.String(),
			"transaction_kind", existing.Kind)
		return nil, domain.TransitionNotFound, nil
	}

	// The local amount is authoritative; drift against the gateway's figure is
	// surfaced for reconciliation but does not block the settlement.
	if ev.AmountMinor > 0 {
		if local := minorUnits(existing.Amount); ev.AmountMinor != local {
			s.logger.Warn("Webhook amount differs from local transaction amount",
				"reference", ev.Reference,
				"event_amount", ev.AmountMinor,
				"local_amount", local)
		}
	}

	return s.settle(ev.Reference, target, ev.GatewayTransactionID)
}

// settle runs the conditional transition and the ledger effect in one atomic
// unit. If the ledger mutation fails, the transition rolls back with it and
// the transaction stays pending, eligible for re-delivery.
func (s *PaymentService) settle(reference string, target domain.TransactionStatus, gatewayTxnID string) (*domain.Transaction, domain.TransitionResult, error) {
	var settled *domain.Transaction
	var result domain.TransitionResult

	err := s.store.WithTransaction(func(st domain.Store) error {
		tx, res, err := st.Transactions().SettleTransaction(reference, target, gatewayTxnID)
		if err != nil {
			return err
		}
		settled = tx
		result = res
		if res != domain.TransitionApplied {
			return nil
		}

		switch {
		case tx.Kind == domain.KindPayment && target == domain.StatusCompleted:
			// The reward becomes spendable only together with the transition.
			return st.Users().CreditBalance(tx.UserID, tx.Amount)
		case tx.Kind == domain.KindWithdrawal && target == domain.StatusFailed:
			// Refund the debit taken at initiation.
			return st.Users().CreditBalance(tx.UserID, tx.Amount)
		}
		// Withdrawal completion: the debit already happened at initiation.
		return nil
	})
	if err != nil {
		return nil, result, err
	}

	if result == domain.TransitionApplied {
		metrics.SettlementsTotal.WithLabelValues(string(settled.Kind), string(target)).Inc()
	}
	return settled, result, nil
}

func (s *PaymentService) notifySettled(ctx context.Context, tx *domain.Transaction) {
	if err := s.notifier.Notify(ctx, tx.UserID, tx.Kind, tx.Amount); err != nil {
		// Best effort only; settlement state is already committed.
		s.logger.Warn("Notification dispatch failed", "reference", tx.Reference, "error", err)
	}
}

func routeFromTransition(r domain.TransitionResult) RouteResult {
	switch r {
	case domain.TransitionApplied:
		return RouteApplied
	case domain.TransitionAlreadyTerminal:
		return RouteAlreadyTerminal
	default:
		return RouteNotFound
	}
}

// minorUnits converts a decimal amount to the gateway's integer minor units.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
