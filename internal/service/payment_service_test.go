package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-payments/internal/domain"
	"reward-payments/internal/errors"
	"reward-payments/internal/gateway"
	"reward-payments/internal/webhook"
)

// ---------------------------------------------------------------------------
// In-memory store with the same linearizable settle semantics as the SQL one.
// ---------------------------------------------------------------------------

type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
	txs   map[string]domain.Transaction

	creditErr error
	credits   int
	debits    int
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[uuid.UUID]domain.User),
		txs:   make(map[string]domain.Transaction),
	}
}

func (s *memStore) Transactions() domain.TransactionRepository { return &memTxRepo{s} }
func (s *memStore) Users() domain.UserRepository               { return &memUserRepo{s} }

func (s *memStore) WithTransaction(fn func(domain.Store) error) error {
	s.mu.Lock()
	snapUsers := make(map[uuid.UUID]domain.User, len(s.users))
	for k, v := range s.users {
		snapUsers[k] = v
	}
	snapTxs := make(map[string]domain.Transaction, len(s.txs))
	for k, v := range s.txs {
		snapTxs[k] = v
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.users = snapUsers
		s.txs = snapTxs
		s.mu.Unlock()
		return err
	}
	return nil
}

type memTxRepo struct{ s *memStore }

func (r *memTxRepo) CreateTransaction(tx *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.txs[tx.Reference]; exists {
		return errors.ErrDuplicateReference
	}
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	r.s.txs[tx.Reference] = *tx
	return nil
}

func (r *memTxRepo) GetTransactionByReference(reference string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.txs[reference]
	if !ok {
		return nil, errors.ErrReferenceNotFound
	}
	return &tx, nil
}

func (r *memTxRepo) ListTransactionsByUser(userID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range r.s.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *memTxRepo) SettleTransaction(reference string, status domain.TransactionStatus, gatewayTxnID string) (*domain.Transaction, domain.TransitionResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.txs[reference]
	if !ok {
		return nil, domain.TransitionNotFound, nil
	}
	if tx.Status != domain.StatusPending {
		return &tx, domain.TransitionAlreadyTerminal, nil
	}
	now := time.Now()
	tx.Status = status
	tx.UpdatedAt = now
	if status == domain.StatusCompleted {
		tx.GatewayTransactionID = &gatewayTxnID
		tx.SettledAt = &now
	}
	r.s.txs[reference] = tx
	return &tx, domain.TransitionApplied, nil
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) GetUser(id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return &u, nil
}

func (r *memUserRepo) CreditBalance(id uuid.UUID, amount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.creditErr != nil {
		return r.s.creditErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return errors.ErrUserNotFound
	}
	u.Balance = u.Balance.Add(amount)
	r.s.users[id] = u
	r.s.credits++
	return nil
}

func (r *memUserRepo) DebitBalance(id uuid.UUID, amount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return errors.ErrUserNotFound
	}
	if u.Balance.LessThan(amount) {
		return errors.ErrInsufficientBalance
	}
	u.Balance = u.Balance.Sub(amount)
	r.s.users[id] = u
	r.s.debits++
	return nil
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

type stubGateway struct {
	mu            sync.Mutex
	initAmounts   []int64
	transferCalls int
	initErr       error
	transferErr   error
	verifyResp    *gateway.VerifyResponse
	verifyErr     error
}

func (g *stubGateway) InitializeTransaction(ctx context.Context, email string, amountMinor int64, reference string, metadata map[string]string) (*gateway.InitializeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.initAmounts = append(g.initAmounts, amountMinor)
	return &gateway.InitializeResponse{
		AuthorizationURL: "https://checkout.example.com/" + reference,
		AccessCode:       "ac_" + reference,
		Reference:        reference,
	}, nil
}

func (g *stubGateway) VerifyTransaction(ctx context.Context, reference string) (*gateway.VerifyResponse, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.verifyResp, nil
}

func (g *stubGateway) CreateTransfer(ctx context.Context, amountMinor int64, recipientCode, reason, reference string) (*gateway.TransferResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.transferErr != nil {
		return nil, g.transferErr
	}
	g.transferCalls++
	return &gateway.TransferResponse{TransferCode: "trf_1", Reference: reference, Status: "pending"}, nil
}

type stubNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (n *stubNotifier) Notify(ctx context.Context, userID uuid.UUID, kind domain.TransactionKind, amount decimal.Decimal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return n.err
}

func (n *stubNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func newTestService(t *testing.T) (*PaymentService, *memStore, *stubGateway, *stubNotifier) {
	t.Helper()
	store := newMemStore()
	gw := &stubGateway{}
	dispatcher := &stubNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPaymentService(store, gw, dispatcher, logger), store, gw, dispatcher
}

func seedUser(store *memStore, balance string) uuid.UUID {
	id := uuid.New()
	store.users[id] = domain.User{
		ID:      id,
		Email:   "user@example.com",
		Balance: decimal.RequireFromString(balance),
	}
	return id
}

func seedPendingTransaction(store *memStore, userID uuid.UUID, kind domain.TransactionKind, amount, reference string) {
	store.txs[reference] = domain.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    decimal.RequireFromString(amount),
		Kind:      kind,
		Status:    domain.StatusPending,
		Reference: reference,
	}
}

func chargeSuccess(reference, gatewayID string) webhook.Event {
	return webhook.Event{
		Kind:                 webhook.EventChargeSuccess,
		RawType:              "charge.success",
		Reference:            reference,
		GatewayTransactionID: gatewayID,
	}
}

// ---------------------------------------------------------------------------
// Webhook settlement
// ---------------------------------------------------------------------------

func TestChargeSuccessSettlesAndCreditsOnce(t *testing.T) {
	svc, store, _, dispatcher := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "500.00", "R-1")

	result, err := svc.HandleWebhookEvent(context.Background(), chargeSuccess("R-1", "G-9"))
	require.NoError(t, err)
	assert.Equal(t, RouteApplied, result)

	tx := store.txs["R-1"]
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	require.NotNil(t, tx.GatewayTransactionID)
	assert.Equal(t, "G-9", *tx.GatewayTransactionID)
	assert.NotNil(t, tx.SettledAt)

	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("500.00")))
	assert.Equal(t, 1, dispatcher.count())
}

func TestDuplicateDeliveryIsNoOp(t *testing.T) {
	svc, store, _, dispatcher := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "500.00", "R-1")

	ev := chargeSuccess("R-1", "G-9")

	first, err := svc.HandleWebhookEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, RouteApplied, first)

	second, err := svc.HandleWebhookEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, RouteAlreadyTerminal, second)

	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("500.00")))
	assert.Equal(t, domain.StatusCompleted, store.txs["R-1"].Status)
	assert.Equal(t, 1, store.credits, "duplicate delivery must not credit twice")
	assert.Equal(t, 1, dispatcher.count(), "duplicate delivery must not notify twice")
}

func TestContradictoryEventAfterSettlement(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "500.00", "R-1")

	_, err := svc.HandleWebhookEvent(context.Background(), chargeSuccess("R-1", "G-9"))
	require.NoError(t, err)

	// A late charge.failed must not move the transaction out of its terminal state.
	result, err := svc.HandleWebhookEvent(context.Background(), webhook.Event{
		Kind:      webhook.EventChargeFailed,
		RawType:   "charge.failed",
		Reference: "R-1",
	})
	require.NoError(t, err)
	assert.Equal(t, RouteAlreadyTerminal, result)
	assert.Equal(t, domain.StatusCompleted, store.txs["R-1"].Status)
}

func TestUnknownEventIgnored(t *testing.T) {
	svc, store, _, dispatcher := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "500.00", "R-1")

	result, err := svc.HandleWebhookEvent(context.Background(), webhook.Event{
		Kind:      webhook.EventUnknown,
		RawType:   "subscription.create",
		Reference: "R-1",
	})
	require.NoError(t, err)
	assert.Equal(t, RouteIgnored, result)
	assert.Equal(t, domain.StatusPending, store.txs["R-1"].Status)
	assert.Equal(t, 0, dispatcher.count())
}

func TestUnknownReferenceAcknowledged(t *testing.T) {
	svc, store, _, _ := newTestService(t)

	result, err := svc.HandleWebhookEvent(context.Background(), chargeSuccess("no-such-ref", "G-1"))
	require.NoError(t, err)
	assert.Equal(t, RouteNotFound, result)
	assert.Equal(t, 0, store.credits)
}

func TestEventKindMismatchLeavesStateUntouched(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "500.00", "R-1")

	// A transfer event may not settle a payment transaction.
	result, err := svc.HandleWebhookEvent(context.Background(), webhook.Event{
		Kind:      webhook.EventTransferSuccess,
		RawType:   "transfer.success",
		Reference: "R-1",
	})
	require.NoError(t, err)
	assert.Equal(t, RouteNotFound, result)
	assert.Equal(t, domain.StatusPending, store.txs["R-1"].Status)
	assert.Equal(t, 0, store.credits)
}

func TestAmountDriftSettlesOnLocalAmount(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "500.00", "R-1")

	// The gateway reports a different figure; the local amount governs the credit.
	ev := chargeSuccess("R-1", "G-9")
	ev.AmountMinor = 49900

	result, err := svc.HandleWebhookEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, RouteApplied, result)
	assert.Equal(t, domain.StatusCompleted, store.txs["R-1"].Status)
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("500.00")))
}

func TestConcurrentDeliveriesApplyExactlyOnce(t *testing.T) {
	svc, store, _, dispatcher := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "500.00", "R-1")

	const deliveries = 8
	results := make([]RouteResult, deliveries)
	errs := make([]error, deliveries)

	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.HandleWebhookEvent(context.Background(), chargeSuccess("R-1", "G-9"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	applied := 0
	for _, r := range results {
		if r == RouteApplied {
			applied++
		} else {
			assert.Equal(t, RouteAlreadyTerminal, r)
		}
	}
	assert.Equal(t, 1, applied, "exactly one delivery observes the transition")
	assert.Equal(t, 1, store.credits)
	assert.Equal(t, 1, dispatcher.count())
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("500.00")))
}

func TestLedgerFailureRollsBackTransition(t *testing.T) {
	svc, store, _, dispatcher := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "500.00", "R-1")

	store.creditErr = errors.NewAppError(errors.InternalError, "balance update failed")

	_, err := svc.HandleWebhookEvent(context.Background(), chargeSuccess("R-1", "G-9"))
	require.Error(t, err)

	// The whole unit rolled back: still pending, no credit, no notification.
	assert.Equal(t, domain.StatusPending, store.txs["R-1"].Status)
	assert.True(t, store.users[userID].Balance.IsZero())
	assert.Equal(t, 0, dispatcher.count())

	// A re-delivery after the fault clears settles normally.
	store.creditErr = nil
	result, err := svc.HandleWebhookEvent(context.Background(), chargeSuccess("R-1", "G-9"))
	require.NoError(t, err)
	assert.Equal(t, RouteApplied, result)
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("500.00")))
}

func TestNotifierFailureDoesNotAffectState(t *testing.T) {
	svc, store, _, dispatcher := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "500.00", "R-1")

	dispatcher.err = errors.NewAppError(errors.InternalError, "smtp down")

	result, err := svc.HandleWebhookEvent(context.Background(), chargeSuccess("R-1", "G-9"))
	require.NoError(t, err)
	assert.Equal(t, RouteApplied, result)
	assert.Equal(t, domain.StatusCompleted, store.txs["R-1"].Status)
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("500.00")))
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

func TestInitializePaymentCreatesPendingTransaction(t *testing.T) {
	svc, store, gw, _ := newTestService(t)
	userID := seedUser(store, "0")

	result, err := svc.InitializePayment(context.Background(), userID, decimal.RequireFromString("500.00"))
	require.NoError(t, err)

	assert.NotEmpty(t, result.Transaction.Reference)
	assert.Equal(t, domain.StatusPending, result.Transaction.Status)
	assert.Equal(t, domain.KindPayment, result.Transaction.Kind)
	assert.Contains(t, result.AuthorizationURL, result.Transaction.Reference)

	// Gateway talks in minor units.
	require.Len(t, gw.initAmounts, 1)
	assert.Equal(t, int64(50000), gw.initAmounts[0])

	// Local state exists before any webhook can arrive for it.
	tx := store.txs[result.Transaction.Reference]
	assert.Equal(t, domain.StatusPending, tx.Status)
}

func TestInitializePaymentRejectsNonPositiveAmount(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	userID := seedUser(store, "0")

	_, err := svc.InitializePayment(context.Background(), userID, decimal.Zero)
	assert.ErrorContains(t, err, "amount")

	_, err = svc.InitializePayment(context.Background(), userID, decimal.RequireFromString("-5"))
	assert.Error(t, err)
}

func TestInitializePaymentSurfacesGatewayError(t *testing.T) {
	svc, store, gw, _ := newTestService(t)
	userID := seedUser(store, "0")
	gw.initErr = errors.NewAppError(errors.GatewayError, "gateway request failed")

	_, err := svc.InitializePayment(context.Background(), userID, decimal.RequireFromString("10.00"))
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.GatewayError, appErr.Code)
}

func TestVerifyPaymentFunnelsThroughSettle(t *testing.T) {
	svc, store, gw, dispatcher := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "250.00", "R-7")

	gw.verifyResp = &gateway.VerifyResponse{
		Reference:            "R-7",
		GatewayTransactionID: "G-70",
		Status:               "success",
		AmountMinor:          25000,
	}

	tx, err := svc.VerifyPayment(context.Background(), "R-7")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("250.00")))
	assert.Equal(t, 1, dispatcher.count())

	// Verify after the webhook already settled is a safe no-op.
	tx, err = svc.VerifyPayment(context.Background(), "R-7")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	assert.Equal(t, 1, store.credits)
}

func TestVerifyPaymentFailedChargeDoesNotNotify(t *testing.T) {
	svc, store, gw, dispatcher := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "250.00", "R-7")

	gw.verifyResp = &gateway.VerifyResponse{
		Reference: "R-7",
		Status:    "failed",
	}

	tx, err := svc.VerifyPayment(context.Background(), "R-7")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, tx.Status)
	assert.True(t, store.users[userID].Balance.IsZero())
	assert.Equal(t, 0, dispatcher.count(), "failed settlements must not notify")
}

func TestVerifyPaymentRejectsWithdrawalReference(t *testing.T) {
	svc, store, gw, _ := newTestService(t)
	userID := seedUser(store, "500.00")

	wd, err := svc.InitiateWithdrawal(context.Background(), userID, decimal.RequireFromString("200.00"), "RCP_1")
	require.NoError(t, err)

	gw.verifyResp = &gateway.VerifyResponse{
		Reference: wd.Reference,
		Status:    "success",
	}

	_, err = svc.VerifyPayment(context.Background(), wd.Reference)
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ReferenceNotFound, appErr.Code)

	// A charge answer never settles a withdrawal.
	assert.Equal(t, domain.StatusPending, store.txs[wd.Reference].Status)
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("300.00")))
}

func TestVerifyPaymentStillPendingAtGateway(t *testing.T) {
	svc, store, gw, _ := newTestService(t)
	userID := seedUser(store, "0")
	seedPendingTransaction(store, userID, domain.KindPayment, "250.00", "R-7")

	gw.verifyResp = &gateway.VerifyResponse{Reference: "R-7", Status: "ongoing"}

	tx, err := svc.VerifyPayment(context.Background(), "R-7")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.Equal(t, 0, store.credits)
}

// ---------------------------------------------------------------------------
// Withdrawals
// ---------------------------------------------------------------------------

func TestInitiateWithdrawalDebitsAtInitiation(t *testing.T) {
	svc, store, gw, _ := newTestService(t)
	userID := seedUser(store, "500.00")

	tx, err := svc.InitiateWithdrawal(context.Background(), userID, decimal.RequireFromString("200.00"), "RCP_1")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.Equal(t, domain.KindWithdrawal, tx.Kind)
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("300.00")))
	assert.Equal(t, 1, gw.transferCalls)
}

func TestInitiateWithdrawalInsufficientBalance(t *testing.T) {
	svc, store, gw, _ := newTestService(t)
	userID := seedUser(store, "100.00")

	_, err := svc.InitiateWithdrawal(context.Background(), userID, decimal.RequireFromString("200.00"), "RCP_1")
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.InsufficientBalance, appErr.Code)

	// Nothing was created and nothing left the balance.
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("100.00")))
	assert.Empty(t, store.txs)
	assert.Equal(t, 0, gw.transferCalls)
}

func TestInitiateWithdrawalGatewayFailureRefunds(t *testing.T) {
	svc, store, gw, _ := newTestService(t)
	userID := seedUser(store, "500.00")
	gw.transferErr = errors.NewAppError(errors.GatewayError, "gateway request failed")

	_, err := svc.InitiateWithdrawal(context.Background(), userID, decimal.RequireFromString("200.00"), "RCP_1")
	require.Error(t, err)

	// The withdrawal settled failed and the initiation debit came back.
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("500.00")))
	for _, tx := range store.txs {
		assert.Equal(t, domain.StatusFailed, tx.Status)
	}
}

func TestTransferFailedWebhookRefundsDebit(t *testing.T) {
	svc, store, _, dispatcher := newTestService(t)
	userID := seedUser(store, "500.00")

	tx, err := svc.InitiateWithdrawal(context.Background(), userID, decimal.RequireFromString("200.00"), "RCP_1")
	require.NoError(t, err)
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("300.00")))

	result, err := svc.HandleWebhookEvent(context.Background(), webhook.Event{
		Kind:      webhook.EventTransferFailed,
		RawType:   "transfer.failed",
		Reference: tx.Reference,
	})
	require.NoError(t, err)
	assert.Equal(t, RouteApplied, result)

	assert.Equal(t, domain.StatusFailed, store.txs[tx.Reference].Status)
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("500.00")))
	assert.Equal(t, 0, dispatcher.count(), "failed settlements are not notified")

	// Duplicate failure webhook must not refund twice.
	result, err = svc.HandleWebhookEvent(context.Background(), webhook.Event{
		Kind:      webhook.EventTransferFailed,
		RawType:   "transfer.failed",
		Reference: tx.Reference,
	})
	require.NoError(t, err)
	assert.Equal(t, RouteAlreadyTerminal, result)
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("500.00")))
}

func TestTransferSuccessWebhookHasNoLedgerEffect(t *testing.T) {
	svc, store, _, dispatcher := newTestService(t)
	userID := seedUser(store, "500.00")

	tx, err := svc.InitiateWithdrawal(context.Background(), userID, decimal.RequireFromString("200.00"), "RCP_1")
	require.NoError(t, err)

	result, err := svc.HandleWebhookEvent(context.Background(), webhook.Event{
		Kind:                 webhook.EventTransferSuccess,
		RawType:              "transfer.success",
		Reference:            tx.Reference,
		GatewayTransactionID: "T-5",
	})
	require.NoError(t, err)
	assert.Equal(t, RouteApplied, result)

	// The debit happened at initiation; completion only records settlement.
	settled := store.txs[tx.Reference]
	assert.Equal(t, domain.StatusCompleted, settled.Status)
	require.NotNil(t, settled.GatewayTransactionID)
	assert.Equal(t, "T-5", *settled.GatewayTransactionID)
	assert.True(t, store.users[userID].Balance.Equal(decimal.RequireFromString("300.00")))
	assert.Equal(t, 1, dispatcher.count())
}
