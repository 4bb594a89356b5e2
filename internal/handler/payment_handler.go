package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"reward-payments/internal/domain"
	"reward-payments/internal/errors"
	"reward-payments/internal/service"
)

// PaymentService is the slice of the service the handlers consume.
type PaymentService interface {
	InitializePayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*service.InitializePaymentResult, error)
	InitiateWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, recipientCode string) (*domain.Transaction, error)
	VerifyPayment(ctx context.Context, reference string) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, reference string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, error)
}

type PaymentHandler struct {
	paymentService PaymentService
}

func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

type InitializePaymentRequest struct {
	UserID string `json:"user_id"`
	Amount string `json:"amount"`
}

type InitializePaymentResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Status           string `json:"status"`
}

func (h *PaymentHandler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	var req InitializePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	userID, amount, appErr := parseUserAmount(req.UserID, req.Amount)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	result, err := h.paymentService.InitializePayment(r.Context(), userID, amount)
	if err != nil {
		writeError(w, asAppError(err))
		return
	}

	writeJSON(w, http.StatusCreated, InitializePaymentResponse{
		Reference:        result.Transaction.Reference,
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Status:           string(result.Transaction.Status),
	})
}

type WithdrawalRequest struct {
	UserID        string `json:"user_id"`
	Amount        string `json:"amount"`
	RecipientCode string `json:"recipient_code"`
}

func (h *PaymentHandler) InitiateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}
	if req.RecipientCode == "" {
		writeError(w, errors.NewAppError(errors.InvalidInput, "recipient_code is required"))
		return
	}

	userID, amount, appErr := parseUserAmount(req.UserID, req.Amount)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	tx, err := h.paymentService.InitiateWithdrawal(r.Context(), userID, amount, req.RecipientCode)
	if err != nil {
		writeError(w, asAppError(err))
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]

	tx, err := h.paymentService.VerifyPayment(r.Context(), reference)
	if err != nil {
		writeError(w, asAppError(err))
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

func (h *PaymentHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]

	tx, err := h.paymentService.GetTransaction(r.Context(), reference)
	if err != nil {
		writeError(w, asAppError(err))
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

func (h *PaymentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		writeError(w, errors.NewAppError(errors.InvalidInput, "user_id is required"))
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid user_id format").WithDetails(err.Error()))
		return
	}

	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	txs, err := h.paymentService.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, asAppError(err))
		return
	}

	writeJSON(w, http.StatusOK, txs)
}

func parseUserAmount(userIDStr, amountStr string) (uuid.UUID, decimal.Decimal, *errors.AppError) {
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, decimal.Zero, errors.NewAppError(errors.InvalidInput, "invalid user_id format").WithDetails(err.Error())
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return uuid.Nil, decimal.Zero, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error())
	}

	return userID, amount, nil
}
