package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"reward-payments/internal/errors"
	"reward-payments/internal/gateway"
)

// BillingGateway covers the pass-through configuration calls that never touch
// the settlement state machine.
type BillingGateway interface {
	Subscribe(ctx context.Context, email, planCode string) (*gateway.SubscriptionResponse, error)
	CreatePlan(ctx context.Context, name string, amountMinor int64, interval string) (*gateway.PlanResponse, error)
}

type BillingHandler struct {
	gateway BillingGateway
}

func NewBillingHandler(gw BillingGateway) *BillingHandler {
	return &BillingHandler{gateway: gw}
}

type CreatePlanRequest struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Interval string `json:"interval"`
}

func (h *BillingHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}
	if req.Name == "" || req.Interval == "" {
		writeError(w, errors.NewAppError(errors.InvalidInput, "name and interval are required"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, errors.ErrInvalidAmount)
		return
	}

	plan, err := h.gateway.CreatePlan(r.Context(), req.Name, amount.Mul(decimal.NewFromInt(100)).IntPart(), req.Interval)
	if err != nil {
		writeError(w, asAppError(err))
		return
	}

	writeJSON(w, http.StatusCreated, plan)
}

type SubscribeRequest struct {
	Email    string `json:"email"`
	PlanCode string `json:"plan_code"`
}

func (h *BillingHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}
	if req.Email == "" || req.PlanCode == "" {
		writeError(w, errors.NewAppError(errors.InvalidInput, "email and plan_code are required"))
		return
	}

	sub, err := h.gateway.Subscribe(r.Context(), req.Email, req.PlanCode)
	if err != nil {
		writeError(w, asAppError(err))
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}
