package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"reward-payments/internal/errors"
	"reward-payments/internal/metrics"
	"reward-payments/internal/service"
	"reward-payments/internal/webhook"
)

// WebhookRouter consumes verified deliveries; implemented by PaymentService.
type WebhookRouter interface {
	HandleWebhookEvent(ctx context.Context, ev webhook.Event) (service.RouteResult, error)
}

type WebhookHandler struct {
	router   WebhookRouter
	verifier *webhook.SignatureVerifier
	logger   *slog.Logger
}

func NewWebhookHandler(router WebhookRouter, verifier *webhook.SignatureVerifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		router:   router,
		verifier: verifier,
		logger:   logger,
	}
}

type webhookAck struct {
	Result string `json:"result"`
}

// HandleWebhook authenticates and dispatches one delivery. Anything the
// gateway cannot fix by retrying is acknowledged with 200 so it stops
// retrying; only a bad signature (403) and a failed atomic unit (500) are
// reported as failures.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	// The signature covers the raw transport bytes; read them before any parsing.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "failed to read request body").WithDetails(err.Error()))
		return
	}

	if !h.verifier.Verify(body, r.Header.Get(webhook.SignatureHeader)) {
		h.logger.Warn("Webhook signature verification failed", "remote_addr", r.RemoteAddr)
		metrics.SignatureFailures.Inc()
		writeError(w, errors.ErrSignatureInvalid)
		return
	}

	ev, err := webhook.ParseEvent(body)
	if err != nil {
		// Authenticated but malformed; a retry would deliver the same bytes.
		h.logger.Warn("Ignoring malformed webhook body", "error", err)
		writeJSON(w, http.StatusOK, webhookAck{Result: string(service.RouteIgnored)})
		return
	}

	result, err := h.router.HandleWebhookEvent(r.Context(), ev)
	if err != nil {
		// The transition or its ledger effect rolled back; the transaction is
		// still pending and the gateway should redeliver.
		h.logger.Error("Webhook processing failed", "event", ev.RawType, "reference", ev.Reference, "error", err)
		writeError(w, asAppError(err))
		return
	}

	writeJSON(w, http.StatusOK, webhookAck{Result: string(result)})
}
