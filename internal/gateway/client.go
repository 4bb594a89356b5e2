package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"reward-payments/internal/errors"
)

const defaultTimeout = 10 * time.Second

// Config holds the settings for creating a Client. BaseURL is overridable so
// tests can point the client at an httptest server.
type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Client is a thin request/response shim over the payment gateway's REST API.
// It carries its own bounded timeout and surfaces failures as gateway_error;
// it never retries and must never be called while holding a database
// transaction.
type Client struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
	logger     *slog.Logger
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		secretKey:  cfg.SecretKey,
		baseURL:    cfg.BaseURL,
		logger:     logger,
	}
}

type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type VerifyResponse struct {
	Reference            string `json:"reference"`
	GatewayTransactionID string `json:"id"`
	Status               string `json:"status"` // success | failed | abandoned | pending
	AmountMinor          int64  `json:"amount"`
	PaidAt               string `json:"paid_at"`
	CustomerEmail        string `json:"customer_email"`
}

type TransferResponse struct {
	TransferCode string `json:"transfer_code"`
	Reference    string `json:"reference"`
	Status       string `json:"status"`
}

type SubscriptionResponse struct {
	SubscriptionCode string `json:"subscription_code"`
	Status           string `json:"status"`
}

type PlanResponse struct {
	PlanCode string `json:"plan_code"`
	Name     string `json:"name"`
}

// InitializeTransaction registers a pending charge with the gateway. Amounts
// are in minor units (amount x 100) on the wire.
func (c *Client) InitializeTransaction(ctx context.Context, email string, amountMinor int64, reference string, metadata map[string]string) (*InitializeResponse, error) {
	body := map[string]interface{}{
		"email":     email,
		"amount":    amountMinor,
		"reference": reference,
	}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}

	var out InitializeResponse
	if err := c.call(ctx, http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyTransaction fetches the gateway's view of a charge by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResponse, error) {
	var raw struct {
		Reference string      `json:"reference"`
		ID        json.Number `json:"id"`
		Status    string      `json:"status"`
		Amount    int64       `json:"amount"`
		PaidAt    string      `json:"paid_at"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	}
	if err := c.call(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &raw); err != nil {
		return nil, err
	}

	return &VerifyResponse{
		Reference:            raw.Reference,
		GatewayTransactionID: raw.ID.String(),
		Status:               raw.Status,
		AmountMinor:          raw.Amount,
		PaidAt:               raw.PaidAt,
		CustomerEmail:        raw.Customer.Email,
	}, nil
}

// CreateTransfer initiates a payout to a previously created recipient.
func (c *Client) CreateTransfer(ctx context.Context, amountMinor int64, recipientCode, reason, reference string) (*TransferResponse, error) {
	body := map[string]interface{}{
		"source":    "balance",
		"amount":    amountMinor,
		"recipient": recipientCode,
		"reason":    reason,
		"reference": reference,
	}

	var out TransferResponse
	if err := c.call(ctx, http.MethodPost, "/transfer", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Subscribe attaches a customer to a plan. Pass-through configuration call,
// not part of the settlement state machine.
func (c *Client) Subscribe(ctx context.Context, email, planCode string) (*SubscriptionResponse, error) {
	body := map[string]interface{}{
		"customer": email,
		"plan":     planCode,
	}

	var out SubscriptionResponse
	if err := c.call(ctx, http.MethodPost, "/subscription", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePlan registers a recurring billing plan. Pass-through configuration call.
func (c *Client) CreatePlan(ctx context.Context, name string, amountMinor int64, interval string) (*PlanResponse, error) {
	body := map[string]interface{}{
		"name":     name,
		"amount":   amountMinor,
		"interval": interval,
	}

	var out PlanResponse
	if err := c.call(ctx, http.MethodPost, "/plan", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// apiEnvelope is the gateway's uniform response wrapper.
type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) call(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.NewAppError(errors.InternalError, "failed to encode gateway request").WithDetails(err.Error())
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to build gateway request").WithDetails(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gateway call failed", "method", method, "path", path, "error", err)
		return errors.NewAppError(errors.GatewayError, "gateway request failed").WithDetails(err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewAppError(errors.GatewayError, "failed to read gateway response").WithDetails(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Gateway returned error status",
			"method", method,
			"path", path,
			"status_code", resp.StatusCode)
		return errors.NewAppErrorf(errors.GatewayError, "gateway returned status %d", resp.StatusCode).WithDetails(string(respBody))
	}

	var env apiEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return errors.NewAppError(errors.GatewayError, "failed to decode gateway response").WithDetails(err.Error())
	}
	if !env.Status {
		return errors.NewAppError(errors.GatewayError, fmt.Sprintf("gateway rejected request: %s", env.Message))
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.NewAppError(errors.GatewayError, "failed to decode gateway response data").WithDetails(err.Error())
		}
	}

	return nil
}
