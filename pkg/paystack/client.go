package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.paystack.co"
	defaultTimeout              = 30 * time.Second
	requestBodyReadLimit  int64 = 2048
)

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client wraps the Paystack endpoints used for card top-ups and bank payouts.
// All amounts cross this boundary in minor units (kobo for NGN), which is the
// unit Paystack expects.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
	callbackURL   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Paystack base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithWebhookSecret sets a dedicated webhook signing secret. Paystack signs
// deliveries with the account secret key unless a separate secret is issued.
func WithWebhookSecret(secret string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(secret)
		if trimmed != "" {
			c.webhookSecret = trimmed
		}
	}
}

// WithCallbackURL sets the redirect URL Paystack sends shoppers back to after
// a hosted checkout. Applied to initialize requests that do not set their own.
func WithCallbackURL(url string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(url)
		if trimmed != "" {
			c.callbackURL = trimmed
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a Paystack client given the account's secret key.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(secretKey)
	if trimmedKey == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		secretKey:  trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// WebhookSecret returns the secret used to verify webhook signatures.
func (c *Client) WebhookSecret() string {
	if c.webhookSecret != "" {
		return c.webhookSecret
	}
	return c.secretKey
}

// InitializeRequest starts a hosted checkout for a card top-up.
type InitializeRequest struct {
	Email       string `json:"email"`
	AmountMinor int64  `json:"amount"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// InitializeResponse carries the hosted checkout handle returned by Paystack.
type InitializeResponse struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// TransferRequest asks Paystack to pay out to a previously created recipient.
type TransferRequest struct {
	Source      string `json:"source"`
	AmountMinor int64  `json:"amount"`
	Recipient   string `json:"recipient"`
	Reference   string `json:"reference"`
	Reason      string `json:"reason,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// TransferResponse reports the provider-side state of a payout.
type TransferResponse struct {
	TransferCode string
	Status       string
	Reference    string
}

// RecipientRequest registers a bank account as a transfer recipient.
type RecipientRequest struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency,omitempty"`
}

// VerifyResponse describes the settled state of a transaction.
type VerifyResponse struct {
	Status      string
	Reference   string
	AmountMinor int64
	GatewayResp string
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction starts a hosted checkout and returns the redirect URL.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	if req.CallbackURL == "" {
		req.CallbackURL = c.callbackURL
	}

	data, err := c.post(ctx, "/transaction/initialize", req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode initialize response")
	}
	return &InitializeResponse{
		AuthorizationURL: payload.AuthorizationURL,
		AccessCode:       payload.AccessCode,
		Reference:        payload.Reference,
	}, nil
}

// VerifyTransaction fetches the settled state of a transaction by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	data, err := c.get(ctx, "/transaction/verify/"+url.PathEscape(trimmed))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status          string `json:"status"`
		Reference       string `json:"reference"`
		Amount          int64  `json:"amount"`
		GatewayResponse string `json:"gateway_response"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode verify response")
	}
	return &VerifyResponse{
		Status:      payload.Status,
		Reference:   payload.Reference,
		AmountMinor: payload.Amount,
		GatewayResp: payload.GatewayResponse,
	}, nil
}

// CreateRecipient registers a payout destination and returns its code.
func (c *Client) CreateRecipient(ctx context.Context, req RecipientRequest) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(req.AccountNumber) == "" || strings.TrimSpace(req.BankCode) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "account number and bank code are required")
	}
	if req.Type == "" {
		req.Type = "nuban"
	}

	data, err := c.post(ctx, "/transferrecipient", req)
	if err != nil {
		return "", err
	}

	var payload struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode recipient response")
	}
	return payload.RecipientCode, nil
}

// CreateTransfer initiates a payout to a recipient.
func (c *Client) CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(req.Recipient) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	if req.Source == "" {
		req.Source = "balance"
	}

	data, err := c.post(ctx, "/transfer", req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		TransferCode string `json:"transfer_code"`
		Status       string `json:"status"`
		Reference    string `json:"reference"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode transfer response")
	}
	return &TransferResponse{
		TransferCode: payload.TransferCode,
		Status:       payload.Status,
		Reference:    payload.Reference,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal paystack request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build paystack request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.execute(req)
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build paystack request")
	}
	return c.execute(req)
}

func (c *Client) execute(req *http.Request) (json.RawMessage, error) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute paystack request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		// A 4xx is a definitive refusal: the provider read the request and
		// declined it. Anything else leaves the outcome unknown.
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
			return nil, pkgerrors.Wrap(pkgerrors.CodeProviderRejected, cause, "paystack declined request")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "paystack request failed")
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack response")
	}
	if !envelope.Status {
		return nil, pkgerrors.New(pkgerrors.CodeProviderRejected, fmt.Sprintf("paystack rejected request: %s", envelope.Message))
	}
	return envelope.Data, nil
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + path
}
