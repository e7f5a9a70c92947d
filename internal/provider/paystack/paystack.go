package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"settlement-service/config"
	"settlement-service/internal/domain"
)

// Provider wraps the Paystack REST API for hosted checkout. Every call is
// context-bound with the configured timeout; a timeout surfaces as
// domain.ErrGatewayTimeout (retryable), any other non-2xx as domain.ErrGateway.
type Provider struct {
	config     config.PaystackConfig
	httpClient *http.Client
}

func New(cfg config.PaystackConfig) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type VerifyResult struct {
	Succeeded      bool   `json:"succeeded"`
	AmountMinor    int64  `json:"amount"`
	ProviderStatus string `json:"provider_status"`
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"` // minor units
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize creates a hosted checkout session for the given reference.
func (p *Provider) Initialize(ctx context.Context, amountMinor int64, reference, email, callbackURL string) (*InitializeResult, error) {
	body := initializeRequest{
		Email:       email,
		Amount:      amountMinor,
		Reference:   reference,
		CallbackURL: callbackURL,
	}

	data, err := p.makeRequest(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	var result InitializeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse initialize response: %v", domain.ErrGateway, err)
	}
	return &result, nil
}

type verifyData struct {
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// Verify polls the provider for the terminal state of a reference.
func (p *Provider) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	data, err := p.makeRequest(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var d verifyData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: failed to parse verify response: %v", domain.ErrGateway, err)
	}

	return &VerifyResult{
		Succeeded:      d.Status == "success",
		AmountMinor:    d.Amount,
		ProviderStatus: d.Status,
	}, nil
}

// VerifyWebhookSignature authenticates an inbound webhook: HMAC-SHA512 over
// the exact raw payload bytes, hex-encoded, constant-time compare against the
// signature header.
func (p *Provider) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	if signatureHeader == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(p.config.WebhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signatureHeader)) == 1
}

// WebhookEvent is the subset of the webhook payload the settlement core
// cares about.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	} `json:"data"`
}

func ParseWebhookEvent(rawBody []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook payload", domain.ErrValidation)
	}
	if ev.Data.Reference == "" {
		return nil, fmt.Errorf("%w: webhook event missing reference", domain.ErrValidation)
	}
	return &ev, nil
}

func (p *Provider) makeRequest(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrGateway, resp.StatusCode, truncate(respBody, 256))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("%w: invalid response body: %v", domain.ErrGateway, err)
	}
	if !envelope.Status {
		return nil, fmt.Errorf("%w: %s", domain.ErrGateway, envelope.Message)
	}

	return envelope.Data, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
