package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultPaystackBaseURL   = "https://api.paystack.co"
	maxPaystackResponseBytes = 1 << 20
)

// PaystackGateway verifies transactions against the Paystack REST API.
type PaystackGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewPaystackGateway builds a gateway authenticated with secretKey.
func NewPaystackGateway(baseURL, secretKey string, timeout time.Duration) (*PaystackGateway, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, fmt.Errorf("paystack: secret key is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultPaystackBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PaystackGateway{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		PaidAt    string `json:"paid_at"`
	} `json:"data"`
}

// Verify fetches the transaction state for reference.
func (g *PaystackGateway) Verify(ctx context.Context, reference string) (Verification, error) {
	endpoint := g.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if errReq != nil {
		return Verification{}, fmt.Errorf("paystack: build request: %w", errReq)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, errDo := g.client.Do(req)
	if errDo != nil {
		return Verification{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	body, errRead := io.ReadAll(io.LimitReader(resp.Body, maxPaystackResponseBytes))
	if errRead != nil {
		return Verification{}, fmt.Errorf("%w: read response: %v", ErrGatewayUnavailable, errRead)
	}

	var payload paystackVerifyResponse
	errUnmarshal := json.Unmarshal(body, &payload)
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return Verification{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, payload.Message)
	case resp.StatusCode >= 400:
		return Verification{}, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	case errUnmarshal != nil:
		return Verification{}, fmt.Errorf("paystack: unmarshal response: %w", errUnmarshal)
	case !payload.Status:
		return Verification{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, payload.Message)
	}

	return Verification{
		Reference: payload.Data.Reference,
		Status:    strings.ToLower(payload.Data.Status),
		Amount:    payload.Data.Amount,
		Currency:  strings.ToUpper(payload.Data.Currency),
		PaidAt:    payload.Data.PaidAt,
	}, nil
}
