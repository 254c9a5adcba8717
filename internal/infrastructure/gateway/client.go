package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
)

const StatusCreated = "created"

// Charge is the gateway's answer to a charge creation request. Code is the
// machine-readable payment code (a PIX copy-paste string) shown to the payer.
type Charge struct {
	Status string
	Code   string
}

type PaymentGateway interface {
	CreateCharge(ctx context.Context, amount int64, description, externalReference string) (*Charge, error)
}

// Client talks to the PIX charge endpoint. Amounts cross the wire in currency
// units with two decimals, so cents are converted on the way out.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateCharge(ctx context.Context, amount int64, description, externalReference string) (*Charge, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", pkgerrors.ErrInvalidAmount)
	}

	payload := map[string]interface{}{
		"amount":             float64(amount) / 100,
		"description":        description,
		"external_reference": externalReference,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal charge payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access-token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("charge request failed", "external_reference", externalReference, "error", err)
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrPaymentGateway, err)
	}
	defer resp.Body.Close()

	var data struct {
		Status string `json:"status"`
		Pix    struct {
			QRCode string `json:"qrcode"`
		} `json:"pix"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		slog.Error("failed to decode charge response", "external_reference", externalReference, "error", err)
		return nil, fmt.Errorf("%w: invalid response body", pkgerrors.ErrPaymentGateway)
	}

	if resp.StatusCode != http.StatusCreated {
		slog.Error("charge rejected", "external_reference", externalReference, "http_status", resp.StatusCode, "status", data.Status)
		return &Charge{Status: data.Status}, nil
	}

	slog.Info("charge created", "external_reference", externalReference, "status", data.Status)
	return &Charge{Status: StatusCreated, Code: data.Pix.QRCode}, nil
}
