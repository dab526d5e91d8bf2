package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"examprep-billing/internal/config"
	"examprep-billing/internal/model"
)

// PaymentClient is the opaque payment collaborator. It receives a fully
// resolved session descriptor and hands back an approval URL; confirmation
// arrives later on the webhook.
type PaymentClient interface {
	CreateSession(ctx context.Context, session *model.CheckoutSession, lines []*model.SessionLineItem) (*CreateSessionResponse, error)
	VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error
}

type CreateSessionResponse struct {
	ProviderSessionID string
	ApprovalURL       string
}

type paymentClientImpl struct {
	httpClient   *http.Client
	baseApiURL   string
	clientID     string
	clientSecret string
	webhookID    string
	returnURL    string
}

func NewPaymentClient(paymentCfg *config.Payment) PaymentClient {
	return &paymentClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:   paymentCfg.BaseApiURL,
		clientID:     paymentCfg.ClientID,
		clientSecret: paymentCfg.ClientSecret,
		webhookID:    paymentCfg.WebhookID,
		returnURL:    paymentCfg.ReturnURL,
	}
}

func (c *paymentClientImpl) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.clientID + ":" + c.clientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	return res.AccessToken, nil
}

func (c *paymentClientImpl) CreateSession(ctx context.Context, session *model.CheckoutSession, lines []*model.SessionLineItem) (*CreateSessionResponse, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get provider access token: %w", err)
	}

	items := make([]map[string]interface{}, len(lines))
	for i, line := range lines {
		items[i] = map[string]interface{}{
			"sku":              line.ItemID,
			"unit_price_minor": line.UnitPriceMinorUnits,
			"quantity":         line.Quantity,
			"currency":         line.Currency,
		}
	}

	payload := map[string]interface{}{
		"reference_id": session.ID,
		"mode":         string(session.Mode),
		"amount_minor": session.AmountMinorUnits,
		"currency":     session.Currency,
		"line_items":   items,
		"return_url":   c.returnURL,
	}
	if session.ProviderCustomerID != "" {
		payload["customer_id"] = session.ProviderCustomerID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/checkout/sessions",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", session.IdempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider error %d: %s", resp.StatusCode, string(b))
	}

	var result struct {
		ID    string `json:"id"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}

	out := &CreateSessionResponse{ProviderSessionID: result.ID}
	for _, link := range result.Links {
		if link.Rel == "approve" {
			out.ApprovalURL = link.Href
		}
	}

	return out, nil
}

func (c *paymentClientImpl) VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get provider access token: %w", err)
	}

	payload := map[string]interface{}{
		"webhook_id":        c.webhookID,
		"transmission_id":   headers.Get("X-Transmission-Id"),
		"transmission_sig":  headers.Get("X-Transmission-Sig"),
		"transmission_time": headers.Get("X-Transmission-Time"),
		"webhook_event":     json.RawMessage(body),
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal verify payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/notifications/verify-webhook-signature",
		bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode verify response: %w", err)
	}
	if result.VerificationStatus != "SUCCESS" {
		return fmt.Errorf("webhook signature verification failed: %s", result.VerificationStatus)
	}

	return nil
}
