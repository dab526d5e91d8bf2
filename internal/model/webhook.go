package model

// Payload shapes for the payment provider's confirmation webhook. The
// provider is an opaque collaborator; only the fields we consume are mapped.

type WebhookPayer struct {
	PayerID string `json:"payer_id"`
	Email   string `json:"email_address"`
}

type WebhookResource struct {
	TransactionID string       `json:"transaction_id"`
	SessionID     string       `json:"session_id"`
	Status        string       `json:"status"`
	Payer         WebhookPayer `json:"payer"`
}

type PaymentWebhookEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	CreateTime string          `json:"create_time"`
	Resource   WebhookResource `json:"resource"`
}

const (
	EventPaymentConfirmed     = "PAYMENT.CONFIRMED"
	EventSubscriptionActive   = "SUBSCRIPTION.ACTIVATED"
	EventSubscriptionCanceled = "SUBSCRIPTION.CANCELLED"
)
