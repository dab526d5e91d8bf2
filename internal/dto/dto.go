package dto

import "time"

type CheckoutRequest struct {
	ItemIDs        []string `json:"item_ids"`
	CouponCode     string   `json:"coupon_code,omitempty"`
	IdempotencyKey string   `json:"idempotency_key,omitempty"`
}

type CheckoutResponse struct {
	SessionID        string `json:"session_id"`
	Mode             string `json:"mode"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	Currency         string `json:"currency"`
	ApprovalURL      string `json:"approval_url,omitempty"`
}

type DecisionResponse struct {
	Granted   bool       `json:"granted"`
	Source    string     `json:"source"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type EntitlementsResponse struct {
	HasBundle    bool               `json:"has_bundle"`
	BundleExpiry *time.Time         `json:"bundle_expiry,omitempty"`
	Purchases    []PurchaseResponse `json:"purchases"`
}

type PurchaseResponse struct {
	ID            string    `json:"id"`
	SubjectID     string    `json:"subject_id"`
	Type          string    `json:"type"`
	HasPrinting   bool      `json:"has_printing"`
	HasAiInsights bool      `json:"has_ai_insights"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type AdminGrantRequest struct {
	UserID       string `json:"user_id"`
	SubjectID    string `json:"subject_id"`
	DurationDays int    `json:"duration_days"`
}

type AdminBundleRequest struct {
	UserID       string `json:"user_id"`
	DurationDays int    `json:"duration_days"`
}

type AttemptRequest struct {
	Answered int64 `json:"answered"`
	Correct  int64 `json:"correct"`
}

type ProgressResponse struct {
	SubjectID       string `json:"subject_id"`
	CorrectAnswered int64  `json:"correct_answered"`
	TotalAttempted  int64  `json:"total_attempted"`
	ProgressPercent int    `json:"progress_percent"`
}
