package model

import (
	"time"

	"gorm.io/datatypes"
)

type ItemKind string

const (
	KindSubject ItemKind = "subject"
	KindBundle  ItemKind = "bundle"
	KindAddon   ItemKind = "addon"
)

// Addon features unlocked on a purchase.
const (
	FeaturePrinting   = "printing"
	FeatureAiInsights = "ai_insights"
)

type CatalogItem struct {
	ID              string   `gorm:"primaryKey;size:64;not null"`
	Kind            ItemKind `gorm:"size:16;index;not null"`
	Name            string   `gorm:"size:128;not null"`
	PriceMinorUnits int64    `gorm:"not null"`
	Currency        string   `gorm:"size:8;not null"`
	Recurring       bool     `gorm:"not null"`
	// Feature names the addon unlocked by this item; empty for non-addons.
	Feature string `gorm:"size:32"`
	// TermDays is the access term granted on purchase.
	TermDays  int `gorm:"not null"`
	CreatedAt time.Time
}

type User struct {
	ID        string `gorm:"primaryKey;size:64;not null"`
	Email     string `gorm:"size:128;index"`
	Role      string `gorm:"size:16;not null;default:user"`
	Suspended bool   `gorm:"not null;default:false"`

	// Bundle grant is blanket access to every subject; modeled as two
	// scalar fields rather than per-subject rows.
	HasBundle    bool `gorm:"not null;default:false"`
	BundleExpiry *time.Time

	// External payment customer reference, reused across checkouts.
	ProviderCustomerID string `gorm:"size:64"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type PurchaseType string

const (
	PurchaseIndividual PurchaseType = "individual"
	PurchaseBundle     PurchaseType = "bundle"
	PurchaseAdmin      PurchaseType = "admin"
)

// OriginAdmin marks grants created without payment.
const OriginAdmin = "admin"

// Purchase is one entitlement ledger row. The unique index on
// (user_id, subject_id) enforces at most one row per pair; renewals and
// admin overrides update it in place.
type Purchase struct {
	ID        string       `gorm:"primaryKey;size:36;not null"`
	UserID    string       `gorm:"size:64;not null;uniqueIndex:idx_user_subject"`
	SubjectID string       `gorm:"size:64;not null;uniqueIndex:idx_user_subject"`
	Type      PurchaseType `gorm:"size:16;not null"`
	// Price actually paid, post-discount, in minor units. 0 for admin grants.
	PriceMinorUnits int64 `gorm:"not null"`
	HasPrinting     bool  `gorm:"not null;default:false"`
	HasAiInsights   bool  `gorm:"not null;default:false"`
	ExpiresAt       time.Time
	// External payment reference; "admin" for admin grants.
	OriginTransactionID string `gorm:"size:128"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (p *Purchase) Active(now time.Time) bool {
	return p.ExpiresAt.After(now)
}

type Coupon struct {
	// Codes are case-insensitive; stored canonical upper-case.
	Code            string `gorm:"primaryKey;size:64;not null"`
	DiscountPercent int    `gorm:"not null"`
	// nil means unlimited.
	MaxUses   *int
	UsedCount int `gorm:"not null;default:0"`
	// nil means no expiry.
	ValidUntil *time.Time
	// No column default: gorm would drop a zero-value false from the INSERT
	// and the default would resurrect deactivated coupons.
	IsActive bool `gorm:"not null"`
	// JSON array of catalog item ids; empty applies to all items.
	ApplicableProducts datatypes.JSON
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type SessionMode string

const (
	ModeOneTime      SessionMode = "one-time"
	ModeSubscription SessionMode = "subscription"
)

const (
	SessionCreated   = "CREATED"
	SessionConfirmed = "CONFIRMED"
)

type CheckoutSession struct {
	ID             string      `gorm:"primaryKey;size:36;not null"`
	IdempotencyKey string      `gorm:"size:64;uniqueIndex;not null"`
	PayerUserID    string      `gorm:"size:64;index"`
	Mode           SessionMode `gorm:"size:16;not null"`
	CouponCode     string      `gorm:"size:64"`
	Status         string      `gorm:"size:16;index;not null"`
	// Sum of line totals after discount.
	AmountMinorUnits   int64  `gorm:"not null"`
	Currency           string `gorm:"size:8;not null"`
	ProviderCustomerID string `gorm:"size:64"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type SessionLineItem struct {
	ID        uint     `gorm:"primaryKey"`
	SessionID string   `gorm:"size:36;index;not null"`
	ItemID    string   `gorm:"size:64;not null"`
	Kind      ItemKind `gorm:"size:16;not null"`
	// Post-discount unit price, recorded so fulfillment and audit re-derive
	// the same amounts.
	UnitPriceMinorUnits int64  `gorm:"not null"`
	Quantity            int32  `gorm:"not null"`
	Currency            string `gorm:"size:8;not null"`
	TermDays            int    `gorm:"not null"`
	// Copied from the catalog addon so fulfillment knows which flag to set.
	Feature   string `gorm:"size:32"`
	CreatedAt time.Time
}

// ProcessedTransaction records every fulfilled payment transaction id, making
// replayed confirmation events no-ops.
type ProcessedTransaction struct {
	TransactionID string `gorm:"primaryKey;size:128;not null"`
	SessionID     string `gorm:"size:36;index"`
	ProcessedAt   time.Time
	CreatedAt     time.Time
}

type Forum struct {
	ID   string `gorm:"primaryKey;size:64;not null"`
	Name string `gorm:"size:128;not null"`
	// Protected forums accept posts from administrators only.
	Protected bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// SubjectProgress tracks answered questions per user and subject.
type SubjectProgress struct {
	UserID          string `gorm:"primaryKey;size:64;not null"`
	SubjectID       string `gorm:"primaryKey;size:64;not null"`
	CorrectAnswered int64  `gorm:"not null;default:0"`
	TotalAttempted  int64  `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
