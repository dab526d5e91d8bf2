package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"examprep-billing/internal/apperrors"
	"examprep-billing/internal/logger"
	"examprep-billing/internal/model"
	"examprep-billing/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UpsertPurchaseParams struct {
	UserID              string
	SubjectID           string
	Type                model.PurchaseType
	PriceMinorUnits     int64
	HasPrinting         bool
	HasAiInsights       bool
	ExpiresAt           time.Time
	OriginTransactionID string
}

// LedgerService owns every write to the entitlement ledger.
type LedgerService interface {
	UpsertPurchase(ctx context.Context, params UpsertPurchaseParams) (*model.Purchase, error)
	// UpsertPurchaseTx runs the same upsert inside a caller-owned transaction,
	// used by fulfillment to keep grants and idempotency marks atomic.
	UpsertPurchaseTx(ctx context.Context, tx *gorm.DB, params UpsertPurchaseParams) (*model.Purchase, error)
	GrantBundleTx(ctx context.Context, tx *gorm.DB, userID string, expiry time.Time) error
	Revoke(ctx context.Context, purchaseID string) error
	GrantAdminOverride(ctx context.Context, userID, subjectID string, durationDays int) (*model.Purchase, error)
	GrantBundle(ctx context.Context, userID string, expiry time.Time) error
	RevokeBundle(ctx context.Context, userID string) error
	RevenueBySubject(ctx context.Context) (map[string]int64, error)
}

type ledgerServiceImpl struct {
	db           *gorm.DB
	purchaseRepo repository.PurchaseRepository
	userRepo     repository.UserRepository
	now          func() time.Time
}

func NewLedgerService(db *gorm.DB, purchaseRepo repository.PurchaseRepository, userRepo repository.UserRepository, now func() time.Time) LedgerService {
	if now == nil {
		now = time.Now
	}
	return &ledgerServiceImpl{
		db:           db,
		purchaseRepo: purchaseRepo,
		userRepo:     userRepo,
		now:          now,
	}
}

func (s *ledgerServiceImpl) UpsertPurchase(ctx context.Context, params UpsertPurchaseParams) (*model.Purchase, error) {
	return s.upsertPurchaseTx(ctx, s.db, params)
}

func (s *ledgerServiceImpl) UpsertPurchaseTx(ctx context.Context, tx *gorm.DB, params UpsertPurchaseParams) (*model.Purchase, error) {
	return s.upsertPurchaseTx(ctx, tx, params)
}

func (s *ledgerServiceImpl) GrantBundleTx(ctx context.Context, tx *gorm.DB, userID string, expiry time.Time) error {
	return s.userRepo.GrantBundle(ctx, tx, userID, expiry)
}

// upsertPurchaseTx keeps at most one row per (user, subject). Renewals merge
// into the existing row: expiry only ever moves forward, addon flags OR in,
// price records the latest paid amount. Lost races surface as
// PERSISTENCE_CONFLICT after one retry with a fresh read.
func (s *ledgerServiceImpl) upsertPurchaseTx(ctx context.Context, tx *gorm.DB, params UpsertPurchaseParams) (*model.Purchase, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		purchase, err := s.tryUpsert(ctx, tx, params)
		if err == nil {
			return purchase, nil
		}
		if !isWriteConflict(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, apperrors.PersistenceConflict(lastErr)
}

func (s *ledgerServiceImpl) tryUpsert(ctx context.Context, tx *gorm.DB, params UpsertPurchaseParams) (*model.Purchase, error) {
	existing, err := s.purchaseRepo.FindByUserAndSubject(ctx, tx, params.UserID, params.SubjectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		purchase := &model.Purchase{
			ID:                  uuid.NewString(),
			UserID:              params.UserID,
			SubjectID:           params.SubjectID,
			Type:                params.Type,
			PriceMinorUnits:     params.PriceMinorUnits,
			HasPrinting:         params.HasPrinting,
			HasAiInsights:       params.HasAiInsights,
			ExpiresAt:           params.ExpiresAt,
			OriginTransactionID: params.OriginTransactionID,
		}
		// The unique index turns a racing insert into a duplicate-key error,
		// which the caller retries as an update.
		if err := s.purchaseRepo.Create(ctx, tx, purchase); err != nil {
			return nil, err
		}
		return purchase, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find purchase: %w", err)
	}

	merged := *existing
	merged.Type = params.Type
	merged.PriceMinorUnits = params.PriceMinorUnits
	merged.HasPrinting = existing.HasPrinting || params.HasPrinting
	merged.HasAiInsights = existing.HasAiInsights || params.HasAiInsights
	merged.OriginTransactionID = params.OriginTransactionID
	// expires_at never decreases
	if params.ExpiresAt.After(existing.ExpiresAt) {
		merged.ExpiresAt = params.ExpiresAt
	}

	updated, err := s.purchaseRepo.UpdateConditional(ctx, tx, &merged, existing.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("update purchase: %w", err)
	}
	if !updated {
		return nil, errConcurrentUpdate
	}

	return &merged, nil
}

var errConcurrentUpdate = errors.New("purchase row changed concurrently")

func isWriteConflict(err error) bool {
	return errors.Is(err, errConcurrentUpdate) || errors.Is(err, gorm.ErrDuplicatedKey)
}

// Revoke expires the purchase now. The row stays behind for audit.
func (s *ledgerServiceImpl) Revoke(ctx context.Context, purchaseID string) error {
	err := s.purchaseRepo.SetExpiry(ctx, purchaseID, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("purchase not found")
	}
	return err
}

func (s *ledgerServiceImpl) GrantAdminOverride(ctx context.Context, userID, subjectID string, durationDays int) (*model.Purchase, error) {
	purchase, err := s.UpsertPurchase(ctx, UpsertPurchaseParams{
		UserID:              userID,
		SubjectID:           subjectID,
		Type:                model.PurchaseAdmin,
		PriceMinorUnits:     0,
		ExpiresAt:           s.now().AddDate(0, 0, durationDays),
		OriginTransactionID: model.OriginAdmin,
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("admin override granted",
		"user_id", userID, "subject_id", subjectID, "duration_days", durationDays)
	return purchase, nil
}

func (s *ledgerServiceImpl) GrantBundle(ctx context.Context, userID string, expiry time.Time) error {
	return s.userRepo.GrantBundle(ctx, s.db, userID, expiry)
}

func (s *ledgerServiceImpl) RevokeBundle(ctx context.Context, userID string) error {
	return s.userRepo.RevokeBundle(ctx, userID, s.now())
}

func (s *ledgerServiceImpl) RevenueBySubject(ctx context.Context) (map[string]int64, error) {
	return s.purchaseRepo.RevenueBySubject(ctx)
}
