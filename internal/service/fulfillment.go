package service

import (
	"context"
	"fmt"
	"time"

	"examprep-billing/internal/logger"
	"examprep-billing/internal/model"
	"examprep-billing/internal/repository"

	"gorm.io/gorm"
)

type FulfillmentService interface {
	// OnPaymentConfirmed grants everything the session sold. It is idempotent
	// under at-least-once delivery: a replayed transaction id is a logged no-op.
	OnPaymentConfirmed(ctx context.Context, sessionID, transactionID string, payer model.WebhookPayer) error
}

type fulfillmentServiceImpl struct {
	db              *gorm.DB
	ledger          LedgerService
	sessionRepo     repository.SessionRepository
	userRepo        repository.UserRepository
	couponRepo      repository.CouponRepository
	transactionRepo repository.TransactionRepository
	now             func() time.Time
}

func NewFulfillmentService(
	db *gorm.DB,
	ledger LedgerService,
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	couponRepo repository.CouponRepository,
	transactionRepo repository.TransactionRepository,
	now func() time.Time,
) FulfillmentService {
	if now == nil {
		now = time.Now
	}
	return &fulfillmentServiceImpl{
		db:              db,
		ledger:          ledger,
		sessionRepo:     sessionRepo,
		userRepo:        userRepo,
		couponRepo:      couponRepo,
		transactionRepo: transactionRepo,
		now:             now,
	}
}

func (s *fulfillmentServiceImpl) OnPaymentConfirmed(ctx context.Context, sessionID, transactionID string, payer model.WebhookPayer) error {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session %s: %w", sessionID, err)
	}

	// One transaction covers grants, coupon usage and the processed mark, so
	// a crash mid-way replays cleanly and a replay changes nothing.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		processed, err := s.transactionRepo.Exists(ctx, tx, transactionID)
		if err != nil {
			return fmt.Errorf("check processed transaction: %w", err)
		}
		if processed {
			logger.FromContext(ctx).Info("duplicate payment confirmation ignored",
				"transaction_id", transactionID, "session_id", sessionID)
			return nil
		}

		userID, err := s.resolvePayer(ctx, tx, session, payer)
		if err != nil {
			return err
		}

		lines, err := s.sessionRepo.GetLineItems(ctx, tx, sessionID)
		if err != nil {
			return fmt.Errorf("get session line items: %w", err)
		}

		if err := s.grantLineItems(ctx, tx, lines, userID, transactionID); err != nil {
			return err
		}

		if session.CouponCode != "" {
			if err := s.couponRepo.IncrementUsage(ctx, tx, session.CouponCode); err != nil {
				return fmt.Errorf("increment coupon usage: %w", err)
			}
		}

		if err := s.sessionRepo.MarkConfirmed(ctx, tx, sessionID); err != nil {
			return fmt.Errorf("mark session confirmed: %w", err)
		}

		if err := s.transactionRepo.MarkProcessed(ctx, tx, transactionID, sessionID); err != nil {
			return fmt.Errorf("mark transaction processed: %w", err)
		}

		return nil
	})
}

// resolvePayer prefers the session's payer; anonymous checkouts fall back to
// the provider's payer reference, provisioning a local user when needed.
func (s *fulfillmentServiceImpl) resolvePayer(ctx context.Context, tx *gorm.DB, session *model.CheckoutSession, payer model.WebhookPayer) (string, error) {
	if session.PayerUserID != "" {
		if payer.PayerID != "" {
			// Remember the provider mapping for future checkouts.
			if err := s.userRepo.SetProviderCustomerID(ctx, tx, session.PayerUserID, payer.PayerID); err != nil {
				return "", fmt.Errorf("set provider customer id: %w", err)
			}
		}
		return session.PayerUserID, nil
	}

	if payer.PayerID == "" {
		return "", fmt.Errorf("confirmation for session %s carries no payer", session.ID)
	}

	user, err := s.userRepo.FindOrCreateByProviderID(ctx, tx, payer.PayerID, payer.Email)
	if err != nil {
		return "", fmt.Errorf("resolve payer user: %w", err)
	}

	return user.ID, nil
}

func (s *fulfillmentServiceImpl) grantLineItems(ctx context.Context, tx *gorm.DB, lines []*model.SessionLineItem, userID, transactionID string) error {
	// Addon lines decorate the subject purchases from the same session; they
	// do not create ledger rows of their own.
	hasPrinting, hasAiInsights := addonFlags(lines)

	for _, line := range lines {
		switch line.Kind {
		case model.KindSubject:
			_, err := s.ledger.UpsertPurchaseTx(ctx, tx, UpsertPurchaseParams{
				UserID:              userID,
				SubjectID:           line.ItemID,
				Type:                model.PurchaseIndividual,
				PriceMinorUnits:     line.UnitPriceMinorUnits,
				HasPrinting:         hasPrinting,
				HasAiInsights:       hasAiInsights,
				ExpiresAt:           s.now().AddDate(0, 0, line.TermDays),
				OriginTransactionID: transactionID,
			})
			if err != nil {
				return fmt.Errorf("grant subject %s: %w", line.ItemID, err)
			}

		case model.KindBundle:
			expiry := s.now().AddDate(0, 0, line.TermDays)
			if err := s.ledger.GrantBundleTx(ctx, tx, userID, expiry); err != nil {
				return fmt.Errorf("grant bundle: %w", err)
			}

		case model.KindAddon:
			// handled via addonFlags above
		}
	}

	return nil
}

func addonFlags(lines []*model.SessionLineItem) (printing, aiInsights bool) {
	for _, line := range lines {
		if line.Kind != model.KindAddon {
			continue
		}
		switch line.Feature {
		case model.FeaturePrinting:
			printing = true
		case model.FeatureAiInsights:
			aiInsights = true
		}
	}
	return printing, aiInsights
}
