package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"examprep-billing/internal/apperrors"
	"examprep-billing/internal/catalog"
	"examprep-billing/internal/model"
	"examprep-billing/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BuildParams struct {
	CartItemIDs []string
	CouponCode  string
	PayerUserID string
	// Optional; resupplying the key of an earlier build returns that session
	// unchanged, making checkout retries safe.
	IdempotencyKey string
}

type BuiltSession struct {
	Session   *model.CheckoutSession
	LineItems []*model.SessionLineItem
}

type CheckoutService interface {
	Build(ctx context.Context, params BuildParams) (*BuiltSession, error)
}

type checkoutServiceImpl struct {
	db          *gorm.DB
	catalog     *catalog.Cache
	couponSvc   CouponService
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	now         func() time.Time
}

func NewCheckoutService(db *gorm.DB, catalogCache *catalog.Cache, couponSvc CouponService, sessionRepo repository.SessionRepository, userRepo repository.UserRepository, now func() time.Time) CheckoutService {
	if now == nil {
		now = time.Now
	}
	return &checkoutServiceImpl{
		db:          db,
		catalog:     catalogCache,
		couponSvc:   couponSvc,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		now:         now,
	}
}

// Build resolves the cart into a provider-agnostic session descriptor. It
// validates everything before writing anything: a failed build leaves no
// rows behind and touches no coupon counter.
func (s *checkoutServiceImpl) Build(ctx context.Context, params BuildParams) (*BuiltSession, error) {
	if params.IdempotencyKey != "" {
		existing, err := s.sessionRepo.FindByIdempotencyKey(ctx, params.IdempotencyKey)
		if err == nil {
			lines, err := s.sessionRepo.GetLineItems(ctx, s.db, existing.ID)
			if err != nil {
				return nil, fmt.Errorf("load session line items: %w", err)
			}
			return &BuiltSession{Session: existing, LineItems: lines}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find session by idempotency key: %w", err)
		}
	}

	if len(params.CartItemIDs) == 0 {
		return nil, apperrors.InvalidCart("cart is empty")
	}

	items, missing, err := s.catalog.FindMany(ctx, params.CartItemIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve cart items: %w", err)
	}
	if len(missing) > 0 {
		return nil, apperrors.InvalidCart(fmt.Sprintf("unknown items: %v", missing))
	}

	var coupon *CouponResult
	if params.CouponCode != "" {
		coupon, err = s.couponSvc.Validate(ctx, NormalizeCode(params.CouponCode), s.now())
		if err != nil {
			return nil, fmt.Errorf("validate coupon: %w", err)
		}
		if !coupon.Valid {
			return nil, apperrors.InvalidCoupon(coupon.Reason)
		}
	}

	lines := buildLineItems(items)
	if coupon != nil {
		lines = s.couponSvc.ApplyDiscount(lines, coupon.DiscountPercent, coupon.ApplicableProducts)
	}

	session := &model.CheckoutSession{
		ID:             uuid.NewString(),
		IdempotencyKey: params.IdempotencyKey,
		PayerUserID:    params.PayerUserID,
		Mode:           selectMode(items),
		Status:         model.SessionCreated,
		Currency:       items[0].Currency,
	}
	if session.IdempotencyKey == "" {
		session.IdempotencyKey = uuid.NewString()
	}
	if coupon != nil {
		session.CouponCode = coupon.Code
	}

	for _, line := range lines {
		line.SessionID = session.ID
		session.AmountMinorUnits += line.UnitPriceMinorUnits * int64(line.Quantity)
	}

	// Known payers reuse their provider customer mapping instead of minting
	// a duplicate one.
	if params.PayerUserID != "" {
		user, err := s.userRepo.FindByID(ctx, params.PayerUserID)
		if err == nil && user.ProviderCustomerID != "" {
			session.ProviderCustomerID = user.ProviderCustomerID
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find payer: %w", err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.sessionRepo.Create(ctx, tx, session); err != nil {
			return fmt.Errorf("store session: %w", err)
		}
		if err := s.sessionRepo.CreateLineItems(ctx, tx, lines); err != nil {
			return fmt.Errorf("store line items: %w", err)
		}
		return nil
	})
	if err != nil {
		// A concurrent build with the same key won the insert; return its session.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, ferr := s.sessionRepo.FindByIdempotencyKey(ctx, session.IdempotencyKey)
			if ferr != nil {
				return nil, fmt.Errorf("find winning session: %w", ferr)
			}
			existingLines, ferr := s.sessionRepo.GetLineItems(ctx, s.db, existing.ID)
			if ferr != nil {
				return nil, fmt.Errorf("load session line items: %w", ferr)
			}
			return &BuiltSession{Session: existing, LineItems: existingLines}, nil
		}
		return nil, err
	}

	return &BuiltSession{Session: session, LineItems: lines}, nil
}

// buildLineItems prices the cart. Per-seat addons scale with the number of
// subjects they augment: quantity = count of subject items, floor 1.
func buildLineItems(items []*model.CatalogItem) []*model.SessionLineItem {
	subjectCount := int32(0)
	for _, item := range items {
		if item.Kind == model.KindSubject {
			subjectCount++
		}
	}

	addonQuantity := subjectCount
	if addonQuantity < 1 {
		addonQuantity = 1
	}

	lines := make([]*model.SessionLineItem, len(items))
	for i, item := range items {
		quantity := int32(1)
		if item.Kind == model.KindAddon {
			quantity = addonQuantity
		}

		lines[i] = &model.SessionLineItem{
			ItemID:              item.ID,
			Kind:                item.Kind,
			UnitPriceMinorUnits: item.PriceMinorUnits,
			Quantity:            quantity,
			Currency:            item.Currency,
			TermDays:            item.TermDays,
			Feature:             item.Feature,
		}
	}

	return lines
}

// selectMode: subscription iff any cart item is a bundle; mixed carts ride
// the subscription.
func selectMode(items []*model.CatalogItem) model.SessionMode {
	for _, item := range items {
		if item.Kind == model.KindBundle {
			return model.ModeSubscription
		}
	}
	return model.ModeOneTime
}
