package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"examprep-billing/internal/model"
	"examprep-billing/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon rejection reasons, surfaced verbatim to the caller.
const (
	ReasonUnknownCode = "unknown code"
	ReasonInactive    = "inactive"
	ReasonExpired     = "expired"
	ReasonUsageLimit  = "usage limit"
)

type CouponResult struct {
	Valid           bool
	Reason          string
	Code            string
	DiscountPercent int
	// Item ids the discount applies to; empty applies to all.
	ApplicableProducts []string
}

type CouponService interface {
	Validate(ctx context.Context, code string, now time.Time) (*CouponResult, error)
	ApplyDiscount(lines []*model.SessionLineItem, discountPercent int, applicableProducts []string) []*model.SessionLineItem
}

type couponServiceImpl struct {
	couponRepo repository.CouponRepository
}

func NewCouponService(couponRepo repository.CouponRepository) CouponService {
	return &couponServiceImpl{
		couponRepo: couponRepo,
	}
}

// Validate checks in a fixed order so the caller always sees the most
// specific reason: exists, active, not expired, usage cap.
func (s *couponServiceImpl) Validate(ctx context.Context, code string, now time.Time) (*CouponResult, error) {
	coupon, err := s.couponRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CouponResult{Valid: false, Reason: ReasonUnknownCode}, nil
		}
		return nil, fmt.Errorf("find coupon: %w", err)
	}

	if !coupon.IsActive {
		return &CouponResult{Valid: false, Reason: ReasonInactive}, nil
	}
	if coupon.ValidUntil != nil && !coupon.ValidUntil.After(now) {
		return &CouponResult{Valid: false, Reason: ReasonExpired}, nil
	}
	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		return &CouponResult{Valid: false, Reason: ReasonUsageLimit}, nil
	}

	applicable, err := decodeApplicableProducts(coupon)
	if err != nil {
		return nil, fmt.Errorf("decode applicable products: %w", err)
	}

	return &CouponResult{
		Valid:              true,
		Code:               coupon.Code,
		DiscountPercent:    coupon.DiscountPercent,
		ApplicableProducts: applicable,
	}, nil
}

func decodeApplicableProducts(coupon *model.Coupon) ([]string, error) {
	if len(coupon.ApplicableProducts) == 0 {
		return nil, nil
	}

	var ids []string
	if err := json.Unmarshal(coupon.ApplicableProducts, &ids); err != nil {
		return nil, err
	}

	return ids, nil
}

// ApplyDiscount is pure and deterministic: lines in the applicability set get
// their unit price reduced, rounded half-up to the minor unit; others stay at
// full price. An empty set applies to every line.
func (s *couponServiceImpl) ApplyDiscount(lines []*model.SessionLineItem, discountPercent int, applicableProducts []string) []*model.SessionLineItem {
	applicable := make(map[string]bool, len(applicableProducts))
	for _, id := range applicableProducts {
		applicable[id] = true
	}

	out := make([]*model.SessionLineItem, len(lines))
	for i, line := range lines {
		copied := *line
		if len(applicable) == 0 || applicable[line.ItemID] {
			copied.UnitPriceMinorUnits = discountedPrice(line.UnitPriceMinorUnits, discountPercent)
		}
		out[i] = &copied
	}

	return out
}

// discountedPrice computes price * (100-percent)/100 in exact decimal
// arithmetic, rounding half-up. No floats touch money.
func discountedPrice(priceMinorUnits int64, discountPercent int) int64 {
	if discountPercent <= 0 {
		return priceMinorUnits
	}
	if discountPercent >= 100 {
		return 0
	}

	discounted := decimal.NewFromInt(priceMinorUnits).
		Mul(decimal.NewFromInt(int64(100 - discountPercent))).
		Div(decimal.NewFromInt(100)).
		Round(0)

	return discounted.IntPart()
}

// NormalizeCode canonicalizes user-supplied codes; storage is upper-case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
