package service

import (
	"context"
	"testing"
	"time"

	"examprep-billing/internal/model"
	"examprep-billing/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newCouponService(t *testing.T) (CouponService, func(*model.Coupon)) {
	db := newTestDB(t)
	svc := NewCouponService(repository.NewCouponRepository(db))
	return svc, func(c *model.Coupon) { createCoupon(t, db, c) }
}

func TestValidateUnknownCode(t *testing.T) {
	svc, _ := newCouponService(t)

	result, err := svc.Validate(context.Background(), "NOPE", testNow)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonUnknownCode, result.Reason)
}

func TestValidateChecksInOrder(t *testing.T) {
	svc, create := newCouponService(t)

	// inactive AND expired AND over cap: inactive must win
	create(&model.Coupon{
		Code:            "STACKED",
		DiscountPercent: 10,
		IsActive:        false,
		ValidUntil:      timePtr(testNow.Add(-time.Hour)),
		MaxUses:         intPtr(1),
		UsedCount:       5,
	})

	result, err := svc.Validate(context.Background(), "STACKED", testNow)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonInactive, result.Reason)
}

func TestCreateKeepsCouponDeactivated(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewCouponRepository(db)

	// a zero-value false must survive the insert; a column default would
	// silently flip it back on
	createCoupon(t, db, &model.Coupon{Code: "DEAD", DiscountPercent: 10, IsActive: false})

	coupon, err := repo.FindByCode(context.Background(), "DEAD")
	require.NoError(t, err)
	assert.False(t, coupon.IsActive)

	result, err := NewCouponService(repo).Validate(context.Background(), "DEAD", testNow)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonInactive, result.Reason)
}

func TestValidateExpired(t *testing.T) {
	svc, create := newCouponService(t)

	create(&model.Coupon{
		Code:            "OLD",
		DiscountPercent: 10,
		IsActive:        true,
		ValidUntil:      timePtr(testNow.Add(-time.Minute)),
	})

	result, err := svc.Validate(context.Background(), "OLD", testNow)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonExpired, result.Reason)
}

func TestValidateUsageLimit(t *testing.T) {
	svc, create := newCouponService(t)

	// active, unexpired, but the cap is reached: reason is the cap
	create(&model.Coupon{
		Code:            "CAPPED",
		DiscountPercent: 25,
		IsActive:        true,
		MaxUses:         intPtr(10),
		UsedCount:       10,
	})

	result, err := svc.Validate(context.Background(), "CAPPED", testNow)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonUsageLimit, result.Reason)
}

func TestValidateCaseInsensitive(t *testing.T) {
	svc, create := newCouponService(t)

	create(&model.Coupon{Code: "welcome10", DiscountPercent: 10, IsActive: true})

	result, err := svc.Validate(context.Background(), "Welcome10", testNow)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "WELCOME10", result.Code)
	assert.Equal(t, 10, result.DiscountPercent)
}

func TestValidateNoExpiryNoCap(t *testing.T) {
	svc, create := newCouponService(t)

	create(&model.Coupon{Code: "FOREVER", DiscountPercent: 5, IsActive: true, UsedCount: 100000})

	result, err := svc.Validate(context.Background(), "FOREVER", testNow)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidateDecodesApplicableProducts(t *testing.T) {
	svc, create := newCouponService(t)

	create(&model.Coupon{
		Code:               "SUBJECTS",
		DiscountPercent:    20,
		IsActive:           true,
		ApplicableProducts: datatypes.JSON([]byte(`["air-law","meteorology"]`)),
	})

	result, err := svc.Validate(context.Background(), "SUBJECTS", testNow)
	require.NoError(t, err)
	require.True(t, result.Valid)
	assert.ElementsMatch(t, []string{"air-law", "meteorology"}, result.ApplicableProducts)
}

func lines(prices ...int64) []*model.SessionLineItem {
	out := make([]*model.SessionLineItem, len(prices))
	for i, p := range prices {
		out[i] = &model.SessionLineItem{ItemID: string(rune('a' + i)), UnitPriceMinorUnits: p, Quantity: 1}
	}
	return out
}

func TestApplyDiscountRoundsHalfUp(t *testing.T) {
	svc, _ := newCouponService(t)

	// 101 * 50% = 50.5 → 51
	out := svc.ApplyDiscount(lines(101), 50, nil)
	assert.Equal(t, int64(51), out[0].UnitPriceMinorUnits)

	// 999 * 67% = 669.33 → 669
	out = svc.ApplyDiscount(lines(999), 33, nil)
	assert.Equal(t, int64(669), out[0].UnitPriceMinorUnits)

	// 4900 * 85% = 4165 exactly
	out = svc.ApplyDiscount(lines(4900), 15, nil)
	assert.Equal(t, int64(4165), out[0].UnitPriceMinorUnits)
}

func TestApplyDiscountNeverNegative(t *testing.T) {
	svc, _ := newCouponService(t)

	out := svc.ApplyDiscount(lines(1), 100, nil)
	assert.Equal(t, int64(0), out[0].UnitPriceMinorUnits)

	out = svc.ApplyDiscount(lines(0), 50, nil)
	assert.Equal(t, int64(0), out[0].UnitPriceMinorUnits)
}

func TestApplyDiscountDeterministic(t *testing.T) {
	svc, _ := newCouponService(t)

	in := lines(4900, 1490, 999)
	first := svc.ApplyDiscount(in, 15, nil)
	second := svc.ApplyDiscount(in, 15, nil)

	for i := range first {
		assert.Equal(t, first[i].UnitPriceMinorUnits, second[i].UnitPriceMinorUnits)
	}
	// input untouched
	assert.Equal(t, int64(4900), in[0].UnitPriceMinorUnits)
}

func TestApplyDiscountApplicabilitySet(t *testing.T) {
	svc, _ := newCouponService(t)

	in := []*model.SessionLineItem{
		{ItemID: "air-law", UnitPriceMinorUnits: 4900, Quantity: 1},
		{ItemID: "ai-insights", UnitPriceMinorUnits: 1490, Quantity: 1},
	}

	out := svc.ApplyDiscount(in, 50, []string{"air-law"})
	assert.Equal(t, int64(2450), out[0].UnitPriceMinorUnits)
	assert.Equal(t, int64(1490), out[1].UnitPriceMinorUnits, "non-applicable line charged at full price")

	// empty set applies to all lines
	out = svc.ApplyDiscount(in, 50, nil)
	assert.Equal(t, int64(2450), out[0].UnitPriceMinorUnits)
	assert.Equal(t, int64(745), out[1].UnitPriceMinorUnits)
}
