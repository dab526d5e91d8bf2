package service

import (
	"context"
	"testing"

	"examprep-billing/internal/apperrors"
	"examprep-billing/internal/model"
	"examprep-billing/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type checkoutFixture struct {
	db  *gorm.DB
	svc CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	db := newTestDB(t)
	cache := newTestCatalogCache(t, db)
	couponSvc := NewCouponService(repository.NewCouponRepository(db))
	svc := NewCheckoutService(db, cache, couponSvc,
		repository.NewSessionRepository(db), repository.NewUserRepository(db), fixedClock)
	return &checkoutFixture{db: db, svc: svc}
}

func (f *checkoutFixture) lineFor(t *testing.T, built *BuiltSession, itemID string) *model.SessionLineItem {
	t.Helper()
	for _, line := range built.LineItems {
		if line.ItemID == itemID {
			return line
		}
	}
	t.Fatalf("no line item for %s", itemID)
	return nil
}

func TestBuildSubjectWithAddon(t *testing.T) {
	f := newCheckoutFixture(t)

	built, err := f.svc.Build(context.Background(), BuildParams{
		CartItemIDs: []string{"air-law", "ai-insights"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.ModeOneTime, built.Session.Mode)
	assert.Equal(t, int64(4900+1490), built.Session.AmountMinorUnits)

	addon := f.lineFor(t, built, "ai-insights")
	assert.Equal(t, int32(1), addon.Quantity, "one subject in cart, addon quantity 1")
	subject := f.lineFor(t, built, "air-law")
	assert.Equal(t, int32(1), subject.Quantity)
}

func TestBuildAddonQuantityScalesWithSubjects(t *testing.T) {
	f := newCheckoutFixture(t)

	built, err := f.svc.Build(context.Background(), BuildParams{
		CartItemIDs: []string{"air-law", "meteorology", "navigation", "ai-insights"},
	})
	require.NoError(t, err)

	addon := f.lineFor(t, built, "ai-insights")
	assert.Equal(t, int32(3), addon.Quantity)
	assert.Equal(t, int64(3*4900+3*1490), built.Session.AmountMinorUnits)
}

func TestBuildAddonAloneQuantityFloorsAtOne(t *testing.T) {
	f := newCheckoutFixture(t)

	built, err := f.svc.Build(context.Background(), BuildParams{
		CartItemIDs: []string{"ai-insights"},
	})
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.lineFor(t, built, "ai-insights").Quantity)
}

func TestBuildBundleSelectsSubscription(t *testing.T) {
	f := newCheckoutFixture(t)

	built, err := f.svc.Build(context.Background(), BuildParams{
		CartItemIDs: []string{"full-access"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.ModeSubscription, built.Session.Mode)
}

func TestBuildMixedCartRidesSubscription(t *testing.T) {
	f := newCheckoutFixture(t)

	built, err := f.svc.Build(context.Background(), BuildParams{
		CartItemIDs: []string{"air-law", "full-access"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.ModeSubscription, built.Session.Mode)
	assert.Len(t, built.LineItems, 2)
}

func TestBuildEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Build(context.Background(), BuildParams{})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidCart, appErr.Code)
}

func TestBuildUnknownItem(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Build(context.Background(), BuildParams{
		CartItemIDs: []string{"air-law", "no-such-subject"},
	})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidCart, appErr.Code)
}

func TestBuildInvalidCouponLeavesNoRows(t *testing.T) {
	f := newCheckoutFixture(t)
	createCoupon(t, f.db, &model.Coupon{Code: "DEAD", DiscountPercent: 10, IsActive: false})

	_, err := f.svc.Build(context.Background(), BuildParams{
		CartItemIDs: []string{"air-law"},
		CouponCode:  "DEAD",
	})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidCoupon, appErr.Code)
	assert.Equal(t, ReasonInactive, appErr.Details)

	var sessions int64
	require.NoError(t, f.db.Model(&model.CheckoutSession{}).Count(&sessions).Error)
	assert.Zero(t, sessions, "failed build must have no observable side effect")

	var coupon model.Coupon
	require.NoError(t, f.db.First(&coupon, "code = ?", "DEAD").Error)
	assert.Zero(t, coupon.UsedCount, "building never consumes a use")
}

func TestBuildAppliesCouponToLineItems(t *testing.T) {
	f := newCheckoutFixture(t)
	createCoupon(t, f.db, &model.Coupon{Code: "HALF", DiscountPercent: 50, IsActive: true})

	built, err := f.svc.Build(context.Background(), BuildParams{
		CartItemIDs: []string{"air-law", "ai-insights"},
		CouponCode:  "half",
	})
	require.NoError(t, err)

	assert.Equal(t, "HALF", built.Session.CouponCode)
	assert.Equal(t, int64(2450), f.lineFor(t, built, "air-law").UnitPriceMinorUnits)
	assert.Equal(t, int64(745), f.lineFor(t, built, "ai-insights").UnitPriceMinorUnits)
	assert.Equal(t, int64(2450+745), built.Session.AmountMinorUnits)
}

func TestBuildIdempotencyKeyReturnsSameSession(t *testing.T) {
	f := newCheckoutFixture(t)

	first, err := f.svc.Build(context.Background(), BuildParams{
		CartItemIDs:    []string{"air-law"},
		IdempotencyKey: "retry-key-1",
	})
	require.NoError(t, err)

	second, err := f.svc.Build(context.Background(), BuildParams{
		CartItemIDs:    []string{"air-law", "meteorology"},
		IdempotencyKey: "retry-key-1",
	})
	require.NoError(t, err)

	assert.Equal(t, first.Session.ID, second.Session.ID)
	assert.Len(t, second.LineItems, 1, "retry returns the original build unchanged")

	var sessions int64
	require.NoError(t, f.db.Model(&model.CheckoutSession{}).Count(&sessions).Error)
	assert.Equal(t, int64(1), sessions)
}

func TestBuildReusesProviderCustomer(t *testing.T) {
	f := newCheckoutFixture(t)
	createUser(t, f.db, &model.User{ID: "u1", ProviderCustomerID: "cust-99"})

	built, err := f.svc.Build(context.Background(), BuildParams{
		CartItemIDs: []string{"air-law"},
		PayerUserID: "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, "cust-99", built.Session.ProviderCustomerID)
}
