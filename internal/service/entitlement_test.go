package service

import (
	"context"
	"testing"
	"time"

	"examprep-billing/internal/auth"
	"examprep-billing/internal/model"
	"examprep-billing/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type entitlementFixture struct {
	db  *gorm.DB
	svc EntitlementService
}

func newEntitlementFixture(t *testing.T) *entitlementFixture {
	db := newTestDB(t)
	require.NoError(t, repository.NewForumRepository(db).Seed(context.Background()))
	svc := NewEntitlementService(
		repository.NewPurchaseRepository(db),
		repository.NewUserRepository(db),
		repository.NewForumRepository(db),
		fixedClock,
	)
	return &entitlementFixture{db: db, svc: svc}
}

func (f *entitlementFixture) createPurchase(t *testing.T, p *model.Purchase) {
	t.Helper()
	if p.ID == "" {
		p.ID = "p-" + p.UserID + "-" + p.SubjectID
	}
	if p.Type == "" {
		p.Type = model.PurchaseIndividual
	}
	require.NoError(t, f.db.Create(p).Error)
}

func TestBundleGrantsEverySubject(t *testing.T) {
	f := newEntitlementFixture(t)
	createUser(t, f.db, &model.User{ID: "u1", HasBundle: true, BundleExpiry: timePtr(testNow.Add(24 * time.Hour))})

	for _, subject := range []string{"air-law", "meteorology", "navigation", "human-factors"} {
		decision := f.svc.CanAccessSubject(context.Background(), "u1", subject)
		assert.True(t, decision.Granted, subject)
		assert.Equal(t, GrantBundle, decision.Source)
	}
}

func TestExpiredBundleDenies(t *testing.T) {
	f := newEntitlementFixture(t)
	createUser(t, f.db, &model.User{ID: "u1", HasBundle: true, BundleExpiry: timePtr(testNow.Add(-time.Minute))})

	decision := f.svc.CanAccessSubject(context.Background(), "u1", "air-law")
	assert.False(t, decision.Granted)
	assert.Equal(t, GrantNone, decision.Source)
}

func TestActivePurchaseGrants(t *testing.T) {
	f := newEntitlementFixture(t)
	createUser(t, f.db, &model.User{ID: "u1"})
	f.createPurchase(t, &model.Purchase{UserID: "u1", SubjectID: "air-law", ExpiresAt: testNow.Add(time.Hour)})

	decision := f.svc.CanAccessSubject(context.Background(), "u1", "air-law")
	require.True(t, decision.Granted)
	assert.Equal(t, GrantPurchase, decision.Source)
	require.NotNil(t, decision.ExpiresAt)
	assert.WithinDuration(t, testNow.Add(time.Hour), *decision.ExpiresAt, time.Second)
}

func TestExpiredPurchaseDenies(t *testing.T) {
	f := newEntitlementFixture(t)
	createUser(t, f.db, &model.User{ID: "u1"})
	f.createPurchase(t, &model.Purchase{UserID: "u1", SubjectID: "air-law", ExpiresAt: testNow.Add(-time.Second)})

	assert.False(t, f.svc.CanAccessSubject(context.Background(), "u1", "air-law").Granted)
}

func TestAdminOverrideReportsItsSource(t *testing.T) {
	f := newEntitlementFixture(t)
	createUser(t, f.db, &model.User{ID: "u1"})
	f.createPurchase(t, &model.Purchase{
		UserID: "u1", SubjectID: "navigation", Type: model.PurchaseAdmin,
		OriginTransactionID: model.OriginAdmin, ExpiresAt: testNow.Add(time.Hour),
	})

	decision := f.svc.CanAccessSubject(context.Background(), "u1", "navigation")
	require.True(t, decision.Granted)
	assert.Equal(t, GrantAdmin, decision.Source)
}

func TestAddonFlagIsPerSubject(t *testing.T) {
	f := newEntitlementFixture(t)
	createUser(t, f.db, &model.User{ID: "u1"})
	// ai-insights on air-law only
	f.createPurchase(t, &model.Purchase{UserID: "u1", SubjectID: "air-law", HasAiInsights: true, ExpiresAt: testNow.Add(time.Hour)})
	f.createPurchase(t, &model.Purchase{UserID: "u1", SubjectID: "meteorology", ExpiresAt: testNow.Add(time.Hour)})

	assert.True(t, f.svc.CanUseAddon(context.Background(), "u1", "air-law", AddonAiInsights))
	assert.False(t, f.svc.CanUseAddon(context.Background(), "u1", "meteorology", AddonAiInsights),
		"flags on other purchases must not carry over")
}

func TestBundleUnlocksAddons(t *testing.T) {
	f := newEntitlementFixture(t)
	createUser(t, f.db, &model.User{ID: "u1", HasBundle: true, BundleExpiry: timePtr(testNow.Add(time.Hour))})

	assert.True(t, f.svc.CanUseAddon(context.Background(), "u1", "meteorology", AddonPrinting))
}

func TestForumParticipationNeedsActivePurchase(t *testing.T) {
	f := newEntitlementFixture(t)
	createUser(t, f.db, &model.User{ID: "buyer"})
	createUser(t, f.db, &model.User{ID: "lapsed"})
	f.createPurchase(t, &model.Purchase{UserID: "buyer", SubjectID: "air-law", ExpiresAt: testNow.Add(time.Hour)})
	f.createPurchase(t, &model.Purchase{UserID: "lapsed", SubjectID: "air-law", ExpiresAt: testNow.Add(-time.Hour)})

	assert.True(t, f.svc.CanParticipateInForum(context.Background(), "buyer"))
	assert.False(t, f.svc.CanParticipateInForum(context.Background(), "lapsed"))
}

func TestSuspensionAlwaysDenies(t *testing.T) {
	f := newEntitlementFixture(t)
	createUser(t, f.db, &model.User{
		ID: "u1", Suspended: true,
		HasBundle: true, BundleExpiry: timePtr(testNow.Add(time.Hour)),
	})
	f.createPurchase(t, &model.Purchase{UserID: "u1", SubjectID: "air-law", ExpiresAt: testNow.Add(time.Hour)})

	assert.False(t, f.svc.CanParticipateInForum(context.Background(), "u1"))
}

func TestProtectedForumAdminsOnly(t *testing.T) {
	f := newEntitlementFixture(t)
	createUser(t, f.db, &model.User{ID: "buyer"})
	f.createPurchase(t, &model.Purchase{UserID: "buyer", SubjectID: "air-law", ExpiresAt: testNow.Add(time.Hour)})

	buyer := auth.Identity{UserID: "buyer", Role: auth.RoleUser}
	admin := auth.Identity{UserID: "staff", Role: auth.RoleAdmin}

	// "announcements" is seeded protected
	assert.False(t, f.svc.CanPostInForum(context.Background(), buyer, "announcements"),
		"active purchase must not override forum protection")
	assert.True(t, f.svc.CanPostInForum(context.Background(), admin, "announcements"))

	assert.True(t, f.svc.CanPostInForum(context.Background(), buyer, "general"))
}

func TestUnknownUserDenied(t *testing.T) {
	f := newEntitlementFixture(t)

	assert.False(t, f.svc.CanAccessSubject(context.Background(), "ghost", "air-law").Granted)
	assert.False(t, f.svc.CanParticipateInForum(context.Background(), "ghost"))
}
