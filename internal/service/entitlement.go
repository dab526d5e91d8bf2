package service

import (
	"context"
	"errors"
	"time"

	"examprep-billing/internal/auth"
	"examprep-billing/internal/logger"
	"examprep-billing/internal/model"
	"examprep-billing/internal/repository"

	"gorm.io/gorm"
)

type GrantSource string

const (
	GrantNone     GrantSource = "none"
	GrantBundle   GrantSource = "bundle"
	GrantPurchase GrantSource = "purchase"
	GrantAdmin    GrantSource = "admin-override"
)

// Decision is the resolver's answer: whether access is granted, which grant
// controls it, and when that grant runs out.
type Decision struct {
	Granted   bool
	Source    GrantSource
	Purchase  *model.Purchase
	ExpiresAt *time.Time
}

var denied = Decision{Source: GrantNone}

type Addon string

const (
	AddonPrinting   Addon = "printing"
	AddonAiInsights Addon = "aiInsights"
)

type EntitlementService interface {
	CanAccessSubject(ctx context.Context, userID, subjectID string) Decision
	CanUseAddon(ctx context.Context, userID, subjectID string, addon Addon) bool
	CanParticipateInForum(ctx context.Context, userID string) bool
	CanPostInForum(ctx context.Context, identity auth.Identity, forumID string) bool
}

type entitlementServiceImpl struct {
	purchaseRepo repository.PurchaseRepository
	userRepo     repository.UserRepository
	forumRepo    repository.ForumRepository
	now          func() time.Time
}

func NewEntitlementService(purchaseRepo repository.PurchaseRepository, userRepo repository.UserRepository, forumRepo repository.ForumRepository, now func() time.Time) EntitlementService {
	if now == nil {
		now = time.Now
	}
	return &entitlementServiceImpl{
		purchaseRepo: purchaseRepo,
		userRepo:     userRepo,
		forumRepo:    forumRepo,
		now:          now,
	}
}

// CanAccessSubject checks the bundle first, then the per-subject purchase.
// Any lookup failure resolves to denied; the resolver never fails open.
func (s *entitlementServiceImpl) CanAccessSubject(ctx context.Context, userID, subjectID string) Decision {
	now := s.now()

	if user, err := s.userRepo.FindByID(ctx, userID); err == nil {
		if bundleActive(user, now) {
			return Decision{Granted: true, Source: GrantBundle, ExpiresAt: user.BundleExpiry}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.FromContext(ctx).Error("user lookup failed, denying", "error", err)
		return denied
	}

	purchase, err := s.purchaseRepo.FindActiveByUserAndSubject(ctx, userID, subjectID, now)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.FromContext(ctx).Error("purchase lookup failed, denying", "error", err)
		}
		return denied
	}

	source := GrantPurchase
	if purchase.Type == model.PurchaseAdmin {
		source = GrantAdmin
	}

	expiry := purchase.ExpiresAt
	return Decision{Granted: true, Source: source, Purchase: purchase, ExpiresAt: &expiry}
}

// CanUseAddon requires the flag on that subject's own purchase; flags on
// other purchases do not carry over. An active bundle unlocks all addons.
func (s *entitlementServiceImpl) CanUseAddon(ctx context.Context, userID, subjectID string, addon Addon) bool {
	now := s.now()

	if user, err := s.userRepo.FindByID(ctx, userID); err == nil && bundleActive(user, now) {
		return true
	}

	purchase, err := s.purchaseRepo.FindActiveByUserAndSubject(ctx, userID, subjectID, now)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.FromContext(ctx).Error("purchase lookup failed, denying", "error", err)
		}
		return false
	}

	switch addon {
	case AddonPrinting:
		return purchase.HasPrinting
	case AddonAiInsights:
		return purchase.HasAiInsights
	default:
		return false
	}
}

// CanParticipateInForum requires at least one live grant and no suspension.
// Suspension always wins, whatever the user paid for.
func (s *entitlementServiceImpl) CanParticipateInForum(ctx context.Context, userID string) bool {
	now := s.now()

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.FromContext(ctx).Error("user lookup failed, denying", "error", err)
		}
		return false
	}
	if user.Suspended {
		return false
	}
	if bundleActive(user, now) {
		return true
	}

	count, err := s.purchaseRepo.CountActiveByUser(ctx, userID, now)
	if err != nil {
		logger.FromContext(ctx).Error("purchase count failed, denying", "error", err)
		return false
	}

	return count > 0
}

// CanPostInForum layers the protected-forum rule on top: protected forums
// take posts from administrators only, regardless of purchase state.
func (s *entitlementServiceImpl) CanPostInForum(ctx context.Context, identity auth.Identity, forumID string) bool {
	forum, err := s.forumRepo.FindByID(ctx, forumID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.FromContext(ctx).Error("forum lookup failed, denying", "error", err)
		}
		return false
	}

	if forum.Protected {
		return identity.IsAdmin()
	}
	if identity.IsAdmin() {
		return true
	}

	return s.CanParticipateInForum(ctx, identity.UserID)
}

func bundleActive(user *model.User, now time.Time) bool {
	return user.HasBundle && user.BundleExpiry != nil && user.BundleExpiry.After(now)
}
