package repository

import (
	"context"
	"errors"
	"time"

	"examprep-billing/internal/model"

	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(ctx context.Context, userID string) (*model.User, error)
	FindOrCreateByProviderID(ctx context.Context, tx *gorm.DB, providerCustomerID, email string) (*model.User, error)
	SetProviderCustomerID(ctx context.Context, tx *gorm.DB, userID, providerCustomerID string) error
	GrantBundle(ctx context.Context, tx *gorm.DB, userID string, expiry time.Time) error
	RevokeBundle(ctx context.Context, userID string, now time.Time) error
}

type userRepoImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepoImpl{
		db: db,
	}
}

func (r *userRepoImpl) FindByID(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("id = ?", userID).
		First(&user).Error

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindOrCreateByProviderID resolves the local user for a provider payer
// reference, provisioning one for anonymous checkouts.
func (r *userRepoImpl) FindOrCreateByProviderID(ctx context.Context, tx *gorm.DB, providerCustomerID, email string) (*model.User, error) {
	var user model.User
	err := tx.WithContext(ctx).
		Where("provider_customer_id = ?", providerCustomerID).
		First(&user).Error

	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = model.User{
		ID:                 providerCustomerID,
		Email:              email,
		Role:               "user",
		ProviderCustomerID: providerCustomerID,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepoImpl) SetProviderCustomerID(ctx context.Context, tx *gorm.DB, userID, providerCustomerID string) error {
	return tx.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND (provider_customer_id = '' OR provider_customer_id IS NULL)", userID).
		Update("provider_customer_id", providerCustomerID).
		Error
}

// GrantBundle sets the bundle fields, keeping expiry monotonic so a racing
// renewal can never shorten an existing grant.
func (r *userRepoImpl) GrantBundle(ctx context.Context, tx *gorm.DB, userID string, expiry time.Time) error {
	result := tx.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Where("bundle_expiry IS NULL OR bundle_expiry < ?", expiry).
		Updates(map[string]interface{}{
			"has_bundle":    true,
			"bundle_expiry": expiry,
			"updated_at":    time.Now(),
		})

	return result.Error
}

func (r *userRepoImpl) RevokeBundle(ctx context.Context, userID string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"has_bundle":    false,
			"bundle_expiry": now,
			"updated_at":    time.Now(),
		}).Error
}
