package repository

import (
	"context"
	"strings"
	"time"

	"examprep-billing/internal/model"

	"gorm.io/gorm"
)

type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	Create(ctx context.Context, coupon *model.Coupon) error
	// IncrementUsage is a single atomic UPDATE, never read-modify-write.
	IncrementUsage(ctx context.Context, tx *gorm.DB, code string) error
}

type couponRepoImpl struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepoImpl{
		db: db,
	}
}

func (r *couponRepoImpl) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&coupon).Error

	if err != nil {
		return nil, err
	}

	return &coupon, nil
}

func (r *couponRepoImpl) Create(ctx context.Context, coupon *model.Coupon) error {
	coupon.Code = strings.ToUpper(coupon.Code)
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *couponRepoImpl) IncrementUsage(ctx context.Context, tx *gorm.DB, code string) error {
	return tx.WithContext(ctx).Model(&model.Coupon{}).
		Where("code = ?", strings.ToUpper(code)).
		Updates(map[string]interface{}{
			"used_count": gorm.Expr("used_count + ?", 1),
			"updated_at": time.Now(),
		}).Error
}
