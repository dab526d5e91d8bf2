package repository

import (
	"context"
	"time"

	"examprep-billing/internal/model"

	"gorm.io/gorm"
)

type PurchaseRepository interface {
	FindByID(ctx context.Context, purchaseID string) (*model.Purchase, error)
	FindByUserAndSubject(ctx context.Context, tx *gorm.DB, userID, subjectID string) (*model.Purchase, error)
	FindActiveByUserAndSubject(ctx context.Context, userID, subjectID string, now time.Time) (*model.Purchase, error)
	FindByUser(ctx context.Context, userID string) ([]*model.Purchase, error)
	CountActiveByUser(ctx context.Context, userID string, now time.Time) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, purchase *model.Purchase) error
	UpdateConditional(ctx context.Context, tx *gorm.DB, purchase *model.Purchase, observedExpiry time.Time) (bool, error)
	SetExpiry(ctx context.Context, purchaseID string, expiresAt time.Time) error
	RevenueBySubject(ctx context.Context) (map[string]int64, error)
}

type purchaseRepoImpl struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepoImpl{
		db: db,
	}
}

func (r *purchaseRepoImpl) FindByID(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	var purchase model.Purchase
	err := r.db.WithContext(ctx).
		Where("id = ?", purchaseID).
		First(&purchase).Error

	if err != nil {
		return nil, err
	}

	return &purchase, nil
}

func (r *purchaseRepoImpl) FindByUserAndSubject(ctx context.Context, tx *gorm.DB, userID, subjectID string) (*model.Purchase, error) {
	var purchase model.Purchase
	err := tx.WithContext(ctx).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		First(&purchase).Error

	if err != nil {
		return nil, err
	}

	return &purchase, nil
}

func (r *purchaseRepoImpl) FindActiveByUserAndSubject(ctx context.Context, userID, subjectID string, now time.Time) (*model.Purchase, error) {
	var purchase model.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND subject_id = ? AND expires_at > ?", userID, subjectID, now).
		First(&purchase).Error

	if err != nil {
		return nil, err
	}

	return &purchase, nil
}

func (r *purchaseRepoImpl) FindByUser(ctx context.Context, userID string) ([]*model.Purchase, error) {
	var purchases []*model.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&purchases).Error

	if err != nil {
		return nil, err
	}

	return purchases, nil
}

func (r *purchaseRepoImpl) CountActiveByUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Purchase{}).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Count(&count).Error

	return count, err
}

func (r *purchaseRepoImpl) Create(ctx context.Context, tx *gorm.DB, purchase *model.Purchase) error {
	return tx.WithContext(ctx).Create(purchase).Error
}

// UpdateConditional writes the merged row only if expires_at still matches
// what the caller read. Returns false when the row moved underneath us.
func (r *purchaseRepoImpl) UpdateConditional(ctx context.Context, tx *gorm.DB, purchase *model.Purchase, observedExpiry time.Time) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Purchase{}).
		Where("id = ? AND expires_at = ?", purchase.ID, observedExpiry).
		Updates(map[string]interface{}{
			"type":                  purchase.Type,
			"price_minor_units":     purchase.PriceMinorUnits,
			"has_printing":          purchase.HasPrinting,
			"has_ai_insights":       purchase.HasAiInsights,
			"expires_at":            purchase.ExpiresAt,
			"origin_transaction_id": purchase.OriginTransactionID,
			"updated_at":            time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *purchaseRepoImpl) SetExpiry(ctx context.Context, purchaseID string, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Purchase{}).
		Where("id = ?", purchaseID).
		Updates(map[string]interface{}{
			"expires_at": expiresAt,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// RevenueBySubject sums prices actually paid. Admin grants carry price 0 and
// a distinguished type; they are excluded so revenue reflects real payments.
func (r *purchaseRepoImpl) RevenueBySubject(ctx context.Context) (map[string]int64, error) {
	type row struct {
		SubjectID string
		Total     int64
	}

	var rows []row
	err := r.db.WithContext(ctx).Model(&model.Purchase{}).
		Select("subject_id, SUM(price_minor_units) AS total").
		Where("type <> ?", model.PurchaseAdmin).
		Group("subject_id").
		Scan(&rows).Error

	if err != nil {
		return nil, err
	}

	revenue := make(map[string]int64, len(rows))
	for _, r := range rows {
		revenue[r.SubjectID] = r.Total
	}

	return revenue, nil
}
