package repository

import (
	"context"
	"time"

	"examprep-billing/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository interface {
	Exists(ctx context.Context, tx *gorm.DB, transactionID string) (bool, error)
	// MarkProcessed inserts the id; the primary key makes a racing duplicate
	// fail with a constraint error instead of double-fulfilling.
	MarkProcessed(ctx context.Context, tx *gorm.DB, transactionID, sessionID string) error
}

type transactionRepoImpl struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepoImpl{
		db: db,
	}
}

func (r *transactionRepoImpl) Exists(ctx context.Context, tx *gorm.DB, transactionID string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.ProcessedTransaction{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error

	return count > 0, err
}

func (r *transactionRepoImpl) MarkProcessed(ctx context.Context, tx *gorm.DB, transactionID, sessionID string) error {
	return tx.WithContext(ctx).Create(&model.ProcessedTransaction{
		TransactionID: transactionID,
		SessionID:     sessionID,
		ProcessedAt:   time.Now(),
	}).Error
}
