package repository

import (
	"context"

	"examprep-billing/internal/model"

	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *model.CheckoutSession) error
	CreateLineItems(ctx context.Context, tx *gorm.DB, items []*model.SessionLineItem) error
	FindByID(ctx context.Context, sessionID string) (*model.CheckoutSession, error)
	FindByIdempotencyKey(ctx context.Context, idempotencyKey string) (*model.CheckoutSession, error)
	GetLineItems(ctx context.Context, tx *gorm.DB, sessionID string) ([]*model.SessionLineItem, error)
	MarkConfirmed(ctx context.Context, tx *gorm.DB, sessionID string) error
}

type sessionRepoImpl struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepoImpl{
		db: db,
	}
}

func (r *sessionRepoImpl) Create(ctx context.Context, tx *gorm.DB, session *model.CheckoutSession) error {
	return tx.WithContext(ctx).Create(session).Error
}

func (r *sessionRepoImpl) CreateLineItems(ctx context.Context, tx *gorm.DB, items []*model.SessionLineItem) error {
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *sessionRepoImpl) FindByID(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	var session model.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("id = ?", sessionID).
		First(&session).Error

	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *sessionRepoImpl) FindByIdempotencyKey(ctx context.Context, idempotencyKey string) (*model.CheckoutSession, error) {
	var session model.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", idempotencyKey).
		First(&session).Error

	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *sessionRepoImpl) GetLineItems(ctx context.Context, tx *gorm.DB, sessionID string) ([]*model.SessionLineItem, error) {
	var items []*model.SessionLineItem
	err := tx.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *sessionRepoImpl) MarkConfirmed(ctx context.Context, tx *gorm.DB, sessionID string) error {
	return tx.WithContext(ctx).Model(&model.CheckoutSession{}).
		Where("id = ? AND status = ?", sessionID, model.SessionCreated).
		Update("status", model.SessionConfirmed).
		Error
}
