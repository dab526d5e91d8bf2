package repository

import (
	"context"

	"examprep-billing/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, itemID string) (*model.CatalogItem, error)
	FindMany(ctx context.Context, itemIDs []string) ([]*model.CatalogItem, error)
	All(ctx context.Context) ([]*model.CatalogItem, error)
}

type catalogRepoImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepoImpl{
		db: db,
	}
}

func (r *catalogRepoImpl) Seed(ctx context.Context) error {
	items := []model.CatalogItem{
		{ID: "air-law", Kind: model.KindSubject, Name: "Air Law", PriceMinorUnits: 4900, Currency: "AUD", TermDays: 365},
		{ID: "meteorology", Kind: model.KindSubject, Name: "Meteorology", PriceMinorUnits: 4900, Currency: "AUD", TermDays: 365},
		{ID: "navigation", Kind: model.KindSubject, Name: "Navigation", PriceMinorUnits: 4900, Currency: "AUD", TermDays: 365},
		{ID: "human-factors", Kind: model.KindSubject, Name: "Human Factors", PriceMinorUnits: 4900, Currency: "AUD", TermDays: 365},
		{ID: "full-access", Kind: model.KindBundle, Name: "Full Access Bundle", PriceMinorUnits: 19900, Currency: "AUD", Recurring: true, TermDays: 365},
		{ID: "printing", Kind: model.KindAddon, Name: "Printable Materials", PriceMinorUnits: 990, Currency: "AUD", Feature: model.FeaturePrinting, TermDays: 365},
		{ID: "ai-insights", Kind: model.KindAddon, Name: "AI Insights", PriceMinorUnits: 1490, Currency: "AUD", Feature: model.FeatureAiInsights, TermDays: 365},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&items).Error
}

func (r *catalogRepoImpl) FindByID(ctx context.Context, itemID string) (*model.CatalogItem, error) {
	var item model.CatalogItem
	err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error

	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *catalogRepoImpl) FindMany(ctx context.Context, itemIDs []string) ([]*model.CatalogItem, error) {
	var items []*model.CatalogItem
	err := r.db.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&items).
		Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *catalogRepoImpl) All(ctx context.Context) ([]*model.CatalogItem, error) {
	var items []*model.CatalogItem
	err := r.db.WithContext(ctx).Find(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}
