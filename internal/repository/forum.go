package repository

import (
	"context"

	"examprep-billing/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ForumRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, forumID string) (*model.Forum, error)
}

type forumRepoImpl struct {
	db *gorm.DB
}

func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepoImpl{
		db: db,
	}
}

func (r *forumRepoImpl) Seed(ctx context.Context) error {
	forums := []model.Forum{
		{ID: "general", Name: "General Discussion"},
		{ID: "exam-tips", Name: "Exam Tips"},
		{ID: "announcements", Name: "Announcements", Protected: true},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&forums).Error
}

func (r *forumRepoImpl) FindByID(ctx context.Context, forumID string) (*model.Forum, error) {
	var forum model.Forum
	err := r.db.WithContext(ctx).
		Where("id = ?", forumID).
		First(&forum).Error

	if err != nil {
		return nil, err
	}

	return &forum, nil
}
