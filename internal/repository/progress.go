package repository

import (
	"context"
	"errors"
	"time"

	"examprep-billing/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository interface {
	RecordAttempts(ctx context.Context, userID, subjectID string, answered, correct int64) error
	Get(ctx context.Context, userID, subjectID string) (*model.SubjectProgress, error)
}

type progressRepoImpl struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepoImpl{
		db: db,
	}
}

func (r *progressRepoImpl) RecordAttempts(ctx context.Context, userID, subjectID string, answered, correct int64) error {
	progress := &model.SubjectProgress{
		UserID:          userID,
		SubjectID:       subjectID,
		CorrectAnswered: correct,
		TotalAttempted:  answered,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "subject_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"correct_answered": gorm.Expr("subject_progresses.correct_answered + ?", correct),
			"total_attempted":  gorm.Expr("subject_progresses.total_attempted + ?", answered),
			"updated_at":       time.Now(),
		}),
	}).Create(progress).Error
}

func (r *progressRepoImpl) Get(ctx context.Context, userID, subjectID string) (*model.SubjectProgress, error) {
	var progress model.SubjectProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		First(&progress).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.SubjectProgress{UserID: userID, SubjectID: subjectID}, nil
	}
	if err != nil {
		return nil, err
	}

	return &progress, nil
}
