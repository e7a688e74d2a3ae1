package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

// Create writes the result and its answers in one statement batch
func (r *ResultPostgreSQL) Create(ctx context.Context, result *models.Result) error {
	err := r.db.WithContext(ctx).Omit("Exam", "Learner").Create(result).Error
	return translateError(err, "result", result.ExamID)
}

func (r *ResultPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Result, error) {
	var result models.Result
	err := r.db.WithContext(ctx).
		Preload("Answers").
		Preload("Exam").
		First(&result, id).Error
	if err != nil {
		return nil, translateError(err, "result", id)
	}
	return &result, nil
}

func (r *ResultPostgreSQL) ListByLearner(ctx context.Context, learnerID uint) ([]*models.Result, error) {
	var results []*models.Result
	err := r.db.WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Preload("Exam").
		Order("submitted_at DESC, id DESC").
		Find(&results).Error
	if err != nil {
		return nil, translateError(err, "result", learnerID)
	}
	return results, nil
}

func (r *ResultPostgreSQL) ListByExam(ctx context.Context, examID uint) ([]*models.Result, error) {
	var results []*models.Result
	err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Preload("Learner").
		Order("percentage DESC, submitted_at ASC").
		Find(&results).Error
	if err != nil {
		return nil, translateError(err, "result", examID)
	}
	return results, nil
}

func (r *ResultPostgreSQL) ExistsForLearnerExam(ctx context.Context, learnerID, examID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Result{}).
		Where("learner_id = ? AND exam_id = ?", learnerID, examID).
		Count(&count).Error
	return count > 0, translateError(err, "result", examID)
}
