package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	return translateError(q.db.WithContext(ctx).Omit("Subject").Create(question).Error, "question", question.SubjectID)
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return translateError(q.db.WithContext(ctx).Omit("Subject").CreateInBatches(questions, 100).Error, "question", len(questions))
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).Preload("Subject").First(&question, id).Error; err != nil {
		return nil, translateError(err, "question", id)
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	var questions []*models.Question
	if len(ids) == 0 {
		return questions, nil
	}
	if err := q.db.WithContext(ctx).Preload("Subject").Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, translateError(err, "question", ids)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) List(ctx context.Context, filters models.QuestionFilters) ([]*models.Question, int64, error) {
	var questions []*models.Question
	var total int64

	query := q.db.WithContext(ctx).Model(&models.Question{})
	if filters.SubjectID != nil {
		query = query.Where("subject_id = ?", *filters.SubjectID)
	}
	if filters.ClassLevel != nil {
		query = query.Where("class_level = ?", *filters.ClassLevel)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.Search != "" {
		query = query.Where("text ILIKE ?", likePattern(filters.Search))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "question", "list")
	}
	if err := paginate(query, filters.Limit, filters.Offset).Preload("Subject").Order("id DESC").Find(&questions).Error; err != nil {
		return nil, 0, translateError(err, "question", "list")
	}
	return questions, total, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	err := q.db.WithContext(ctx).Omit("Subject", "created_at", "created_by").Save(question).Error
	return translateError(err, "question", question.ID)
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := q.db.WithContext(ctx).Delete(&models.Question{}, id)
	if result.Error != nil {
		return translateError(result.Error, "question", id)
	}
	if result.RowsAffected == 0 {
		return repositories.NewNotFoundError("question", id)
	}
	return nil
}

func (q *QuestionPostgreSQL) IsUsedInExams(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&models.ExamQuestion{}).Where("question_id = ?", id).Count(&count).Error
	return count > 0, translateError(err, "question", id)
}
