package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db}
}

// Create inserts the exam together with its subject allocations
func (e *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	err := e.db.WithContext(ctx).Omit("Questions", "Branch").Create(exam).Error
	return translateError(err, "exam", exam.Title)
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).Preload("SubjectsIncluded").First(&exam, id).Error; err != nil {
		return nil, translateError(err, "exam", id)
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := e.db.WithContext(ctx).
		Preload("SubjectsIncluded").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_questions.position ASC")
		}).
		Preload("Questions.Question").
		Preload("Questions.Question.Subject").
		Preload("Branch").
		First(&exam, id).Error
	if err != nil {
		return nil, translateError(err, "exam", id)
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) List(ctx context.Context, filters models.ExamFilters) ([]*models.Exam, int64, error) {
	var exams []*models.Exam
	var total int64

	query := e.db.WithContext(ctx).Model(&models.Exam{})
	if filters.ClassLevel != nil {
		query = query.Where("class_level = ?", *filters.ClassLevel)
	}
	if filters.BranchID != nil {
		query = query.Where("branch_id = ?", *filters.BranchID)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "exam", "list")
	}
	err := paginate(query, filters.Limit, filters.Offset).
		Preload("SubjectsIncluded").
		Order("exam_date DESC, id DESC").
		Find(&exams).Error
	if err != nil {
		return nil, 0, translateError(err, "exam", "list")
	}
	return exams, total, nil
}

func (e *ExamPostgreSQL) ListForLearner(ctx context.Context, filter models.LearnerExamFilter) ([]*models.Exam, error) {
	var exams []*models.Exam
	query := e.db.WithContext(ctx).
		Where("class_level = ? AND branch_id = ? AND exam_date <= ?", filter.ClassLevel, filter.BranchID, filter.Now)
	if filter.Specialization != nil {
		query = query.Where("specialization IS NULL OR specialization = ?", *filter.Specialization)
	} else {
		query = query.Where("specialization IS NULL")
	}
	if err := query.Preload("SubjectsIncluded").Order("exam_date DESC").Find(&exams).Error; err != nil {
		return nil, translateError(err, "exam", "learner list")
	}
	return exams, nil
}

func (e *ExamPostgreSQL) Update(ctx context.Context, exam *models.Exam) error {
	err := e.db.WithContext(ctx).
		Model(exam).
		Select("title", "duration_minutes", "exam_date", "specialization", "updated_at").
		Updates(exam).Error
	return translateError(err, "exam", exam.ID)
}

// Delete removes the exam and its links. Results keep their exam_id.
func (e *ExamPostgreSQL) Delete(ctx context.Context, id uint) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", id).Delete(&models.ExamQuestion{}).Error; err != nil {
			return translateError(err, "exam", id)
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.ExamSubject{}).Error; err != nil {
			return translateError(err, "exam", id)
		}
		result := tx.Delete(&models.Exam{}, id)
		if result.Error != nil {
			return translateError(result.Error, "exam", id)
		}
		if result.RowsAffected == 0 {
			return repositories.NewNotFoundError("exam", id)
		}
		return nil
	})
}

func (e *ExamPostgreSQL) SetQuestions(ctx context.Context, examID uint, questionIDs []uint) (int, error) {
	links := make([]models.ExamQuestion, 0, len(questionIDs))
	seen := make(map[uint]bool, len(questionIDs))
	for _, id := range questionIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		links = append(links, models.ExamQuestion{ExamID: examID, QuestionID: id, Position: len(links) + 1})
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", examID).Delete(&models.ExamQuestion{}).Error; err != nil {
			return err
		}
		if len(links) > 0 {
			if err := tx.Omit("Question").Create(&links).Error; err != nil {
				return err
			}
		}
		result := tx.Model(&models.Exam{}).Where("id = ?", examID).Update("total_questions_count", len(links))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repositories.NewNotFoundError("exam", examID)
		}
		return nil
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to link questions to exam %d: %w", examID, err)
	}
	return len(links), nil
}

func (e *ExamPostgreSQL) GetQuestions(ctx context.Context, examID uint) ([]*models.Question, error) {
	var questions []*models.Question
	err := e.db.WithContext(ctx).
		Joins("JOIN exam_questions ON exam_questions.question_id = questions.id").
		Where("exam_questions.exam_id = ?", examID).
		Order("exam_questions.position ASC").
		Preload("Subject").
		Find(&questions).Error
	if err != nil {
		return nil, translateError(err, "exam questions", examID)
	}
	return questions, nil
}
