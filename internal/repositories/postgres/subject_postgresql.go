package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type SubjectPostgreSQL struct {
	db *gorm.DB
}

func NewSubjectPostgreSQL(db *gorm.DB) repositories.SubjectRepository {
	return &SubjectPostgreSQL{db: db}
}

func (s *SubjectPostgreSQL) Create(ctx context.Context, subject *models.Subject) error {
	return translateError(s.db.WithContext(ctx).Create(subject).Error, "subject", subject.Name)
}

func (s *SubjectPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Subject, error) {
	var subject models.Subject
	if err := s.db.WithContext(ctx).First(&subject, id).Error; err != nil {
		return nil, translateError(err, "subject", id)
	}
	return &subject, nil
}

func (s *SubjectPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Subject, error) {
	var subjects []*models.Subject
	if len(ids) == 0 {
		return subjects, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&subjects).Error; err != nil {
		return nil, translateError(err, "subject", ids)
	}
	return subjects, nil
}

func (s *SubjectPostgreSQL) List(ctx context.Context, classLevel *string) ([]*models.Subject, error) {
	var subjects []*models.Subject
	query := s.db.WithContext(ctx).Order("class_level ASC, name ASC")
	if classLevel != nil {
		query = query.Where("class_level = ?", *classLevel)
	}
	if err := query.Find(&subjects).Error; err != nil {
		return nil, translateError(err, "subject", "list")
	}
	return subjects, nil
}

func (s *SubjectPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Subject{}, id)
	if result.Error != nil {
		return translateError(result.Error, "subject", id)
	}
	if result.RowsAffected == 0 {
		return repositories.NewNotFoundError("subject", id)
	}
	return nil
}

func (s *SubjectPostgreSQL) ExistsByNameAndClass(ctx context.Context, name, classLevel string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subject{}).
		Where("LOWER(name) = LOWER(?) AND class_level = ?", name, classLevel).
		Count(&count).Error
	return count > 0, translateError(err, "subject", name)
}

func (s *SubjectPostgreSQL) IsInUse(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Question{}).Where("subject_id = ?", id).Count(&count).Error; err != nil {
		return false, translateError(err, "subject", id)
	}
	if count > 0 {
		return true, nil
	}
	err := s.db.WithContext(ctx).Model(&models.ExamSubject{}).Where("subject_id = ?", id).Count(&count).Error
	return count > 0, translateError(err, "subject", id)
}
