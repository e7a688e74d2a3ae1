package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

// GetOrCreate relies on the (learner_id, exam_id) unique index: a losing
// concurrent insert does nothing and the winner's row is read back.
func (s *SessionPostgreSQL) GetOrCreate(ctx context.Context, session *models.ExamSession) (*models.ExamSession, bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "exam_id"}},
			DoNothing: true,
		}).
		Create(session)
	if result.Error != nil {
		return nil, false, translateError(result.Error, "exam session", session.ExamID)
	}
	if result.RowsAffected == 1 {
		return session, true, nil
	}

	existing, err := s.GetByLearnerAndExam(ctx, session.LearnerID, session.ExamID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *SessionPostgreSQL) GetByLearnerAndExam(ctx context.Context, learnerID, examID uint) (*models.ExamSession, error) {
	var session models.ExamSession
	err := s.db.WithContext(ctx).
		Where("learner_id = ? AND exam_id = ?", learnerID, examID).
		First(&session).Error
	if err != nil {
		return nil, translateError(err, "exam session", examID)
	}
	return &session, nil
}

func (s *SessionPostgreSQL) MarkSubmitted(ctx context.Context, id uint, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("id = ? AND status = ?", id, models.SessionInProgress).
		Updates(map[string]interface{}{
			"status":       models.SessionSubmitted,
			"submitted_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return translateError(result.Error, "exam session", id)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrStaleState
	}
	return nil
}
