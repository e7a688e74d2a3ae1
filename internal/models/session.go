package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionSubmitted  SessionStatus = "submitted"
)

// ExamSession anchors the exam clock on the server for one (learner, exam).
type ExamSession struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	LearnerID   uint          `json:"learner_id" gorm:"not null;uniqueIndex:idx_session_learner_exam"`
	ExamID      uint          `json:"exam_id" gorm:"not null;uniqueIndex:idx_session_learner_exam"`
	Status      SessionStatus `json:"status" gorm:"not null;default:in_progress;size:20;index"`
	StartedAt   time.Time     `json:"started_at" gorm:"not null"`
	Deadline    time.Time     `json:"deadline" gorm:"not null"`
	SubmittedAt *time.Time    `json:"submitted_at"`

	IPAddress *string        `json:"ip_address" gorm:"size:45"`
	UserAgent *string        `json:"user_agent" gorm:"type:text"`
	Metadata  datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ExamSession) TableName() string {
	return "exam_sessions"
}

// RemainingAt returns the time left before the deadline, never negative
func (s *ExamSession) RemainingAt(now time.Time) time.Duration {
	if !now.Before(s.Deadline) {
		return 0
	}
	return s.Deadline.Sub(now)
}

// Result is written once per submission and never updated.
type Result struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	LearnerID      uint      `json:"learner_id" gorm:"not null;uniqueIndex:idx_result_learner_exam"`
	ExamID         uint      `json:"exam_id" gorm:"not null;uniqueIndex:idx_result_learner_exam;index"`
	Score          int       `json:"score" gorm:"not null"`
	TotalQuestions int       `json:"total_questions" gorm:"not null"`
	Percentage     float64   `json:"percentage" gorm:"not null"`
	SubmittedAt    time.Time `json:"submitted_at" gorm:"not null;index"`
	CreatedAt      time.Time `json:"created_at"`

	Answers []ResultAnswer `json:"answers" gorm:"foreignKey:ResultID"`
	Exam    *Exam          `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Learner *Account       `json:"learner,omitempty" gorm:"foreignKey:LearnerID"`
}

func (Result) TableName() string {
	return "results"
}

type ResultAnswer struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	ResultID       uint   `json:"result_id" gorm:"not null;index"`
	QuestionID     uint   `json:"question_id" gorm:"not null"`
	SelectedOption string `json:"selected_option" gorm:"size:5"`
	IsCorrect      bool   `json:"is_correct" gorm:"not null"`
}

func (ResultAnswer) TableName() string {
	return "result_answers"
}
