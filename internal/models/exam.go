package models

import (
	"time"

	"gorm.io/gorm"
)

type Exam struct {
	ID                  uint            `json:"id" gorm:"primaryKey"`
	Title               string          `json:"title" gorm:"not null;size:200;index"`
	ClassLevel          string          `json:"class_level" gorm:"not null;size:20;index"`
	DurationMinutes     int             `json:"duration" gorm:"not null"`
	ExamDate            time.Time       `json:"exam_date" gorm:"not null;index"`
	BranchID            uint            `json:"branch_id" gorm:"not null;index"`
	Specialization      *Specialization `json:"specialization" gorm:"size:20"`
	TotalQuestionsCount int             `json:"total_questions_count" gorm:"not null;default:0"`

	CreatedBy uint           `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	SubjectsIncluded []ExamSubject  `json:"subjects_included" gorm:"foreignKey:ExamID"`
	Questions        []ExamQuestion `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
	Branch           *Branch        `json:"branch,omitempty" gorm:"foreignKey:BranchID"`
}

func (Exam) TableName() string {
	return "exams"
}

// Duration returns the exam time limit
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// ExamSubject is a planning allocation; it does not constrain linked questions.
type ExamSubject struct {
	ID                uint   `json:"id" gorm:"primaryKey"`
	ExamID            uint   `json:"exam_id" gorm:"not null;index"`
	SubjectID         uint   `json:"subject_id" gorm:"not null"`
	SubjectName       string `json:"subject_name" gorm:"not null;size:100"`
	NumberOfQuestions int    `json:"number_of_questions" gorm:"not null"`
}

func (ExamSubject) TableName() string {
	return "exam_subjects"
}

type ExamQuestion struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ExamID     uint      `json:"exam_id" gorm:"not null;uniqueIndex:idx_exam_question"`
	QuestionID uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_exam_question"`
	Position   int       `json:"position" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`

	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}
