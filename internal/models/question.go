package models

import (
	"time"

	"gorm.io/datatypes"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Question lives in the shared bank and is referenced, not owned, by exams.
type Question struct {
	ID                 uint                        `json:"id" gorm:"primaryKey"`
	SubjectID          uint                        `json:"subject_id" gorm:"not null;index"`
	ClassLevel         string                      `json:"class_level" gorm:"not null;size:20;index"`
	Text               string                      `json:"text" gorm:"type:text;not null"`
	Options            datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb;not null"`
	CorrectOptionIndex int                         `json:"correct_option_index" gorm:"not null"`

	Category   *string         `json:"category" gorm:"size:100"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"default:medium;size:10;index"`
	ImageURL   *string         `json:"image_url" gorm:"size:500"`

	CreatedBy uint      `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Subject *Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
}

func (Question) TableName() string {
	return "questions"
}

// LearnerQuestion is the projection handed to learners. It has no answer key.
type LearnerQuestion struct {
	ID          uint     `json:"id"`
	SubjectID   uint     `json:"subject_id"`
	SubjectName string   `json:"subject_name,omitempty"`
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	ImageURL    *string  `json:"image_url,omitempty"`
}

// ToLearner strips the answer key
func (q *Question) ToLearner() LearnerQuestion {
	lq := LearnerQuestion{
		ID:        q.ID,
		SubjectID: q.SubjectID,
		Text:      q.Text,
		Options:   append([]string(nil), q.Options...),
		ImageURL:  q.ImageURL,
	}
	if q.Subject != nil {
		lq.SubjectName = q.Subject.Name
	}
	return lq
}
