package models

import "time"

type Branch struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null;size:150"`
	Address   string    `json:"address" gorm:"type:text"`
	Code      string    `json:"code" gorm:"uniqueIndex;not null;size:3"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Branch) TableName() string {
	return "branches"
}

// Counter backs the student identifier sequence. One row per (branch, year).
type Counter struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null;size:100"`
	Value     int64     `json:"value" gorm:"not null;default:0"`
	BranchID  uint      `json:"branch_id" gorm:"not null;index"`
	Year      int       `json:"year" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Counter) TableName() string {
	return "counters"
}

type Subject struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"not null;size:100;uniqueIndex:idx_subject_name_class"`
	ClassLevel string    `json:"class_level" gorm:"not null;size:20;uniqueIndex:idx_subject_name_class"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Subject) TableName() string {
	return "subjects"
}
