package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserRole string
type Role = UserRole

const (
	RoleStudent     UserRole = "student"
	RoleTeacher     UserRole = "teacher"
	RoleBranchAdmin UserRole = "branch_admin"
	RoleSuperAdmin  UserRole = "super_admin"
)

// IsValid reports whether the role is one of the known roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleBranchAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may see answer keys
func (r UserRole) IsStaff() bool {
	return r == RoleTeacher || r == RoleBranchAdmin || r == RoleSuperAdmin
}

// IsAdmin reports whether the role administers a branch or the whole school
func (r UserRole) IsAdmin() bool {
	return r == RoleBranchAdmin || r == RoleSuperAdmin
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Specialization string

const (
	SpecializationSciences   Specialization = "Sciences"
	SpecializationArts       Specialization = "Arts"
	SpecializationCommercial Specialization = "Commercial"
)

type Account struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	FullName     string   `json:"full_name" gorm:"not null;size:150"`
	Email        *string  `json:"email" gorm:"uniqueIndex;size:255"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`
	Gender       Gender   `json:"gender" gorm:"size:10"`
	Role         UserRole `json:"role" gorm:"not null;size:20;index"`
	IsSuperAdmin bool     `json:"is_super_admin" gorm:"default:false"`
	BranchID     *uint    `json:"branch_id" gorm:"index"`

	// Learner only; assigned once at creation
	StudentID *string `json:"student_id" gorm:"uniqueIndex;size:50"`

	Section        *string         `json:"section" gorm:"size:50"`
	ClassLevel     *string         `json:"class_level" gorm:"size:20;index"`
	Specialization *Specialization `json:"specialization" gorm:"size:20"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Branch *Branch `json:"branch,omitempty" gorm:"foreignKey:BranchID"`
}

func (Account) TableName() string {
	return "accounts"
}

// IsSeniorClass reports whether a class level belongs to senior secondary,
// the only levels that carry a specialization
func IsSeniorClass(classLevel string) bool {
	return strings.HasPrefix(strings.ToUpper(classLevel), "SS")
}
