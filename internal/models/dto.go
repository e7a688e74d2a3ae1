package models

import "time"

// ===== AUTH =====

type LoginRequest struct {
	// Email or student identifier
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ===== BRANCH =====

type BranchCreateRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=150"`
	Address string `json:"address" validate:"omitempty,max=500"`
	Code    string `json:"code" validate:"required,branch_code"`
}

type BranchUpdateRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=2,max=150"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

// ===== ACCOUNT =====

type AccountCreateRequest struct {
	FullName       string          `json:"full_name" validate:"required,min=2,max=150"`
	Email          *string         `json:"email" validate:"omitempty,email"`
	Password       string          `json:"password" validate:"required,min=6,max=72"`
	Gender         Gender          `json:"gender" validate:"omitempty,oneof=male female"`
	Role           UserRole        `json:"role" validate:"required,role"`
	BranchID       *uint           `json:"branch_id"`
	Section        *string         `json:"section" validate:"omitempty,max=50"`
	ClassLevel     *string         `json:"class_level" validate:"omitempty,class_level"`
	Specialization *Specialization `json:"specialization" validate:"omitempty,oneof=Sciences Arts Commercial"`
}

type AccountUpdateRequest struct {
	FullName       *string         `json:"full_name" validate:"omitempty,min=2,max=150"`
	Email          *string         `json:"email" validate:"omitempty,email"`
	Password       *string         `json:"password" validate:"omitempty,min=6,max=72"`
	Gender         *Gender         `json:"gender" validate:"omitempty,oneof=male female"`
	Section        *string         `json:"section" validate:"omitempty,max=50"`
	ClassLevel     *string         `json:"class_level" validate:"omitempty,class_level"`
	Specialization *Specialization `json:"specialization" validate:"omitempty,oneof=Sciences Arts Commercial"`
}

type AccountFilters struct {
	Role       *UserRole `form:"role"`
	BranchID   *uint     `form:"branch_id"`
	ClassLevel *string   `form:"class_level"`
	Search     string    `form:"search"`
	Limit      int       `form:"limit"`
	Offset     int       `form:"offset"`
}

// ===== SUBJECT =====

type SubjectCreateRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	ClassLevel string `json:"class_level" validate:"required,class_level"`
}

// ===== QUESTION =====

type QuestionCreateRequest struct {
	SubjectID          uint            `json:"subject_id" validate:"required"`
	ClassLevel         string          `json:"class_level" validate:"required,class_level"`
	Text               string          `json:"text" validate:"required"`
	Options            []string        `json:"options" validate:"required,min=1,max=26,dive,required"`
	CorrectOptionIndex int             `json:"correct_option_index" validate:"min=0"`
	Category           *string         `json:"category" validate:"omitempty,max=100"`
	Difficulty         DifficultyLevel `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

type QuestionUpdateRequest struct {
	SubjectID          *uint            `json:"subject_id"`
	ClassLevel         *string          `json:"class_level" validate:"omitempty,class_level"`
	Text               *string          `json:"text" validate:"omitempty,min=1"`
	Options            []string         `json:"options" validate:"omitempty,min=1,max=26,dive,required"`
	CorrectOptionIndex *int             `json:"correct_option_index" validate:"omitempty,min=0"`
	Category           *string          `json:"category" validate:"omitempty,max=100"`
	Difficulty         *DifficultyLevel `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

type QuestionFilters struct {
	SubjectID  *uint            `form:"subject_id"`
	ClassLevel *string          `form:"class_level"`
	Difficulty *DifficultyLevel `form:"difficulty"`
	CreatedBy  *uint            `form:"created_by"`
	Search     string           `form:"search"`
	Limit      int              `form:"limit"`
	Offset     int              `form:"offset"`
}

// ===== EXAM =====

type ExamSubjectRequest struct {
	SubjectID         uint `json:"subject_id" validate:"required"`
	NumberOfQuestions int  `json:"number_of_questions" validate:"min=0"`
}

type ExamCreateRequest struct {
	Title            string               `json:"title" validate:"required,min=1,max=200"`
	ClassLevel       string               `json:"class_level" validate:"required,class_level"`
	Duration         int                  `json:"duration" validate:"required,min=1,max=600"`
	ExamDate         *time.Time           `json:"exam_date"`
	BranchID         uint                 `json:"branch_id" validate:"required"`
	SubjectsIncluded []ExamSubjectRequest `json:"subjects_included" validate:"required,min=1,dive"`
	Specialization   *Specialization      `json:"specialization" validate:"omitempty,oneof=Sciences Arts Commercial"`
	QuestionIDs      []uint               `json:"question_ids"`
}

type ExamUpdateRequest struct {
	Title          *string         `json:"title" validate:"omitempty,min=1,max=200"`
	Duration       *int            `json:"duration" validate:"omitempty,min=1,max=600"`
	ExamDate       *time.Time      `json:"exam_date"`
	Specialization *Specialization `json:"specialization" validate:"omitempty,oneof=Sciences Arts Commercial"`
}

type ExamQuestionsRequest struct {
	QuestionIDs []uint `json:"question_ids" validate:"required,min=1"`
}

type ExamFilters struct {
	ClassLevel *string `form:"class_level"`
	BranchID   *uint   `form:"branch_id"`
	CreatedBy  *uint   `form:"created_by"`
	Limit      int     `form:"limit"`
	Offset     int     `form:"offset"`
}

// LearnerExamFilter selects the exams visible to one learner at a point in time
type LearnerExamFilter struct {
	ClassLevel     string
	BranchID       uint
	Specialization *Specialization
	Now            time.Time
}

// ===== SUBMISSION =====

type SubmittedAnswer struct {
	QuestionID     uint   `json:"question_id" validate:"required"`
	SelectedOption string `json:"selected_option"`
}

type SubmitExamRequest struct {
	Answers []SubmittedAnswer `json:"answers" validate:"dive"`
}

// ===== PAYMENT =====

type PaymentInitiateRequest struct {
	StudentID     string  `json:"student_id" validate:"required"`
	BranchID      uint    `json:"branch_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Currency      string  `json:"currency" validate:"omitempty,len=3"`
	Description   string  `json:"description" validate:"omitempty,max=500"`
	PaymentMethod string  `json:"payment_method" validate:"omitempty,max=30"`
	SubClassLevel *string `json:"sub_class_level" validate:"omitempty,max=20"`
}

type PaymentStatusUpdateRequest struct {
	Status     PaymentStatus `json:"status" validate:"required,payment_status"`
	AdminNotes *string       `json:"admin_notes" validate:"omitempty,max=1000"`
}

type PaymentFilters struct {
	Status    *PaymentStatus `form:"status"`
	BranchID  *uint          `form:"branch_id"`
	LearnerID *uint          `form:"learner_id"`
	Limit     int            `form:"limit"`
	Offset    int            `form:"offset"`
}
