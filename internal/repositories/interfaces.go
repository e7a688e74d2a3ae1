package repositories

import (
	"context"
	"time"

	"github.com/Talent-1/cbt-service/internal/models"
)

// BranchRepository manages campuses
type BranchRepository interface {
	Create(ctx context.Context, branch *models.Branch) error
	GetByID(ctx context.Context, id uint) (*models.Branch, error)
	GetByCode(ctx context.Context, code string) (*models.Branch, error)
	List(ctx context.Context) ([]*models.Branch, error)
	Update(ctx context.Context, branch *models.Branch) error
	Delete(ctx context.Context, id uint) error

	// CountDependents counts accounts, exams and payments still pointing at the branch
	CountDependents(ctx context.Context, id uint) (int64, error)
}

// CounterRepository hands out sequence numbers
type CounterRepository interface {
	// Next atomically creates the counter when absent, increments it and
	// returns the new value
	Next(ctx context.Context, name string, branchID uint, year int) (int64, error)
}

// AccountRepository manages people
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByStudentID(ctx context.Context, studentID string) (*models.Account, error)
	List(ctx context.Context, filters models.AccountFilters) ([]*models.Account, int64, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id uint) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type SubjectRepository interface {
	Create(ctx context.Context, subject *models.Subject) error
	GetByID(ctx context.Context, id uint) (*models.Subject, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Subject, error)
	List(ctx context.Context, classLevel *string) ([]*models.Subject, error)
	Delete(ctx context.Context, id uint) error
	ExistsByNameAndClass(ctx context.Context, name, classLevel string) (bool, error)
	IsInUse(ctx context.Context, id uint) (bool, error)
}

// QuestionRepository manages the shared question bank
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	CreateBatch(ctx context.Context, questions []*models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error)
	List(ctx context.Context, filters models.QuestionFilters) ([]*models.Question, int64, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	IsUsedInExams(ctx context.Context, id uint) (bool, error)
}

// ExamRepository manages exam definitions and their question links
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	// GetByIDWithDetails loads subject allocations and linked questions in position order
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error)
	List(ctx context.Context, filters models.ExamFilters) ([]*models.Exam, int64, error)
	ListForLearner(ctx context.Context, filter models.LearnerExamFilter) ([]*models.Exam, error)
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id uint) error

	// SetQuestions replaces the linked questions and recomputes total_questions_count
	SetQuestions(ctx context.Context, examID uint, questionIDs []uint) (int, error)
	// GetQuestions returns the linked questions in position order with subjects preloaded
	GetQuestions(ctx context.Context, examID uint) ([]*models.Question, error)
}

// SessionRepository persists server-side exam clocks
type SessionRepository interface {
	// GetOrCreate returns the existing session for (learner, exam) or inserts
	// the given one. The first caller wins; created reports which happened.
	GetOrCreate(ctx context.Context, session *models.ExamSession) (existing *models.ExamSession, created bool, err error)
	GetByLearnerAndExam(ctx context.Context, learnerID, examID uint) (*models.ExamSession, error)
	// MarkSubmitted flips an in-progress session to submitted, returning
	// ErrStaleState when it was already submitted
	MarkSubmitted(ctx context.Context, id uint, at time.Time) error
}

type ResultRepository interface {
	// Create inserts the result and its answers; duplicates surface as ErrDuplicate
	Create(ctx context.Context, result *models.Result) error
	GetByID(ctx context.Context, id uint) (*models.Result, error)
	ListByLearner(ctx context.Context, learnerID uint) ([]*models.Result, error)
	ListByExam(ctx context.Context, examID uint) ([]*models.Result, error)
	ExistsForLearnerExam(ctx context.Context, learnerID, examID uint) (bool, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	GetByReference(ctx context.Context, reference string) (*models.Payment, error)
	GetLatestPendingByLearner(ctx context.Context, learnerID uint) (*models.Payment, error)
	List(ctx context.Context, filters models.PaymentFilters) ([]*models.Payment, int64, error)
	ListByLearner(ctx context.Context, learnerID uint) ([]*models.Payment, error)
	// Transition moves a payment out of pending. It only matches rows that
	// are still pending and returns ErrStaleState otherwise.
	Transition(ctx context.Context, id uint, change PaymentTransition) error
	// HasSuccessful reports whether the learner has a successful payment
	// created at or after since (zero since means any time)
	HasSuccessful(ctx context.Context, learnerID uint, since time.Time) (bool, error)
	// UpdateGateway stores the gateway token and redirect url for a payment
	UpdateGateway(ctx context.Context, id uint, token, redirectURL string) error
}

type PaymentTransition struct {
	To         models.PaymentStatus
	VerifiedBy uint
	VerifiedAt time.Time
	Notes      *string
}
