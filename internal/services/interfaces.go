package services

import (
	"context"
	"io"
	"time"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

// ===== REQUEST/RESPONSE DTOs =====

type LoginRequest = models.LoginRequest
type CreateAccountRequest = models.AccountCreateRequest
type UpdateAccountRequest = models.AccountUpdateRequest
type CreateBranchRequest = models.BranchCreateRequest
type UpdateBranchRequest = models.BranchUpdateRequest
type CreateSubjectRequest = models.SubjectCreateRequest
type CreateQuestionRequest = models.QuestionCreateRequest
type UpdateQuestionRequest = models.QuestionUpdateRequest
type CreateExamRequest = models.ExamCreateRequest
type UpdateExamRequest = models.ExamUpdateRequest
type SubmitExamRequest = models.SubmitExamRequest
type InitiatePaymentRequest = models.PaymentInitiateRequest
type UpdatePaymentStatusRequest = models.PaymentStatusUpdateRequest

type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   *models.Account `json:"account"`
}

type AccountListResponse struct {
	Accounts []*models.Account `json:"accounts"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type QuestionListResponse struct {
	Questions []*models.Question `json:"questions"`
	Total     int64              `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type ExamListResponse struct {
	Exams  []*models.Exam `json:"exams"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type PaymentListResponse struct {
	Payments []*models.Payment `json:"payments"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// SessionInfo is the server-anchored exam clock
type SessionInfo struct {
	ID               uint                 `json:"id"`
	Status           models.SessionStatus `json:"status"`
	StartedAt        time.Time            `json:"started_at"`
	Deadline         time.Time            `json:"deadline"`
	RemainingSeconds int64                `json:"remaining_seconds"`
}

type SubjectGroup struct {
	SubjectID   uint   `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	QuestionIDs []uint `json:"question_ids"`
}

// ExamQuestionsResponse carries []models.LearnerQuestion for learners and
// []*models.Question for staff
type ExamQuestionsResponse struct {
	Exam          *models.Exam   `json:"exam"`
	Session       *SessionInfo   `json:"session,omitempty"`
	Questions     interface{}    `json:"questions"`
	SubjectGroups []SubjectGroup `json:"subject_groups"`
}

type SubmissionResponse struct {
	ResultID       uint    `json:"result_id"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"total_questions"`
	Percentage     float64 `json:"percentage"`
}

// ClientInfo is recorded on the session when a learner starts an exam
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type ImportResult struct {
	Imported int                `json:"imported"`
	Failed   int                `json:"failed"`
	Errors   []ImportRowError   `json:"errors,omitempty"`
	Created  []*models.Question `json:"-"`
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type DashboardStats struct {
	BranchID          *uint                             `json:"branch_id,omitempty"`
	Learners          int64                             `json:"learners"`
	Exams             int64                             `json:"exams"`
	Results           int64                             `json:"results"`
	AveragePercentage float64                           `json:"average_percentage"`
	Payments          []repositories.PaymentStatusCount `json:"payments"`
	AmountCollected   float64                           `json:"amount_collected"`
	GeneratedAt       time.Time                         `json:"generated_at"`
}

// ===== SERVICE INTERFACES =====

type AccountService interface {
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	Create(ctx context.Context, req *CreateAccountRequest, actor access.Principal) (*models.Account, error)
	GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Account, error)
	List(ctx context.Context, filters models.AccountFilters, actor access.Principal) (*AccountListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateAccountRequest, actor access.Principal) (*models.Account, error)
	Delete(ctx context.Context, id uint, actor access.Principal) error

	// ResolveByEmail maps an externally authenticated identity to a local account
	ResolveByEmail(ctx context.Context, email string) (*models.Account, error)
}

type BranchService interface {
	Create(ctx context.Context, req *CreateBranchRequest, actor access.Principal) (*models.Branch, error)
	GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Branch, error)
	List(ctx context.Context, actor access.Principal) ([]*models.Branch, error)
	Update(ctx context.Context, id uint, req *UpdateBranchRequest, actor access.Principal) (*models.Branch, error)
	Delete(ctx context.Context, id uint, actor access.Principal) error
}

type SubjectService interface {
	Create(ctx context.Context, req *CreateSubjectRequest, actor access.Principal) (*models.Subject, error)
	List(ctx context.Context, classLevel *string) ([]*models.Subject, error)
	Delete(ctx context.Context, id uint, actor access.Principal) error
}

type QuestionService interface {
	Create(ctx context.Context, req *CreateQuestionRequest, actor access.Principal) (*models.Question, error)
	GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Question, error)
	List(ctx context.Context, filters models.QuestionFilters, actor access.Principal) (*QuestionListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest, actor access.Principal) (*models.Question, error)
	Delete(ctx context.Context, id uint, actor access.Principal) error
	UploadImage(ctx context.Context, id uint, image io.Reader, actor access.Principal) (*models.Question, error)
}

type ExamService interface {
	Create(ctx context.Context, req *CreateExamRequest, actor access.Principal) (*models.Exam, error)
	GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Exam, error)
	List(ctx context.Context, filters models.ExamFilters, actor access.Principal) (*ExamListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateExamRequest, actor access.Principal) (*models.Exam, error)
	Delete(ctx context.Context, id uint, actor access.Principal) error

	// SetQuestions replaces the linked questions; the total count follows the list
	SetQuestions(ctx context.Context, id uint, questionIDs []uint, actor access.Principal) (*models.Exam, error)

	// ListForLearner returns the exams a learner may sit right now
	ListForLearner(ctx context.Context, actor access.Principal) ([]*models.Exam, error)
}

type SessionService interface {
	GetQuestions(ctx context.Context, examID uint, actor access.Principal, client ClientInfo) (*ExamQuestionsResponse, error)
	GetSession(ctx context.Context, examID uint, actor access.Principal) (*SessionInfo, error)
	Submit(ctx context.Context, examID uint, req *SubmitExamRequest, actor access.Principal) (*SubmissionResponse, error)
}

type ResultService interface {
	ListMine(ctx context.Context, actor access.Principal) ([]*models.Result, error)
	GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Result, error)
	ListByExam(ctx context.Context, examID uint, actor access.Principal) ([]*models.Result, error)
}

type PaymentService interface {
	Initiate(ctx context.Context, req *InitiatePaymentRequest, actor access.Principal) (*models.Payment, error)
	UpdateStatus(ctx context.Context, id uint, req *UpdatePaymentStatusRequest, actor access.Principal) (*models.Payment, error)
	Search(ctx context.Context, query string, actor access.Principal) (*models.Payment, error)
	GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Payment, error)
	ListMine(ctx context.Context, actor access.Principal) ([]*models.Payment, error)
	List(ctx context.Context, filters models.PaymentFilters, actor access.Principal) (*PaymentListResponse, error)

	// HasSuccessfulPayment is the payment gate used by exam eligibility
	HasSuccessfulPayment(ctx context.Context, learnerID uint) (bool, error)
}

type ImportExportService interface {
	ImportQuestions(ctx context.Context, r io.Reader, actor access.Principal) (*ImportResult, error)
	ExportExamResults(ctx context.Context, examID uint, actor access.Principal) ([]byte, string, error)
}

type DashboardService interface {
	GetStats(ctx context.Context, actor access.Principal) (*DashboardStats, error)
}

// ===== COLLABORATORS =====

// TokenIssuer signs access tokens for logged in accounts
type TokenIssuer interface {
	Issue(account *models.Account) (string, time.Time, error)
}

// MetricsRecorder receives domain counters
type MetricsRecorder interface {
	ObserveSubmission(outcome string)
	ObservePaymentTransition(status string)
	ObserveStudentID()
}

type noopMetrics struct{}

func (noopMetrics) ObserveSubmission(string)        {}
func (noopMetrics) ObservePaymentTransition(string) {}
func (noopMetrics) ObserveStudentID()               {}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Account() AccountService
	Branch() BranchService
	Subject() SubjectService
	Question() QuestionService
	Exam() ExamService
	Session() SessionService
	Result() ResultService
	Payment() PaymentService
	ImportExport() ImportExportService
	Dashboard() DashboardService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
