package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/events"
	"github.com/Talent-1/cbt-service/internal/models"
)

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by a test's services
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: testNow} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingMetrics struct {
	mu          sync.Mutex
	submissions map[string]int
	payments    map[string]int
	studentIDs  int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{submissions: map[string]int{}, payments: map[string]int{}}
}

func (m *countingMetrics) ObserveSubmission(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions[outcome]++
}

func (m *countingMetrics) ObservePaymentTransition(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[status]++
}

func (m *countingMetrics) ObserveStudentID() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.studentIDs++
}

type testEnv struct {
	repo      *MockRepository
	clock     *testClock
	publisher *events.MockEventPublisher
	metrics   *countingMetrics
	deps      Dependencies
	config    ServiceManagerConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		repo:      NewMockRepository(),
		clock:     newTestClock(),
		publisher: events.NewMockEventPublisher(logger),
		metrics:   newCountingMetrics(),
		config:    DefaultServiceManagerConfig(),
	}
	env.deps = Dependencies{
		Repo:      env.repo,
		Logger:    logger,
		Publisher: env.publisher,
		Metrics:   env.metrics,
		Now:       env.clock.Now,
	}
	return env
}

func (e *testEnv) seedBranch(t *testing.T, name, code string) *models.Branch {
	t.Helper()
	branch := &models.Branch{Name: name, Code: code}
	if err := e.repo.Branch().Create(context.Background(), branch); err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	return branch
}

func (e *testEnv) seedAccount(t *testing.T, account *models.Account) *models.Account {
	t.Helper()
	if account.PasswordHash == "" {
		account.PasswordHash = "x"
	}
	if err := e.repo.Account().Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func (e *testEnv) seedLearner(t *testing.T, branchID uint, classLevel, studentID string) *models.Account {
	t.Helper()
	return e.seedAccount(t, &models.Account{
		FullName:   "Learner " + studentID,
		Role:       models.RoleStudent,
		BranchID:   &branchID,
		ClassLevel: &classLevel,
		StudentID:  &studentID,
	})
}

func (e *testEnv) seedSubject(t *testing.T, name, classLevel string) *models.Subject {
	t.Helper()
	subject := &models.Subject{Name: name, ClassLevel: classLevel}
	if err := e.repo.Subject().Create(context.Background(), subject); err != nil {
		t.Fatalf("seed subject: %v", err)
	}
	return subject
}

func (e *testEnv) seedQuestion(t *testing.T, subject *models.Subject, text string, correct int) *models.Question {
	t.Helper()
	question := &models.Question{
		SubjectID:          subject.ID,
		ClassLevel:         subject.ClassLevel,
		Text:               text,
		Options:            datatypes.JSONSlice[string]{"one", "two", "three", "four"},
		CorrectOptionIndex: correct,
		Difficulty:         models.DifficultyMedium,
		CreatedBy:          1,
	}
	if err := e.repo.Question().Create(context.Background(), question); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return question
}

func (e *testEnv) seedExam(t *testing.T, branchID uint, classLevel string, examDate time.Time, questions ...*models.Question) *models.Exam {
	t.Helper()
	ctx := context.Background()
	exam := &models.Exam{
		Title:           "Exam " + classLevel,
		ClassLevel:      classLevel,
		DurationMinutes: 30,
		ExamDate:        examDate,
		BranchID:        branchID,
		CreatedBy:       1,
	}
	if err := e.repo.Exam().Create(ctx, exam); err != nil {
		t.Fatalf("seed exam: %v", err)
	}
	ids := make([]uint, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	if len(ids) > 0 {
		if _, err := e.repo.Exam().SetQuestions(ctx, exam.ID, ids); err != nil {
			t.Fatalf("seed exam questions: %v", err)
		}
	}
	return exam
}

func learnerPrincipal(account *models.Account) access.Principal {
	return access.Principal{
		ID:        account.ID,
		Role:      models.RoleStudent,
		BranchID:  account.BranchID,
		StudentID: derefString(account.StudentID),
	}
}

func staffPrincipal(id uint, role models.UserRole, branchID uint) access.Principal {
	p := access.Principal{ID: id, Role: role}
	if role != models.RoleSuperAdmin {
		p.BranchID = &branchID
	}
	return p
}

func strPtr(s string) *string { return &s }
func uintPtr(u uint) *uint    { return &u }
