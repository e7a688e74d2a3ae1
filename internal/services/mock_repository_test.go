package services

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

// MockRepository is an in-memory Repository. Records are stored by value so
// callers never share state with the store, and WithTransaction restores a
// snapshot when fn fails.
type MockRepository struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	store *mockStore

	pingErr error
}

type mockStore struct {
	nextID    uint
	branches  map[uint]models.Branch
	counters  map[string]int64
	accounts  map[uint]models.Account
	subjects  map[uint]models.Subject
	questions map[uint]models.Question
	exams     map[uint]models.Exam
	links     map[uint][]uint
	sessions  map[uint]models.ExamSession
	results   map[uint]models.Result
	payments  map[uint]models.Payment
}

func NewMockRepository() *MockRepository {
	return &MockRepository{store: &mockStore{
		branches:  map[uint]models.Branch{},
		counters:  map[string]int64{},
		accounts:  map[uint]models.Account{},
		subjects:  map[uint]models.Subject{},
		questions: map[uint]models.Question{},
		exams:     map[uint]models.Exam{},
		links:     map[uint][]uint{},
		sessions:  map[uint]models.ExamSession{},
		results:   map[uint]models.Result{},
		payments:  map[uint]models.Payment{},
	}}
}

func (s *mockStore) clone() *mockStore {
	links := make(map[uint][]uint, len(s.links))
	for k, v := range s.links {
		links[k] = slices.Clone(v)
	}
	return &mockStore{
		nextID:    s.nextID,
		branches:  cloneMap(s.branches),
		counters:  cloneMap(s.counters),
		accounts:  cloneMap(s.accounts),
		subjects:  cloneMap(s.subjects),
		questions: cloneMap(s.questions),
		exams:     cloneMap(s.exams),
		links:     links,
		sessions:  cloneMap(s.sessions),
		results:   cloneMap(s.results),
		payments:  cloneMap(s.payments),
	}
}

func (s *mockStore) id() uint {
	s.nextID++
	return s.nextID
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[uint]V) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func page[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (r *MockRepository) Branch() repositories.BranchRepository       { return &mockBranchRepo{r} }
func (r *MockRepository) Counter() repositories.CounterRepository     { return &mockCounterRepo{r} }
func (r *MockRepository) Account() repositories.AccountRepository     { return &mockAccountRepo{r} }
func (r *MockRepository) Subject() repositories.SubjectRepository     { return &mockSubjectRepo{r} }
func (r *MockRepository) Question() repositories.QuestionRepository   { return &mockQuestionRepo{r} }
func (r *MockRepository) Exam() repositories.ExamRepository           { return &mockExamRepo{r} }
func (r *MockRepository) Session() repositories.SessionRepository     { return &mockSessionRepo{r} }
func (r *MockRepository) Result() repositories.ResultRepository       { return &mockResultRepo{r} }
func (r *MockRepository) Payment() repositories.PaymentRepository     { return &mockPaymentRepo{r} }
func (r *MockRepository) Dashboard() repositories.DashboardRepository { return &mockDashboardRepo{r} }

func (r *MockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	snapshot := r.store.clone()
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.store = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *MockRepository) Ping(ctx context.Context) error { return r.pingErr }
func (r *MockRepository) Close() error                   { return nil }

// ===== BRANCH =====

type mockBranchRepo struct{ r *MockRepository }

func (m *mockBranchRepo) Create(ctx context.Context, branch *models.Branch) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, b := range m.r.store.branches {
		if b.Name == branch.Name || b.Code == branch.Code {
			return repositories.ErrDuplicate
		}
	}
	branch.ID = m.r.store.id()
	m.r.store.branches[branch.ID] = *branch
	return nil
}

func (m *mockBranchRepo) GetByID(ctx context.Context, id uint) (*models.Branch, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	b, ok := m.r.store.branches[id]
	if !ok {
		return nil, repositories.NewNotFoundError("branch", id)
	}
	return &b, nil
}

func (m *mockBranchRepo) GetByCode(ctx context.Context, code string) (*models.Branch, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, b := range m.r.store.branches {
		if b.Code == code {
			return &b, nil
		}
	}
	return nil, repositories.NewNotFoundError("branch", code)
}

func (m *mockBranchRepo) List(ctx context.Context) ([]*models.Branch, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Branch
	for _, id := range sortedKeys(m.r.store.branches) {
		b := m.r.store.branches[id]
		out = append(out, &b)
	}
	return out, nil
}

func (m *mockBranchRepo) Update(ctx context.Context, branch *models.Branch) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.store.branches[branch.ID]; !ok {
		return repositories.NewNotFoundError("branch", branch.ID)
	}
	m.r.store.branches[branch.ID] = *branch
	return nil
}

func (m *mockBranchRepo) Delete(ctx context.Context, id uint) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	delete(m.r.store.branches, id)
	return nil
}

func (m *mockBranchRepo) CountDependents(ctx context.Context, id uint) (int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var n int64
	for _, a := range m.r.store.accounts {
		if a.BranchID != nil && *a.BranchID == id {
			n++
		}
	}
	for _, e := range m.r.store.exams {
		if e.BranchID == id {
			n++
		}
	}
	for _, p := range m.r.store.payments {
		if p.BranchID == id {
			n++
		}
	}
	return n, nil
}

// ===== COUNTER =====

type mockCounterRepo struct{ r *MockRepository }

func (m *mockCounterRepo) Next(ctx context.Context, name string, branchID uint, year int) (int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	m.r.store.counters[name]++
	return m.r.store.counters[name], nil
}

// ===== ACCOUNT =====

type mockAccountRepo struct{ r *MockRepository }

func (m *mockAccountRepo) Create(ctx context.Context, account *models.Account) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, a := range m.r.store.accounts {
		if account.Email != nil && a.Email != nil && *a.Email == *account.Email {
			return repositories.ErrDuplicate
		}
		if account.StudentID != nil && a.StudentID != nil && *a.StudentID == *account.StudentID {
			return repositories.ErrDuplicate
		}
	}
	account.ID = m.r.store.id()
	account.CreatedAt = time.Now()
	m.r.store.accounts[account.ID] = *account
	return nil
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	a, ok := m.r.store.accounts[id]
	if !ok {
		return nil, repositories.NewNotFoundError("account", id)
	}
	return &a, nil
}

func (m *mockAccountRepo) find(match func(models.Account) bool, key string) (*models.Account, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, id := range sortedKeys(m.r.store.accounts) {
		a := m.r.store.accounts[id]
		if match(a) {
			return &a, nil
		}
	}
	return nil, repositories.NewNotFoundError("account", key)
}

func (m *mockAccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return m.find(func(a models.Account) bool { return a.Email != nil && *a.Email == email }, email)
}

func (m *mockAccountRepo) GetByStudentID(ctx context.Context, studentID string) (*models.Account, error) {
	return m.find(func(a models.Account) bool { return a.StudentID != nil && *a.StudentID == studentID }, studentID)
}

func (m *mockAccountRepo) List(ctx context.Context, filters models.AccountFilters) ([]*models.Account, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Account
	for _, id := range sortedKeys(m.r.store.accounts) {
		a := m.r.store.accounts[id]
		if filters.Role != nil && a.Role != *filters.Role {
			continue
		}
		if filters.BranchID != nil && (a.BranchID == nil || *a.BranchID != *filters.BranchID) {
			continue
		}
		if filters.ClassLevel != nil && (a.ClassLevel == nil || *a.ClassLevel != *filters.ClassLevel) {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(a.FullName), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, &a)
	}
	return page(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (m *mockAccountRepo) Update(ctx context.Context, account *models.Account) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.store.accounts[account.ID]; !ok {
		return repositories.NewNotFoundError("account", account.ID)
	}
	m.r.store.accounts[account.ID] = *account
	return nil
}

func (m *mockAccountRepo) Delete(ctx context.Context, id uint) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	delete(m.r.store.accounts, id)
	return nil
}

func (m *mockAccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

// ===== SUBJECT =====

type mockSubjectRepo struct{ r *MockRepository }

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, s := range m.r.store.subjects {
		if s.Name == subject.Name && s.ClassLevel == subject.ClassLevel {
			return repositories.ErrDuplicate
		}
	}
	subject.ID = m.r.store.id()
	m.r.store.subjects[subject.ID] = *subject
	return nil
}

func (m *mockSubjectRepo) GetByID(ctx context.Context, id uint) (*models.Subject, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	s, ok := m.r.store.subjects[id]
	if !ok {
		return nil, repositories.NewNotFoundError("subject", id)
	}
	return &s, nil
}

func (m *mockSubjectRepo) GetByIDs(ctx context.Context, ids []uint) ([]*models.Subject, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Subject
	for _, id := range ids {
		if s, ok := m.r.store.subjects[id]; ok {
			out = append(out, &s)
		}
	}
	return out, nil
}

func (m *mockSubjectRepo) List(ctx context.Context, classLevel *string) ([]*models.Subject, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Subject
	for _, id := range sortedKeys(m.r.store.subjects) {
		s := m.r.store.subjects[id]
		if classLevel == nil || s.ClassLevel == *classLevel {
			out = append(out, &s)
		}
	}
	return out, nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, id uint) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	delete(m.r.store.subjects, id)
	return nil
}

func (m *mockSubjectRepo) ExistsByNameAndClass(ctx context.Context, name, classLevel string) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, s := range m.r.store.subjects {
		if strings.EqualFold(s.Name, name) && s.ClassLevel == classLevel {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSubjectRepo) IsInUse(ctx context.Context, id uint) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, q := range m.r.store.questions {
		if q.SubjectID == id {
			return true, nil
		}
	}
	for _, e := range m.r.store.exams {
		for _, s := range e.SubjectsIncluded {
			if s.SubjectID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

// ===== QUESTION =====

type mockQuestionRepo struct{ r *MockRepository }

func (m *mockQuestionRepo) insert(question *models.Question) {
	question.ID = m.r.store.id()
	question.CreatedAt = time.Now()
	stored := *question
	stored.Subject = nil
	m.r.store.questions[question.ID] = stored
}

// withSubject returns a copy of the stored question with its subject attached
func (m *mockQuestionRepo) withSubject(q models.Question) *models.Question {
	if s, ok := m.r.store.subjects[q.SubjectID]; ok {
		q.Subject = &s
	}
	return &q
}

func (m *mockQuestionRepo) Create(ctx context.Context, question *models.Question) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	m.insert(question)
	return nil
}

func (m *mockQuestionRepo) CreateBatch(ctx context.Context, questions []*models.Question) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, q := range questions {
		m.insert(q)
	}
	return nil
}

func (m *mockQuestionRepo) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	q, ok := m.r.store.questions[id]
	if !ok {
		return nil, repositories.NewNotFoundError("question", id)
	}
	return m.withSubject(q), nil
}

func (m *mockQuestionRepo) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Question
	for _, id := range ids {
		if q, ok := m.r.store.questions[id]; ok {
			out = append(out, m.withSubject(q))
		}
	}
	return out, nil
}

func (m *mockQuestionRepo) List(ctx context.Context, filters models.QuestionFilters) ([]*models.Question, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Question
	for _, id := range sortedKeys(m.r.store.questions) {
		q := m.r.store.questions[id]
		if filters.SubjectID != nil && q.SubjectID != *filters.SubjectID {
			continue
		}
		if filters.ClassLevel != nil && q.ClassLevel != *filters.ClassLevel {
			continue
		}
		out = append(out, m.withSubject(q))
	}
	return page(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (m *mockQuestionRepo) Update(ctx context.Context, question *models.Question) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.store.questions[question.ID]; !ok {
		return repositories.NewNotFoundError("question", question.ID)
	}
	stored := *question
	stored.Subject = nil
	m.r.store.questions[question.ID] = stored
	return nil
}

func (m *mockQuestionRepo) Delete(ctx context.Context, id uint) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	delete(m.r.store.questions, id)
	return nil
}

func (m *mockQuestionRepo) IsUsedInExams(ctx context.Context, id uint) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, ids := range m.r.store.links {
		if slices.Contains(ids, id) {
			return true, nil
		}
	}
	return false, nil
}

// ===== EXAM =====

type mockExamRepo struct{ r *MockRepository }

func (m *mockExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	exam.ID = m.r.store.id()
	exam.CreatedAt = time.Now()
	for i := range exam.SubjectsIncluded {
		exam.SubjectsIncluded[i].ID = m.r.store.id()
		exam.SubjectsIncluded[i].ExamID = exam.ID
	}
	stored := *exam
	stored.SubjectsIncluded = slices.Clone(exam.SubjectsIncluded)
	stored.Questions = nil
	stored.Branch = nil
	m.r.store.exams[exam.ID] = stored
	return nil
}

func (m *mockExamRepo) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	e, ok := m.r.store.exams[id]
	if !ok {
		return nil, repositories.NewNotFoundError("exam", id)
	}
	e.SubjectsIncluded = slices.Clone(e.SubjectsIncluded)
	return &e, nil
}

func (m *mockExamRepo) GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	e, ok := m.r.store.exams[id]
	if !ok {
		return nil, repositories.NewNotFoundError("exam", id)
	}
	e.SubjectsIncluded = slices.Clone(e.SubjectsIncluded)
	questions := &mockQuestionRepo{m.r}
	for i, qid := range m.r.store.links[id] {
		link := models.ExamQuestion{ExamID: id, QuestionID: qid, Position: i + 1}
		if q, ok := m.r.store.questions[qid]; ok {
			link.Question = questions.withSubject(q)
		}
		e.Questions = append(e.Questions, link)
	}
	if b, ok := m.r.store.branches[e.BranchID]; ok {
		e.Branch = &b
	}
	return &e, nil
}

func (m *mockExamRepo) List(ctx context.Context, filters models.ExamFilters) ([]*models.Exam, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Exam
	for _, id := range sortedKeys(m.r.store.exams) {
		e := m.r.store.exams[id]
		if filters.ClassLevel != nil && e.ClassLevel != *filters.ClassLevel {
			continue
		}
		if filters.BranchID != nil && e.BranchID != *filters.BranchID {
			continue
		}
		if filters.CreatedBy != nil && e.CreatedBy != *filters.CreatedBy {
			continue
		}
		out = append(out, &e)
	}
	return page(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (m *mockExamRepo) ListForLearner(ctx context.Context, filter models.LearnerExamFilter) ([]*models.Exam, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Exam
	for _, id := range sortedKeys(m.r.store.exams) {
		e := m.r.store.exams[id]
		if e.ClassLevel != filter.ClassLevel || e.BranchID != filter.BranchID || e.ExamDate.After(filter.Now) {
			continue
		}
		if e.Specialization != nil && (filter.Specialization == nil || *e.Specialization != *filter.Specialization) {
			continue
		}
		out = append(out, &e)
	}
	return out, nil
}

func (m *mockExamRepo) Update(ctx context.Context, exam *models.Exam) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	stored, ok := m.r.store.exams[exam.ID]
	if !ok {
		return repositories.NewNotFoundError("exam", exam.ID)
	}
	stored.Title = exam.Title
	stored.DurationMinutes = exam.DurationMinutes
	stored.ExamDate = exam.ExamDate
	stored.Specialization = exam.Specialization
	m.r.store.exams[exam.ID] = stored
	return nil
}

func (m *mockExamRepo) Delete(ctx context.Context, id uint) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	delete(m.r.store.exams, id)
	delete(m.r.store.links, id)
	return nil
}

func (m *mockExamRepo) SetQuestions(ctx context.Context, examID uint, questionIDs []uint) (int, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	e, ok := m.r.store.exams[examID]
	if !ok {
		return 0, repositories.NewNotFoundError("exam", examID)
	}
	var ids []uint
	for _, id := range questionIDs {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	m.r.store.links[examID] = ids
	e.TotalQuestionsCount = len(ids)
	m.r.store.exams[examID] = e
	return len(ids), nil
}

func (m *mockExamRepo) GetQuestions(ctx context.Context, examID uint) ([]*models.Question, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	questions := &mockQuestionRepo{m.r}
	var out []*models.Question
	for _, qid := range m.r.store.links[examID] {
		if q, ok := m.r.store.questions[qid]; ok {
			out = append(out, questions.withSubject(q))
		}
	}
	return out, nil
}

// ===== SESSION =====

type mockSessionRepo struct{ r *MockRepository }

func (m *mockSessionRepo) GetOrCreate(ctx context.Context, session *models.ExamSession) (*models.ExamSession, bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, s := range m.r.store.sessions {
		if s.LearnerID == session.LearnerID && s.ExamID == session.ExamID {
			return &s, false, nil
		}
	}
	session.ID = m.r.store.id()
	m.r.store.sessions[session.ID] = *session
	created := *session
	return &created, true, nil
}

func (m *mockSessionRepo) GetByLearnerAndExam(ctx context.Context, learnerID, examID uint) (*models.ExamSession, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, s := range m.r.store.sessions {
		if s.LearnerID == learnerID && s.ExamID == examID {
			return &s, nil
		}
	}
	return nil, repositories.NewNotFoundError("exam session", examID)
}

func (m *mockSessionRepo) MarkSubmitted(ctx context.Context, id uint, at time.Time) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	s, ok := m.r.store.sessions[id]
	if !ok || s.Status != models.SessionInProgress {
		return repositories.ErrStaleState
	}
	s.Status = models.SessionSubmitted
	s.SubmittedAt = &at
	m.r.store.sessions[id] = s
	return nil
}

// ===== RESULT =====

type mockResultRepo struct{ r *MockRepository }

func (m *mockResultRepo) Create(ctx context.Context, result *models.Result) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, existing := range m.r.store.results {
		if existing.LearnerID == result.LearnerID && existing.ExamID == result.ExamID {
			return repositories.ErrDuplicate
		}
	}
	result.ID = m.r.store.id()
	for i := range result.Answers {
		result.Answers[i].ID = m.r.store.id()
		result.Answers[i].ResultID = result.ID
	}
	stored := *result
	stored.Answers = slices.Clone(result.Answers)
	m.r.store.results[result.ID] = stored
	return nil
}

func (m *mockResultRepo) GetByID(ctx context.Context, id uint) (*models.Result, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	res, ok := m.r.store.results[id]
	if !ok {
		return nil, repositories.NewNotFoundError("result", id)
	}
	if e, ok := m.r.store.exams[res.ExamID]; ok {
		res.Exam = &e
	}
	return &res, nil
}

func (m *mockResultRepo) ListByLearner(ctx context.Context, learnerID uint) ([]*models.Result, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Result
	for _, id := range sortedKeys(m.r.store.results) {
		res := m.r.store.results[id]
		if res.LearnerID == learnerID {
			out = append(out, &res)
		}
	}
	return out, nil
}

func (m *mockResultRepo) ListByExam(ctx context.Context, examID uint) ([]*models.Result, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Result
	for _, id := range sortedKeys(m.r.store.results) {
		res := m.r.store.results[id]
		if res.ExamID != examID {
			continue
		}
		if a, ok := m.r.store.accounts[res.LearnerID]; ok {
			res.Learner = &a
		}
		out = append(out, &res)
	}
	return out, nil
}

func (m *mockResultRepo) ExistsForLearnerExam(ctx context.Context, learnerID, examID uint) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, res := range m.r.store.results {
		if res.LearnerID == learnerID && res.ExamID == examID {
			return true, nil
		}
	}
	return false, nil
}

// ===== PAYMENT =====

type mockPaymentRepo struct{ r *MockRepository }

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, p := range m.r.store.payments {
		if p.TransactionReference == payment.TransactionReference {
			return repositories.ErrDuplicate
		}
	}
	payment.ID = m.r.store.id()
	payment.CreatedAt = time.Now()
	m.r.store.payments[payment.ID] = *payment
	return nil
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	p, ok := m.r.store.payments[id]
	if !ok {
		return nil, repositories.NewNotFoundError("payment", id)
	}
	return &p, nil
}

func (m *mockPaymentRepo) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, p := range m.r.store.payments {
		if p.TransactionReference == reference {
			return &p, nil
		}
	}
	return nil, repositories.NewNotFoundError("payment", reference)
}

func (m *mockPaymentRepo) GetLatestPendingByLearner(ctx context.Context, learnerID uint) (*models.Payment, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	keys := sortedKeys(m.r.store.payments)
	for i := len(keys) - 1; i >= 0; i-- {
		p := m.r.store.payments[keys[i]]
		if p.LearnerID == learnerID && p.Status == models.PaymentPending {
			return &p, nil
		}
	}
	return nil, repositories.NewNotFoundError("payment", learnerID)
}

func (m *mockPaymentRepo) List(ctx context.Context, filters models.PaymentFilters) ([]*models.Payment, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Payment
	for _, id := range sortedKeys(m.r.store.payments) {
		p := m.r.store.payments[id]
		if filters.Status != nil && p.Status != *filters.Status {
			continue
		}
		if filters.BranchID != nil && p.BranchID != *filters.BranchID {
			continue
		}
		if filters.LearnerID != nil && p.LearnerID != *filters.LearnerID {
			continue
		}
		out = append(out, &p)
	}
	return page(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (m *mockPaymentRepo) ListByLearner(ctx context.Context, learnerID uint) ([]*models.Payment, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Payment
	keys := sortedKeys(m.r.store.payments)
	for i := len(keys) - 1; i >= 0; i-- {
		p := m.r.store.payments[keys[i]]
		if p.LearnerID == learnerID {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) Transition(ctx context.Context, id uint, change repositories.PaymentTransition) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	p, ok := m.r.store.payments[id]
	if !ok || p.Status != models.PaymentPending {
		return repositories.ErrStaleState
	}
	p.Status = change.To
	p.VerifiedBy = &change.VerifiedBy
	p.VerifiedAt = &change.VerifiedAt
	p.AdminNotes = change.Notes
	m.r.store.payments[id] = p
	return nil
}

func (m *mockPaymentRepo) HasSuccessful(ctx context.Context, learnerID uint, since time.Time) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, p := range m.r.store.payments {
		if p.LearnerID == learnerID && p.Status == models.PaymentSuccessful && (since.IsZero() || !p.CreatedAt.Before(since)) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPaymentRepo) UpdateGateway(ctx context.Context, id uint, token, redirectURL string) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	p, ok := m.r.store.payments[id]
	if !ok {
		return repositories.NewNotFoundError("payment", id)
	}
	p.GatewayToken = &token
	p.GatewayRedirectURL = &redirectURL
	m.r.store.payments[id] = p
	return nil
}

// ===== DASHBOARD =====

type mockDashboardRepo struct{ r *MockRepository }

func inScope(branchID *uint, id uint) bool {
	return branchID == nil || *branchID == id
}

func (m *mockDashboardRepo) CountLearners(ctx context.Context, branchID *uint) (int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var n int64
	for _, a := range m.r.store.accounts {
		if a.Role == models.RoleStudent && inScope(branchID, derefUint(a.BranchID)) {
			n++
		}
	}
	return n, nil
}

func (m *mockDashboardRepo) CountExams(ctx context.Context, branchID *uint) (int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var n int64
	for _, e := range m.r.store.exams {
		if inScope(branchID, e.BranchID) {
			n++
		}
	}
	return n, nil
}

func (m *mockDashboardRepo) scopedResults(branchID *uint) []models.Result {
	var out []models.Result
	for _, res := range m.r.store.results {
		if e, ok := m.r.store.exams[res.ExamID]; ok && inScope(branchID, e.BranchID) {
			out = append(out, res)
		}
	}
	return out
}

func (m *mockDashboardRepo) CountResults(ctx context.Context, branchID *uint) (int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	return int64(len(m.scopedResults(branchID))), nil
}

func (m *mockDashboardRepo) AveragePercentage(ctx context.Context, branchID *uint) (float64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	results := m.scopedResults(branchID)
	if len(results) == 0 {
		return 0, nil
	}
	var sum float64
	for _, res := range results {
		sum += res.Percentage
	}
	return sum / float64(len(results)), nil
}

func (m *mockDashboardRepo) PaymentsByStatus(ctx context.Context, branchID *uint) ([]repositories.PaymentStatusCount, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	byStatus := map[string]*repositories.PaymentStatusCount{}
	var order []string
	for _, id := range sortedKeys(m.r.store.payments) {
		p := m.r.store.payments[id]
		if !inScope(branchID, p.BranchID) {
			continue
		}
		c, ok := byStatus[string(p.Status)]
		if !ok {
			c = &repositories.PaymentStatusCount{Status: string(p.Status)}
			byStatus[string(p.Status)] = c
			order = append(order, string(p.Status))
		}
		c.Count++
		c.Amount += p.Amount
	}
	out := make([]repositories.PaymentStatusCount, 0, len(order))
	for _, status := range order {
		out = append(out, *byStatus[status])
	}
	return out, nil
}
