package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/cache"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type examService struct {
	deps   Dependencies
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExamService(deps Dependencies) ExamService {
	deps = deps.withDefaults()
	return &examService{deps: deps, repo: deps.Repo, logger: deps.Logger}
}

// ===== CORE CRUD OPERATIONS =====

func (s *examService) Create(ctx context.Context, req *CreateExamRequest, actor access.Principal) (*models.Exam, error) {
	s.logger.Info("Creating exam", "creator_id", actor.ID, "title", req.Title)

	if errs := s.deps.Validator.GetBusinessValidator().ValidateExamCreate(req); len(errs) > 0 {
		return nil, errs
	}
	if err := authorize(s.deps.Policy, actor, access.ResourceExam, access.ActionCreate, 0, access.Ref{BranchID: req.BranchID}); err != nil {
		return nil, err
	}

	if _, err := s.repo.Branch().GetByID(ctx, req.BranchID); err != nil {
		return nil, notFoundAs(err, ErrBranchNotFound)
	}

	allocations, err := s.resolveAllocations(ctx, req.SubjectsIncluded)
	if err != nil {
		return nil, err
	}

	examDate := s.deps.Now()
	if req.ExamDate != nil {
		examDate = req.ExamDate.UTC()
	}

	exam := &models.Exam{
		Title:            strings.TrimSpace(req.Title),
		ClassLevel:       req.ClassLevel,
		DurationMinutes:  req.Duration,
		ExamDate:         examDate,
		BranchID:         req.BranchID,
		Specialization:   req.Specialization,
		CreatedBy:        actor.ID,
		SubjectsIncluded: allocations,
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Exam().Create(ctx, exam); err != nil {
			return fmt.Errorf("failed to create exam: %w", err)
		}
		if len(req.QuestionIDs) > 0 {
			if err := s.checkQuestions(ctx, tx, exam, req.QuestionIDs); err != nil {
				return err
			}
			if _, err := tx.Exam().SetQuestions(ctx, exam.ID, req.QuestionIDs); err != nil {
				return fmt.Errorf("failed to link questions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateStats(ctx, s.deps.Cache)
	s.logger.Info("Exam created", "exam_id", exam.ID)

	created, err := s.repo.Exam().GetByIDWithDetails(ctx, exam.ID)
	if err != nil {
		return nil, notFoundAs(err, ErrExamNotFound)
	}
	return created, nil
}

// resolveAllocations snapshots subject names into the planned allocations
func (s *examService) resolveAllocations(ctx context.Context, requested []models.ExamSubjectRequest) ([]models.ExamSubject, error) {
	ids := make([]uint, 0, len(requested))
	for _, r := range requested {
		ids = append(ids, r.SubjectID)
	}

	subjects, err := s.repo.Subject().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load subjects: %w", err)
	}
	byID := make(map[uint]*models.Subject, len(subjects))
	for _, subject := range subjects {
		byID[subject.ID] = subject
	}

	allocations := make([]models.ExamSubject, 0, len(requested))
	for _, r := range requested {
		subject, ok := byID[r.SubjectID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrSubjectNotFound, r.SubjectID)
		}
		allocations = append(allocations, models.ExamSubject{
			SubjectID:         subject.ID,
			SubjectName:       subject.Name,
			NumberOfQuestions: r.NumberOfQuestions,
		})
	}
	return allocations, nil
}

// checkQuestions requires every id to exist and to belong to the exam's class level
func (s *examService) checkQuestions(ctx context.Context, repo repositories.Repository, exam *models.Exam, questionIDs []uint) error {
	unique := uniqueIDs(questionIDs)
	questions, err := repo.Question().GetByIDs(ctx, unique)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}

	found := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		found[q.ID] = q
	}
	for _, id := range unique {
		q, ok := found[id]
		if !ok {
			return fmt.Errorf("%w: %d", ErrQuestionNotFound, id)
		}
		if q.ClassLevel != exam.ClassLevel {
			return validationError("question_ids", fmt.Sprintf("question %d belongs to %s, not %s", id, q.ClassLevel, exam.ClassLevel), "class_level", id)
		}
	}
	return nil
}

func (s *examService) GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Exam, error) {
	exam, err := loadExamDetails(ctx, s.deps, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.deps.Policy, actor, access.ResourceExam, access.ActionRead, id, access.Ref{OwnerID: exam.CreatedBy, BranchID: exam.BranchID}); err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *examService) List(ctx context.Context, filters models.ExamFilters, actor access.Principal) (*ExamListResponse, error) {
	if !s.deps.Policy.Allows(actor, access.ResourceExam, access.ActionList) {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourceExam), string(access.ActionList), "insufficient role permissions")
	}
	if scope := actor.BranchScope(); scope != nil {
		filters.BranchID = scope
	}

	exams, total, err := s.repo.Exam().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return &ExamListResponse{Exams: exams, Total: total, Limit: filters.Limit, Offset: filters.Offset}, nil
}

func (s *examService) Update(ctx context.Context, id uint, req *UpdateExamRequest, actor access.Principal) (*models.Exam, error) {
	if err := s.deps.Validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrExamNotFound)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourceExam, access.ActionUpdate, id, access.Ref{OwnerID: exam.CreatedBy, BranchID: exam.BranchID}); err != nil {
		return nil, err
	}

	if req.Title != nil {
		exam.Title = strings.TrimSpace(*req.Title)
	}
	if req.Duration != nil {
		exam.DurationMinutes = *req.Duration
	}
	if req.ExamDate != nil {
		exam.ExamDate = req.ExamDate.UTC()
	}
	if req.Specialization != nil {
		if !models.IsSeniorClass(exam.ClassLevel) {
			return nil, validationError("specialization", "is only allowed for senior secondary classes", "senior_only", *req.Specialization)
		}
		exam.Specialization = req.Specialization
	}

	if err := s.repo.Exam().Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}
	cache.InvalidateExamCache(ctx, s.deps.Cache, id)

	s.logger.Info("Exam updated", "exam_id", id, "actor_id", actor.ID)
	updated, err := s.repo.Exam().GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrExamNotFound)
	}
	return updated, nil
}

func (s *examService) Delete(ctx context.Context, id uint, actor access.Principal) error {
	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		return notFoundAs(err, ErrExamNotFound)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourceExam, access.ActionDelete, id, access.Ref{OwnerID: exam.CreatedBy, BranchID: exam.BranchID}); err != nil {
		return err
	}

	if err := s.repo.Exam().Delete(ctx, id); err != nil {
		return notFoundAs(err, ErrExamNotFound)
	}
	cache.InvalidateExamCache(ctx, s.deps.Cache, id)
	cache.InvalidateStats(ctx, s.deps.Cache)

	s.logger.Info("Exam deleted", "exam_id", id, "actor_id", actor.ID)
	return nil
}

// ===== QUESTION LINKS =====

func (s *examService) SetQuestions(ctx context.Context, id uint, questionIDs []uint, actor access.Principal) (*models.Exam, error) {
	if len(questionIDs) == 0 {
		return nil, validationError("question_ids", "at least one question is required", "min", nil)
	}

	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrExamNotFound)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourceExam, access.ActionUpdate, id, access.Ref{OwnerID: exam.CreatedBy, BranchID: exam.BranchID}); err != nil {
		return nil, err
	}
	if err := s.checkQuestions(ctx, s.repo, exam, questionIDs); err != nil {
		return nil, err
	}

	count, err := s.repo.Exam().SetQuestions(ctx, id, questionIDs)
	if err != nil {
		return nil, notFoundAs(err, ErrExamNotFound)
	}
	cache.InvalidateExamCache(ctx, s.deps.Cache, id)

	s.logger.Info("Exam questions replaced", "exam_id", id, "total_questions", count)
	updated, err := s.repo.Exam().GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrExamNotFound)
	}
	return updated, nil
}

// ===== LEARNER VIEW =====

func (s *examService) ListForLearner(ctx context.Context, actor access.Principal) ([]*models.Exam, error) {
	if !s.deps.Policy.Allows(actor, access.ResourceExam, access.ActionListOwn) {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourceExam), string(access.ActionListOwn), "only learners have an exam list")
	}

	learner, err := s.repo.Account().GetByID(ctx, actor.ID)
	if err != nil {
		return nil, notFoundAs(err, ErrAccountNotFound)
	}
	if learner.ClassLevel == nil || learner.BranchID == nil {
		return []*models.Exam{}, nil
	}

	exams, err := s.repo.Exam().ListForLearner(ctx, models.LearnerExamFilter{
		ClassLevel:     *learner.ClassLevel,
		BranchID:       *learner.BranchID,
		Specialization: learner.Specialization,
		Now:            s.deps.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list learner exams: %w", err)
	}
	return exams, nil
}

// loadExamDetails reads an exam with allocations and linked questions through the exam cache
func loadExamDetails(ctx context.Context, deps Dependencies, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := deps.Cache.Exam.CacheOrExecute(ctx, cache.ExamKey(id), &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		return deps.Repo.Exam().GetByIDWithDetails(ctx, id)
	})
	if err != nil {
		return nil, notFoundAs(err, ErrExamNotFound)
	}
	return &exam, nil
}

// loadExamFresh bypasses the exam cache for paths that persist a grade
func loadExamFresh(ctx context.Context, deps Dependencies, id uint) (*models.Exam, error) {
	exam, err := deps.Repo.Exam().GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrExamNotFound)
	}
	return exam, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
