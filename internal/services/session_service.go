package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/cache"
	"github.com/Talent-1/cbt-service/internal/events"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

// sessionService runs the learner side of an exam: eligibility, question
// delivery against a server-side clock, and one scored submission.
type sessionService struct {
	deps     Dependencies
	repo     repositories.Repository
	logger   *slog.Logger
	payments PaymentService

	grace         time.Duration
	gatingEnabled bool
}

func NewSessionService(deps Dependencies, config ServiceManagerConfig, payments PaymentService) SessionService {
	deps = deps.withDefaults()
	return &sessionService{
		deps:          deps,
		repo:          deps.Repo,
		logger:        deps.Logger,
		payments:      payments,
		grace:         config.SubmissionGrace,
		gatingEnabled: config.PaymentGatingEnabled,
	}
}

// ===== QUESTION DELIVERY =====

func (s *sessionService) GetQuestions(ctx context.Context, examID uint, actor access.Principal, client ClientInfo) (*ExamQuestionsResponse, error) {
	exam, err := loadExamDetails(ctx, s.deps, examID)
	if err != nil {
		return nil, err
	}
	questions := linkedQuestions(exam)

	if actor.Role.IsStaff() {
		if err := authorize(s.deps.Policy, actor, access.ResourceExam, access.ActionRead, examID, access.Ref{OwnerID: exam.CreatedBy, BranchID: exam.BranchID}); err != nil {
			return nil, err
		}
		return &ExamQuestionsResponse{
			Exam:          exam,
			Questions:     questions,
			SubjectGroups: groupBySubject(questions),
		}, nil
	}

	learner, err := s.loadLearner(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligibility(ctx, exam, learner, actor, access.ResourceExam, access.ActionTake); err != nil {
		return nil, err
	}

	session, err := s.startSession(ctx, exam, learner, client)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionSubmitted {
		return nil, ErrAlreadySubmitted
	}

	projections := make([]models.LearnerQuestion, 0, len(questions))
	for _, q := range questions {
		projections = append(projections, q.ToLearner())
	}

	return &ExamQuestionsResponse{
		Exam:          learnerExamView(exam),
		Session:       s.sessionInfo(session),
		Questions:     projections,
		SubjectGroups: groupBySubject(questions),
	}, nil
}

// startSession creates the session on first fetch; later fetches reuse it
// so refreshing the page never restarts the clock
func (s *sessionService) startSession(ctx context.Context, exam *models.Exam, learner *models.Account, client ClientInfo) (*models.ExamSession, error) {
	now := s.deps.Now()
	candidate := &models.ExamSession{
		LearnerID: learner.ID,
		ExamID:    exam.ID,
		Status:    models.SessionInProgress,
		StartedAt: now,
		Deadline:  now.Add(exam.Duration()),
	}
	if client.IPAddress != "" {
		candidate.IPAddress = &client.IPAddress
	}
	if client.UserAgent != "" {
		candidate.UserAgent = &client.UserAgent
	}

	session, created, err := s.repo.Session().GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to start exam session: %w", err)
	}
	if created {
		s.logger.Info("Exam session started", "exam_id", exam.ID, "learner_id", learner.ID, "deadline", session.Deadline)
		publishEvent(ctx, s.deps.Publisher, s.logger, events.ExamSessionStarted, map[string]interface{}{
			"session_id": session.ID,
			"exam_id":    exam.ID,
			"learner_id": learner.ID,
			"deadline":   session.Deadline,
		})
	}
	return session, nil
}

func (s *sessionService) GetSession(ctx context.Context, examID uint, actor access.Principal) (*SessionInfo, error) {
	session, err := s.repo.Session().GetByLearnerAndExam(ctx, actor.ID, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotStarted
		}
		return nil, fmt.Errorf("failed to load exam session: %w", err)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourceSession, access.ActionRead, session.ID, access.Ref{OwnerID: session.LearnerID}); err != nil {
		return nil, err
	}
	return s.sessionInfo(session), nil
}

// ===== SUBMISSION =====

func (s *sessionService) Submit(ctx context.Context, examID uint, req *SubmitExamRequest, actor access.Principal) (*SubmissionResponse, error) {
	if err := s.deps.Validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := loadExamFresh(ctx, s.deps, examID)
	if err != nil {
		return nil, err
	}
	learner, err := s.loadLearner(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligibility(ctx, exam, learner, actor, access.ResourceSession, access.ActionSubmit); err != nil {
		return nil, err
	}

	session, err := s.repo.Session().GetByLearnerAndExam(ctx, learner.ID, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.deps.Metrics.ObserveSubmission("no_session")
			return nil, ErrSessionNotStarted
		}
		return nil, fmt.Errorf("failed to load exam session: %w", err)
	}
	if session.Status == models.SessionSubmitted {
		s.deps.Metrics.ObserveSubmission("duplicate")
		return nil, ErrAlreadySubmitted
	}

	now := s.deps.Now()
	if now.After(session.Deadline.Add(s.grace)) {
		s.deps.Metrics.ObserveSubmission("late")
		s.logger.Warn("Late submission rejected", "exam_id", examID, "learner_id", learner.ID, "deadline", session.Deadline)
		return nil, NewBusinessRuleError(ErrSubmissionClosed, "submission_window",
			"the exam deadline has passed",
			map[string]interface{}{"deadline": session.Deadline, "grace_seconds": int(s.grace.Seconds())})
	}

	scoring := ScoreSubmission(linkedQuestions(exam), req.Answers, exam.TotalQuestionsCount)
	result := &models.Result{
		LearnerID:      learner.ID,
		ExamID:         examID,
		Score:          scoring.Score,
		TotalQuestions: scoring.TotalQuestions,
		Percentage:     scoring.Percentage,
		SubmittedAt:    now,
		Answers:        scoring.Answers,
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Session().MarkSubmitted(ctx, session.ID, now); err != nil {
			if repositories.IsStaleStateError(err) {
				return ErrAlreadySubmitted
			}
			return fmt.Errorf("failed to close exam session: %w", err)
		}
		if err := tx.Result().Create(ctx, result); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAlreadySubmitted
			}
			return fmt.Errorf("failed to save result: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			s.deps.Metrics.ObserveSubmission("duplicate")
		}
		return nil, err
	}

	s.deps.Metrics.ObserveSubmission("accepted")
	cache.InvalidateStats(ctx, s.deps.Cache)
	publishEvent(ctx, s.deps.Publisher, s.logger, events.ResultSubmitted, map[string]interface{}{
		"result_id":  result.ID,
		"exam_id":    examID,
		"learner_id": learner.ID,
		"score":      result.Score,
		"percentage": result.Percentage,
	})

	s.logger.Info("Exam submitted", "exam_id", examID, "learner_id", learner.ID, "score", result.Score, "total", result.TotalQuestions)
	return &SubmissionResponse{
		ResultID:       result.ID,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		Percentage:     result.Percentage,
	}, nil
}

// ===== ELIGIBILITY =====

func (s *sessionService) loadLearner(ctx context.Context, actor access.Principal) (*models.Account, error) {
	if actor.Role != models.RoleStudent {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourceSession), string(access.ActionTake), "only learners sit exams")
	}
	learner, err := s.repo.Account().GetByID(ctx, actor.ID)
	if err != nil {
		return nil, notFoundAs(err, ErrAccountNotFound)
	}
	return learner, nil
}

// checkEligibility gates questions and submissions on class, branch,
// specialization, exam date and optionally payment
func (s *sessionService) checkEligibility(ctx context.Context, exam *models.Exam, learner *models.Account, actor access.Principal, resource access.Resource, action access.Action) error {
	deny := func(reason string) error {
		return NewPermissionError(actor.ID, exam.ID, string(resource), string(action), reason)
	}

	if err := authorize(s.deps.Policy, actor, resource, action, exam.ID, access.Ref{BranchID: exam.BranchID}); err != nil {
		return err
	}
	if learner.BranchID == nil || *learner.BranchID != exam.BranchID {
		return deny("exam belongs to another branch")
	}
	if learner.ClassLevel == nil || *learner.ClassLevel != exam.ClassLevel {
		return deny("exam is for another class level")
	}
	if exam.Specialization != nil && (learner.Specialization == nil || *learner.Specialization != *exam.Specialization) {
		return deny("exam is for another specialization")
	}
	if exam.ExamDate.After(s.deps.Now()) {
		return deny("exam has not opened yet")
	}

	if s.gatingEnabled && s.payments != nil {
		paid, err := s.payments.HasSuccessfulPayment(ctx, learner.ID)
		if err != nil {
			return fmt.Errorf("failed to check payments: %w", err)
		}
		if !paid {
			return deny(ErrPaymentRequired.Error())
		}
	}
	return nil
}

func (s *sessionService) sessionInfo(session *models.ExamSession) *SessionInfo {
	remaining := session.RemainingAt(s.deps.Now())
	if session.Status == models.SessionSubmitted {
		remaining = 0
	}
	return &SessionInfo{
		ID:               session.ID,
		Status:           session.Status,
		StartedAt:        session.StartedAt,
		Deadline:         session.Deadline,
		RemainingSeconds: int64(remaining / time.Second),
	}
}

// ===== PROJECTIONS =====

// linkedQuestions returns the exam's questions in position order
func linkedQuestions(exam *models.Exam) []*models.Question {
	questions := make([]*models.Question, 0, len(exam.Questions))
	for i := range exam.Questions {
		if q := exam.Questions[i].Question; q != nil {
			questions = append(questions, q)
		}
	}
	return questions
}

// learnerExamView drops the linked questions, which carry answer keys
func learnerExamView(exam *models.Exam) *models.Exam {
	view := *exam
	view.Questions = nil
	return &view
}

// groupBySubject lists question ids per subject in first-appearance order
func groupBySubject(questions []*models.Question) []SubjectGroup {
	groups := make([]SubjectGroup, 0)
	index := make(map[uint]int)
	for _, q := range questions {
		i, ok := index[q.SubjectID]
		if !ok {
			name := ""
			if q.Subject != nil {
				name = q.Subject.Name
			}
			groups = append(groups, SubjectGroup{SubjectID: q.SubjectID, SubjectName: name})
			i = len(groups) - 1
			index[q.SubjectID] = i
		}
		groups[i].QuestionIDs = append(groups[i].QuestionIDs, q.ID)
	}
	return groups
}
