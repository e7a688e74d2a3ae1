package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gorm.io/datatypes"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/cache"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
	"github.com/Talent-1/cbt-service/internal/storage"
	"github.com/Talent-1/cbt-service/internal/validator"
)

type questionService struct {
	deps   Dependencies
	repo   repositories.Repository
	logger *slog.Logger
}

func NewQuestionService(deps Dependencies) QuestionService {
	deps = deps.withDefaults()
	return &questionService{deps: deps, repo: deps.Repo, logger: deps.Logger}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest, actor access.Principal) (*models.Question, error) {
	if err := authorize(s.deps.Policy, actor, access.ResourceQuestion, access.ActionCreate, 0, access.Ref{}); err != nil {
		return nil, err
	}

	question, err := s.buildQuestion(ctx, req, actor.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question created", "question_id", question.ID, "subject_id", question.SubjectID, "creator_id", actor.ID)
	return question, nil
}

// buildQuestion validates a create request and resolves its subject
func (s *questionService) buildQuestion(ctx context.Context, req *CreateQuestionRequest, creatorID uint) (*models.Question, error) {
	if errs := s.deps.Validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	subject, err := s.repo.Subject().GetByID(ctx, req.SubjectID)
	if err != nil {
		return nil, notFoundAs(err, ErrSubjectNotFound)
	}
	if subject.ClassLevel != req.ClassLevel {
		return nil, validationError("class_level", "must match the subject's class level", "subject_class", req.ClassLevel)
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	return &models.Question{
		SubjectID:          req.SubjectID,
		ClassLevel:         req.ClassLevel,
		Text:               strings.TrimSpace(req.Text),
		Options:            datatypes.JSONSlice[string](trimAll(req.Options)),
		CorrectOptionIndex: req.CorrectOptionIndex,
		Category:           req.Category,
		Difficulty:         difficulty,
		CreatedBy:          creatorID,
		Subject:            subject,
	}, nil
}

func (s *questionService) GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Question, error) {
	if err := authorize(s.deps.Policy, actor, access.ResourceQuestion, access.ActionRead, id, access.Ref{}); err != nil {
		return nil, err
	}
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrQuestionNotFound)
	}
	return question, nil
}

func (s *questionService) List(ctx context.Context, filters models.QuestionFilters, actor access.Principal) (*QuestionListResponse, error) {
	if err := authorize(s.deps.Policy, actor, access.ResourceQuestion, access.ActionList, 0, access.Ref{}); err != nil {
		return nil, err
	}
	questions, total, err := s.repo.Question().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return &QuestionListResponse{Questions: questions, Total: total, Limit: filters.Limit, Offset: filters.Offset}, nil
}

func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest, actor access.Principal) (*models.Question, error) {
	if err := authorize(s.deps.Policy, actor, access.ResourceQuestion, access.ActionUpdate, id, access.Ref{}); err != nil {
		return nil, err
	}
	if err := s.deps.Validator.Validate(req); err != nil {
		return nil, err
	}

	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrQuestionNotFound)
	}

	if req.SubjectID != nil {
		question.SubjectID = *req.SubjectID
	}
	if req.ClassLevel != nil {
		question.ClassLevel = *req.ClassLevel
	}
	if req.SubjectID != nil || req.ClassLevel != nil {
		subject, err := s.repo.Subject().GetByID(ctx, question.SubjectID)
		if err != nil {
			return nil, notFoundAs(err, ErrSubjectNotFound)
		}
		if subject.ClassLevel != question.ClassLevel {
			return nil, validationError("class_level", "must match the subject's class level", "subject_class", question.ClassLevel)
		}
		question.Subject = subject
	}
	if req.Text != nil {
		question.Text = strings.TrimSpace(*req.Text)
	}
	if req.Options != nil {
		question.Options = datatypes.JSONSlice[string](trimAll(req.Options))
	}
	if req.CorrectOptionIndex != nil {
		question.CorrectOptionIndex = *req.CorrectOptionIndex
	}
	if req.Category != nil {
		question.Category = req.Category
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}

	if errs := validator.ValidateOptions(question.Options, question.CorrectOptionIndex); len(errs) > 0 {
		return nil, errs
	}

	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	cache.InvalidateAllExams(ctx, s.deps.Cache)

	s.logger.Info("Question updated", "question_id", id, "actor_id", actor.ID)
	return question, nil
}

func (s *questionService) Delete(ctx context.Context, id uint, actor access.Principal) error {
	if err := authorize(s.deps.Policy, actor, access.ResourceQuestion, access.ActionDelete, id, access.Ref{}); err != nil {
		return err
	}
	if _, err := s.repo.Question().GetByID(ctx, id); err != nil {
		return notFoundAs(err, ErrQuestionNotFound)
	}

	used, err := s.repo.Question().IsUsedInExams(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check question usage: %w", err)
	}
	if used {
		return ErrQuestionInUse
	}

	if err := s.repo.Question().Delete(ctx, id); err != nil {
		return notFoundAs(err, ErrQuestionNotFound)
	}
	return nil
}

// UploadImage stores a normalised copy of the image and links it to the question
func (s *questionService) UploadImage(ctx context.Context, id uint, image io.Reader, actor access.Principal) (*models.Question, error) {
	if err := authorize(s.deps.Policy, actor, access.ResourceQuestion, access.ActionUpdate, id, access.Ref{}); err != nil {
		return nil, err
	}
	if s.deps.Images == nil {
		return nil, fmt.Errorf("image storage is not configured")
	}

	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrQuestionNotFound)
	}

	url, err := s.deps.Images.SaveImage(ctx, "questions", image)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyImage) || errors.Is(err, storage.ErrUnsupportedImage) || errors.Is(err, storage.ErrImageTooLarge) {
			return nil, validationError("image", err.Error(), "image", nil)
		}
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	question.ImageURL = &url
	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	cache.InvalidateAllExams(ctx, s.deps.Cache)

	s.logger.Info("Question image stored", "question_id", id, "url", url)
	return question, nil
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
