package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type subjectService struct {
	deps   Dependencies
	repo   repositories.Repository
	logger *slog.Logger
}

func NewSubjectService(deps Dependencies) SubjectService {
	deps = deps.withDefaults()
	return &subjectService{deps: deps, repo: deps.Repo, logger: deps.Logger}
}

func (s *subjectService) Create(ctx context.Context, req *CreateSubjectRequest, actor access.Principal) (*models.Subject, error) {
	if err := authorize(s.deps.Policy, actor, access.ResourceSubject, access.ActionCreate, 0, access.Ref{}); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.deps.Validator.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.Subject().ExistsByNameAndClass(ctx, req.Name, req.ClassLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to check subject: %w", err)
	}
	if exists {
		return nil, ErrSubjectExists
	}

	subject := &models.Subject{Name: req.Name, ClassLevel: req.ClassLevel}
	if err := s.repo.Subject().Create(ctx, subject); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrSubjectExists
		}
		return nil, fmt.Errorf("failed to create subject: %w", err)
	}

	s.logger.Info("Subject created", "subject_id", subject.ID, "class_level", subject.ClassLevel)
	return subject, nil
}

func (s *subjectService) List(ctx context.Context, classLevel *string) ([]*models.Subject, error) {
	subjects, err := s.repo.Subject().List(ctx, classLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return subjects, nil
}

func (s *subjectService) Delete(ctx context.Context, id uint, actor access.Principal) error {
	if err := authorize(s.deps.Policy, actor, access.ResourceSubject, access.ActionDelete, id, access.Ref{}); err != nil {
		return err
	}
	if _, err := s.repo.Subject().GetByID(ctx, id); err != nil {
		return notFoundAs(err, ErrSubjectNotFound)
	}

	inUse, err := s.repo.Subject().IsInUse(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check subject usage: %w", err)
	}
	if inUse {
		return ErrSubjectInUse
	}

	if err := s.repo.Subject().Delete(ctx, id); err != nil {
		return notFoundAs(err, ErrSubjectNotFound)
	}
	return nil
}
