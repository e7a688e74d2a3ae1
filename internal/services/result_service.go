package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type resultService struct {
	deps   Dependencies
	repo   repositories.Repository
	logger *slog.Logger
}

func NewResultService(deps Dependencies) ResultService {
	deps = deps.withDefaults()
	return &resultService{deps: deps, repo: deps.Repo, logger: deps.Logger}
}

func (s *resultService) ListMine(ctx context.Context, actor access.Principal) ([]*models.Result, error) {
	if err := authorize(s.deps.Policy, actor, access.ResourceResult, access.ActionListOwn, 0, access.Ref{OwnerID: actor.ID}); err != nil {
		return nil, err
	}
	results, err := s.repo.Result().ListByLearner(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}

func (s *resultService) GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Result, error) {
	result, err := s.repo.Result().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrResultNotFound)
	}

	ref := access.Ref{OwnerID: result.LearnerID}
	if result.Exam != nil {
		ref.BranchID = result.Exam.BranchID
	} else {
		exam, err := s.repo.Exam().GetByID(ctx, result.ExamID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to load exam: %w", err)
		}
		if exam != nil {
			ref.BranchID = exam.BranchID
		}
	}

	if err := authorize(s.deps.Policy, actor, access.ResourceResult, access.ActionRead, id, ref); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *resultService) ListByExam(ctx context.Context, examID uint, actor access.Principal) ([]*models.Result, error) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		return nil, notFoundAs(err, ErrExamNotFound)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourceResult, access.ActionList, examID, access.Ref{BranchID: exam.BranchID}); err != nil {
		return nil, err
	}

	results, err := s.repo.Result().ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}
