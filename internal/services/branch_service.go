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

type branchService struct {
	deps   Dependencies
	repo   repositories.Repository
	logger *slog.Logger
}

func NewBranchService(deps Dependencies) BranchService {
	deps = deps.withDefaults()
	return &branchService{deps: deps, repo: deps.Repo, logger: deps.Logger}
}

func (s *branchService) Create(ctx context.Context, req *CreateBranchRequest, actor access.Principal) (*models.Branch, error) {
	if err := authorize(s.deps.Policy, actor, access.ResourceBranch, access.ActionCreate, 0, access.Ref{}); err != nil {
		return nil, err
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.deps.Validator.Validate(req); err != nil {
		return nil, err
	}

	branch := &models.Branch{Name: req.Name, Address: req.Address, Code: req.Code}
	if err := s.repo.Branch().Create(ctx, branch); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrBranchExists
		}
		return nil, fmt.Errorf("failed to create branch: %w", err)
	}

	s.logger.Info("Branch created", "branch_id", branch.ID, "code", branch.Code)
	return branch, nil
}

func (s *branchService) GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Branch, error) {
	if err := authorize(s.deps.Policy, actor, access.ResourceBranch, access.ActionRead, id, access.Ref{BranchID: id}); err != nil {
		return nil, err
	}
	branch, err := s.repo.Branch().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrBranchNotFound)
	}
	return branch, nil
}

func (s *branchService) List(ctx context.Context, actor access.Principal) ([]*models.Branch, error) {
	if !s.deps.Policy.Allows(actor, access.ResourceBranch, access.ActionList) {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourceBranch), string(access.ActionList), "insufficient role permissions")
	}
	branches, err := s.repo.Branch().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, nil
}

// Update never touches the code: issued student ids embed it
func (s *branchService) Update(ctx context.Context, id uint, req *UpdateBranchRequest, actor access.Principal) (*models.Branch, error) {
	if err := authorize(s.deps.Policy, actor, access.ResourceBranch, access.ActionUpdate, id, access.Ref{BranchID: id}); err != nil {
		return nil, err
	}
	if err := s.deps.Validator.Validate(req); err != nil {
		return nil, err
	}

	branch, err := s.repo.Branch().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrBranchNotFound)
	}
	if req.Name != nil {
		branch.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		branch.Address = *req.Address
	}

	if err := s.repo.Branch().Update(ctx, branch); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrBranchExists
		}
		return nil, fmt.Errorf("failed to update branch: %w", err)
	}
	return branch, nil
}

// Delete refuses while anything still references the branch
func (s *branchService) Delete(ctx context.Context, id uint, actor access.Principal) error {
	if err := authorize(s.deps.Policy, actor, access.ResourceBranch, access.ActionDelete, id, access.Ref{BranchID: id}); err != nil {
		return err
	}
	if _, err := s.repo.Branch().GetByID(ctx, id); err != nil {
		return notFoundAs(err, ErrBranchNotFound)
	}

	dependents, err := s.repo.Branch().CountDependents(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count branch dependents: %w", err)
	}
	if dependents > 0 {
		return NewBusinessRuleError(ErrBranchInUse, "branch_in_use",
			"branch still has accounts, exams or payments",
			map[string]interface{}{"branch_id": id, "dependents": dependents})
	}

	if err := s.repo.Branch().Delete(ctx, id); err != nil {
		return notFoundAs(err, ErrBranchNotFound)
	}

	s.logger.Info("Branch deleted", "branch_id", id, "actor_id", actor.ID)
	return nil
}
