package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/cache"
	"github.com/Talent-1/cbt-service/internal/events"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type accountService struct {
	deps           Dependencies
	repo           repositories.Repository
	logger         *slog.Logger
	identityPrefix string
}

func NewAccountService(deps Dependencies, config ServiceManagerConfig) AccountService {
	deps = deps.withDefaults()
	return &accountService{
		deps:           deps,
		repo:           deps.Repo,
		logger:         deps.Logger,
		identityPrefix: config.IdentityPrefix,
	}
}

func (s *accountService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := s.deps.Validator.Validate(req); err != nil {
		return nil, err
	}

	identifier := strings.TrimSpace(req.Identifier)
	var (
		account *models.Account
		err     error
	)
	if strings.Contains(identifier, "@") {
		account, err = s.repo.Account().GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		account, err = s.repo.Account().GetByStudentID(ctx, strings.ToUpper(identifier))
	}
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info("Login rejected", "account_id", account.ID)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.deps.Tokens.Issue(account)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("Login succeeded", "account_id", account.ID, "role", account.Role)
	return &LoginResponse{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

func (s *accountService) Create(ctx context.Context, req *CreateAccountRequest, actor access.Principal) (*models.Account, error) {
	s.logger.Info("Creating account", "role", req.Role, "actor_id", actor.ID)

	if errs := s.deps.Validator.GetBusinessValidator().ValidateAccountCreate(req); len(errs) > 0 {
		return nil, errs
	}

	if err := authorize(s.deps.Policy, actor, access.ResourceAccount, access.ActionCreate, 0, access.Ref{BranchID: derefUint(req.BranchID)}); err != nil {
		return nil, err
	}
	if req.Role == models.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourceAccount), string(access.ActionCreate), "only super admins may create super admins")
	}

	account := &models.Account{
		FullName:       strings.TrimSpace(req.FullName),
		Gender:         req.Gender,
		Role:           req.Role,
		IsSuperAdmin:   req.Role == models.RoleSuperAdmin,
		BranchID:       req.BranchID,
		Section:        req.Section,
		ClassLevel:     req.ClassLevel,
		Specialization: req.Specialization,
	}

	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		exists, err := s.repo.Account().ExistsByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			return nil, ErrEmailTaken
		}
		account.Email = &email
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	account.PasswordHash = hash

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if account.BranchID != nil {
			branch, err := tx.Branch().GetByID(ctx, *account.BranchID)
			if err != nil {
				return notFoundAs(err, ErrBranchNotFound)
			}
			if account.Role == models.RoleStudent && account.StudentID == nil {
				studentID, err := s.nextStudentID(ctx, tx, branch)
				if err != nil {
					return err
				}
				account.StudentID = &studentID
			}
		}

		if err := tx.Account().Create(ctx, account); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if account.StudentID != nil {
		s.deps.Metrics.ObserveStudentID()
	}
	cache.InvalidateStats(ctx, s.deps.Cache)
	publishEvent(ctx, s.deps.Publisher, s.logger, events.AccountCreated, map[string]interface{}{
		"account_id": account.ID,
		"role":       account.Role,
		"branch_id":  account.BranchID,
		"student_id": account.StudentID,
	})

	s.logger.Info("Account created", "account_id", account.ID, "student_id", derefString(account.StudentID))
	return account, nil
}

// nextStudentID draws the next sequence value of the branch and year. It
// runs inside the account transaction so a failed creation rolls it back.
func (s *accountService) nextStudentID(ctx context.Context, tx repositories.Repository, branch *models.Branch) (string, error) {
	code := strings.TrimSpace(branch.Code)
	if code == "" {
		return "", NewBusinessRuleError(ErrBranchCodeMissing, "branch_code_required",
			"students can only be registered in a branch with a code",
			map[string]interface{}{"branch_id": branch.ID})
	}

	year := s.deps.Now().Year()
	seq, err := tx.Counter().Next(ctx, CounterName(s.identityPrefix, code, year), branch.ID, year)
	if err != nil {
		return "", fmt.Errorf("failed to generate student id: %w", err)
	}
	return FormatStudentID(s.identityPrefix, code, year, seq), nil
}

func (s *accountService) GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Account, error) {
	account, err := s.repo.Account().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrAccountNotFound)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourceAccount, access.ActionRead, id, accountRef(account)); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *accountService) List(ctx context.Context, filters models.AccountFilters, actor access.Principal) (*AccountListResponse, error) {
	if !s.deps.Policy.Allows(actor, access.ResourceAccount, access.ActionList) {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourceAccount), string(access.ActionList), "insufficient role permissions")
	}
	if scope := actor.BranchScope(); scope != nil {
		filters.BranchID = scope
	}

	accounts, total, err := s.repo.Account().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return &AccountListResponse{Accounts: accounts, Total: total, Limit: filters.Limit, Offset: filters.Offset}, nil
}

func (s *accountService) Update(ctx context.Context, id uint, req *UpdateAccountRequest, actor access.Principal) (*models.Account, error) {
	account, err := s.repo.Account().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrAccountNotFound)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourceAccount, access.ActionUpdate, id, accountRef(account)); err != nil {
		return nil, err
	}
	if account.IsSuperAdmin && !actor.IsSuperAdmin() {
		return nil, NewPermissionError(actor.ID, id, string(access.ResourceAccount), string(access.ActionUpdate), "only super admins may edit super admins")
	}
	if errs := s.deps.Validator.GetBusinessValidator().ValidateAccountUpdate(req, account); len(errs) > 0 {
		return nil, errs
	}

	if req.FullName != nil {
		account.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			account.Email = nil
		} else if account.Email == nil || *account.Email != email {
			exists, err := s.repo.Account().ExistsByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			if exists {
				return nil, ErrEmailTaken
			}
			account.Email = &email
		}
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		account.PasswordHash = hash
	}
	if req.Gender != nil {
		account.Gender = *req.Gender
	}
	if req.Section != nil {
		account.Section = req.Section
	}
	if req.ClassLevel != nil {
		account.ClassLevel = req.ClassLevel
	}
	if req.Specialization != nil {
		account.Specialization = req.Specialization
	}

	if err := s.repo.Account().Update(ctx, account); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	s.logger.Info("Account updated", "account_id", id, "actor_id", actor.ID)
	return account, nil
}

func (s *accountService) Delete(ctx context.Context, id uint, actor access.Principal) error {
	account, err := s.repo.Account().GetByID(ctx, id)
	if err != nil {
		return notFoundAs(err, ErrAccountNotFound)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourceAccount, access.ActionDelete, id, accountRef(account)); err != nil {
		return err
	}
	if account.ID == actor.ID {
		return NewBusinessRuleError(ErrConflict, "self_delete", "accounts cannot delete themselves", nil)
	}
	if account.IsSuperAdmin && !actor.IsSuperAdmin() {
		return NewPermissionError(actor.ID, id, string(access.ResourceAccount), string(access.ActionDelete), "only super admins may delete super admins")
	}

	if err := s.repo.Account().Delete(ctx, id); err != nil {
		return notFoundAs(err, ErrAccountNotFound)
	}
	cache.InvalidateStats(ctx, s.deps.Cache)

	s.logger.Info("Account deleted", "account_id", id, "actor_id", actor.ID)
	return nil
}

func (s *accountService) ResolveByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.repo.Account().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, notFoundAs(err, ErrAccountNotFound)
	}
	return account, nil
}

func accountRef(account *models.Account) access.Ref {
	return access.Ref{OwnerID: account.ID, BranchID: derefUint(account.BranchID)}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", validationError("password", "is too long", "max", nil)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
