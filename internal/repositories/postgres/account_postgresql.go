package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type AccountPostgreSQL struct {
	db *gorm.DB
}

func NewAccountPostgreSQL(db *gorm.DB) repositories.AccountRepository {
	return &AccountPostgreSQL{db: db}
}

func (a *AccountPostgreSQL) Create(ctx context.Context, account *models.Account) error {
	return translateError(a.db.WithContext(ctx).Create(account).Error, "account", account.FullName)
}

func (a *AccountPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := a.db.WithContext(ctx).Preload("Branch").First(&account, id).Error; err != nil {
		return nil, translateError(err, "account", id)
	}
	return &account, nil
}

func (a *AccountPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := a.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&account).Error; err != nil {
		return nil, translateError(err, "account", email)
	}
	return &account, nil
}

func (a *AccountPostgreSQL) GetByStudentID(ctx context.Context, studentID string) (*models.Account, error) {
	var account models.Account
	if err := a.db.WithContext(ctx).Where("student_id = ?", studentID).First(&account).Error; err != nil {
		return nil, translateError(err, "account", studentID)
	}
	return &account, nil
}

func (a *AccountPostgreSQL) List(ctx context.Context, filters models.AccountFilters) ([]*models.Account, int64, error) {
	var accounts []*models.Account
	var total int64

	query := a.db.WithContext(ctx).Model(&models.Account{})
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.BranchID != nil {
		query = query.Where("branch_id = ?", *filters.BranchID)
	}
	if filters.ClassLevel != nil {
		query = query.Where("class_level = ?", *filters.ClassLevel)
	}
	if filters.Search != "" {
		pattern := likePattern(filters.Search)
		query = query.Where("full_name ILIKE ? OR email ILIKE ? OR student_id ILIKE ?", pattern, pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "account", "list")
	}
	if err := paginate(query, filters.Limit, filters.Offset).Order("full_name ASC").Find(&accounts).Error; err != nil {
		return nil, 0, translateError(err, "account", "list")
	}
	return accounts, total, nil
}

// Update never writes student_id; it is fixed at creation
func (a *AccountPostgreSQL) Update(ctx context.Context, account *models.Account) error {
	err := a.db.WithContext(ctx).Model(account).Omit("student_id", "created_at", "Branch").Save(account).Error
	return translateError(err, "account", account.ID)
}

func (a *AccountPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := a.db.WithContext(ctx).Delete(&models.Account{}, id)
	if result.Error != nil {
		return translateError(result.Error, "account", id)
	}
	if result.RowsAffected == 0 {
		return repositories.NewNotFoundError("account", id)
	}
	return nil
}

func (a *AccountPostgreSQL) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&models.Account{}).Where("LOWER(email) = ?", strings.ToLower(email)).Count(&count).Error
	return count > 0, translateError(err, "account", email)
}
