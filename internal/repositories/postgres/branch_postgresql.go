package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Talent-1/cbt-service/internal/cache"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type BranchPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewBranchPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.BranchRepository {
	return &BranchPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (b *BranchPostgreSQL) Create(ctx context.Context, branch *models.Branch) error {
	if err := b.db.WithContext(ctx).Create(branch).Error; err != nil {
		return translateError(err, "branch", branch.Code)
	}
	cache.SafeInvalidatePattern(ctx, b.cacheManager.Branch, "list:*")
	return nil
}

func (b *BranchPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Branch, error) {
	var branch models.Branch
	err := b.cacheManager.Branch.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &branch, cache.BranchCacheConfig.TTL, func() (interface{}, error) {
		var dbBranch models.Branch
		if err := b.db.WithContext(ctx).First(&dbBranch, id).Error; err != nil {
			return nil, translateError(err, "branch", id)
		}
		return &dbBranch, nil
	})
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (b *BranchPostgreSQL) GetByCode(ctx context.Context, code string) (*models.Branch, error) {
	var branch models.Branch
	if err := b.db.WithContext(ctx).Where("code = ?", code).First(&branch).Error; err != nil {
		return nil, translateError(err, "branch", code)
	}
	return &branch, nil
}

func (b *BranchPostgreSQL) List(ctx context.Context) ([]*models.Branch, error) {
	var branches []*models.Branch
	if err := b.db.WithContext(ctx).Order("name ASC").Find(&branches).Error; err != nil {
		return nil, translateError(err, "branch", "list")
	}
	return branches, nil
}

func (b *BranchPostgreSQL) Update(ctx context.Context, branch *models.Branch) error {
	if err := b.db.WithContext(ctx).Save(branch).Error; err != nil {
		return translateError(err, "branch", branch.ID)
	}
	cache.SafeDelete(ctx, b.cacheManager.Branch, fmt.Sprintf("id:%d", branch.ID))
	return nil
}

func (b *BranchPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := b.db.WithContext(ctx).Delete(&models.Branch{}, id)
	if result.Error != nil {
		return translateError(result.Error, "branch", id)
	}
	if result.RowsAffected == 0 {
		return repositories.NewNotFoundError("branch", id)
	}
	cache.SafeDelete(ctx, b.cacheManager.Branch, fmt.Sprintf("id:%d", id))
	return nil
}

func (b *BranchPostgreSQL) CountDependents(ctx context.Context, id uint) (int64, error) {
	var total int64
	for _, model := range []interface{}{&models.Account{}, &models.Exam{}, &models.Payment{}} {
		var count int64
		if err := b.db.WithContext(ctx).Model(model).Where("branch_id = ?", id).Count(&count).Error; err != nil {
			return 0, fmt.Errorf("failed to count branch dependents: %w", err)
		}
		total += count
	}
	return total, nil
}
