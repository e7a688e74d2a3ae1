package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardRepository{db: db}
}

func scopeBranch(query *gorm.DB, column string, branchID *uint) *gorm.DB {
	if branchID == nil {
		return query
	}
	return query.Where(column+" = ?", *branchID)
}

// ===== DASHBOARD STATS =====

func (r *dashboardRepository) CountLearners(ctx context.Context, branchID *uint) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Account{}).Where("role = ?", models.RoleStudent)
	if err := scopeBranch(query, "branch_id", branchID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count learners: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) CountExams(ctx context.Context, branchID *uint) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Exam{})
	if err := scopeBranch(query, "branch_id", branchID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count exams: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) CountResults(ctx context.Context, branchID *uint) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Result{}).
		Joins("JOIN exams ON exams.id = results.exam_id")
	if err := scopeBranch(query, "exams.branch_id", branchID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}

// ===== METRICS =====

func (r *dashboardRepository) AveragePercentage(ctx context.Context, branchID *uint) (float64, error) {
	var avg *float64
	query := r.db.WithContext(ctx).Model(&models.Result{}).
		Select("AVG(results.percentage)").
		Joins("JOIN exams ON exams.id = results.exam_id")
	if err := scopeBranch(query, "exams.branch_id", branchID).Scan(&avg).Error; err != nil {
		return 0, fmt.Errorf("failed to get average percentage: %w", err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

func (r *dashboardRepository) PaymentsByStatus(ctx context.Context, branchID *uint) ([]repositories.PaymentStatusCount, error) {
	var rows []repositories.PaymentStatusCount
	query := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("status").
		Order("status")
	if err := scopeBranch(query, "branch_id", branchID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to group payments: %w", err)
	}
	return rows, nil
}
