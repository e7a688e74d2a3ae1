package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/cache"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

type dashboardService struct {
	deps   Dependencies
	repo   repositories.Repository
	logger *slog.Logger
}

func NewDashboardService(deps Dependencies) DashboardService {
	deps = deps.withDefaults()
	return &dashboardService{deps: deps, repo: deps.Repo, logger: deps.Logger}
}

// GetStats returns school-wide counters for super admins and branch
// counters for branch admins
func (s *dashboardService) GetStats(ctx context.Context, actor access.Principal) (*DashboardStats, error) {
	if !s.deps.Policy.Allows(actor, access.ResourceDashboard, access.ActionRead) {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourceDashboard), string(access.ActionRead), "insufficient role permissions")
	}
	scope := actor.BranchScope()

	var stats DashboardStats
	err := s.deps.Cache.Stats.CacheOrExecute(ctx, statsKey(scope), &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.computeStats(ctx, scope)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *dashboardService) computeStats(ctx context.Context, branchID *uint) (*DashboardStats, error) {
	s.logger.Debug("Computing dashboard stats", "branch_id", branchID)
	dashboard := s.repo.Dashboard()

	learners, err := dashboard.CountLearners(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to count learners: %w", err)
	}
	exams, err := dashboard.CountExams(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to count exams: %w", err)
	}
	results, err := dashboard.CountResults(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}
	average, err := dashboard.AveragePercentage(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get average percentage: %w", err)
	}
	payments, err := dashboard.PaymentsByStatus(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to group payments: %w", err)
	}

	var collected float64
	for _, p := range payments {
		if p.Status == string(models.PaymentSuccessful) {
			collected += p.Amount
		}
	}

	return &DashboardStats{
		BranchID:          branchID,
		Learners:          learners,
		Exams:             exams,
		Results:           results,
		AveragePercentage: roundFloat(average, 2),
		Payments:          payments,
		AmountCollected:   collected,
		GeneratedAt:       s.deps.Now(),
	}, nil
}

func statsKey(branchID *uint) string {
	if branchID == nil {
		return "all"
	}
	return fmt.Sprintf("branch:%d", *branchID)
}

func roundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
