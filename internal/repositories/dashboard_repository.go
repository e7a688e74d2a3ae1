package repositories

import "context"

// DashboardRepository provides aggregate counters for administrators.
// A nil branchID means school-wide.
type DashboardRepository interface {
	CountLearners(ctx context.Context, branchID *uint) (int64, error)
	CountExams(ctx context.Context, branchID *uint) (int64, error)
	CountResults(ctx context.Context, branchID *uint) (int64, error)
	AveragePercentage(ctx context.Context, branchID *uint) (float64, error)
	PaymentsByStatus(ctx context.Context, branchID *uint) ([]PaymentStatusCount, error)
}

type PaymentStatusCount struct {
	Status string  `json:"status"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}
