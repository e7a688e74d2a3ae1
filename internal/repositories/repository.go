package repositories

import "context"

// Repository aggregates every repository the CBT service uses
type Repository interface {
	// Organisation
	Branch() BranchRepository
	Counter() CounterRepository
	Account() AccountRepository

	// Question bank
	Subject() SubjectRepository
	Question() QuestionRepository

	// Exams
	Exam() ExamRepository
	Session() SessionRepository
	Result() ResultRepository

	// Fees
	Payment() PaymentRepository

	// Dashboard domain
	Dashboard() DashboardRepository

	// Transaction support. Repositories handed to fn share one transaction.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
