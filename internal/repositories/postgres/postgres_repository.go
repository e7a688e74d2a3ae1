package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Talent-1/cbt-service/internal/cache"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	// Repository instances
	branch    repositories.BranchRepository
	counter   repositories.CounterRepository
	account   repositories.AccountRepository
	subject   repositories.SubjectRepository
	question  repositories.QuestionRepository
	exam      repositories.ExamRepository
	session   repositories.SessionRepository
	result    repositories.ResultRepository
	payment   repositories.PaymentRepository
	dashboard repositories.DashboardRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	AutoMigrate bool
}

// NewPostgreSQLRepository creates a new repository with all sub-repositories bound to db
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	return newRepository(config.DB, config.RedisClient, cache.NewCacheManager(config.RedisClient))
}

func newRepository(db *gorm.DB, redisClient *redis.Client, cacheManager *cache.CacheManager) *PostgreSQLRepository {
	return &PostgreSQLRepository{
		db:           db,
		redisClient:  redisClient,
		cacheManager: cacheManager,
		branch:       NewBranchPostgreSQL(db, redisClient),
		counter:      NewCounterPostgreSQL(db),
		account:      NewAccountPostgreSQL(db),
		subject:      NewSubjectPostgreSQL(db),
		question:     NewQuestionPostgreSQL(db),
		exam:         NewExamPostgreSQL(db),
		session:      NewSessionPostgreSQL(db),
		result:       NewResultPostgreSQL(db),
		payment:      NewPaymentPostgreSQL(db),
		dashboard:    NewDashboardRepository(db),
	}
}

func (r *PostgreSQLRepository) Branch() repositories.BranchRepository       { return r.branch }
func (r *PostgreSQLRepository) Counter() repositories.CounterRepository     { return r.counter }
func (r *PostgreSQLRepository) Account() repositories.AccountRepository     { return r.account }
func (r *PostgreSQLRepository) Subject() repositories.SubjectRepository     { return r.subject }
func (r *PostgreSQLRepository) Question() repositories.QuestionRepository   { return r.question }
func (r *PostgreSQLRepository) Exam() repositories.ExamRepository           { return r.exam }
func (r *PostgreSQLRepository) Session() repositories.SessionRepository     { return r.session }
func (r *PostgreSQLRepository) Result() repositories.ResultRepository       { return r.result }
func (r *PostgreSQLRepository) Payment() repositories.PaymentRepository     { return r.payment }
func (r *PostgreSQLRepository) Dashboard() repositories.DashboardRepository { return r.dashboard }

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepository(tx, r.redisClient, r.cacheManager))
	})
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize checks connections, migrates the schema when asked and builds the repository
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("Redis connection failed: %w", err)
		}
	}

	if rm.config.AutoMigrate {
		if err := Migrate(rm.config.DB); err != nil {
			return err
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}

	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}

	return rm.repo.Close()
}

// Migrate creates or updates every table the service owns
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Branch{},
		&models.Counter{},
		&models.Account{},
		&models.Subject{},
		&models.Question{},
		&models.Exam{},
		&models.ExamSubject{},
		&models.ExamQuestion{},
		&models.ExamSession{},
		&models.Result{},
		&models.ResultAnswer{},
		&models.Payment{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
