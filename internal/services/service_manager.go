package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Talent-1/cbt-service/internal/repositories"
)

// ServiceManagerConfig holds the domain settings shared by services
type ServiceManagerConfig struct {
	// IdentityPrefix starts every student identifier
	IdentityPrefix string

	// SubmissionGrace is accepted after a session deadline
	SubmissionGrace time.Duration

	PaymentGatingEnabled bool
	// PaymentGatingWindow bounds which successful payments count; zero means any
	PaymentGatingWindow time.Duration
	DefaultCurrency     string
}

// DefaultServiceManagerConfig returns the settings used when nothing is configured
func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		IdentityPrefix:  "CGS",
		SubmissionGrace: 60 * time.Second,
		DefaultCurrency: "NGN",
	}
}

// Validate checks the configuration
func (c ServiceManagerConfig) Validate() error {
	if c.IdentityPrefix == "" {
		return fmt.Errorf("identity prefix is required")
	}
	if c.SubmissionGrace < 0 {
		return fmt.Errorf("submission grace cannot be negative")
	}
	if c.PaymentGatingWindow < 0 {
		return fmt.Errorf("payment gating window cannot be negative")
	}
	return nil
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	logger *slog.Logger
	config ServiceManagerConfig

	accountService      AccountService
	branchService       BranchService
	subjectService      SubjectService
	questionService     QuestionService
	examService         ExamService
	sessionService      SessionService
	resultService       ResultService
	paymentService      PaymentService
	importExportService ImportExportService
	dashboardService    DashboardService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	deps = deps.withDefaults()
	return &serviceManager{
		deps:   deps,
		logger: deps.Logger,
		config: config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}
	if sm.deps.Repo == nil {
		return fmt.Errorf("repository is required")
	}

	sm.branchService = NewBranchService(sm.deps)
	sm.accountService = NewAccountService(sm.deps, sm.config)
	sm.subjectService = NewSubjectService(sm.deps)
	sm.questionService = NewQuestionService(sm.deps)
	sm.examService = NewExamService(sm.deps)
	sm.paymentService = NewPaymentService(sm.deps, sm.config)
	sm.sessionService = NewSessionService(sm.deps, sm.config, sm.paymentService)
	sm.resultService = NewResultService(sm.deps)
	sm.importExportService = NewImportExportService(sm.deps)
	sm.dashboardService = NewDashboardService(sm.deps)

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully",
		"identity_prefix", sm.config.IdentityPrefix,
		"submission_grace", sm.config.SubmissionGrace,
		"payment_gating", sm.config.PaymentGatingEnabled)

	return nil
}

// mustBeReady panics when a getter runs before Initialize
func (sm *serviceManager) mustBeReady(name string) {
	if !sm.initialized {
		panic(fmt.Sprintf("service manager not initialized: %s requested", name))
	}
}

func (sm *serviceManager) Account() AccountService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("account")
	return sm.accountService
}

func (sm *serviceManager) Branch() BranchService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("branch")
	return sm.branchService
}

func (sm *serviceManager) Subject() SubjectService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("subject")
	return sm.subjectService
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("question")
	return sm.questionService
}

func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("exam")
	return sm.examService
}

func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("session")
	return sm.sessionService
}

func (sm *serviceManager) Result() ResultService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("result")
	return sm.resultService
}

func (sm *serviceManager) Payment() PaymentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("payment")
	return sm.paymentService
}

func (sm *serviceManager) ImportExport() ImportExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("import/export")
	return sm.importExportService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("dashboard")
	return sm.dashboardService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	// redis is optional; the cache degrades to pass-through when absent
	if err := sm.deps.Cache.HealthCheck(ctx); err != nil {
		sm.logger.Warn("Cache health check failed", "error", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if repoManager, ok := sm.deps.Repo.(repositories.RepositoryManager); ok {
		if err := repoManager.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
