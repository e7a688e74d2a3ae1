package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/cache"
	"github.com/Talent-1/cbt-service/internal/events"
	"github.com/Talent-1/cbt-service/internal/gateway"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

type paymentService struct {
	deps   Dependencies
	repo   repositories.Repository
	logger *slog.Logger

	defaultCurrency string
	gatingWindow    time.Duration
}

func NewPaymentService(deps Dependencies, config ServiceManagerConfig) PaymentService {
	deps = deps.withDefaults()
	currency := strings.ToUpper(config.DefaultCurrency)
	if currency == "" {
		currency = "NGN"
	}
	return &paymentService{
		deps:            deps,
		repo:            deps.Repo,
		logger:          deps.Logger,
		defaultCurrency: currency,
		gatingWindow:    config.PaymentGatingWindow,
	}
}

// ===== INITIATE =====

func (s *paymentService) Initiate(ctx context.Context, req *InitiatePaymentRequest, actor access.Principal) (*models.Payment, error) {
	if err := s.deps.Validator.Validate(req); err != nil {
		return nil, err
	}

	learner, err := s.repo.Account().GetByID(ctx, actor.ID)
	if err != nil {
		return nil, notFoundAs(err, ErrAccountNotFound)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourcePayment, access.ActionInitiate, 0, access.Ref{OwnerID: learner.ID, BranchID: derefUint(learner.BranchID)}); err != nil {
		return nil, err
	}

	// the payload must describe the caller, never another learner
	if learner.StudentID == nil || !strings.EqualFold(strings.TrimSpace(req.StudentID), *learner.StudentID) {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourcePayment), string(access.ActionInitiate), "student_id does not match the caller")
	}
	if learner.BranchID == nil || *learner.BranchID != req.BranchID {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourcePayment), string(access.ActionInitiate), "branch_id does not match the caller")
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == models.PaymentMethodGateway {
		err := s.deps.Gateway.Validate(gateway.Checkout{Amount: req.Amount, Currency: currency})
		switch {
		case errors.Is(err, gateway.ErrUnsupportedCurrency):
			return nil, validationError("currency", err.Error(), "gateway_currency", currency)
		case err != nil:
			return nil, validationError("amount", err.Error(), "gateway_amount", req.Amount)
		}
	}

	payment := &models.Payment{
		LearnerID:            learner.ID,
		Amount:               req.Amount,
		Currency:             currency,
		Status:               models.PaymentPending,
		Description:          strings.TrimSpace(req.Description),
		PaymentMethod:        method,
		TransactionReference: s.newReference(*learner.StudentID),
		BranchID:             req.BranchID,
		ClassLevel:           learner.ClassLevel,
		SubClassLevel:        req.SubClassLevel,
	}
	if err := s.repo.Payment().Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if payment.PaymentMethod == models.PaymentMethodGateway {
		s.attachCheckout(ctx, payment, learner)
	}

	cache.InvalidateStats(ctx, s.deps.Cache)
	publishEvent(ctx, s.deps.Publisher, s.logger, events.PaymentInitiated, map[string]interface{}{
		"payment_id": payment.ID,
		"learner_id": learner.ID,
		"branch_id":  payment.BranchID,
		"amount":     payment.Amount,
		"currency":   payment.Currency,
		"reference":  payment.TransactionReference,
	})

	s.logger.Info("Payment initiated", "payment_id", payment.ID, "reference", payment.TransactionReference, "learner_id", learner.ID)
	return payment, nil
}

// attachCheckout asks the gateway for a hosted checkout. The payment stays
// pending without one when the gateway is down.
func (s *paymentService) attachCheckout(ctx context.Context, payment *models.Payment, learner *models.Account) {
	session, err := s.deps.Gateway.CreateCheckout(ctx, gateway.Checkout{
		Reference:   payment.TransactionReference,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Description: payment.Description,
		FullName:    learner.FullName,
		Email:       derefString(learner.Email),
	})
	if err != nil {
		s.logger.Warn("Failed to create gateway checkout", "payment_id", payment.ID, "error", err)
		return
	}
	if session == nil {
		return
	}
	if err := s.repo.Payment().UpdateGateway(ctx, payment.ID, session.Token, session.RedirectURL); err != nil {
		s.logger.Warn("Failed to store gateway checkout", "payment_id", payment.ID, "error", err)
		return
	}
	payment.GatewayToken = &session.Token
	payment.GatewayRedirectURL = &session.RedirectURL
}

// newReference builds PAY_<student id alnum>-<unix millis>-<6 random chars>
func (s *paymentService) newReference(studentID string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("PAY_%s-%d-%s", nonAlnum.ReplaceAllString(studentID, ""), s.deps.Now().UnixMilli(), suffix)
}

// ===== STATUS MACHINE =====

func (s *paymentService) UpdateStatus(ctx context.Context, id uint, req *UpdatePaymentStatusRequest, actor access.Principal) (*models.Payment, error) {
	if err := s.deps.Validator.Validate(req); err != nil {
		return nil, err
	}
	if !req.Status.IsTerminal() {
		return nil, validationError("status", ErrInvalidPaymentState.Error(), "payment_status", req.Status)
	}

	payment, err := s.repo.Payment().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrPaymentNotFound)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourcePayment, access.ActionTransition, id, access.Ref{OwnerID: payment.LearnerID, BranchID: payment.BranchID}); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	err = s.repo.Payment().Transition(ctx, id, repositories.PaymentTransition{
		To:         req.Status,
		VerifiedBy: actor.ID,
		VerifiedAt: now,
		Notes:      req.AdminNotes,
	})
	if err != nil {
		if !repositories.IsStaleStateError(err) {
			return nil, fmt.Errorf("failed to update payment: %w", err)
		}
		// lost the race or already terminal; reload to tell which
		current, loadErr := s.repo.Payment().GetByID(ctx, id)
		if loadErr != nil {
			return nil, notFoundAs(loadErr, ErrPaymentNotFound)
		}
		return nil, NewBusinessRuleError(ErrPaymentNotPending, "payment_pending",
			fmt.Sprintf("payment is %s", current.Status),
			map[string]interface{}{"payment_id": id, "status": current.Status})
	}

	s.deps.Metrics.ObservePaymentTransition(string(req.Status))
	cache.InvalidateStats(ctx, s.deps.Cache)
	publishEvent(ctx, s.deps.Publisher, s.logger, events.PaymentStatusChanged, map[string]interface{}{
		"payment_id":  id,
		"learner_id":  payment.LearnerID,
		"from":        payment.Status,
		"to":          req.Status,
		"verified_by": actor.ID,
	})
	s.logger.Info("Payment status changed", "payment_id", id, "from", payment.Status, "to", req.Status, "verified_by", actor.ID)

	updated, err := s.repo.Payment().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrPaymentNotFound)
	}
	return updated, nil
}

// ===== READS =====

// Search resolves a transaction reference, or else a student id to that
// learner's latest pending payment
func (s *paymentService) Search(ctx context.Context, query string, actor access.Principal) (*models.Payment, error) {
	if !s.deps.Policy.Allows(actor, access.ResourcePayment, access.ActionSearch) {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourcePayment), string(access.ActionSearch), "insufficient role permissions")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError("q", "search term is required", "required", query)
	}

	payment, err := s.repo.Payment().GetByReference(ctx, query)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to search payments: %w", err)
		}
		payment, err = s.latestPendingForStudent(ctx, query)
		if err != nil {
			return nil, err
		}
	}

	if err := authorize(s.deps.Policy, actor, access.ResourcePayment, access.ActionRead, payment.ID, access.Ref{OwnerID: payment.LearnerID, BranchID: payment.BranchID}); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) latestPendingForStudent(ctx context.Context, studentID string) (*models.Payment, error) {
	learner, err := s.repo.Account().GetByStudentID(ctx, strings.ToUpper(studentID))
	if err != nil {
		return nil, notFoundAs(err, ErrPaymentNotFound)
	}
	payment, err := s.repo.Payment().GetLatestPendingByLearner(ctx, learner.ID)
	if err != nil {
		return nil, notFoundAs(err, ErrPaymentNotFound)
	}
	return payment, nil
}

func (s *paymentService) GetByID(ctx context.Context, id uint, actor access.Principal) (*models.Payment, error) {
	payment, err := s.repo.Payment().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrPaymentNotFound)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourcePayment, access.ActionRead, id, access.Ref{OwnerID: payment.LearnerID, BranchID: payment.BranchID}); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) ListMine(ctx context.Context, actor access.Principal) ([]*models.Payment, error) {
	if !s.deps.Policy.Allows(actor, access.ResourcePayment, access.ActionListOwn) {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourcePayment), string(access.ActionListOwn), "insufficient role permissions")
	}
	payments, err := s.repo.Payment().ListByLearner(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *paymentService) List(ctx context.Context, filters models.PaymentFilters, actor access.Principal) (*PaymentListResponse, error) {
	if !s.deps.Policy.Allows(actor, access.ResourcePayment, access.ActionList) {
		return nil, NewPermissionError(actor.ID, 0, string(access.ResourcePayment), string(access.ActionList), "insufficient role permissions")
	}
	if scope := actor.BranchScope(); scope != nil {
		filters.BranchID = scope
	}

	payments, total, err := s.repo.Payment().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return &PaymentListResponse{Payments: payments, Total: total, Limit: filters.Limit, Offset: filters.Offset}, nil
}

func (s *paymentService) HasSuccessfulPayment(ctx context.Context, learnerID uint) (bool, error) {
	var since time.Time
	if s.gatingWindow > 0 {
		since = s.deps.Now().Add(-s.gatingWindow)
	}
	return s.repo.Payment().HasSuccessful(ctx, learnerID, since)
}
