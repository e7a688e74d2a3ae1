package services

import (
	"errors"
	"fmt"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/repositories"
	"github.com/Talent-1/cbt-service/internal/validator"
)

// Generic errors
var (
	ErrValidationFailed        = errors.New("validation failed")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("forbidden")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrBadRequest              = errors.New("bad request")
	ErrConflict                = errors.New("resource conflict")
)

// Not found errors
var (
	ErrBranchNotFound   = errors.New("branch not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrExamNotFound     = errors.New("exam not found")
	ErrResultNotFound   = errors.New("result not found")
	ErrPaymentNotFound  = errors.New("payment not found")
)

// Domain errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already in use")
	ErrBranchExists       = errors.New("branch name or code already exists")
	ErrBranchInUse        = errors.New("branch still has accounts, exams or payments")
	ErrBranchCodeMissing  = errors.New("branch has no code")
	ErrSubjectExists      = errors.New("subject already exists for this class level")
	ErrSubjectInUse       = errors.New("subject is used by questions or exams")
	ErrQuestionInUse      = errors.New("question is linked to an exam")

	ErrNotEligible         = errors.New("learner is not eligible for this exam")
	ErrPaymentRequired     = errors.New("a successful payment is required")
	ErrSessionNotStarted   = errors.New("exam session not started")
	ErrAlreadySubmitted    = errors.New("exam already submitted")
	ErrSubmissionClosed    = errors.New("submission window has closed")
	ErrPaymentNotPending   = errors.New("payment is not pending")
	ErrInvalidPaymentState = errors.New("invalid payment status")
)

// ValidationErrors is returned for malformed input
type ValidationErrors = validator.ValidationErrors

// PermissionError is returned when the caller's role or scope does not allow an action
type PermissionError struct {
	UserID     uint
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d may not %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError reports a broken domain rule. Err is the sentinel that
// decides the response status.
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
	Err     error
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func (e *BusinessRuleError) Unwrap() error {
	return e.Err
}

func NewBusinessRuleError(err error, rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
		Err:     err,
	}
}

// notFoundAs swaps a repository not-found error for the service sentinel
func notFoundAs(err, sentinel error) error {
	if repositories.IsNotFoundError(err) {
		return sentinel
	}
	return err
}

// authorize evaluates the policy and converts denials to PermissionError
func authorize(policy *access.Policy, principal access.Principal, resource access.Resource, action access.Action, resourceID uint, ref access.Ref) error {
	err := policy.Authorize(principal, resource, action, ref)
	if err == nil {
		return nil
	}
	var denied *access.DeniedError
	if errors.As(err, &denied) {
		return NewPermissionError(principal.ID, resourceID, string(resource), string(action), denied.Reason)
	}
	return err
}

func validationError(field, message, rule string, value interface{}) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message, Rule: rule, Value: value}}
}
