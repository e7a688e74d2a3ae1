package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Path      string      `json:"path,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the helpers shared by every handler
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Debug(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "path", c.Request.URL.Path)
	utils.GetLogger(c, h.logger).Error(msg, args...)
}

// RespondWithError writes an ErrorResponse and aborts the chain
func (h *BaseHandler) RespondWithError(c *gin.Context, status int, message string, details interface{}) {
	if err, ok := details.(error); ok {
		details = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

// principal returns the authenticated caller; the auth middleware guarantees it on /api/v1
func (h *BaseHandler) principal(c *gin.Context) (access.Principal, bool) {
	p, ok := GetPrincipal(c)
	if !ok {
		h.RespondWithError(c, http.StatusUnauthorized, "User not authenticated", nil)
	}
	return p, ok
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid "+param, "ID must be a positive number")
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// pagination reads page/size into limit and offset
func (h *BaseHandler) pagination(c *gin.Context) (limit, offset int) {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (page - 1) * size
}

func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return false
	}
	return true
}

// handleServiceError maps service errors to the 400/401/403/404/409/500 taxonomy
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", validationErrors)
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, "Forbidden", permissionError.Reason)
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		details := map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		}
		h.RespondWithError(c, statusFor(businessRuleError.Err, http.StatusConflict), businessRuleError.Message, details)
		return
	}

	status := statusFor(err, http.StatusInternalServerError)
	if status == http.StatusInternalServerError {
		h.LogError(c, err, "Unexpected service error")
		h.RespondWithError(c, status, "Internal server error", nil)
		return
	}
	h.RespondWithError(c, status, err.Error(), nil)
}

// statusFor resolves a sentinel to its HTTP status
func statusFor(err error, fallback int) int {
	switch {
	case err == nil:
		return fallback
	case errors.Is(err, services.ErrValidationFailed), errors.Is(err, services.ErrBadRequest),
		errors.Is(err, services.ErrBranchCodeMissing), errors.Is(err, services.ErrInvalidPaymentState),
		errors.Is(err, services.ErrSessionNotStarted):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrInsufficientPermissions),
		errors.Is(err, services.ErrNotEligible), errors.Is(err, services.ErrPaymentRequired):
		return http.StatusForbidden
	case errors.Is(err, services.ErrBranchNotFound), errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrSubjectNotFound), errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrExamNotFound), errors.Is(err, services.ErrResultNotFound),
		errors.Is(err, services.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrBranchExists), errors.Is(err, services.ErrBranchInUse),
		errors.Is(err, services.ErrSubjectExists), errors.Is(err, services.ErrSubjectInUse),
		errors.Is(err, services.ErrQuestionInUse), errors.Is(err, services.ErrAlreadySubmitted),
		errors.Is(err, services.ErrSubmissionClosed), errors.Is(err, services.ErrPaymentNotPending):
		return http.StatusConflict
	}
	return fallback
}

// optionalID reads a positive integer query parameter as a filter pointer
func (h *BaseHandler) optionalID(c *gin.Context, param string) *uint {
	value := h.parseIntQuery(c, param, 0)
	if value <= 0 {
		return nil
	}
	id := uint(value)
	return &id
}
