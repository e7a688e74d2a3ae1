package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Talent-1/cbt-service/internal/models"
)

var (
	classLevelPattern = regexp.MustCompile(`^(JSS[1-3]|SS[1-3]|Primary [1-6]|Nursery [1-3]|Basic [1-9])$`)
	branchCodePattern = regexp.MustCompile(`^[A-Z]{2,3}$`)
	optionPattern     = regexp.MustCompile(`^[A-Za-z]$`)
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates struct tags for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// IsClassLevel reports whether s is a known class level
func IsClassLevel(s string) bool {
	return classLevelPattern.MatchString(s)
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("class_level", func(fl validator.FieldLevel) bool {
		return classLevelPattern.MatchString(fl.Field().String())
	})

	bv.validate.RegisterValidation("branch_code", func(fl validator.FieldLevel) bool {
		return branchCodePattern.MatchString(fl.Field().String())
	})

	bv.validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	// Only terminal states may be requested; pending is the initial state
	bv.validate.RegisterValidation("payment_status", func(fl validator.FieldLevel) bool {
		return models.PaymentStatus(fl.Field().String()).IsTerminal()
	})

	bv.validate.RegisterValidation("option_letter", func(fl validator.FieldLevel) bool {
		return optionPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
}

// ValidateAccountCreate checks the role-conditioned account fields
func (bv *BusinessValidator) ValidateAccountCreate(req *models.AccountCreateRequest) ValidationErrors {
	errors := bv.Validate(req)

	if req.Role != models.RoleSuperAdmin && req.BranchID == nil {
		errors = append(errors, ValidationError{
			Field:   "branch_id",
			Message: "is required unless the account is a super admin",
			Rule:    "required_for_role",
		})
	}

	if req.Role == models.RoleStudent {
		if req.ClassLevel == nil || *req.ClassLevel == "" {
			errors = append(errors, ValidationError{
				Field:   "class_level",
				Message: "is required for students",
				Rule:    "required_for_role",
			})
		}
	} else if req.ClassLevel != nil || req.Specialization != nil {
		errors = append(errors, ValidationError{
			Field:   "class_level",
			Message: "only students carry a class level or specialization",
			Value:   req.Role,
			Rule:    "role_fields",
		})
	}

	errors = append(errors, validateSpecialization(req.ClassLevel, req.Specialization)...)
	return errors
}

// ValidateAccountUpdate checks an update against the stored account
func (bv *BusinessValidator) ValidateAccountUpdate(req *models.AccountUpdateRequest, existing *models.Account) ValidationErrors {
	errors := bv.Validate(req)

	if existing.Role != models.RoleStudent && (req.ClassLevel != nil || req.Specialization != nil) {
		errors = append(errors, ValidationError{
			Field:   "class_level",
			Message: "only students carry a class level or specialization",
			Value:   existing.Role,
			Rule:    "role_fields",
		})
	}

	classLevel := existing.ClassLevel
	if req.ClassLevel != nil {
		classLevel = req.ClassLevel
	}
	specialization := existing.Specialization
	if req.Specialization != nil {
		specialization = req.Specialization
	}
	errors = append(errors, validateSpecialization(classLevel, specialization)...)
	return errors
}

func validateSpecialization(classLevel *string, specialization *models.Specialization) ValidationErrors {
	if specialization == nil {
		return nil
	}
	if classLevel == nil || !models.IsSeniorClass(*classLevel) {
		return ValidationErrors{{
			Field:   "specialization",
			Message: "is only allowed for senior secondary classes",
			Value:   *specialization,
			Rule:    "senior_only",
		}}
	}
	return nil
}

// ValidateQuestionCreate checks that the answer key points at an option
func (bv *BusinessValidator) ValidateQuestionCreate(req *models.QuestionCreateRequest) ValidationErrors {
	errors := bv.Validate(req)
	errors = append(errors, ValidateOptions(req.Options, req.CorrectOptionIndex)...)
	return errors
}

// ValidateOptions checks the option list and correct index together
func ValidateOptions(options []string, correctIndex int) ValidationErrors {
	var errors ValidationErrors

	if correctIndex < 0 || correctIndex >= len(options) {
		errors = append(errors, ValidationError{
			Field:   "correct_option_index",
			Message: fmt.Sprintf("must be between 0 and %d", len(options)-1),
			Value:   correctIndex,
			Rule:    "option_range",
		})
	}

	for i, option := range options {
		if strings.TrimSpace(option) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("options[%d]", i),
				Message: "option cannot be empty",
				Rule:    "required",
			})
		}
	}

	return errors
}

// ValidateExamCreate rejects repeated subject allocations
func (bv *BusinessValidator) ValidateExamCreate(req *models.ExamCreateRequest) ValidationErrors {
	errors := bv.Validate(req)

	seen := make(map[uint]bool, len(req.SubjectsIncluded))
	for i, s := range req.SubjectsIncluded {
		if seen[s.SubjectID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("subjects_included[%d].subject_id", i),
				Message: "subject is listed more than once",
				Value:   s.SubjectID,
				Rule:    "unique",
			})
		}
		seen[s.SubjectID] = true
	}

	if req.Specialization != nil && !models.IsSeniorClass(req.ClassLevel) {
		errors = append(errors, ValidationError{
			Field:   "specialization",
			Message: "is only allowed for senior secondary classes",
			Value:   *req.Specialization,
			Rule:    "senior_only",
		})
	}

	return errors
}
