// Package access holds the role and ownership rules for every operation.
// Routes check the role part once per request; services check ownership
// after loading the record.
package access

import (
	"fmt"

	"github.com/Talent-1/cbt-service/internal/models"
)

type Resource string

const (
	ResourceBranch    Resource = "branch"
	ResourceAccount   Resource = "account"
	ResourceSubject   Resource = "subject"
	ResourceQuestion  Resource = "question"
	ResourceExam      Resource = "exam"
	ResourceSession   Resource = "exam_session"
	ResourceResult    Resource = "result"
	ResourcePayment   Resource = "payment"
	ResourceDashboard Resource = "dashboard"
)

type Action string

const (
	ActionCreate     Action = "create"
	ActionRead       Action = "read"
	ActionList       Action = "list"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionImport     Action = "import"
	ActionExport     Action = "export"
	ActionTake       Action = "take"
	ActionSubmit     Action = "submit"
	ActionListOwn    Action = "list_own"
	ActionInitiate   Action = "initiate"
	ActionTransition Action = "transition"
	ActionSearch     Action = "search"
)

// Principal is the authenticated caller
type Principal struct {
	ID        uint
	Role      models.UserRole
	BranchID  *uint
	StudentID string
	Email     string
}

// IsSuperAdmin reports whether the principal bypasses every rule
func (p Principal) IsSuperAdmin() bool {
	return p.Role == models.RoleSuperAdmin
}

// BranchScope returns the branch the principal is confined to, or nil for super admins
func (p Principal) BranchScope() *uint {
	if p.IsSuperAdmin() {
		return nil
	}
	return p.BranchID
}

// InBranch reports whether the principal belongs to branchID
func (p Principal) InBranch(branchID uint) bool {
	return p.BranchID != nil && branchID != 0 && *p.BranchID == branchID
}

// Ref identifies the owner and branch of the record being acted on
type Ref struct {
	OwnerID  uint
	BranchID uint
}

// Ownership decides whether a principal may touch a specific record
type Ownership func(p Principal, ref Ref) bool

var (
	// Any accepts every record
	Any Ownership = func(Principal, Ref) bool { return true }

	// Owner accepts records created by or belonging to the principal
	Owner Ownership = func(p Principal, ref Ref) bool { return ref.OwnerID != 0 && ref.OwnerID == p.ID }

	// SameBranch accepts records of the principal's branch
	SameBranch Ownership = func(p Principal, ref Ref) bool { return p.InBranch(ref.BranchID) }

	// OwnerOrStaffInBranch lets learners see their own records and staff see their branch
	OwnerOrStaffInBranch Ownership = func(p Principal, ref Ref) bool {
		if p.Role == models.RoleStudent {
			return Owner(p, ref)
		}
		return SameBranch(p, ref)
	}

	// OwnerOrAdminInBranch is OwnerOrStaffInBranch without teachers
	OwnerOrAdminInBranch Ownership = func(p Principal, ref Ref) bool {
		if Owner(p, ref) {
			return true
		}
		return p.Role == models.RoleBranchAdmin && SameBranch(p, ref)
	}
)

// Rule grants roles an action on a resource, subject to Ownership
type Rule struct {
	Resource  Resource
	Action    Action
	Roles     []models.UserRole
	Ownership Ownership
}

var (
	admins   = []models.UserRole{models.RoleBranchAdmin, models.RoleSuperAdmin}
	staff    = []models.UserRole{models.RoleTeacher, models.RoleBranchAdmin, models.RoleSuperAdmin}
	learners = []models.UserRole{models.RoleStudent}
	everyone = []models.UserRole{models.RoleStudent, models.RoleTeacher, models.RoleBranchAdmin, models.RoleSuperAdmin}
)

// DefaultRules is the complete permission table of the service
var DefaultRules = []Rule{
	{ResourceBranch, ActionCreate, nil, Any},
	{ResourceBranch, ActionUpdate, nil, Any},
	{ResourceBranch, ActionDelete, nil, Any},
	{ResourceBranch, ActionRead, admins, SameBranch},
	{ResourceBranch, ActionList, admins, Any},

	{ResourceAccount, ActionCreate, admins, SameBranch},
	{ResourceAccount, ActionRead, everyone, OwnerOrAdminInBranch},
	{ResourceAccount, ActionList, admins, Any},
	{ResourceAccount, ActionUpdate, admins, SameBranch},
	{ResourceAccount, ActionDelete, admins, SameBranch},

	{ResourceSubject, ActionCreate, staff, Any},
	{ResourceSubject, ActionList, everyone, Any},
	{ResourceSubject, ActionDelete, admins, Any},

	{ResourceQuestion, ActionCreate, staff, Any},
	{ResourceQuestion, ActionRead, staff, Any},
	{ResourceQuestion, ActionList, staff, Any},
	{ResourceQuestion, ActionUpdate, staff, Any},
	{ResourceQuestion, ActionDelete, staff, Any},
	{ResourceQuestion, ActionImport, staff, Any},

	{ResourceExam, ActionCreate, staff, SameBranch},
	{ResourceExam, ActionRead, staff, SameBranch},
	{ResourceExam, ActionList, staff, Any},
	{ResourceExam, ActionUpdate, staff, SameBranch},
	{ResourceExam, ActionDelete, staff, SameBranch},
	{ResourceExam, ActionListOwn, learners, Any},
	{ResourceExam, ActionTake, learners, SameBranch},

	{ResourceSession, ActionRead, learners, Owner},
	{ResourceSession, ActionSubmit, learners, SameBranch},

	{ResourceResult, ActionRead, everyone, OwnerOrStaffInBranch},
	{ResourceResult, ActionListOwn, learners, Any},
	{ResourceResult, ActionList, staff, SameBranch},
	{ResourceResult, ActionExport, staff, SameBranch},

	{ResourcePayment, ActionInitiate, learners, Owner},
	{ResourcePayment, ActionRead, everyone, OwnerOrAdminInBranch},
	{ResourcePayment, ActionListOwn, learners, Any},
	{ResourcePayment, ActionList, admins, Any},
	{ResourcePayment, ActionSearch, admins, Any},
	{ResourcePayment, ActionTransition, admins, SameBranch},

	{ResourceDashboard, ActionRead, admins, Any},
}

type ruleKey struct {
	resource Resource
	action   Action
}

// Policy evaluates a rule table
type Policy struct {
	rules map[ruleKey]Rule
}

// NewPolicy indexes rules; a later rule for the same pair replaces an earlier one
func NewPolicy(rules []Rule) *Policy {
	p := &Policy{rules: make(map[ruleKey]Rule, len(rules))}
	for _, r := range rules {
		p.rules[ruleKey{r.Resource, r.Action}] = r
	}
	return p
}

// DefaultPolicy returns the policy built from DefaultRules
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultRules)
}

// Allows checks the role part of a rule. Unknown pairs are denied.
func (p *Policy) Allows(principal Principal, resource Resource, action Action) bool {
	if principal.IsSuperAdmin() {
		return true
	}
	rule, ok := p.rules[ruleKey{resource, action}]
	if !ok {
		return false
	}
	for _, role := range rule.Roles {
		if role == principal.Role {
			return true
		}
	}
	return false
}

// Authorize checks role and ownership for one record
func (p *Policy) Authorize(principal Principal, resource Resource, action Action, ref Ref) error {
	if principal.IsSuperAdmin() {
		return nil
	}
	if !p.Allows(principal, resource, action) {
		return &DeniedError{Resource: resource, Action: action, Reason: fmt.Sprintf("role %s may not %s %s", principal.Role, action, resource)}
	}
	rule := p.rules[ruleKey{resource, action}]
	if rule.Ownership != nil && !rule.Ownership(principal, ref) {
		return &DeniedError{Resource: resource, Action: action, Reason: "record is outside the caller's scope"}
	}
	return nil
}

// DeniedError is returned when a rule rejects the caller
type DeniedError struct {
	Resource Resource
	Action   Action
	Reason   string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s %s: %s", e.Action, e.Resource, e.Reason)
}
