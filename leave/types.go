/*
Package leave implements the leave-request lifecycle and the approval
workflow engine.

PURPOSE:
  A leave request moves through a small state machine:

    pending  --> approved | rejected | returned | cancelled
    approved --> finalized | cancelled
    returned --> pending            (employee resubmits)

  rejected, finalized and cancelled are terminal. Each transition is
  guarded by the request's current status and by who is acting; every
  transition that holds or moves balance calls the entitlement ledger.

APPROVAL CHAIN:
  Each leave type configures an ordered chain of approval steps (e.g.
  DEPARTMENT_HEAD at level 1, HR_MANAGER at level 2). A request is only
  approved once every step has independently been approved. A rejection
  at any step short-circuits to rejected. "Return for correction" is a
  first-class step status - not a magic string in a comment field - and
  routes the request back to the employee without burning a terminal
  state.

SEE ALSO:
  - request.go: submit / decide / return / resubmit / cancel
  - finalize.go: HR finalize and override
  - workflow.go: chain evaluation and bulk processing
  - ledger: Reserve/Release/Commit bracketing the request's life
*/
package leave

import (
	"context"
	"time"

	"github.com/hrline/leave-engine/core"
)

// =============================================================================
// REQUEST STATUS - The outer state machine
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusReturned  RequestStatus = "returned"
	StatusCancelled RequestStatus = "cancelled"
	StatusFinalized RequestStatus = "finalized"
)

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusFinalized
}

// =============================================================================
// APPROVAL STEP - One role's decision within the chain
// =============================================================================

type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
	StepReturned StepStatus = "returned"
)

type ApprovalStep struct {
	Role      core.Role
	Level     int
	Status    StepStatus
	DecidedBy string
	DecidedAt *time.Time
	Comments  string
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

// Finalization carries the HR sign-off details: how the duration splits
// into paid and unpaid days, and the payroll reference.
type Finalization struct {
	PaidDays       core.Days
	UnpaidDays     core.Days
	PayrollRef     string
	OverrideReason string
}

type LeaveRequest struct {
	ID          string
	EmployeeID  string
	LeaveTypeID string

	Range         core.DateRange
	DurationDays  core.Days // inclusive day count of Range
	Justification string
	AttachmentRef string
	Irregular     bool

	Steps        []ApprovalStep
	Status       RequestStatus
	Finalization *Finalization

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// LEAVE TYPE - Category plus its approval chain
// =============================================================================

type LeaveType struct {
	ID                    string
	Name                  string
	ApprovalChain         []core.Role // ordered; empty falls back to DefaultApprovalChain
	RequiresJustification bool
	MaxCarryForward       core.Days
	Active                bool
}

// DefaultApprovalChain is used when a leave type does not configure one.
var DefaultApprovalChain = []core.Role{core.RoleDepartmentHead, core.RoleHRManager}

// Chain returns the configured approval chain or the default.
func (t *LeaveType) Chain() []core.Role {
	if len(t.ApprovalChain) == 0 {
		return DefaultApprovalChain
	}
	return t.ApprovalChain
}

// =============================================================================
// EMPLOYEE - Minimal directory record for ownership and manager checks
// =============================================================================

type Employee struct {
	ID           string
	Name         string
	Email        string
	DepartmentID string
	PositionID   string
	ManagerID    string
	HireDate     core.Date
}

// =============================================================================
// STORES
// =============================================================================

type RequestStore interface {
	Create(ctx context.Context, r *LeaveRequest) error
	Get(ctx context.Context, id string) (*LeaveRequest, error)
	Save(ctx context.Context, r *LeaveRequest) error

	// ListByEmployee returns the employee's requests, newest first.
	ListByEmployee(ctx context.Context, employeeID string) ([]*LeaveRequest, error)

	// ListLive returns the employee's pending/returned/approved requests,
	// used for the overlap guard on submission.
	ListLive(ctx context.Context, employeeID string) ([]*LeaveRequest, error)

	// ListByStatus returns requests in a given status, oldest first.
	ListByStatus(ctx context.Context, status RequestStatus) ([]*LeaveRequest, error)
}

type LeaveTypeStore interface {
	Get(ctx context.Context, id string) (*LeaveType, error)
	List(ctx context.Context) ([]*LeaveType, error)
	Save(ctx context.Context, t *LeaveType) error
}

type EmployeeDirectory interface {
	Get(ctx context.Context, id string) (*Employee, error)
}
