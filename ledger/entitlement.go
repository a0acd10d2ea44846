/*
Package ledger implements the entitlement ledger.

PURPOSE:
  One Entitlement record exists per (employee, leave type, year). It
  carries the yearly allowance, accrual bookkeeping, carry-forward, and
  the taken/pending/remaining balances. Three operations bracket a leave
  request's life:

    Reserve  - hold pending balance when a request is submitted
    Release  - give the hold back on cancel/reject
    Commit   - convert the hold into taken balance on finalize

  HR can additionally Adjust a balance directly (add/deduct/encashment),
  which always produces an audit entry.

BALANCE INVARIANT:
  After every operation:

    Remaining = YearlyEntitlement + CarryForward - Taken - Pending

  Remaining is recomputed from the other fields on every mutation; it is
  never written independently.

NUMERIC SEMANTICS:
  All day quantities are non-negative decimals. Half-days are legal.
  Rounding (none/round/round_up/round_down) is applied at accrual time
  only, never at consumption time.

SEE ALSO:
  - service.go: the operations
  - accrual.go: periodic accrual and year-end rollover
*/
package ledger

import (
	"context"

	"github.com/hrline/leave-engine/core"
)

// =============================================================================
// ENTITLEMENT - Yearly allowance record
// =============================================================================

type Entitlement struct {
	ID          string
	EmployeeID  string
	LeaveTypeID string
	Year        int

	YearlyEntitlement core.Days
	CarryForward      core.Days
	Taken             core.Days
	Pending           core.Days
	Remaining         core.Days

	// Accrual bookkeeping. AccruedActual is the exact accrued amount;
	// AccruedRounded has the rounding rule applied.
	AccruedActual   core.Days
	AccruedRounded  core.Days
	Rounding        core.RoundingRule
	LastAccrualDate *core.Date // idempotency marker for accrual runs

	Version int
}

// NewEntitlement provisions a fresh yearly record with the full
// allowance remaining.
func NewEntitlement(id, employeeID, leaveTypeID string, year int, yearly core.Days, rounding core.RoundingRule) *Entitlement {
	e := &Entitlement{
		ID:                id,
		EmployeeID:        employeeID,
		LeaveTypeID:       leaveTypeID,
		Year:              year,
		YearlyEntitlement: yearly,
		CarryForward:      core.ZeroDays(),
		Taken:             core.ZeroDays(),
		Pending:           core.ZeroDays(),
		AccruedActual:     core.ZeroDays(),
		AccruedRounded:    core.ZeroDays(),
		Rounding:          rounding,
		Version:           1,
	}
	e.recompute()
	return e
}

// recompute restores the balance invariant after a mutation.
func (e *Entitlement) recompute() {
	e.Remaining = e.YearlyEntitlement.Add(e.CarryForward).Sub(e.Taken).Sub(e.Pending)
}

// =============================================================================
// STORE - Persistence interface
// =============================================================================

type Store interface {
	// Get returns the entitlement for (employee, leave type, year).
	// Returns a core.NotFoundError if none exists.
	Get(ctx context.Context, employeeID, leaveTypeID string, year int) (*Entitlement, error)

	// GetByID returns an entitlement by its record id.
	GetByID(ctx context.Context, id string) (*Entitlement, error)

	// Save upserts a single entitlement row.
	Save(ctx context.Context, e *Entitlement) error

	// ListByEmployee returns all entitlements for an employee in a year.
	ListByEmployee(ctx context.Context, employeeID string, year int) ([]*Entitlement, error)
}

// =============================================================================
// ADJUSTMENTS - HR-initiated balance changes
// =============================================================================

type AdjustmentKind string

const (
	AdjustmentAdd        AdjustmentKind = "add"
	AdjustmentDeduct     AdjustmentKind = "deduct"
	AdjustmentEncashment AdjustmentKind = "encashment"
)
