/*
accrual.go - Periodic accrual and year-end rollover

PURPOSE:
  Accrual credits the yearly entitlement gradually (1/12 per completed
  month) instead of all at once on January 1. The job is invoked as a
  plain call with no scheduler; LastAccrualDate makes repeated
  invocation safe, so a caller can re-run it after a crash without
  double-crediting.

ROUNDING:
  The rounding rule is applied to the accrued-rounded figure at accrual
  time. Consumption never rounds.

ROLLOVER:
  At year end, the remaining balance (optionally capped) is carried into
  the next year's entitlement as carry-forward, and an audit entry is
  appended.
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hrline/leave-engine/audit"
	"github.com/hrline/leave-engine/core"
)

var twelve = decimal.NewFromInt(12)

// Accrue brings the entitlement's accrual bookkeeping up to asOf.
// Idempotent: calling twice with the same asOf is a no-op.
func (s *Service) Accrue(ctx context.Context, employeeID, leaveTypeID string, year int, asOf core.Date) error {
	ent, err := s.Store.Get(ctx, employeeID, leaveTypeID, year)
	if err != nil {
		return err
	}

	if asOf.Year() < year {
		return nil
	}

	months := completedMonths(year, asOf)
	accrued := core.Days{Value: ent.YearlyEntitlement.Value.Mul(decimal.NewFromInt(int64(months))).Div(twelve)}

	if ent.LastAccrualDate != nil && asOf.BeforeOrEqual(*ent.LastAccrualDate) {
		return nil
	}
	if !accrued.GreaterThan(ent.AccruedActual) {
		// Nothing new accrued since the last run; still advance the marker.
		ent.LastAccrualDate = &asOf
		return s.Store.Save(ctx, ent)
	}

	ent.AccruedActual = accrued
	ent.AccruedRounded = ent.Rounding.Apply(accrued)
	ent.LastAccrualDate = &asOf
	return s.Store.Save(ctx, ent)
}

// completedMonths counts whole months of the entitlement year elapsed at asOf.
func completedMonths(year int, asOf core.Date) int {
	if asOf.Year() > year {
		return 12
	}
	months := int(asOf.Month()) - 1
	// A month counts once its last day has passed.
	lastOfMonth := core.NewDate(year, asOf.Month()+1, 1).AddDays(-1)
	if asOf.Equal(lastOfMonth) {
		months++
	}
	if months > 12 {
		months = 12
	}
	return months
}

// RolloverYear carries the remaining balance of fromYear into the next
// year's entitlement, capped at cap when cap is positive. The next-year
// record must already exist (created by the yearly provisioning step).
func (s *Service) RolloverYear(ctx context.Context, actor core.Principal, employeeID, leaveTypeID string, fromYear int, cap core.Days) error {
	if !actor.IsHR() {
		return &core.PermissionDeniedError{ActorID: actor.ID, Action: "run rollover"}
	}

	from, err := s.Store.Get(ctx, employeeID, leaveTypeID, fromYear)
	if err != nil {
		return err
	}
	next, err := s.Store.Get(ctx, employeeID, leaveTypeID, fromYear+1)
	if err != nil {
		return err
	}

	carried := from.Remaining
	if carried.IsNegative() {
		carried = core.ZeroDays()
	}
	if cap.IsPositive() {
		carried = carried.Min(cap)
	}
	if carried.IsZero() {
		return nil
	}

	next.CarryForward = next.CarryForward.Add(carried)
	next.recompute()
	if err := s.Store.Save(ctx, next); err != nil {
		return err
	}

	return s.Audit.Append(ctx, audit.Entry{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		ActorID:     actor.ID,
		ActorRole:   actingRole(actor),
		Action:      audit.ActionRollover,
		EntityType:  "entitlement",
		EntityID:    next.ID,
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		Amount:      &carried,
		Reason:      "year-end carry forward",
	})
}
