package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hrline/leave-engine/audit"
	"github.com/hrline/leave-engine/core"
)

// =============================================================================
// SERVICE - Reserve / Release / Commit / Adjust
// =============================================================================

// Service exposes the balance operations. Every mutation is a single-row
// read-modify-write; the store's row update is the atomicity boundary.
type Service struct {
	Store Store
	Audit audit.Recorder
}

func NewService(store Store, recorder audit.Recorder) *Service {
	return &Service{Store: store, Audit: recorder}
}

// Reserve holds pending balance for a submitted request. Fails with an
// InsufficientBalanceError iff days > Remaining at call time; nothing is
// mutated on failure.
func (s *Service) Reserve(ctx context.Context, employeeID, leaveTypeID string, year int, days core.Days) error {
	if err := requirePositive(days); err != nil {
		return err
	}

	ent, err := s.Store.Get(ctx, employeeID, leaveTypeID, year)
	if err != nil {
		return err
	}

	if days.GreaterThan(ent.Remaining) {
		return &core.InsufficientBalanceError{
			EmployeeID:  employeeID,
			LeaveTypeID: leaveTypeID,
			Available:   ent.Remaining,
			Requested:   days,
			Shortfall:   days.Sub(ent.Remaining),
		}
	}

	ent.Pending = ent.Pending.Add(days)
	ent.recompute()
	return s.Store.Save(ctx, ent)
}

// Release gives a reservation back. Used on cancel and reject.
func (s *Service) Release(ctx context.Context, employeeID, leaveTypeID string, year int, days core.Days) error {
	if err := requirePositive(days); err != nil {
		return err
	}

	ent, err := s.Store.Get(ctx, employeeID, leaveTypeID, year)
	if err != nil {
		return err
	}

	if days.GreaterThan(ent.Pending) {
		return &core.ValidationError{Field: "days", Message: "release exceeds pending balance"}
	}

	ent.Pending = ent.Pending.Sub(days)
	ent.recompute()
	return s.Store.Save(ctx, ent)
}

// Commit converts a reservation into taken balance on finalize. Unpaid
// days drop out of pending without consuming entitlement.
func (s *Service) Commit(ctx context.Context, employeeID, leaveTypeID string, year int, paid, unpaid core.Days) error {
	if paid.IsNegative() || unpaid.IsNegative() {
		return &core.ValidationError{Field: "days", Message: "day quantities must be non-negative"}
	}

	ent, err := s.Store.Get(ctx, employeeID, leaveTypeID, year)
	if err != nil {
		return err
	}

	total := paid.Add(unpaid)
	if total.GreaterThan(ent.Pending) {
		return &core.ValidationError{Field: "days", Message: "commit exceeds pending balance"}
	}

	ent.Pending = ent.Pending.Sub(total)
	ent.Taken = ent.Taken.Add(paid)
	ent.recompute()
	return s.Store.Save(ctx, ent)
}

// Adjust is the HR-only manual balance change. Every call appends an
// audit entry; the reason is mandatory.
func (s *Service) Adjust(ctx context.Context, actor core.Principal, employeeID, leaveTypeID string, year int, amount core.Days, kind AdjustmentKind, reason string) error {
	if !actor.IsHR() {
		return &core.PermissionDeniedError{ActorID: actor.ID, Action: "adjust entitlement"}
	}
	if reason == "" {
		return &core.ValidationError{Field: "reason", Message: "adjustment reason is required"}
	}
	if err := requirePositive(amount); err != nil {
		return err
	}

	ent, err := s.Store.Get(ctx, employeeID, leaveTypeID, year)
	if err != nil {
		return err
	}

	var action audit.Action
	switch kind {
	case AdjustmentAdd:
		ent.CarryForward = ent.CarryForward.Add(amount)
		action = audit.ActionAdjustmentAdd
	case AdjustmentDeduct:
		ent.Taken = ent.Taken.Add(amount)
		action = audit.ActionAdjustmentDeduct
	case AdjustmentEncashment:
		// Encashed days are paid out and consume entitlement like taken days.
		ent.Taken = ent.Taken.Add(amount)
		action = audit.ActionAdjustmentEncashment
	default:
		return &core.ValidationError{Field: "type", Message: "unknown adjustment type: " + string(kind)}
	}

	ent.recompute()
	if err := s.Store.Save(ctx, ent); err != nil {
		return err
	}

	return s.Audit.Append(ctx, audit.Entry{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		ActorID:     actor.ID,
		ActorRole:   actingRole(actor),
		Action:      action,
		EntityType:  "entitlement",
		EntityID:    ent.ID,
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		Amount:      &amount,
		Reason:      reason,
	})
}

func requirePositive(d core.Days) error {
	if !d.IsPositive() {
		return &core.ValidationError{Field: "days", Message: "day quantity must be positive"}
	}
	return nil
}

func actingRole(p core.Principal) core.Role {
	for _, r := range []core.Role{core.RoleSystemAdmin, core.RoleHRAdmin, core.RoleHRManager, core.RoleDepartmentHead} {
		if p.HasRole(r) {
			return r
		}
	}
	return core.RoleEmployee
}
