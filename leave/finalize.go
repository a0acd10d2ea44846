/*
finalize.go - HR finalization and override

FINALIZE:
  The HR action that converts an approved request's reservation into
  authoritative taken balance. The caller must state the paid/unpaid
  split explicitly and it must sum to the request's duration; only the
  paid share consumes entitlement. Finalization is terminal and is
  recorded in the audit log together with the payroll reference.

OVERRIDE:
  While a request is approved, HR may force a different outcome with a
  mandatory override reason: either rejecting it after the fact
  (releasing the reservation) or finalizing with an adjusted split.
*/
package leave

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hrline/leave-engine/audit"
	"github.com/hrline/leave-engine/core"
)

// FinalizeInput is the HR sign-off payload.
type FinalizeInput struct {
	PaidDays   core.Days
	UnpaidDays core.Days
	PayrollRef string
}

// Finalize converts an approved request into finalized, committing the
// paid/unpaid split on the ledger.
func (s *Service) Finalize(ctx context.Context, actor core.Principal, requestID string, in FinalizeInput) (*LeaveRequest, error) {
	if !actor.IsHR() {
		return nil, &core.PermissionDeniedError{ActorID: actor.ID, Action: "finalize a request"}
	}

	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusApproved {
		return nil, &core.InvalidStateTransitionError{Action: "finalize", From: string(req.Status)}
	}
	if in.PaidDays.IsNegative() || in.UnpaidDays.IsNegative() {
		return nil, &core.ValidationError{Field: "paidDays", Message: "day quantities must be non-negative"}
	}
	if !in.PaidDays.Add(in.UnpaidDays).Equal(req.DurationDays) {
		return nil, &core.ValidationError{
			Field:   "paidDays",
			Message: "paid + unpaid days must equal the request duration",
		}
	}

	year := req.Range.From.Year()
	if err := s.Ledger.Commit(ctx, req.EmployeeID, req.LeaveTypeID, year, in.PaidDays, in.UnpaidDays); err != nil {
		return nil, err
	}

	now := s.Now()
	req.Status = StatusFinalized
	req.Finalization = &Finalization{
		PaidDays:   in.PaidDays,
		UnpaidDays: in.UnpaidDays,
		PayrollRef: in.PayrollRef,
	}
	req.UpdatedAt = now
	if err := s.Requests.Save(ctx, req); err != nil {
		return nil, err
	}

	if err := s.appendAudit(ctx, actor, req, audit.ActionRequestFinalized, in.PayrollRef, in.PaidDays, now); err != nil {
		return nil, err
	}
	return req, nil
}

// OverrideOutcome selects what the override forces.
type OverrideOutcome string

const (
	OverrideReject   OverrideOutcome = "reject"
	OverrideFinalize OverrideOutcome = "finalize"
)

// OverrideInput carries the forced outcome and its mandatory reason.
type OverrideInput struct {
	Outcome    OverrideOutcome
	Reason     string
	PaidDays   core.Days // for OverrideFinalize
	UnpaidDays core.Days
	PayrollRef string
}

// Override forces a different outcome on an approved request.
func (s *Service) Override(ctx context.Context, actor core.Principal, requestID string, in OverrideInput) (*LeaveRequest, error) {
	if !actor.IsHR() {
		return nil, &core.PermissionDeniedError{ActorID: actor.ID, Action: "override a request"}
	}
	if in.Reason == "" {
		return nil, &core.ValidationError{Field: "reason", Message: "an override reason is required"}
	}

	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusApproved {
		return nil, &core.InvalidStateTransitionError{Action: "override", From: string(req.Status)}
	}

	now := s.Now()
	year := req.Range.From.Year()

	switch in.Outcome {
	case OverrideReject:
		if err := s.Ledger.Release(ctx, req.EmployeeID, req.LeaveTypeID, year, req.DurationDays); err != nil {
			return nil, err
		}
		req.Status = StatusRejected
		req.Finalization = &Finalization{OverrideReason: in.Reason}

	case OverrideFinalize:
		if !in.PaidDays.Add(in.UnpaidDays).Equal(req.DurationDays) {
			return nil, &core.ValidationError{
				Field:   "paidDays",
				Message: "paid + unpaid days must equal the request duration",
			}
		}
		if err := s.Ledger.Commit(ctx, req.EmployeeID, req.LeaveTypeID, year, in.PaidDays, in.UnpaidDays); err != nil {
			return nil, err
		}
		req.Status = StatusFinalized
		req.Finalization = &Finalization{
			PaidDays:       in.PaidDays,
			UnpaidDays:     in.UnpaidDays,
			PayrollRef:     in.PayrollRef,
			OverrideReason: in.Reason,
		}

	default:
		return nil, &core.ValidationError{Field: "outcome", Message: "unknown override outcome: " + string(in.Outcome)}
	}

	req.UpdatedAt = now
	if err := s.Requests.Save(ctx, req); err != nil {
		return nil, err
	}

	if err := s.appendAudit(ctx, actor, req, audit.ActionRequestOverridden, in.Reason, req.DurationDays, now); err != nil {
		return nil, err
	}
	return req, nil
}

// appendAudit records the HR action. Finalize and Override treat a
// failed append as a failed operation: the audit trail is part of
// their contract.
func (s *Service) appendAudit(ctx context.Context, actor core.Principal, req *LeaveRequest, action audit.Action, reason string, amount core.Days, at time.Time) error {
	return s.Audit.Append(ctx, audit.Entry{
		ID:          uuid.NewString(),
		CreatedAt:   at,
		ActorID:     actor.ID,
		Action:      action,
		EntityType:  "leave_request",
		EntityID:    req.ID,
		EmployeeID:  req.EmployeeID,
		LeaveTypeID: req.LeaveTypeID,
		Amount:      &amount,
		Reason:      reason,
	})
}
