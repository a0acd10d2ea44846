/*
request.go - Submission and the employee-facing lifecycle

REQUEST FLOW:
  Submit validates the range, checks for overlap with the employee's
  live requests, reserves pending balance on the ledger, and builds the
  approval chain from the leave type. The request starts pending.

  While pending, approvers Decide (approve/reject) or Return the request
  for correction. The employee may Cancel while pending or approved; the
  reservation is released. A returned request goes back to pending via
  Resubmit, optionally with corrected dates.

OVERLAP RULE:
  At most one live (pending/returned/approved) request may cover any
  given day for an employee, independent of leave type. Inclusive
  interval intersection.
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hrline/leave-engine/audit"
	"github.com/hrline/leave-engine/core"
	"github.com/hrline/leave-engine/ledger"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Requests  RequestStore
	Types     LeaveTypeStore
	Employees EmployeeDirectory
	Ledger    *ledger.Service
	Audit     audit.Recorder

	// Now is swappable for tests.
	Now func() time.Time
}

func NewService(requests RequestStore, types LeaveTypeStore, employees EmployeeDirectory, lgr *ledger.Service, recorder audit.Recorder) *Service {
	return &Service{
		Requests:  requests,
		Types:     types,
		Employees: employees,
		Ledger:    lgr,
		Audit:     recorder,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitInput is the submission payload.
type SubmitInput struct {
	EmployeeID    string
	LeaveTypeID   string
	From          core.Date
	To            core.Date
	Justification string
	AttachmentRef string
	Irregular     bool
}

// Submit creates a new request, reserves balance, and starts the
// approval chain. The acting principal must be the employee or HR.
func (s *Service) Submit(ctx context.Context, actor core.Principal, in SubmitInput) (*LeaveRequest, error) {
	if actor.ID != in.EmployeeID && !actor.IsHR() {
		return nil, &core.PermissionDeniedError{ActorID: actor.ID, Action: "submit a request for another employee"}
	}

	rng, err := core.NewDateRange(in.From, in.To)
	if err != nil {
		return nil, err
	}

	lt, err := s.Types.Get(ctx, in.LeaveTypeID)
	if err != nil {
		return nil, err
	}
	if !lt.Active {
		return nil, &core.ValidationError{Field: "leaveTypeId", Message: "leave type is inactive"}
	}
	if lt.RequiresJustification && in.Justification == "" {
		return nil, &core.ValidationError{Field: "justification", Message: "justification is required for " + lt.Name}
	}

	if _, err := s.Employees.Get(ctx, in.EmployeeID); err != nil {
		return nil, err
	}

	if err := s.checkOverlap(ctx, in.EmployeeID, rng, ""); err != nil {
		return nil, err
	}

	duration := core.DaysFromInt(rng.DurationDays())
	if err := s.Ledger.Reserve(ctx, in.EmployeeID, in.LeaveTypeID, rng.From.Year(), duration); err != nil {
		return nil, err
	}

	now := s.Now()
	req := &LeaveRequest{
		ID:            uuid.NewString(),
		EmployeeID:    in.EmployeeID,
		LeaveTypeID:   in.LeaveTypeID,
		Range:         rng,
		DurationDays:  duration,
		Justification: in.Justification,
		AttachmentRef: in.AttachmentRef,
		Irregular:     in.Irregular,
		Steps:         newChain(lt.Chain()),
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.Requests.Create(ctx, req); err != nil {
		// Creation failed after the reserve; give the hold back.
		_ = s.Ledger.Release(ctx, in.EmployeeID, in.LeaveTypeID, rng.From.Year(), duration)
		return nil, err
	}
	return req, nil
}

// checkOverlap rejects a range that intersects any live request of the
// employee. excludeID skips the request being resubmitted.
func (s *Service) checkOverlap(ctx context.Context, employeeID string, rng core.DateRange, excludeID string) error {
	live, err := s.Requests.ListLive(ctx, employeeID)
	if err != nil {
		return err
	}
	for _, other := range live {
		if other.ID == excludeID {
			continue
		}
		if rng.Overlaps(other.Range) {
			return &core.ValidationError{
				Field:   "from",
				Message: fmt.Sprintf("dates overlap an existing request %s", other.Range),
			}
		}
	}
	return nil
}

// Decide records one approver's approve/reject on the first pending step.
func (s *Service) Decide(ctx context.Context, actor core.Principal, requestID string, approve bool, comments string) (*LeaveRequest, error) {
	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	action := "reject"
	if approve {
		action = "approve"
	}
	if req.Status != StatusPending {
		return nil, &core.InvalidStateTransitionError{Action: action, From: string(req.Status)}
	}
	if !approve && comments == "" {
		return nil, &core.ValidationError{Field: "reason", Message: "a rejection reason is required"}
	}

	step := activeStep(req)
	if step == nil {
		return nil, &core.InvalidStateTransitionError{Action: action, From: string(req.Status)}
	}
	if err := s.authorizeStep(ctx, actor, req, step); err != nil {
		return nil, err
	}

	now := s.Now()
	step.DecidedBy = actor.ID
	step.DecidedAt = &now
	step.Comments = comments

	if approve {
		step.Status = StepApproved
		if allApproved(req) {
			req.Status = StatusApproved
		}
	} else {
		step.Status = StepRejected
		req.Status = StatusRejected
		if err := s.Ledger.Release(ctx, req.EmployeeID, req.LeaveTypeID, req.Range.From.Year(), req.DurationDays); err != nil {
			return nil, err
		}
	}

	req.UpdatedAt = now
	if err := s.Requests.Save(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Return sends a pending request back to the employee for correction.
// The reservation stays held until resubmission, rejection or cancel.
func (s *Service) Return(ctx context.Context, actor core.Principal, requestID, reason string) (*LeaveRequest, error) {
	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, &core.InvalidStateTransitionError{Action: "return", From: string(req.Status)}
	}
	if reason == "" {
		return nil, &core.ValidationError{Field: "reason", Message: "a return reason is required"}
	}

	step := activeStep(req)
	if step == nil {
		return nil, &core.InvalidStateTransitionError{Action: "return", From: string(req.Status)}
	}
	if err := s.authorizeStep(ctx, actor, req, step); err != nil {
		return nil, err
	}

	now := s.Now()
	step.Status = StepReturned
	step.DecidedBy = actor.ID
	step.DecidedAt = &now
	step.Comments = reason

	req.Status = StatusReturned
	req.UpdatedAt = now
	if err := s.Requests.Save(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ResubmitInput optionally replaces the requested dates.
type ResubmitInput struct {
	From          *core.Date
	To            *core.Date
	Justification string
}

// Resubmit moves a returned request back to pending. The approval chain
// restarts from the first step. When dates change, the old reservation
// is released and a new one taken for the corrected duration.
func (s *Service) Resubmit(ctx context.Context, actor core.Principal, requestID string, in ResubmitInput) (*LeaveRequest, error) {
	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusReturned {
		return nil, &core.InvalidStateTransitionError{Action: "resubmit", From: string(req.Status)}
	}
	if actor.ID != req.EmployeeID {
		return nil, &core.PermissionDeniedError{ActorID: actor.ID, Action: "resubmit another employee's request"}
	}

	if in.From != nil || in.To != nil {
		from, to := req.Range.From, req.Range.To
		if in.From != nil {
			from = *in.From
		}
		if in.To != nil {
			to = *in.To
		}
		rng, err := core.NewDateRange(from, to)
		if err != nil {
			return nil, err
		}
		if err := s.checkOverlap(ctx, req.EmployeeID, rng, req.ID); err != nil {
			return nil, err
		}

		newDuration := core.DaysFromInt(rng.DurationDays())
		if err := s.Ledger.Release(ctx, req.EmployeeID, req.LeaveTypeID, req.Range.From.Year(), req.DurationDays); err != nil {
			return nil, err
		}
		if err := s.Ledger.Reserve(ctx, req.EmployeeID, req.LeaveTypeID, rng.From.Year(), newDuration); err != nil {
			// Restore the original hold so the request stays consistent.
			_ = s.Ledger.Reserve(ctx, req.EmployeeID, req.LeaveTypeID, req.Range.From.Year(), req.DurationDays)
			return nil, err
		}
		req.Range = rng
		req.DurationDays = newDuration
	}

	if in.Justification != "" {
		req.Justification = in.Justification
	}

	lt, err := s.Types.Get(ctx, req.LeaveTypeID)
	if err != nil {
		return nil, err
	}
	req.Steps = newChain(lt.Chain())
	req.Status = StatusPending
	req.UpdatedAt = s.Now()
	if err := s.Requests.Save(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Cancel releases the reservation and closes the request. Legal from
// pending, approved, or returned; the owner or HR may cancel.
func (s *Service) Cancel(ctx context.Context, actor core.Principal, requestID string) (*LeaveRequest, error) {
	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending && req.Status != StatusApproved && req.Status != StatusReturned {
		return nil, &core.InvalidStateTransitionError{Action: "cancel", From: string(req.Status)}
	}
	if actor.ID != req.EmployeeID && !actor.IsHR() {
		return nil, &core.PermissionDeniedError{ActorID: actor.ID, Action: "cancel another employee's request"}
	}

	if err := s.Ledger.Release(ctx, req.EmployeeID, req.LeaveTypeID, req.Range.From.Year(), req.DurationDays); err != nil {
		return nil, err
	}

	req.Status = StatusCancelled
	req.UpdatedAt = s.Now()
	if err := s.Requests.Save(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Get returns a request; employees may only read their own.
func (s *Service) Get(ctx context.Context, actor core.Principal, requestID string) (*LeaveRequest, error) {
	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actor.ID != req.EmployeeID && !actor.IsHR() && !actor.HasRole(core.RoleDepartmentHead) {
		return nil, &core.PermissionDeniedError{ActorID: actor.ID, Action: "read another employee's request"}
	}
	return req, nil
}
