/*
workflow.go - Approval chain evaluation and bulk processing

CHAIN SEMANTICS:
  Steps are ordered by level. The active step is the first one still
  pending; a request reaches approved only when every step is approved.
  Rejection at any step short-circuits the request. Return-for-
  correction routes back to the employee without consuming a terminal
  state.

BULK SEMANTICS:
  Bulk actions apply the single-request transition to each id
  independently. There is NO batch atomicity: a failure on one item is
  reported in that item's result and the remaining items proceed.
*/
package leave

import (
	"context"

	"github.com/hrline/leave-engine/core"
)

// =============================================================================
// CHAIN HELPERS
// =============================================================================

func newChain(roles []core.Role) []ApprovalStep {
	steps := make([]ApprovalStep, len(roles))
	for i, role := range roles {
		steps[i] = ApprovalStep{Role: role, Level: i + 1, Status: StepPending}
	}
	return steps
}

// activeStep returns the first step still awaiting a decision.
func activeStep(req *LeaveRequest) *ApprovalStep {
	for i := range req.Steps {
		if req.Steps[i].Status == StepPending {
			return &req.Steps[i]
		}
	}
	return nil
}

func allApproved(req *LeaveRequest) bool {
	for _, step := range req.Steps {
		if step.Status != StepApproved {
			return false
		}
	}
	return len(req.Steps) > 0
}

// authorizeStep checks that the actor may decide the given step.
// A department-head step belongs to the employee's manager; HR and
// system admins pass any step of their role or below.
func (s *Service) authorizeStep(ctx context.Context, actor core.Principal, req *LeaveRequest, step *ApprovalStep) error {
	if actor.HasRole(core.RoleSystemAdmin) || actor.HasRole(core.RoleHRAdmin) {
		return nil
	}

	switch step.Role {
	case core.RoleDepartmentHead:
		if actor.IsHR() {
			return nil
		}
		if !actor.HasRole(core.RoleDepartmentHead) {
			return &core.PermissionDeniedError{ActorID: actor.ID, Action: "decide a manager approval step"}
		}
		emp, err := s.Employees.Get(ctx, req.EmployeeID)
		if err != nil {
			return err
		}
		if emp.ManagerID != actor.ID {
			return &core.PermissionDeniedError{ActorID: actor.ID, Action: "decide a request outside their reports"}
		}
		return nil

	case core.RoleHRManager:
		if !actor.IsHR() {
			return &core.PermissionDeniedError{ActorID: actor.ID, Action: "decide an HR approval step"}
		}
		return nil

	default:
		if !actor.HasRole(step.Role) {
			return &core.PermissionDeniedError{ActorID: actor.ID, Action: "decide a " + string(step.Role) + " approval step"}
		}
		return nil
	}
}

// =============================================================================
// BULK PROCESSING
// =============================================================================

type BulkAction string

const (
	BulkApprove  BulkAction = "APPROVE"
	BulkReject   BulkAction = "REJECT"
	BulkFinalize BulkAction = "FINALIZE"
)

// BulkResult reports the outcome for one request id.
type BulkResult struct {
	RequestID string
	OK        bool
	Error     string
}

// BulkProcess applies the action to each id independently and reports
// per-item results. Bulk FINALIZE uses a fully-paid split.
func (s *Service) BulkProcess(ctx context.Context, actor core.Principal, action BulkAction, requestIDs []string, reason string) []BulkResult {
	results := make([]BulkResult, 0, len(requestIDs))
	for _, id := range requestIDs {
		var err error
		switch action {
		case BulkApprove:
			_, err = s.Decide(ctx, actor, id, true, reason)
		case BulkReject:
			_, err = s.Decide(ctx, actor, id, false, reason)
		case BulkFinalize:
			req, getErr := s.Requests.Get(ctx, id)
			if getErr != nil {
				err = getErr
				break
			}
			_, err = s.Finalize(ctx, actor, id, FinalizeInput{
				PaidDays:   req.DurationDays,
				UnpaidDays: core.ZeroDays(),
			})
		default:
			err = &core.ValidationError{Field: "action", Message: "unknown bulk action: " + string(action)}
		}

		result := BulkResult{RequestID: id, OK: err == nil}
		if err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}
