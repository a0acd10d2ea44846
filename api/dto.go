/*
dto.go - Data transfer objects for API requests and responses

PURPOSE:
  JSON structures decoupling the domain model from the API contract.
  Day quantities go over the wire as decimal strings ("1.5"), dates as
  "YYYY-MM-DD", timestamps as RFC3339.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

SEE ALSO:
  - handlers.go, schedule.go: use these types
*/
package api

import (
	"time"

	"github.com/hrline/leave-engine/audit"
	"github.com/hrline/leave-engine/core"
	"github.com/hrline/leave-engine/leave"
	"github.com/hrline/leave-engine/ledger"
	"github.com/hrline/leave-engine/schedule"
)

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

type SubmitLeaveRequest struct {
	EmployeeID    string `json:"employee_id"`
	LeaveTypeID   string `json:"leave_type_id"`
	FromDate      string `json:"from_date"`
	ToDate        string `json:"to_date"`
	Justification string `json:"justification,omitempty"`
	AttachmentRef string `json:"attachment_ref,omitempty"`
	Irregular     bool   `json:"irregular,omitempty"`
}

type DecisionRequest struct {
	Comments string `json:"comments,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type ResubmitRequest struct {
	FromDate      string `json:"from_date,omitempty"`
	ToDate        string `json:"to_date,omitempty"`
	Justification string `json:"justification,omitempty"`
}

type FinalizeRequest struct {
	PaidDays   string `json:"paid_days"`
	UnpaidDays string `json:"unpaid_days"`
	PayrollRef string `json:"payroll_ref,omitempty"`
}

type OverrideRequest struct {
	Outcome    string `json:"outcome"` // "reject" or "finalize"
	Reason     string `json:"reason"`
	PaidDays   string `json:"paid_days,omitempty"`
	UnpaidDays string `json:"unpaid_days,omitempty"`
	PayrollRef string `json:"payroll_ref,omitempty"`
}

type BulkRequest struct {
	Action     string   `json:"action"` // APPROVE, REJECT, FINALIZE
	RequestIDs []string `json:"request_ids"`
	Reason     string   `json:"reason,omitempty"`
}

type BulkResultDTO struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

type ApprovalStepDTO struct {
	Role      string  `json:"role"`
	Level     int     `json:"level"`
	Status    string  `json:"status"`
	DecidedBy string  `json:"decided_by,omitempty"`
	DecidedAt *string `json:"decided_at,omitempty"`
	Comments  string  `json:"comments,omitempty"`
}

type FinalizationDTO struct {
	PaidDays       string `json:"paid_days"`
	UnpaidDays     string `json:"unpaid_days"`
	PayrollRef     string `json:"payroll_ref,omitempty"`
	OverrideReason string `json:"override_reason,omitempty"`
}

type LeaveRequestDTO struct {
	ID            string            `json:"id"`
	EmployeeID    string            `json:"employee_id"`
	LeaveTypeID   string            `json:"leave_type_id"`
	FromDate      string            `json:"from_date"`
	ToDate        string            `json:"to_date"`
	DurationDays  string            `json:"duration_days"`
	Justification string            `json:"justification,omitempty"`
	AttachmentRef string            `json:"attachment_ref,omitempty"`
	Irregular     bool              `json:"irregular,omitempty"`
	Status        string            `json:"status"`
	Steps         []ApprovalStepDTO `json:"steps"`
	Finalization  *FinalizationDTO  `json:"finalization,omitempty"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
}

func toLeaveRequestDTO(r *leave.LeaveRequest) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:            r.ID,
		EmployeeID:    r.EmployeeID,
		LeaveTypeID:   r.LeaveTypeID,
		FromDate:      r.Range.From.String(),
		ToDate:        r.Range.To.String(),
		DurationDays:  r.DurationDays.String(),
		Justification: r.Justification,
		AttachmentRef: r.AttachmentRef,
		Irregular:     r.Irregular,
		Status:        string(r.Status),
		Steps:         make([]ApprovalStepDTO, len(r.Steps)),
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
	for i, step := range r.Steps {
		s := ApprovalStepDTO{
			Role:      string(step.Role),
			Level:     step.Level,
			Status:    string(step.Status),
			DecidedBy: step.DecidedBy,
			Comments:  step.Comments,
		}
		if step.DecidedAt != nil {
			at := step.DecidedAt.Format(time.RFC3339)
			s.DecidedAt = &at
		}
		dto.Steps[i] = s
	}
	if r.Finalization != nil {
		dto.Finalization = &FinalizationDTO{
			PaidDays:       r.Finalization.PaidDays.String(),
			UnpaidDays:     r.Finalization.UnpaidDays.String(),
			PayrollRef:     r.Finalization.PayrollRef,
			OverrideReason: r.Finalization.OverrideReason,
		}
	}
	return dto
}

func toLeaveRequestDTOs(rs []*leave.LeaveRequest) []LeaveRequestDTO {
	dtos := make([]LeaveRequestDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toLeaveRequestDTO(r)
	}
	return dtos
}

// =============================================================================
// ENTITLEMENTS
// =============================================================================

type EntitlementDTO struct {
	ID                string `json:"id"`
	EmployeeID        string `json:"employee_id"`
	LeaveTypeID       string `json:"leave_type_id"`
	Year              int    `json:"year"`
	YearlyEntitlement string `json:"yearly_entitlement"`
	CarryForward      string `json:"carry_forward"`
	Taken             string `json:"taken"`
	Pending           string `json:"pending"`
	Remaining         string `json:"remaining"`
	AccruedActual     string `json:"accrued_actual"`
	AccruedRounded    string `json:"accrued_rounded"`
}

func toEntitlementDTO(e *ledger.Entitlement) EntitlementDTO {
	return EntitlementDTO{
		ID:                e.ID,
		EmployeeID:        e.EmployeeID,
		LeaveTypeID:       e.LeaveTypeID,
		Year:              e.Year,
		YearlyEntitlement: e.YearlyEntitlement.String(),
		CarryForward:      e.CarryForward.String(),
		Taken:             e.Taken.String(),
		Pending:           e.Pending.String(),
		Remaining:         e.Remaining.String(),
		AccruedActual:     e.AccruedActual.String(),
		AccruedRounded:    e.AccruedRounded.String(),
	}
}

type AdjustmentRequest struct {
	EmployeeID  string `json:"employee_id"`
	LeaveTypeID string `json:"leave_type_id"`
	Year        int    `json:"year"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"` // add, deduct, encashment
	Reason      string `json:"reason"`
}

// =============================================================================
// AUDIT
// =============================================================================

type AuditEntryDTO struct {
	ID          string            `json:"id"`
	CreatedAt   string            `json:"created_at"`
	ActorID     string            `json:"actor_id"`
	ActorRole   string            `json:"actor_role,omitempty"`
	Action      string            `json:"action"`
	EntityType  string            `json:"entity_type"`
	EntityID    string            `json:"entity_id"`
	EmployeeID  string            `json:"employee_id,omitempty"`
	LeaveTypeID string            `json:"leave_type_id,omitempty"`
	Amount      string            `json:"amount,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type AuditPageDTO struct {
	Data  []AuditEntryDTO `json:"data"`
	Total int             `json:"total"`
}

func toAuditPageDTO(page audit.Page) AuditPageDTO {
	return AuditPageDTO{Total: page.Total, Data: toAuditEntryDTOs(page.Entries)}
}

func toAuditEntryDTOs(entries []audit.Entry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		entry := AuditEntryDTO{
			ID:          e.ID,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
			ActorID:     e.ActorID,
			ActorRole:   string(e.ActorRole),
			Action:      string(e.Action),
			EntityType:  e.EntityType,
			EntityID:    e.EntityID,
			EmployeeID:  e.EmployeeID,
			LeaveTypeID: e.LeaveTypeID,
			Reason:      e.Reason,
			Metadata:    e.Metadata,
		}
		if e.Amount != nil {
			entry.Amount = e.Amount.String()
		}
		dtos[i] = entry
	}
	return dtos
}

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	DepartmentID string `json:"department_id,omitempty"`
	PositionID   string `json:"position_id,omitempty"`
	ManagerID    string `json:"manager_id,omitempty"`
	HireDate     string `json:"hire_date"`
}

func toEmployeeDTO(e *leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Email,
		DepartmentID: e.DepartmentID,
		PositionID:   e.PositionID,
		ManagerID:    e.ManagerID,
		HireDate:     e.HireDate.String(),
	}
}

// =============================================================================
// SCHEDULING
// =============================================================================

type ShiftDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	StartTime        string `json:"start_time"` // "HH:MM"
	EndTime          string `json:"end_time"`
	PunchPolicy      string `json:"punch_policy"`
	GraceInMinutes   int    `json:"grace_in_minutes"`
	GraceOutMinutes  int    `json:"grace_out_minutes"`
	OvertimeApproval bool   `json:"overtime_approval"`
	Active           bool   `json:"active"`
}

func toShiftDTO(s *schedule.Shift) ShiftDTO {
	return ShiftDTO{
		ID:               s.ID,
		Name:             s.Name,
		StartTime:        schedule.FormatClock(s.StartMinute),
		EndTime:          schedule.FormatClock(s.EndMinute),
		PunchPolicy:      string(s.PunchPolicy),
		GraceInMinutes:   s.GraceInMinutes,
		GraceOutMinutes:  s.GraceOutMinutes,
		OvertimeApproval: s.OvertimeApproval,
		Active:           s.Active,
	}
}

type ShiftTypeDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type RuleDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Pattern    string `json:"pattern"` // wire encoding
	AnchorDate string `json:"anchor_date"`
	Active     bool   `json:"active"`
}

func toRuleDTO(r *schedule.Rule) RuleDTO {
	return RuleDTO{
		ID:         r.ID,
		Name:       r.Name,
		Pattern:    r.Pattern.Encode(),
		AnchorDate: r.AnchorDate.String(),
		Active:     r.Active,
	}
}

type AssignmentRequest struct {
	EmployeeID   string `json:"employee_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
	PositionID   string `json:"position_id,omitempty"`
	ShiftID      string `json:"shift_id"`
	RuleID       string `json:"rule_id,omitempty"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date,omitempty"`
}

type RenewRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`
}

type AssignmentDTO struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employee_id,omitempty"`
	DepartmentID string  `json:"department_id,omitempty"`
	PositionID   string  `json:"position_id,omitempty"`
	ShiftID      string  `json:"shift_id"`
	RuleID       string  `json:"rule_id,omitempty"`
	StartDate    string  `json:"start_date"`
	EndDate      *string `json:"end_date,omitempty"`
	Status       string  `json:"status"` // effective status, expiry derived
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toAssignmentDTO(a *schedule.Assignment, asOf core.Date) AssignmentDTO {
	dto := AssignmentDTO{
		ID:           a.ID,
		EmployeeID:   a.Target.EmployeeID,
		DepartmentID: a.Target.DepartmentID,
		PositionID:   a.Target.PositionID,
		ShiftID:      a.ShiftID,
		RuleID:       a.RuleID,
		StartDate:    a.StartDate.String(),
		Status:       string(a.EffectiveStatus(asOf)),
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    a.UpdatedAt.Format(time.RFC3339),
	}
	if a.EndDate != nil {
		end := a.EndDate.String()
		dto.EndDate = &end
	}
	return dto
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
