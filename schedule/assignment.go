/*
assignment.go - Shift assignment lifecycle

STATES:
  pending --> approved | cancelled

  "expired" is NOT a stored status. It is derived at read time by
  comparing the assignment's end date to the current date; listings show
  it but nothing in the database flips. Recompute on read - no
  background job.

EDITS:
  An assignment is editable only while pending. Renew and reassign do
  not mutate the source record; they read its shift/rule and create a
  fresh pending assignment.
*/
package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hrline/leave-engine/core"
)

// =============================================================================
// ASSIGNMENT
// =============================================================================

type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentApproved  AssignmentStatus = "approved"
	AssignmentCancelled AssignmentStatus = "cancelled"

	// AssignmentExpired is derived, never persisted.
	AssignmentExpired AssignmentStatus = "expired"
)

// Target is the exactly-one-of assignment subject.
type Target struct {
	EmployeeID   string
	DepartmentID string
	PositionID   string
}

// Validate enforces that exactly one target field is set.
func (t Target) Validate() error {
	set := 0
	for _, v := range []string{t.EmployeeID, t.DepartmentID, t.PositionID} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return &core.ValidationError{
			Field:   "target",
			Message: "exactly one of employeeId, departmentId, positionId must be set",
		}
	}
	return nil
}

type Assignment struct {
	ID        string
	Target    Target
	ShiftID   string
	RuleID    string // optional schedule rule
	StartDate core.Date
	EndDate   *core.Date // nil = open-ended
	Status    AssignmentStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveStatus derives the read-time status: an approved assignment
// whose end date has passed reads as expired.
func (a *Assignment) EffectiveStatus(asOf core.Date) AssignmentStatus {
	if a.Status == AssignmentApproved && a.EndDate != nil && a.EndDate.Before(asOf) {
		return AssignmentExpired
	}
	return a.Status
}

type AssignmentStore interface {
	Create(ctx context.Context, a *Assignment) error
	Get(ctx context.Context, id string) (*Assignment, error)
	Save(ctx context.Context, a *Assignment) error
	List(ctx context.Context) ([]*Assignment, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Assignment, error)
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Assignments AssignmentStore
	Shifts      ShiftStore
	Rules       RuleStore

	Now func() time.Time
}

func NewService(assignments AssignmentStore, shifts ShiftStore, rules RuleStore) *Service {
	return &Service{
		Assignments: assignments,
		Shifts:      shifts,
		Rules:       rules,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput is the assignment creation payload.
type CreateInput struct {
	Target    Target
	ShiftID   string
	RuleID    string
	StartDate core.Date
	EndDate   *core.Date
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Assignment, error) {
	if err := in.Target.Validate(); err != nil {
		return nil, err
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, &core.ValidationError{Field: "endDate", Message: "end date before start date"}
	}
	if _, err := s.Shifts.Get(ctx, in.ShiftID); err != nil {
		return nil, err
	}
	if in.RuleID != "" {
		if _, err := s.Rules.Get(ctx, in.RuleID); err != nil {
			return nil, err
		}
	}

	now := s.Now()
	a := &Assignment{
		ID:        uuid.NewString(),
		Target:    in.Target,
		ShiftID:   in.ShiftID,
		RuleID:    in.RuleID,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Status:    AssignmentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Assignments.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Approve moves a pending assignment to approved.
func (s *Service) Approve(ctx context.Context, actor core.Principal, id string) (*Assignment, error) {
	return s.transition(ctx, actor, id, "approve", AssignmentApproved)
}

// Cancel moves a pending assignment to cancelled.
func (s *Service) Cancel(ctx context.Context, actor core.Principal, id string) (*Assignment, error) {
	return s.transition(ctx, actor, id, "cancel", AssignmentCancelled)
}

func (s *Service) transition(ctx context.Context, actor core.Principal, id, action string, to AssignmentStatus) (*Assignment, error) {
	if !actor.IsHR() && !actor.HasRole(core.RoleDepartmentHead) {
		return nil, &core.PermissionDeniedError{ActorID: actor.ID, Action: action + " an assignment"}
	}

	a, err := s.Assignments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != AssignmentPending {
		return nil, &core.InvalidStateTransitionError{Action: action, From: string(a.Status)}
	}

	a.Status = to
	a.UpdatedAt = s.Now()
	if err := s.Assignments.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Edit replaces the mutable fields of a pending assignment.
func (s *Service) Edit(ctx context.Context, actor core.Principal, id string, in CreateInput) (*Assignment, error) {
	if !actor.IsHR() && !actor.HasRole(core.RoleDepartmentHead) {
		return nil, &core.PermissionDeniedError{ActorID: actor.ID, Action: "edit an assignment"}
	}
	if err := in.Target.Validate(); err != nil {
		return nil, err
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, &core.ValidationError{Field: "endDate", Message: "end date before start date"}
	}

	a, err := s.Assignments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != AssignmentPending {
		return nil, &core.InvalidStateTransitionError{Action: "edit", From: string(a.Status)}
	}

	a.Target = in.Target
	a.ShiftID = in.ShiftID
	a.RuleID = in.RuleID
	a.StartDate = in.StartDate
	a.EndDate = in.EndDate
	a.UpdatedAt = s.Now()
	if err := s.Assignments.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Renew reads a source assignment's shift and rule and creates a NEW
// pending assignment starting at newStart. The source is not mutated.
func (s *Service) Renew(ctx context.Context, actor core.Principal, sourceID string, newStart core.Date, newEnd *core.Date) (*Assignment, error) {
	if !actor.IsHR() && !actor.HasRole(core.RoleDepartmentHead) {
		return nil, &core.PermissionDeniedError{ActorID: actor.ID, Action: "renew an assignment"}
	}

	src, err := s.Assignments.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	return s.Create(ctx, CreateInput{
		Target:    src.Target,
		ShiftID:   src.ShiftID,
		RuleID:    src.RuleID,
		StartDate: newStart,
		EndDate:   newEnd,
	})
}

// ScheduledDays renders which days in the range the assignment covers:
// inside [StartDate, EndDate] and matching the schedule rule's pattern
// (every day when no rule is attached).
func (s *Service) ScheduledDays(ctx context.Context, id string, rng core.DateRange) ([]core.Date, error) {
	a, err := s.Assignments.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var rule *Rule
	if a.RuleID != "" {
		rule, err = s.Rules.Get(ctx, a.RuleID)
		if err != nil {
			return nil, err
		}
	}

	var days []core.Date
	for _, day := range rng.Days() {
		if day.Before(a.StartDate) {
			continue
		}
		if a.EndDate != nil && day.After(*a.EndDate) {
			continue
		}
		if rule != nil && !rule.Matches(day) {
			continue
		}
		days = append(days, day)
	}
	return days, nil
}
