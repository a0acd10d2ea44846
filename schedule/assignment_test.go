package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrline/leave-engine/core"
	"github.com/hrline/leave-engine/schedule"
	"github.com/hrline/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var scheduler = core.Principal{ID: "hr-1", Roles: []core.Role{core.RoleHRManager}}

func newTestSchedule(t *testing.T) (*schedule.Service, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := schedule.NewService(store.Assignments, store.Shifts, store.Rules)

	ctx := context.Background()
	require.NoError(t, store.Shifts.Save(ctx, &schedule.Shift{
		ID:          "day",
		Name:        "Day Shift",
		StartMinute: 9 * 60,
		EndMinute:   17 * 60,
		PunchPolicy: schedule.PunchFirstLast,
		Active:      true,
	}))
	require.NoError(t, store.Rules.Save(ctx, &schedule.Rule{
		ID:         "weekdays",
		Name:       "Monday to Friday",
		Pattern:    schedule.NewWeeklyPattern(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday),
		AnchorDate: date(2025, time.January, 6),
		Active:     true,
	}))

	return svc, store
}

func createAssignment(t *testing.T, svc *schedule.Service, in schedule.CreateInput) *schedule.Assignment {
	t.Helper()
	a, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	return a
}

func employeeInput() schedule.CreateInput {
	return schedule.CreateInput{
		Target:    schedule.Target{EmployeeID: "emp-1"},
		ShiftID:   "day",
		RuleID:    "weekdays",
		StartDate: date(2025, time.June, 1),
	}
}

// =============================================================================
// TARGET VALIDATION
// =============================================================================

func TestTarget_ExactlyOneSubject(t *testing.T) {
	assert.NoError(t, schedule.Target{EmployeeID: "e"}.Validate())
	assert.NoError(t, schedule.Target{DepartmentID: "d"}.Validate())
	assert.NoError(t, schedule.Target{PositionID: "p"}.Validate())

	assert.ErrorIs(t, schedule.Target{}.Validate(), core.ErrValidation)
	assert.ErrorIs(t, schedule.Target{EmployeeID: "e", DepartmentID: "d"}.Validate(), core.ErrValidation)
}

// =============================================================================
// CREATE / LIFECYCLE
// =============================================================================

func TestCreate_StartsPending(t *testing.T) {
	svc, _ := newTestSchedule(t)

	a := createAssignment(t, svc, employeeInput())

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, schedule.AssignmentPending, a.Status)
	assert.Nil(t, a.EndDate)
}

func TestCreate_UnknownShiftOrRule_Rejected(t *testing.T) {
	svc, _ := newTestSchedule(t)
	ctx := context.Background()

	in := employeeInput()
	in.ShiftID = "night"
	_, err := svc.Create(ctx, in)
	assert.ErrorIs(t, err, core.ErrNotFound)

	in = employeeInput()
	in.RuleID = "no-such-rule"
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreate_EndBeforeStart_Rejected(t *testing.T) {
	svc, _ := newTestSchedule(t)

	in := employeeInput()
	end := date(2025, time.May, 1)
	in.EndDate = &end
	_, err := svc.Create(context.Background(), in)

	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestApprove_PendingOnly(t *testing.T) {
	svc, _ := newTestSchedule(t)
	a := createAssignment(t, svc, employeeInput())
	ctx := context.Background()

	approved, err := svc.Approve(ctx, scheduler, a.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.AssignmentApproved, approved.Status)

	_, err = svc.Approve(ctx, scheduler, a.ID)
	assert.ErrorIs(t, err, core.ErrInvalidStateTransition)
}

func TestCancel_PendingOnly(t *testing.T) {
	svc, _ := newTestSchedule(t)
	a := createAssignment(t, svc, employeeInput())
	ctx := context.Background()

	cancelled, err := svc.Cancel(ctx, scheduler, a.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.AssignmentCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, scheduler, a.ID)
	assert.ErrorIs(t, err, core.ErrInvalidStateTransition)
}

func TestTransition_RequiresSchedulerRole(t *testing.T) {
	svc, _ := newTestSchedule(t)
	a := createAssignment(t, svc, employeeInput())

	worker := core.Principal{ID: "emp-1", Roles: []core.Role{core.RoleEmployee}}
	_, err := svc.Approve(context.Background(), worker, a.ID)

	assert.ErrorIs(t, err, core.ErrPermissionDenied)
}

func TestEdit_PendingOnly(t *testing.T) {
	// GIVEN: A pending assignment targeting an employee
	// WHEN: Editing it to target a department
	// THEN: The new target sticks; after approval edits are refused

	svc, store := newTestSchedule(t)
	a := createAssignment(t, svc, employeeInput())
	ctx := context.Background()

	in := employeeInput()
	in.Target = schedule.Target{DepartmentID: "dept-1"}
	edited, err := svc.Edit(ctx, scheduler, a.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "dept-1", edited.Target.DepartmentID)
	assert.Empty(t, edited.Target.EmployeeID)

	stored, err := store.Assignments.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "dept-1", stored.Target.DepartmentID)

	_, err = svc.Approve(ctx, scheduler, a.ID)
	require.NoError(t, err)
	_, err = svc.Edit(ctx, scheduler, a.ID, in)
	assert.ErrorIs(t, err, core.ErrInvalidStateTransition)
}

// =============================================================================
// EXPIRY AND RENEWAL
// =============================================================================

func TestEffectiveStatus_ExpiryIsDerived(t *testing.T) {
	// GIVEN: An approved assignment that ended yesterday
	// THEN: It reads as expired as-of today while the stored row stays approved

	svc, store := newTestSchedule(t)
	in := employeeInput()
	end := date(2025, time.June, 30)
	in.EndDate = &end
	a := createAssignment(t, svc, in)
	ctx := context.Background()
	_, err := svc.Approve(ctx, scheduler, a.ID)
	require.NoError(t, err)

	stored, err := store.Assignments.Get(ctx, a.ID)
	require.NoError(t, err)

	assert.Equal(t, schedule.AssignmentApproved, stored.Status)
	assert.Equal(t, schedule.AssignmentApproved, stored.EffectiveStatus(date(2025, time.June, 30)))
	assert.Equal(t, schedule.AssignmentExpired, stored.EffectiveStatus(date(2025, time.July, 1)))
}

func TestRenew_CreatesNewPendingAssignment(t *testing.T) {
	svc, _ := newTestSchedule(t)
	in := employeeInput()
	end := date(2025, time.June, 30)
	in.EndDate = &end
	src := createAssignment(t, svc, in)
	ctx := context.Background()
	_, err := svc.Approve(ctx, scheduler, src.ID)
	require.NoError(t, err)

	renewed, err := svc.Renew(ctx, scheduler, src.ID, date(2025, time.July, 1), nil)
	require.NoError(t, err)

	assert.NotEqual(t, src.ID, renewed.ID)
	assert.Equal(t, schedule.AssignmentPending, renewed.Status)
	assert.Equal(t, src.Target, renewed.Target)
	assert.Equal(t, "day", renewed.ShiftID)
	assert.Nil(t, renewed.EndDate)
}

// =============================================================================
// SCHEDULED DAYS
// =============================================================================

func TestScheduledDays_IntersectsRuleAndBounds(t *testing.T) {
	// GIVEN: A weekday assignment running June 2-6
	// WHEN: Rendering June 1-8
	// THEN: Only the five weekdays inside the bounds come back

	svc, _ := newTestSchedule(t)
	in := employeeInput()
	in.StartDate = date(2025, time.June, 2)
	end := date(2025, time.June, 6)
	in.EndDate = &end
	a := createAssignment(t, svc, in)

	rng, err := core.NewDateRange(date(2025, time.June, 1), date(2025, time.June, 8))
	require.NoError(t, err)
	days, err := svc.ScheduledDays(context.Background(), a.ID, rng)
	require.NoError(t, err)

	require.Len(t, days, 5)
	assert.Equal(t, date(2025, time.June, 2), days[0])
	assert.Equal(t, date(2025, time.June, 6), days[4])
}

func TestScheduledDays_NoRuleMeansEveryDay(t *testing.T) {
	svc, _ := newTestSchedule(t)
	in := employeeInput()
	in.RuleID = ""
	in.StartDate = date(2025, time.June, 2)
	a := createAssignment(t, svc, in)

	rng, err := core.NewDateRange(date(2025, time.June, 2), date(2025, time.June, 4))
	require.NoError(t, err)
	days, err := svc.ScheduledDays(context.Background(), a.ID, rng)
	require.NoError(t, err)

	assert.Len(t, days, 3)
}
