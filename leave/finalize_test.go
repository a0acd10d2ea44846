package leave_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrline/leave-engine/audit"
	"github.com/hrline/leave-engine/core"
	"github.com/hrline/leave-engine/leave"
	"github.com/hrline/leave-engine/ledger"
	"github.com/hrline/leave-engine/store/sqlite"
)

// brokenRecorder refuses every append, simulating an unavailable
// audit store.
type brokenRecorder struct{}

func (brokenRecorder) Append(context.Context, audit.Entry) error {
	return errors.New("audit store unavailable")
}

func (brokenRecorder) Query(context.Context, audit.Filter) (audit.Page, error) {
	return audit.Page{}, nil
}

func approved(t *testing.T, svc *leave.Service, from, to string) *leave.LeaveRequest {
	t.Helper()
	req := submit(t, svc, from, to)
	ctx := context.Background()
	_, err := svc.Decide(ctx, mgrActor, req.ID, true, "")
	require.NoError(t, err)
	out, err := svc.Decide(ctx, hrActor, req.ID, true, "")
	require.NoError(t, err)
	return out
}

func entitlement(t *testing.T, store *sqlite.Store) (taken, remaining, pending string) {
	t.Helper()
	ent, err := store.Entitlements.Get(context.Background(), "emp-1", "annual", 2025)
	require.NoError(t, err)
	return ent.Taken.String(), ent.Remaining.String(), ent.Pending.String()
}

// =============================================================================
// FINALIZE
// =============================================================================

func TestFinalize_CommitsPaidUnpaidSplit(t *testing.T) {
	// GIVEN: An approved 3-day request holding balance
	// WHEN: HR finalizes it as 2 paid + 1 unpaid
	// THEN: Only the paid share consumes entitlement

	svc, store := newTestService(t)
	req := approved(t, svc, "2025-06-02", "2025-06-04")

	final, err := svc.Finalize(context.Background(), hrActor, req.ID, leave.FinalizeInput{
		PaidDays:   core.DaysFromInt(2),
		UnpaidDays: core.DaysFromInt(1),
		PayrollRef: "PR-2025-06",
	})
	require.NoError(t, err)

	assert.Equal(t, leave.StatusFinalized, final.Status)
	require.NotNil(t, final.Finalization)
	assert.Equal(t, "2", final.Finalization.PaidDays.String())
	assert.Equal(t, "PR-2025-06", final.Finalization.PayrollRef)

	taken, remaining, pend := entitlement(t, store)
	assert.Equal(t, "2", taken)
	assert.Equal(t, "18", remaining)
	assert.Equal(t, "0", pend)
}

func TestFinalize_SplitMustMatchDuration(t *testing.T) {
	svc, _ := newTestService(t)
	req := approved(t, svc, "2025-06-02", "2025-06-04")

	_, err := svc.Finalize(context.Background(), hrActor, req.ID, leave.FinalizeInput{
		PaidDays:   core.DaysFromInt(1),
		UnpaidDays: core.DaysFromInt(1), // 2 != 3
	})

	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestFinalize_RequiresHR(t *testing.T) {
	svc, _ := newTestService(t)
	req := approved(t, svc, "2025-06-02", "2025-06-04")

	_, err := svc.Finalize(context.Background(), mgrActor, req.ID, leave.FinalizeInput{
		PaidDays: core.DaysFromInt(3),
	})

	assert.ErrorIs(t, err, core.ErrPermissionDenied)
}

func TestFinalize_OnlyApprovedRequests(t *testing.T) {
	svc, _ := newTestService(t)
	req := submit(t, svc, "2025-06-02", "2025-06-04")

	_, err := svc.Finalize(context.Background(), hrActor, req.ID, leave.FinalizeInput{
		PaidDays: core.DaysFromInt(3),
	})

	assert.ErrorIs(t, err, core.ErrInvalidStateTransition)
}

func TestFinalize_WritesAuditEntry(t *testing.T) {
	svc, store := newTestService(t)
	req := approved(t, svc, "2025-06-02", "2025-06-04")
	ctx := context.Background()

	_, err := svc.Finalize(ctx, hrActor, req.ID, leave.FinalizeInput{
		PaidDays: core.DaysFromInt(3),
	})
	require.NoError(t, err)

	page, err := store.Audit.Query(ctx, audit.Filter{
		EntityID: req.ID,
		Action:   audit.ActionRequestFinalized,
	})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "hr-1", page.Entries[0].ActorID)
}

func TestFinalize_AuditAppendFailureSurfaces(t *testing.T) {
	// GIVEN: An approved request and an audit store that refuses writes
	// WHEN: HR finalizes
	// THEN: The failure surfaces instead of reporting clean success

	svc, store := newTestService(t)
	req := approved(t, svc, "2025-06-02", "2025-06-04")
	ctx := context.Background()

	lgr := ledger.NewService(store.Entitlements, store.Audit)
	broken := leave.NewService(store.Requests, store.LeaveTypes, store.Employees, lgr, brokenRecorder{})

	_, err := broken.Finalize(ctx, hrActor, req.ID, leave.FinalizeInput{
		PaidDays: core.DaysFromInt(3),
	})
	require.Error(t, err)

	page, err := store.Audit.Query(ctx, audit.Filter{EntityID: req.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total, "no finalize entry must exist when the append failed")
}

func TestOverride_AuditAppendFailureSurfaces(t *testing.T) {
	svc, store := newTestService(t)
	req := approved(t, svc, "2025-06-02", "2025-06-04")
	ctx := context.Background()

	lgr := ledger.NewService(store.Entitlements, store.Audit)
	broken := leave.NewService(store.Requests, store.LeaveTypes, store.Employees, lgr, brokenRecorder{})

	_, err := broken.Override(ctx, hrActor, req.ID, leave.OverrideInput{
		Outcome: leave.OverrideReject,
		Reason:  "manual correction",
	})
	require.Error(t, err)

	page, err := store.Audit.Query(ctx, audit.Filter{EntityID: req.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

// =============================================================================
// OVERRIDE
// =============================================================================

func TestOverride_RejectReleasesReservation(t *testing.T) {
	// GIVEN: An approved request
	// WHEN: HR overrides it to rejected with a reason
	// THEN: The hold is released and the reason recorded

	svc, store := newTestService(t)
	req := approved(t, svc, "2025-06-02", "2025-06-04")

	out, err := svc.Override(context.Background(), hrActor, req.ID, leave.OverrideInput{
		Outcome: leave.OverrideReject,
		Reason:  "payroll cutoff already passed",
	})
	require.NoError(t, err)

	assert.Equal(t, leave.StatusRejected, out.Status)
	require.NotNil(t, out.Finalization)
	assert.Equal(t, "payroll cutoff already passed", out.Finalization.OverrideReason)

	_, _, pend := entitlement(t, store)
	assert.Equal(t, "0", pend)
}

func TestOverride_FinalizeCommitsSplit(t *testing.T) {
	svc, store := newTestService(t)
	req := approved(t, svc, "2025-06-02", "2025-06-04")

	out, err := svc.Override(context.Background(), hrActor, req.ID, leave.OverrideInput{
		Outcome:    leave.OverrideFinalize,
		Reason:     "manual correction after audit",
		PaidDays:   core.DaysFromInt(3),
		UnpaidDays: core.ZeroDays(),
	})
	require.NoError(t, err)

	assert.Equal(t, leave.StatusFinalized, out.Status)
	taken, _, _ := entitlement(t, store)
	assert.Equal(t, "3", taken)
}

func TestOverride_ReasonMandatory(t *testing.T) {
	svc, _ := newTestService(t)
	req := approved(t, svc, "2025-06-02", "2025-06-04")

	_, err := svc.Override(context.Background(), hrActor, req.ID, leave.OverrideInput{
		Outcome: leave.OverrideReject,
	})

	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestOverride_RequiresHR(t *testing.T) {
	svc, _ := newTestService(t)
	req := approved(t, svc, "2025-06-02", "2025-06-04")

	_, err := svc.Override(context.Background(), mgrActor, req.ID, leave.OverrideInput{
		Outcome: leave.OverrideReject,
		Reason:  "no",
	})

	assert.ErrorIs(t, err, core.ErrPermissionDenied)
}

// =============================================================================
// BULK PROCESSING
// =============================================================================

func TestBulkProcess_PerItemIsolation(t *testing.T) {
	// GIVEN: Two pending requests, one of which gets cancelled first
	// WHEN: HR bulk-approves both ids
	// THEN: The live one succeeds and the cancelled one fails on its own

	svc, _ := newTestService(t)
	ctx := context.Background()
	a := submit(t, svc, "2025-06-02", "2025-06-03")
	b := submit(t, svc, "2025-06-09", "2025-06-10")
	_, err := svc.Cancel(ctx, empActor, b.ID)
	require.NoError(t, err)

	results := svc.BulkProcess(ctx, hrActor, leave.BulkApprove, []string{a.ID, b.ID}, "")

	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.NotEmpty(t, results[1].Error)

	// Each pass decides the active step only; a second pass clears the chain.
	results = svc.BulkProcess(ctx, hrActor, leave.BulkApprove, []string{a.ID}, "")
	require.True(t, results[0].OK)

	got, err := svc.Get(ctx, hrActor, a.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
}

func TestBulkProcess_FinalizeUsesFullyPaidSplit(t *testing.T) {
	svc, store := newTestService(t)
	req := approved(t, svc, "2025-06-02", "2025-06-04")

	results := svc.BulkProcess(context.Background(), hrActor, leave.BulkFinalize, []string{req.ID}, "")

	require.Len(t, results, 1)
	assert.True(t, results[0].OK, results[0].Error)

	taken, _, _ := entitlement(t, store)
	assert.Equal(t, "3", taken)
}

func TestBulkProcess_UnknownAction(t *testing.T) {
	svc, _ := newTestService(t)
	req := submit(t, svc, "2025-06-02", "2025-06-03")

	results := svc.BulkProcess(context.Background(), hrActor, leave.BulkAction("ESCALATE"), []string{req.ID}, "")

	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
}
