package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrline/leave-engine/api"
	"github.com/hrline/leave-engine/core"
	"github.com/hrline/leave-engine/leave"
	"github.com/hrline/leave-engine/ledger"
	"github.com/hrline/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testSecret = []byte("test-secret")

type apiTest struct {
	server *httptest.Server
	store  *sqlite.Store
}

func newAPITest(t *testing.T) *apiTest {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)

	h := api.NewHandler(store, nil)
	router := api.NewRouter(h, api.RouterOptions{
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"*"},
	})
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	ctx := context.Background()
	require.NoError(t, store.Employees.Save(ctx, &leave.Employee{
		ID: "emp-1", Name: "Nora Haddad", Email: "nora@example.com",
		DepartmentID: "dept-1", ManagerID: "mgr-1",
		HireDate: core.NewDate(2020, time.February, 1),
	}))
	require.NoError(t, store.LeaveTypes.Save(ctx, &leave.LeaveType{
		ID: "annual", Name: "Annual Leave", Active: true,
	}))
	ent := ledger.NewEntitlement("ent-1", "emp-1", "annual", 2025, core.DaysFromInt(20), core.RoundNone)
	require.NoError(t, store.Entitlements.Save(ctx, ent))

	return &apiTest{server: server, store: store}
}

func token(t *testing.T, subject string, roles ...core.Role) string {
	t.Helper()
	tok, err := api.GenerateToken(testSecret, subject, roles, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *apiTest) do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (a *apiTest) submitLeave(t *testing.T, bearer string) api.LeaveRequestDTO {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/leaves/requests", bearer, api.SubmitLeaveRequest{
		EmployeeID:  "emp-1",
		LeaveTypeID: "annual",
		FromDate:    "2025-06-02",
		ToDate:      "2025-06-04",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[api.LeaveRequestDTO](t, resp)
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestAuth_MissingToken(t *testing.T) {
	a := newAPITest(t)

	resp := a.do(t, http.MethodGet, "/api/leaves/requests", "", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_TokenSignedWithWrongSecret(t *testing.T) {
	a := newAPITest(t)
	bad, err := api.GenerateToken([]byte("other-secret"), "emp-1", []core.Role{core.RoleEmployee}, time.Hour)
	require.NoError(t, err)

	resp := a.do(t, http.MethodGet, "/api/leaves/requests", bad, nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_ExpiredToken(t *testing.T) {
	a := newAPITest(t)
	expired, err := api.GenerateToken(testSecret, "emp-1", []core.Role{core.RoleEmployee}, -time.Minute)
	require.NoError(t, err)

	resp := a.do(t, http.MethodGet, "/api/leaves/requests", expired, nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthz_NoAuthRequired(t *testing.T) {
	a := newAPITest(t)

	resp := a.do(t, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// LEAVE REQUEST FLOW
// =============================================================================

func TestLeaveFlow_SubmitApproveFinalize(t *testing.T) {
	// GIVEN: An employee token and a manager + HR chain
	// WHEN: Submitting, approving twice, and finalizing over HTTP
	// THEN: Each step returns the advancing request state

	a := newAPITest(t)
	emp := token(t, "emp-1", core.RoleEmployee)
	mgr := token(t, "mgr-1", core.RoleDepartmentHead)
	hr := token(t, "hr-1", core.RoleHRManager)

	created := a.submitLeave(t, emp)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "3", created.DurationDays)

	base := "/api/leaves/requests/" + created.ID
	resp := a.do(t, http.MethodPost, base+"/approve", mgr, api.DecisionRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	afterMgr := decode[api.LeaveRequestDTO](t, resp)
	assert.Equal(t, "pending", afterMgr.Status)

	resp = a.do(t, http.MethodPost, base+"/approve", hr, api.DecisionRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decode[api.LeaveRequestDTO](t, resp)
	assert.Equal(t, "approved", approved.Status)

	resp = a.do(t, http.MethodPost, base+"/finalize", hr, api.FinalizeRequest{
		PaidDays:   "3",
		UnpaidDays: "0",
		PayrollRef: "PR-7",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	final := decode[api.LeaveRequestDTO](t, resp)
	assert.Equal(t, "finalized", final.Status)
}

func TestLeaveFlow_RejectRequiresReason(t *testing.T) {
	a := newAPITest(t)
	emp := token(t, "emp-1", core.RoleEmployee)
	mgr := token(t, "mgr-1", core.RoleDepartmentHead)
	created := a.submitLeave(t, emp)

	resp := a.do(t, http.MethodPost, "/api/leaves/requests/"+created.ID+"/reject", mgr, api.DecisionRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/leaves/requests/"+created.ID+"/reject", mgr, api.DecisionRequest{
		Reason: "coverage gap",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestErrors_EmployeeCannotFinalize(t *testing.T) {
	a := newAPITest(t)
	emp := token(t, "emp-1", core.RoleEmployee)
	created := a.submitLeave(t, emp)

	resp := a.do(t, http.MethodPost, "/api/leaves/requests/"+created.ID+"/finalize", emp, api.FinalizeRequest{
		PaidDays: "3", UnpaidDays: "0",
	})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestErrors_UnknownRequest(t *testing.T) {
	a := newAPITest(t)
	emp := token(t, "emp-1", core.RoleEmployee)

	resp := a.do(t, http.MethodGet, "/api/leaves/requests/no-such-id", emp, nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestErrors_DecideTwiceConflicts(t *testing.T) {
	a := newAPITest(t)
	emp := token(t, "emp-1", core.RoleEmployee)
	hr := token(t, "hr-1", core.RoleHRManager)
	created := a.submitLeave(t, emp)

	resp := a.do(t, http.MethodPost, "/api/leaves/requests/"+created.ID+"/reject", hr, api.DecisionRequest{Reason: "no"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/leaves/requests/"+created.ID+"/approve", hr, api.DecisionRequest{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestErrors_InsufficientBalance(t *testing.T) {
	a := newAPITest(t)
	emp := token(t, "emp-1", core.RoleEmployee)

	resp := a.do(t, http.MethodPost, "/api/leaves/requests", emp, api.SubmitLeaveRequest{
		EmployeeID:  "emp-1",
		LeaveTypeID: "annual",
		FromDate:    "2025-06-02",
		ToDate:      "2025-06-26", // 25 days > 20
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[api.ErrorResponse](t, resp)
	assert.NotEmpty(t, body.Error)
}

// =============================================================================
// BULK
// =============================================================================

func TestBulk_AlwaysReturnsPerItemResults(t *testing.T) {
	a := newAPITest(t)
	emp := token(t, "emp-1", core.RoleEmployee)
	hr := token(t, "hr-1", core.RoleHRManager)
	created := a.submitLeave(t, emp)

	resp := a.do(t, http.MethodPost, "/api/leaves/requests/bulk", hr, api.BulkRequest{
		Action:     "APPROVE",
		RequestIDs: []string{created.ID, "ghost"},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decode[[]api.BulkResultDTO](t, resp)
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
}

// =============================================================================
// ENTITLEMENTS AND AUDIT
// =============================================================================

func TestEntitlements_DefaultsToActor(t *testing.T) {
	a := newAPITest(t)
	emp := token(t, "emp-1", core.RoleEmployee)

	resp := a.do(t, http.MethodGet, "/api/leaves/entitlements?year=2025", emp, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	ents := decode[[]api.EntitlementDTO](t, resp)
	require.Len(t, ents, 1)
	assert.Equal(t, "emp-1", ents[0].EmployeeID)
	assert.Equal(t, "20", ents[0].Remaining)
}

func TestAdjustment_WritesAuditEntryVisibleOverHTTP(t *testing.T) {
	// GIVEN: An HR adjustment adding 5 days
	// WHEN: Querying the audit log endpoint
	// THEN: The adjustment entry is returned; non-auditors get 403

	a := newAPITest(t)
	emp := token(t, "emp-1", core.RoleEmployee)
	hr := token(t, "hr-1", core.RoleHRManager)

	resp := a.do(t, http.MethodPost, "/api/leaves/adjustments", hr, api.AdjustmentRequest{
		EmployeeID:  "emp-1",
		LeaveTypeID: "annual",
		Year:        2025,
		Kind:        "add",
		Amount:      "5",
		Reason:      "tenure bonus",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ent := decode[api.EntitlementDTO](t, resp)
	assert.Equal(t, "25", ent.Remaining)

	resp = a.do(t, http.MethodGet, "/api/leaves/audit-logs?employee_id=emp-1", hr, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[api.AuditPageDTO](t, resp)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "adjustment_add", page.Data[0].Action)

	resp = a.do(t, http.MethodGet, "/api/leaves/audit-logs", emp, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEntitlementAuditLogs_ReturnsBareArray(t *testing.T) {
	// GIVEN: Two adjustments against one entitlement
	// WHEN: Fetching its audit trail
	// THEN: The response is a plain entry array, not the paged envelope

	a := newAPITest(t)
	hr := token(t, "hr-1", core.RoleHRManager)

	for _, reason := range []string{"opening balance", "correction"} {
		resp := a.do(t, http.MethodPost, "/api/leaves/adjustments", hr, api.AdjustmentRequest{
			EmployeeID:  "emp-1",
			LeaveTypeID: "annual",
			Year:        2025,
			Kind:        "add",
			Amount:      "1",
			Reason:      reason,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := a.do(t, http.MethodGet, "/api/leaves/audit-logs/entitlement/ent-1", hr, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[[]api.AuditEntryDTO](t, resp)
	require.Len(t, entries, 2)
	reasons := []string{entries[0].Reason, entries[1].Reason}
	assert.ElementsMatch(t, []string{"opening balance", "correction"}, reasons)
}

// =============================================================================
// SCHEDULE
// =============================================================================

func TestSchedule_ShiftAndAssignmentFlow(t *testing.T) {
	a := newAPITest(t)
	hr := token(t, "hr-1", core.RoleHRManager)
	emp := token(t, "emp-1", core.RoleEmployee)

	resp := a.do(t, http.MethodPost, "/api/schedule/shifts", hr, map[string]any{
		"id": "day", "name": "Day Shift", "start_time": "09:00", "end_time": "17:00", "active": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/schedule/shifts", emp, map[string]any{
		"id": "night", "name": "Night", "start_time": "22:00", "end_time": "06:00",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/schedule/assignments", hr, api.AssignmentRequest{
		EmployeeID: "emp-1",
		ShiftID:    "day",
		StartDate:  "2025-06-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.AssignmentDTO](t, resp)
	assert.Equal(t, "pending", created.Status)

	resp = a.do(t, http.MethodPost, "/api/schedule/assignments/"+created.ID+"/approve", hr, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decode[api.AssignmentDTO](t, resp)
	assert.Equal(t, "approved", approved.Status)
}
