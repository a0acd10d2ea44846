/*
handlers.go - HTTP handlers for leave, entitlements and audit

PURPOSE:
  Exposes the leave engine via REST. Handlers parse the request,
  resolve the authenticated principal, call domain logic and map
  domain errors onto HTTP status codes.

ERROR HANDLING:
  - 400: validation errors, malformed input
  - 403: permission denied
  - 404: not found
  - 409: invalid state transition
  - 422: insufficient balance
  - 500: everything else
  Bulk processing returns 200 with per-item results.

SEE ALSO:
  - dto.go: request/response structures
  - schedule.go: scheduling handlers
  - server.go: router setup
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hrline/leave-engine/audit"
	"github.com/hrline/leave-engine/core"
	"github.com/hrline/leave-engine/leave"
	"github.com/hrline/leave-engine/ledger"
	"github.com/hrline/leave-engine/schedule"
	"github.com/hrline/leave-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Leave    *leave.Service
	Ledger   *ledger.Service
	Schedule *schedule.Service
	Audit    audit.Recorder
	Log      *slog.Logger
}

// NewHandler wires the domain services on top of the store.
func NewHandler(store *sqlite.Store, logger *slog.Logger) *Handler {
	lgr := ledger.NewService(store.Entitlements, store.Audit)
	return &Handler{
		Store:    store,
		Leave:    leave.NewService(store.Requests, store.LeaveTypes, store.Employees, lgr, store.Audit),
		Ledger:   lgr,
		Schedule: schedule.NewService(store.Assignments, store.Shifts, store.Rules),
		Audit:    store.Audit,
		Log:      logger,
	}
}

// =============================================================================
// LEAVE REQUEST HANDLERS
// =============================================================================

// SubmitRequest handles POST /api/leaves/requests.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	from, err := core.ParseDate(req.FromDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	to, err := core.ParseDate(req.ToDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := h.Leave.Submit(r.Context(), principalFrom(r), leave.SubmitInput{
		EmployeeID:    req.EmployeeID,
		LeaveTypeID:   req.LeaveTypeID,
		From:          from,
		To:            to,
		Justification: req.Justification,
		AttachmentRef: req.AttachmentRef,
		Irregular:     req.Irregular,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(created))
}

// ListRequests handles GET /api/leaves/requests. Non-HR callers only
// see their own requests.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor := principalFrom(r)

	if status := r.URL.Query().Get("status"); status != "" {
		if !actor.IsHR() && !actor.HasRole(core.RoleDepartmentHead) {
			writeDomainError(w, &core.PermissionDeniedError{ActorID: actor.ID, Action: "list requests by status"})
			return
		}
		requests, err := h.Store.Requests.ListByStatus(r.Context(), leave.RequestStatus(status))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLeaveRequestDTOs(requests))
		return
	}

	employeeID := r.URL.Query().Get("employee_id")
	if employeeID == "" {
		employeeID = actor.ID
	}
	if employeeID != actor.ID && !actor.IsHR() && !actor.HasRole(core.RoleDepartmentHead) {
		writeDomainError(w, &core.PermissionDeniedError{ActorID: actor.ID, Action: "list another employee's requests"})
		return
	}

	requests, err := h.Store.Requests.ListByEmployee(r.Context(), employeeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTOs(requests))
}

// GetRequest handles GET /api/leaves/requests/{id}.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Leave.Get(r.Context(), principalFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// ApproveRequest handles POST /api/leaves/requests/{id}/approve.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var body DecisionRequest
	decodeOptional(r, &body)

	req, err := h.Leave.Decide(r.Context(), principalFrom(r), chi.URLParam(r, "id"), true, body.Comments)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// RejectRequest handles POST /api/leaves/requests/{id}/reject.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var body DecisionRequest
	decodeOptional(r, &body)

	comments := body.Reason
	if comments == "" {
		comments = body.Comments
	}
	req, err := h.Leave.Decide(r.Context(), principalFrom(r), chi.URLParam(r, "id"), false, comments)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// ReturnRequest handles POST /api/leaves/requests/{id}/return.
func (h *Handler) ReturnRequest(w http.ResponseWriter, r *http.Request) {
	var body DecisionRequest
	decodeOptional(r, &body)

	req, err := h.Leave.Return(r.Context(), principalFrom(r), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// ResubmitRequest handles POST /api/leaves/requests/{id}/resubmit.
func (h *Handler) ResubmitRequest(w http.ResponseWriter, r *http.Request) {
	var body ResubmitRequest
	decodeOptional(r, &body)

	in := leave.ResubmitInput{Justification: body.Justification}
	if body.FromDate != "" {
		from, err := core.ParseDate(body.FromDate)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		in.From = &from
	}
	if body.ToDate != "" {
		to, err := core.ParseDate(body.ToDate)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		in.To = &to
	}

	req, err := h.Leave.Resubmit(r.Context(), principalFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// CancelRequest handles POST /api/leaves/requests/{id}/cancel.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Leave.Cancel(r.Context(), principalFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// FinalizeRequest handles POST /api/leaves/requests/{id}/finalize.
func (h *Handler) FinalizeRequest(w http.ResponseWriter, r *http.Request) {
	var body FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	paid, err := core.ParseDays(body.PaidDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	unpaid, err := core.ParseDays(body.UnpaidDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	req, err := h.Leave.Finalize(r.Context(), principalFrom(r), chi.URLParam(r, "id"), leave.FinalizeInput{
		PaidDays:   paid,
		UnpaidDays: unpaid,
		PayrollRef: body.PayrollRef,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// OverrideRequest handles POST /api/leaves/requests/{id}/override.
func (h *Handler) OverrideRequest(w http.ResponseWriter, r *http.Request) {
	var body OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	in := leave.OverrideInput{
		Outcome:    leave.OverrideOutcome(body.Outcome),
		Reason:     body.Reason,
		PayrollRef: body.PayrollRef,
	}
	if body.PaidDays != "" {
		paid, err := core.ParseDays(body.PaidDays)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		in.PaidDays = paid
	}
	if body.UnpaidDays != "" {
		unpaid, err := core.ParseDays(body.UnpaidDays)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		in.UnpaidDays = unpaid
	}

	req, err := h.Leave.Override(r.Context(), principalFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// BulkProcess handles POST /api/leaves/requests/bulk. Always 200; each
// item carries its own outcome.
func (h *Handler) BulkProcess(w http.ResponseWriter, r *http.Request) {
	var body BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	results := h.Leave.BulkProcess(r.Context(), principalFrom(r),
		leave.BulkAction(body.Action), body.RequestIDs, body.Reason)

	dtos := make([]BulkResultDTO, len(results))
	for i, res := range results {
		dtos[i] = BulkResultDTO{RequestID: res.RequestID, OK: res.OK, Error: res.Error}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ENTITLEMENT HANDLERS
// =============================================================================

// ListEntitlements handles GET /api/leaves/entitlements.
func (h *Handler) ListEntitlements(w http.ResponseWriter, r *http.Request) {
	actor := principalFrom(r)

	employeeID := r.URL.Query().Get("employee_id")
	if employeeID == "" {
		employeeID = actor.ID
	}
	if employeeID != actor.ID && !actor.IsHR() && !actor.HasRole(core.RoleDepartmentHead) {
		writeDomainError(w, &core.PermissionDeniedError{ActorID: actor.ID, Action: "view another employee's entitlements"})
		return
	}

	year := time.Now().UTC().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year", err)
			return
		}
		year = parsed
	}

	entitlements, err := h.Store.Entitlements.ListByEmployee(r.Context(), employeeID, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]EntitlementDTO, len(entitlements))
	for i, e := range entitlements {
		dtos[i] = toEntitlementDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAdjustment handles POST /api/leaves/adjustments (HR only,
// enforced by the ledger).
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var body AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	amount, err := core.ParseDays(body.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	err = h.Ledger.Adjust(r.Context(), principalFrom(r), body.EmployeeID,
		body.LeaveTypeID, body.Year, amount, ledger.AdjustmentKind(body.Kind), body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ent, err := h.Store.Entitlements.Get(r.Context(), body.EmployeeID, body.LeaveTypeID, body.Year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntitlementDTO(ent))
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// QueryAuditLogs handles GET /api/leaves/audit-logs.
func (h *Handler) QueryAuditLogs(w http.ResponseWriter, r *http.Request) {
	actor := principalFrom(r)
	if !actor.CanAudit() {
		writeDomainError(w, &core.PermissionDeniedError{ActorID: actor.ID, Action: "query audit logs"})
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		ActorID:    q.Get("user_id"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		EmployeeID: q.Get("employee_id"),
		Action:     audit.Action(q.Get("action")),
	}
	if v := q.Get("start_date"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		filter.From = &d
	}
	if v := q.Get("end_date"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		filter.To = &d
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	page, err := h.Audit.Query(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditPageDTO(page))
}

// EntitlementAuditLogs handles GET /api/leaves/audit-logs/entitlement/{id}.
func (h *Handler) EntitlementAuditLogs(w http.ResponseWriter, r *http.Request) {
	actor := principalFrom(r)
	if !actor.CanAudit() {
		writeDomainError(w, &core.PermissionDeniedError{ActorID: actor.ID, Action: "query audit logs"})
		return
	}

	page, err := h.Audit.Query(r.Context(), audit.Filter{
		EntityType: "entitlement",
		EntityID:   chi.URLParam(r, "id"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Bare array, newest first; only /audit-logs carries the paged shape.
	writeJSON(w, http.StatusOK, toAuditEntryDTOs(page.Entries))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees handles GET /api/employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.Employees.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee handles GET /api/employees/{id}.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.Employees.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee handles POST /api/employees (HR only).
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	actor := principalFrom(r)
	if !actor.IsHR() {
		writeDomainError(w, &core.PermissionDeniedError{ActorID: actor.ID, Action: "create an employee"})
		return
	}

	var body EmployeeDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	hireDate, err := core.ParseDate(body.HireDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	emp := &leave.Employee{
		ID:           body.ID,
		Name:         body.Name,
		Email:        body.Email,
		DepartmentID: body.DepartmentID,
		PositionID:   body.PositionID,
		ManagerID:    body.ManagerID,
		HireDate:     hireDate,
	}
	if err := h.Store.Employees.Save(r.Context(), emp); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrPermissionDenied):
		status = http.StatusForbidden
	case core.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidStateTransition):
		status = http.StatusConflict
	case errors.Is(err, core.ErrInsufficientBalance):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// decodeOptional tolerates an empty body for endpoints where the
// payload is optional.
func decodeOptional(r *http.Request, v any) {
	_ = json.NewDecoder(r.Body).Decode(v)
}
