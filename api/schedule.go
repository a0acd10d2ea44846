/*
schedule.go - HTTP handlers for shifts, schedule rules and assignments

PURPOSE:
  Scheduling surface: shift and shift-type catalogs, named schedule
  rules (pattern wire encoding at the boundary), and the assignment
  lifecycle including the derived expired status and day rendering.
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hrline/leave-engine/core"
	"github.com/hrline/leave-engine/schedule"
)

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts handles GET /api/schedule/shifts.
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.Store.Shifts.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetShift handles GET /api/schedule/shifts/{id}.
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	shift, err := h.Store.Shifts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(shift))
}

// SaveShift handles POST /api/schedule/shifts (HR only).
func (h *Handler) SaveShift(w http.ResponseWriter, r *http.Request) {
	actor := principalFrom(r)
	if !actor.IsHR() {
		writeDomainError(w, &core.PermissionDeniedError{ActorID: actor.ID, Action: "manage shifts"})
		return
	}

	var body ShiftDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	start, err := schedule.ParseClock(body.StartTime)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	end, err := schedule.ParseClock(body.EndTime)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	shift := &schedule.Shift{
		ID:               body.ID,
		Name:             body.Name,
		StartMinute:      start,
		EndMinute:        end,
		PunchPolicy:      schedule.PunchPolicy(body.PunchPolicy),
		GraceInMinutes:   body.GraceInMinutes,
		GraceOutMinutes:  body.GraceOutMinutes,
		OvertimeApproval: body.OvertimeApproval,
		Active:           body.Active,
	}
	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	if shift.PunchPolicy == "" {
		shift.PunchPolicy = schedule.PunchFirstLast
	}

	if err := h.Store.Shifts.Save(r.Context(), shift); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(shift))
}

// ListShiftTypes handles GET /api/schedule/shift-types.
func (h *Handler) ListShiftTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ShiftTypes.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ShiftTypeDTO, len(types))
	for i, t := range types {
		dtos[i] = ShiftTypeDTO{ID: t.ID, Name: t.Name, Active: t.Active}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveShiftType handles POST /api/schedule/shift-types (HR only).
func (h *Handler) SaveShiftType(w http.ResponseWriter, r *http.Request) {
	actor := principalFrom(r)
	if !actor.IsHR() {
		writeDomainError(w, &core.PermissionDeniedError{ActorID: actor.ID, Action: "manage shift types"})
		return
	}

	var body ShiftTypeDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if body.ID == "" {
		body.ID = uuid.NewString()
	}

	t := &schedule.ShiftType{ID: body.ID, Name: body.Name, Active: body.Active}
	if err := h.Store.ShiftTypes.Save(r.Context(), t); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// =============================================================================
// SCHEDULE RULE HANDLERS
// =============================================================================

// ListRules handles GET /api/schedule/rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.Rules.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]RuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRule handles GET /api/schedule/rules/{id}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.Store.Rules.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule))
}

// SaveRule handles POST /api/schedule/rules (HR only). The pattern
// arrives in its wire encoding and is validated by parsing.
func (h *Handler) SaveRule(w http.ResponseWriter, r *http.Request) {
	actor := principalFrom(r)
	if !actor.IsHR() {
		writeDomainError(w, &core.PermissionDeniedError{ActorID: actor.ID, Action: "manage schedule rules"})
		return
	}

	var body RuleDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	pattern, err := schedule.ParsePattern(body.Pattern)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	anchor, err := core.ParseDate(body.AnchorDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rule := &schedule.Rule{
		ID:         body.ID,
		Name:       body.Name,
		Pattern:    pattern,
		AnchorDate: anchor,
		Active:     body.Active,
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	if err := h.Store.Rules.Save(r.Context(), rule); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule))
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

func (h *Handler) assignmentInput(body AssignmentRequest) (schedule.CreateInput, error) {
	start, err := core.ParseDate(body.StartDate)
	if err != nil {
		return schedule.CreateInput{}, err
	}

	in := schedule.CreateInput{
		Target: schedule.Target{
			EmployeeID:   body.EmployeeID,
			DepartmentID: body.DepartmentID,
			PositionID:   body.PositionID,
		},
		ShiftID:   body.ShiftID,
		RuleID:    body.RuleID,
		StartDate: start,
	}
	if body.EndDate != "" {
		end, err := core.ParseDate(body.EndDate)
		if err != nil {
			return schedule.CreateInput{}, err
		}
		in.EndDate = &end
	}
	return in, nil
}

// CreateAssignment handles POST /api/schedule/assignments.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	actor := principalFrom(r)
	if !actor.IsHR() && !actor.HasRole(core.RoleDepartmentHead) {
		writeDomainError(w, &core.PermissionDeniedError{ActorID: actor.ID, Action: "create an assignment"})
		return
	}

	var body AssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	in, err := h.assignmentInput(body)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	a, err := h.Schedule.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(a, core.Today()))
}

// ListAssignments handles GET /api/schedule/assignments.
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	var (
		assignments []*schedule.Assignment
		err         error
	)
	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		assignments, err = h.Store.Assignments.ListByEmployee(r.Context(), employeeID)
	} else {
		assignments, err = h.Store.Assignments.List(r.Context())
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	today := core.Today()
	dtos := make([]AssignmentDTO, len(assignments))
	for i, a := range assignments {
		dtos[i] = toAssignmentDTO(a, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAssignment handles GET /api/schedule/assignments/{id}.
func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := h.Store.Assignments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a, core.Today()))
}

// ApproveAssignment handles POST /api/schedule/assignments/{id}/approve.
func (h *Handler) ApproveAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := h.Schedule.Approve(r.Context(), principalFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a, core.Today()))
}

// CancelAssignment handles POST /api/schedule/assignments/{id}/cancel.
func (h *Handler) CancelAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := h.Schedule.Cancel(r.Context(), principalFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a, core.Today()))
}

// EditAssignment handles PUT /api/schedule/assignments/{id}.
func (h *Handler) EditAssignment(w http.ResponseWriter, r *http.Request) {
	var body AssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	in, err := h.assignmentInput(body)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	a, err := h.Schedule.Edit(r.Context(), principalFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(a, core.Today()))
}

// RenewAssignment handles POST /api/schedule/assignments/{id}/renew.
func (h *Handler) RenewAssignment(w http.ResponseWriter, r *http.Request) {
	var body RenewRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	start, err := core.ParseDate(body.StartDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var end *core.Date
	if body.EndDate != "" {
		d, err := core.ParseDate(body.EndDate)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		end = &d
	}

	a, err := h.Schedule.Renew(r.Context(), principalFrom(r), chi.URLParam(r, "id"), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(a, core.Today()))
}

// AssignmentSchedule handles GET /api/schedule/assignments/{id}/schedule.
func (h *Handler) AssignmentSchedule(w http.ResponseWriter, r *http.Request) {
	from, err := core.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	to, err := core.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rng, err := core.NewDateRange(from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	days, err := h.Schedule.ScheduledDays(r.Context(), chi.URLParam(r, "id"), rng)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	writeJSON(w, http.StatusOK, out)
}
