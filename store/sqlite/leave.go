package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hrline/leave-engine/core"
	"github.com/hrline/leave-engine/leave"
)

// =============================================================================
// LEAVE REQUEST STORE (leave.RequestStore interface)
// =============================================================================

type RequestStore struct {
	s *Store
}

var _ leave.RequestStore = (*RequestStore)(nil)

const requestColumns = `id, employee_id, leave_type_id, from_date, to_date,
	duration_days, justification, attachment_ref, irregular, status,
	steps_json, finalization_json, created_at, updated_at`

func (rs *RequestStore) Create(ctx context.Context, r *leave.LeaveRequest) error {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()

	err := rs.write(ctx, r, true)
	if isUniqueConstraintError(err) {
		return &core.ValidationError{Field: "id", Message: "request already exists"}
	}
	return err
}

func (rs *RequestStore) Save(ctx context.Context, r *leave.LeaveRequest) error {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()

	return rs.write(ctx, r, false)
}

func (rs *RequestStore) write(ctx context.Context, r *leave.LeaveRequest, insert bool) error {
	stepsJSON, err := json.Marshal(r.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode approval steps: %w", err)
	}

	var finalJSON any
	if r.Finalization != nil {
		b, err := json.Marshal(finalizationRecord{
			PaidDays:       r.Finalization.PaidDays.String(),
			UnpaidDays:     r.Finalization.UnpaidDays.String(),
			PayrollRef:     r.Finalization.PayrollRef,
			OverrideReason: r.Finalization.OverrideReason,
		})
		if err != nil {
			return fmt.Errorf("failed to encode finalization: %w", err)
		}
		finalJSON = string(b)
	}

	if insert {
		_, err = rs.s.db.ExecContext(ctx, `
			INSERT INTO leave_requests
			(id, employee_id, leave_type_id, from_date, to_date, duration_days,
			 justification, attachment_ref, irregular, status, steps_json,
			 finalization_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.EmployeeID, r.LeaveTypeID,
			r.Range.From.String(), r.Range.To.String(), r.DurationDays.String(),
			r.Justification, nullString(r.AttachmentRef), boolToInt(r.Irregular),
			string(r.Status), string(stepsJSON), finalJSON,
			formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
		return err
	}

	res, err := rs.s.db.ExecContext(ctx, `
		UPDATE leave_requests SET
			from_date = ?, to_date = ?, duration_days = ?, justification = ?,
			attachment_ref = ?, irregular = ?, status = ?, steps_json = ?,
			finalization_json = ?, updated_at = ?
		WHERE id = ?`,
		r.Range.From.String(), r.Range.To.String(), r.DurationDays.String(),
		r.Justification, nullString(r.AttachmentRef), boolToInt(r.Irregular),
		string(r.Status), string(stepsJSON), finalJSON,
		formatTime(r.UpdatedAt), r.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: "leave request", ID: r.ID}
	}
	return nil
}

// finalizationRecord keeps day quantities as decimal strings in JSON so
// the stored form matches the entitlement columns.
type finalizationRecord struct {
	PaidDays       string `json:"paidDays"`
	UnpaidDays     string `json:"unpaidDays"`
	PayrollRef     string `json:"payrollRef,omitempty"`
	OverrideReason string `json:"overrideReason,omitempty"`
}

func (rs *RequestStore) Get(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	rs.s.mu.RLock()
	defer rs.s.mu.RUnlock()

	row := rs.s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id)

	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Kind: "leave request", ID: id}
	}
	return r, err
}

func (rs *RequestStore) ListByEmployee(ctx context.Context, employeeID string) ([]*leave.LeaveRequest, error) {
	return rs.query(ctx,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE employee_id = ? ORDER BY created_at DESC`, employeeID)
}

// ListLive returns requests that still hold or may hold a reservation:
// everything except rejected, cancelled and finalized.
func (rs *RequestStore) ListLive(ctx context.Context, employeeID string) ([]*leave.LeaveRequest, error) {
	return rs.query(ctx,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE employee_id = ? AND status IN (?, ?, ?)`,
		employeeID,
		string(leave.StatusPending), string(leave.StatusApproved), string(leave.StatusReturned))
}

func (rs *RequestStore) ListByStatus(ctx context.Context, status leave.RequestStatus) ([]*leave.LeaveRequest, error) {
	return rs.query(ctx,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE status = ? ORDER BY created_at DESC`, string(status))
}

func (rs *RequestStore) query(ctx context.Context, q string, args ...any) ([]*leave.LeaveRequest, error) {
	rs.s.mu.RLock()
	defer rs.s.mu.RUnlock()

	rows, err := rs.s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(row rowScanner) (*leave.LeaveRequest, error) {
	var (
		r                  leave.LeaveRequest
		from, to, duration string
		attachment         sql.NullString
		irregular          int
		status             string
		stepsJSON          string
		finalJSON          sql.NullString
		createdAt, updated string
	)

	err := row.Scan(&r.ID, &r.EmployeeID, &r.LeaveTypeID, &from, &to,
		&duration, &r.Justification, &attachment, &irregular, &status,
		&stepsJSON, &finalJSON, &createdAt, &updated)
	if err != nil {
		return nil, err
	}
	r.AttachmentRef = attachment.String
	r.Irregular = irregular != 0

	if r.Range.From, err = core.ParseDate(from); err != nil {
		return nil, err
	}
	if r.Range.To, err = core.ParseDate(to); err != nil {
		return nil, err
	}
	if r.DurationDays, err = scanDays(duration); err != nil {
		return nil, err
	}
	r.Status = leave.RequestStatus(status)

	if err := json.Unmarshal([]byte(stepsJSON), &r.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode approval steps: %w", err)
	}

	if finalJSON.Valid {
		var rec finalizationRecord
		if err := json.Unmarshal([]byte(finalJSON.String), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode finalization: %w", err)
		}
		fin := &leave.Finalization{
			PayrollRef:     rec.PayrollRef,
			OverrideReason: rec.OverrideReason,
		}
		if fin.PaidDays, err = scanDays(rec.PaidDays); err != nil {
			return nil, err
		}
		if fin.UnpaidDays, err = scanDays(rec.UnpaidDays); err != nil {
			return nil, err
		}
		r.Finalization = fin
	}

	r.CreatedAt = scanTime(createdAt)
	r.UpdatedAt = scanTime(updated)
	return &r, nil
}

// =============================================================================
// LEAVE TYPE STORE (leave.LeaveTypeStore interface)
// =============================================================================

type LeaveTypeStore struct {
	s *Store
}

var _ leave.LeaveTypeStore = (*LeaveTypeStore)(nil)

func (ls *LeaveTypeStore) Get(ctx context.Context, id string) (*leave.LeaveType, error) {
	ls.s.mu.RLock()
	defer ls.s.mu.RUnlock()

	row := ls.s.db.QueryRowContext(ctx,
		`SELECT id, name, approval_chain, requires_justification, max_carry_forward, active
		 FROM leave_types WHERE id = ?`, id)

	lt, err := scanLeaveType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Kind: "leave type", ID: id}
	}
	return lt, err
}

func (ls *LeaveTypeStore) List(ctx context.Context) ([]*leave.LeaveType, error) {
	ls.s.mu.RLock()
	defer ls.s.mu.RUnlock()

	rows, err := ls.s.db.QueryContext(ctx,
		`SELECT id, name, approval_chain, requires_justification, max_carry_forward, active
		 FROM leave_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*leave.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

func (ls *LeaveTypeStore) Save(ctx context.Context, lt *leave.LeaveType) error {
	ls.s.mu.Lock()
	defer ls.s.mu.Unlock()

	chain := make([]string, len(lt.ApprovalChain))
	for i, role := range lt.ApprovalChain {
		chain[i] = string(role)
	}

	_, err := ls.s.db.ExecContext(ctx, `
		INSERT INTO leave_types
		(id, name, approval_chain, requires_justification, max_carry_forward, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			approval_chain = excluded.approval_chain,
			requires_justification = excluded.requires_justification,
			max_carry_forward = excluded.max_carry_forward,
			active = excluded.active`,
		lt.ID, lt.Name, strings.Join(chain, ","),
		boolToInt(lt.RequiresJustification), lt.MaxCarryForward.String(),
		boolToInt(lt.Active))
	if err != nil {
		return fmt.Errorf("failed to save leave type: %w", err)
	}
	return nil
}

func scanLeaveType(row rowScanner) (*leave.LeaveType, error) {
	var (
		lt                leave.LeaveType
		chain, maxCarry   string
		requiresJ, active int
	)

	err := row.Scan(&lt.ID, &lt.Name, &chain, &requiresJ, &maxCarry, &active)
	if err != nil {
		return nil, err
	}

	if chain != "" {
		for _, role := range strings.Split(chain, ",") {
			lt.ApprovalChain = append(lt.ApprovalChain, core.Role(role))
		}
	}
	if lt.MaxCarryForward, err = scanDays(maxCarry); err != nil {
		return nil, err
	}
	lt.RequiresJustification = requiresJ != 0
	lt.Active = active != 0
	return &lt, nil
}

// =============================================================================
// EMPLOYEE STORE (leave.EmployeeDirectory interface)
// =============================================================================

type EmployeeStore struct {
	s *Store
}

var _ leave.EmployeeDirectory = (*EmployeeStore)(nil)

func (es *EmployeeStore) Get(ctx context.Context, id string) (*leave.Employee, error) {
	es.s.mu.RLock()
	defer es.s.mu.RUnlock()

	row := es.s.db.QueryRowContext(ctx,
		`SELECT id, name, email, department_id, position_id, manager_id, hire_date
		 FROM employees WHERE id = ?`, id)

	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Kind: "employee", ID: id}
	}
	return e, err
}

func (es *EmployeeStore) List(ctx context.Context) ([]*leave.Employee, error) {
	es.s.mu.RLock()
	defer es.s.mu.RUnlock()

	rows, err := es.s.db.QueryContext(ctx,
		`SELECT id, name, email, department_id, position_id, manager_id, hire_date
		 FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*leave.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (es *EmployeeStore) Save(ctx context.Context, e *leave.Employee) error {
	es.s.mu.Lock()
	defer es.s.mu.Unlock()

	_, err := es.s.db.ExecContext(ctx, `
		INSERT INTO employees
		(id, name, email, department_id, position_id, manager_id, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			department_id = excluded.department_id,
			position_id = excluded.position_id,
			manager_id = excluded.manager_id,
			hire_date = excluded.hire_date`,
		e.ID, e.Name, e.Email, e.DepartmentID, e.PositionID,
		nullString(e.ManagerID), e.HireDate.String(),
		formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func scanEmployee(row rowScanner) (*leave.Employee, error) {
	var (
		e        leave.Employee
		manager  sql.NullString
		hireDate string
	)

	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.DepartmentID,
		&e.PositionID, &manager, &hireDate)
	if err != nil {
		return nil, err
	}
	e.ManagerID = manager.String

	if e.HireDate, err = core.ParseDate(hireDate); err != nil {
		return nil, err
	}
	return &e, nil
}
