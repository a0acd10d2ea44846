package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hrline/leave-engine/core"
	"github.com/hrline/leave-engine/schedule"
)

// =============================================================================
// SHIFT STORE (schedule.ShiftStore interface)
// =============================================================================

type ShiftStore struct {
	s *Store
}

var _ schedule.ShiftStore = (*ShiftStore)(nil)

const shiftColumns = `id, name, start_minute, end_minute, punch_policy,
	grace_in_minutes, grace_out_minutes, overtime_approval, active`

func (ss *ShiftStore) Get(ctx context.Context, id string) (*schedule.Shift, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()

	row := ss.s.db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id)

	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Kind: "shift", ID: id}
	}
	return sh, err
}

func (ss *ShiftStore) List(ctx context.Context) ([]*schedule.Shift, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()

	rows, err := ss.s.db.QueryContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*schedule.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (ss *ShiftStore) Save(ctx context.Context, sh *schedule.Shift) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	_, err := ss.s.db.ExecContext(ctx, `
		INSERT INTO shifts
		(id, name, start_minute, end_minute, punch_policy,
		 grace_in_minutes, grace_out_minutes, overtime_approval, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_minute = excluded.start_minute,
			end_minute = excluded.end_minute,
			punch_policy = excluded.punch_policy,
			grace_in_minutes = excluded.grace_in_minutes,
			grace_out_minutes = excluded.grace_out_minutes,
			overtime_approval = excluded.overtime_approval,
			active = excluded.active`,
		sh.ID, sh.Name, sh.StartMinute, sh.EndMinute, string(sh.PunchPolicy),
		sh.GraceInMinutes, sh.GraceOutMinutes,
		boolToInt(sh.OvertimeApproval), boolToInt(sh.Active))
	if err != nil {
		return fmt.Errorf("failed to save shift: %w", err)
	}
	return nil
}

func scanShift(row rowScanner) (*schedule.Shift, error) {
	var (
		sh               schedule.Shift
		policy           string
		overtime, active int
	)

	err := row.Scan(&sh.ID, &sh.Name, &sh.StartMinute, &sh.EndMinute,
		&policy, &sh.GraceInMinutes, &sh.GraceOutMinutes, &overtime, &active)
	if err != nil {
		return nil, err
	}
	sh.PunchPolicy = schedule.PunchPolicy(policy)
	sh.OvertimeApproval = overtime != 0
	sh.Active = active != 0
	return &sh, nil
}

// =============================================================================
// SHIFT TYPE STORE (schedule.ShiftTypeStore interface)
// =============================================================================

type ShiftTypeStore struct {
	s *Store
}

var _ schedule.ShiftTypeStore = (*ShiftTypeStore)(nil)

func (st *ShiftTypeStore) List(ctx context.Context) ([]*schedule.ShiftType, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	rows, err := st.s.db.QueryContext(ctx,
		`SELECT id, name, active FROM shift_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*schedule.ShiftType
	for rows.Next() {
		var (
			t      schedule.ShiftType
			active int
		)
		if err := rows.Scan(&t.ID, &t.Name, &active); err != nil {
			return nil, err
		}
		t.Active = active != 0
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (st *ShiftTypeStore) Save(ctx context.Context, t *schedule.ShiftType) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	_, err := st.s.db.ExecContext(ctx, `
		INSERT INTO shift_types (id, name, active)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active`,
		t.ID, t.Name, boolToInt(t.Active))
	if err != nil {
		return fmt.Errorf("failed to save shift type: %w", err)
	}
	return nil
}

// =============================================================================
// SCHEDULE RULE STORE (schedule.RuleStore interface)
// =============================================================================

// RuleStore persists schedule rules with the pattern kept in its wire
// encoding; decode happens at the scan boundary.
type RuleStore struct {
	s *Store
}

var _ schedule.RuleStore = (*RuleStore)(nil)

func (rs *RuleStore) Get(ctx context.Context, id string) (*schedule.Rule, error) {
	rs.s.mu.RLock()
	defer rs.s.mu.RUnlock()

	row := rs.s.db.QueryRowContext(ctx,
		`SELECT id, name, pattern, anchor_date, active FROM schedule_rules WHERE id = ?`, id)

	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Kind: "schedule rule", ID: id}
	}
	return r, err
}

func (rs *RuleStore) List(ctx context.Context) ([]*schedule.Rule, error) {
	rs.s.mu.RLock()
	defer rs.s.mu.RUnlock()

	rows, err := rs.s.db.QueryContext(ctx,
		`SELECT id, name, pattern, anchor_date, active FROM schedule_rules ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*schedule.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (rs *RuleStore) Save(ctx context.Context, r *schedule.Rule) error {
	rs.s.mu.Lock()
	defer rs.s.mu.Unlock()

	_, err := rs.s.db.ExecContext(ctx, `
		INSERT INTO schedule_rules (id, name, pattern, anchor_date, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			pattern = excluded.pattern,
			anchor_date = excluded.anchor_date,
			active = excluded.active`,
		r.ID, r.Name, r.Pattern.Encode(), r.AnchorDate.String(),
		boolToInt(r.Active))
	if err != nil {
		return fmt.Errorf("failed to save schedule rule: %w", err)
	}
	return nil
}

func scanRule(row rowScanner) (*schedule.Rule, error) {
	var (
		r               schedule.Rule
		pattern, anchor string
		active          int
	)

	err := row.Scan(&r.ID, &r.Name, &pattern, &anchor, &active)
	if err != nil {
		return nil, err
	}

	if r.Pattern, err = schedule.ParsePattern(pattern); err != nil {
		return nil, fmt.Errorf("stored pattern for rule %s: %w", r.ID, err)
	}
	if r.AnchorDate, err = core.ParseDate(anchor); err != nil {
		return nil, err
	}
	r.Active = active != 0
	return &r, nil
}

// =============================================================================
// ASSIGNMENT STORE (schedule.AssignmentStore interface)
// =============================================================================

type AssignmentStore struct {
	s *Store
}

var _ schedule.AssignmentStore = (*AssignmentStore)(nil)

const assignmentColumns = `id, employee_id, department_id, position_id,
	shift_id, rule_id, start_date, end_date, status, created_at, updated_at`

func (as *AssignmentStore) Create(ctx context.Context, a *schedule.Assignment) error {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()

	var endDate any
	if a.EndDate != nil {
		endDate = a.EndDate.String()
	}

	_, err := as.s.db.ExecContext(ctx, `
		INSERT INTO shift_assignments
		(id, employee_id, department_id, position_id, shift_id, rule_id,
		 start_date, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, nullString(a.Target.EmployeeID), nullString(a.Target.DepartmentID),
		nullString(a.Target.PositionID), a.ShiftID, nullString(a.RuleID),
		a.StartDate.String(), endDate, string(a.Status),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if isUniqueConstraintError(err) {
		return &core.ValidationError{Field: "id", Message: "assignment already exists"}
	}
	return err
}

func (as *AssignmentStore) Get(ctx context.Context, id string) (*schedule.Assignment, error) {
	as.s.mu.RLock()
	defer as.s.mu.RUnlock()

	row := as.s.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM shift_assignments WHERE id = ?`, id)

	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Kind: "shift assignment", ID: id}
	}
	return a, err
}

func (as *AssignmentStore) Save(ctx context.Context, a *schedule.Assignment) error {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()

	var endDate any
	if a.EndDate != nil {
		endDate = a.EndDate.String()
	}

	res, err := as.s.db.ExecContext(ctx, `
		UPDATE shift_assignments SET
			employee_id = ?, department_id = ?, position_id = ?,
			shift_id = ?, rule_id = ?, start_date = ?, end_date = ?,
			status = ?, updated_at = ?
		WHERE id = ?`,
		nullString(a.Target.EmployeeID), nullString(a.Target.DepartmentID),
		nullString(a.Target.PositionID), a.ShiftID, nullString(a.RuleID),
		a.StartDate.String(), endDate, string(a.Status),
		formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: "shift assignment", ID: a.ID}
	}
	return nil
}

func (as *AssignmentStore) List(ctx context.Context) ([]*schedule.Assignment, error) {
	return as.query(ctx,
		`SELECT `+assignmentColumns+` FROM shift_assignments ORDER BY created_at DESC`)
}

func (as *AssignmentStore) ListByEmployee(ctx context.Context, employeeID string) ([]*schedule.Assignment, error) {
	return as.query(ctx,
		`SELECT `+assignmentColumns+` FROM shift_assignments
		 WHERE employee_id = ? ORDER BY created_at DESC`, employeeID)
}

func (as *AssignmentStore) query(ctx context.Context, q string, args ...any) ([]*schedule.Assignment, error) {
	as.s.mu.RLock()
	defer as.s.mu.RUnlock()

	rows, err := as.s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*schedule.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAssignment(row rowScanner) (*schedule.Assignment, error) {
	var (
		a                  schedule.Assignment
		empID, deptID      sql.NullString
		posID, ruleID      sql.NullString
		startDate          string
		endDate            sql.NullString
		status             string
		createdAt, updated string
	)

	err := row.Scan(&a.ID, &empID, &deptID, &posID, &a.ShiftID, &ruleID,
		&startDate, &endDate, &status, &createdAt, &updated)
	if err != nil {
		return nil, err
	}

	a.Target = schedule.Target{
		EmployeeID:   empID.String,
		DepartmentID: deptID.String,
		PositionID:   posID.String,
	}
	a.RuleID = ruleID.String
	a.Status = schedule.AssignmentStatus(status)

	if a.StartDate, err = core.ParseDate(startDate); err != nil {
		return nil, err
	}
	if a.EndDate, err = scanNullableDate(endDate); err != nil {
		return nil, err
	}
	a.CreatedAt = scanTime(createdAt)
	a.UpdatedAt = scanTime(updated)
	return &a, nil
}
