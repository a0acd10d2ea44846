package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hrline/leave-engine/core"
	"github.com/hrline/leave-engine/ledger"
)

// =============================================================================
// ENTITLEMENT STORE (ledger.Store interface)
// =============================================================================

type EntitlementStore struct {
	s *Store
}

var _ ledger.Store = (*EntitlementStore)(nil)

const entitlementColumns = `id, employee_id, leave_type_id, year,
	yearly_entitlement, carry_forward, taken, pending, remaining,
	accrued_actual, accrued_rounded, rounding, last_accrual_date, version`

func (es *EntitlementStore) Get(ctx context.Context, employeeID, leaveTypeID string, year int) (*ledger.Entitlement, error) {
	es.s.mu.RLock()
	defer es.s.mu.RUnlock()

	row := es.s.db.QueryRowContext(ctx,
		`SELECT `+entitlementColumns+` FROM entitlements
		 WHERE employee_id = ? AND leave_type_id = ? AND year = ?`,
		employeeID, leaveTypeID, year)

	ent, err := scanEntitlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{
			Kind: "entitlement",
			ID:   fmt.Sprintf("%s/%s/%d", employeeID, leaveTypeID, year),
		}
	}
	return ent, err
}

func (es *EntitlementStore) GetByID(ctx context.Context, id string) (*ledger.Entitlement, error) {
	es.s.mu.RLock()
	defer es.s.mu.RUnlock()

	row := es.s.db.QueryRowContext(ctx,
		`SELECT `+entitlementColumns+` FROM entitlements WHERE id = ?`, id)

	ent, err := scanEntitlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Kind: "entitlement", ID: id}
	}
	return ent, err
}

// Save upserts the entitlement row; the row update is the atomicity
// boundary for every balance mutation.
func (es *EntitlementStore) Save(ctx context.Context, e *ledger.Entitlement) error {
	es.s.mu.Lock()
	defer es.s.mu.Unlock()

	var lastAccrual any
	if e.LastAccrualDate != nil {
		lastAccrual = e.LastAccrualDate.String()
	}

	_, err := es.s.db.ExecContext(ctx, `
		INSERT INTO entitlements
		(id, employee_id, leave_type_id, year, yearly_entitlement, carry_forward,
		 taken, pending, remaining, accrued_actual, accrued_rounded, rounding,
		 last_accrual_date, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			yearly_entitlement = excluded.yearly_entitlement,
			carry_forward = excluded.carry_forward,
			taken = excluded.taken,
			pending = excluded.pending,
			remaining = excluded.remaining,
			accrued_actual = excluded.accrued_actual,
			accrued_rounded = excluded.accrued_rounded,
			rounding = excluded.rounding,
			last_accrual_date = excluded.last_accrual_date,
			version = entitlements.version + 1`,
		e.ID, e.EmployeeID, e.LeaveTypeID, e.Year,
		e.YearlyEntitlement.String(), e.CarryForward.String(),
		e.Taken.String(), e.Pending.String(), e.Remaining.String(),
		e.AccruedActual.String(), e.AccruedRounded.String(), string(e.Rounding),
		lastAccrual, e.Version)
	if err != nil {
		return fmt.Errorf("failed to save entitlement: %w", err)
	}
	return nil
}

func (es *EntitlementStore) ListByEmployee(ctx context.Context, employeeID string, year int) ([]*ledger.Entitlement, error) {
	es.s.mu.RLock()
	defer es.s.mu.RUnlock()

	rows, err := es.s.db.QueryContext(ctx,
		`SELECT `+entitlementColumns+` FROM entitlements
		 WHERE employee_id = ? AND year = ? ORDER BY leave_type_id`,
		employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Entitlement
	for rows.Next() {
		ent, err := scanEntitlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ent)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntitlement(row rowScanner) (*ledger.Entitlement, error) {
	var (
		e                                ledger.Entitlement
		yearly, carry, taken, pending    string
		remaining, accActual, accRounded string
		rounding                         string
		lastAccrual                      sql.NullString
	)

	err := row.Scan(&e.ID, &e.EmployeeID, &e.LeaveTypeID, &e.Year,
		&yearly, &carry, &taken, &pending, &remaining,
		&accActual, &accRounded, &rounding, &lastAccrual, &e.Version)
	if err != nil {
		return nil, err
	}

	for _, field := range []struct {
		dst *core.Days
		src string
	}{
		{&e.YearlyEntitlement, yearly},
		{&e.CarryForward, carry},
		{&e.Taken, taken},
		{&e.Pending, pending},
		{&e.Remaining, remaining},
		{&e.AccruedActual, accActual},
		{&e.AccruedRounded, accRounded},
	} {
		if *field.dst, err = scanDays(field.src); err != nil {
			return nil, err
		}
	}

	e.Rounding = core.RoundingRule(rounding)
	if e.LastAccrualDate, err = scanNullableDate(lastAccrual); err != nil {
		return nil, err
	}
	return &e, nil
}
