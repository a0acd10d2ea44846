/*
Package sqlite provides the SQLite-backed implementation of every
storage interface in the engine.

INTERFACES IMPLEMENTED:
  ledger.Store            entitlement rows
  leave.RequestStore      leave requests (approval steps as JSON)
  leave.LeaveTypeStore    leave type definitions
  leave.EmployeeDirectory employee records
  audit.Recorder          append-only audit log
  schedule.ShiftStore, schedule.ShiftTypeStore,
  schedule.RuleStore, schedule.AssignmentStore

NUMERIC STORAGE:
  Day quantities are stored as decimal strings, never floats. Dates are
  stored as YYYY-MM-DD text; timestamps as RFC3339 text.

APPEND-ONLY:
  The audit_entries table has no UPDATE or DELETE path.

WAL MODE:
  The database is opened with WAL journaling; a process-level RWMutex
  serializes writers. Use ":memory:" for tests.

SEE ALSO:
  - ledger/entitlement.go, leave/types.go, audit/audit.go,
    schedule/shift.go: the interface definitions
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hrline/leave-engine/core"
)

// Store owns the connection and exposes one typed sub-store per
// aggregate. All sub-stores share the same database and write lock.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	Entitlements *EntitlementStore
	Requests     *RequestStore
	LeaveTypes   *LeaveTypeStore
	Employees    *EmployeeStore
	Audit        *AuditStore
	Shifts       *ShiftStore
	ShiftTypes   *ShiftTypeStore
	Rules        *RuleStore
	Assignments  *AssignmentStore
}

// New opens (or creates) the database and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store.Entitlements = &EntitlementStore{s: store}
	store.Requests = &RequestStore{s: store}
	store.LeaveTypes = &LeaveTypeStore{s: store}
	store.Employees = &EmployeeStore{s: store}
	store.Audit = &AuditStore{s: store}
	store.Shifts = &ShiftStore{s: store}
	store.ShiftTypes = &ShiftTypeStore{s: store}
	store.Rules = &RuleStore{s: store}
	store.Assignments = &AssignmentStore{s: store}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		department_id TEXT,
		position_id TEXT,
		manager_id TEXT,
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Leave types
	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		approval_chain TEXT,
		requires_justification INTEGER NOT NULL DEFAULT 0,
		max_carry_forward TEXT NOT NULL DEFAULT '0',
		active INTEGER NOT NULL DEFAULT 1
	);

	-- Entitlements: one row per (employee, leave type, year)
	CREATE TABLE IF NOT EXISTS entitlements (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		yearly_entitlement TEXT NOT NULL,
		carry_forward TEXT NOT NULL,
		taken TEXT NOT NULL,
		pending TEXT NOT NULL,
		remaining TEXT NOT NULL,
		accrued_actual TEXT NOT NULL,
		accrued_rounded TEXT NOT NULL,
		rounding TEXT NOT NULL DEFAULT 'none',
		last_accrual_date TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		UNIQUE(employee_id, leave_type_id, year)
	);

	CREATE INDEX IF NOT EXISTS idx_entitlements_employee
		ON entitlements(employee_id, year);

	-- Leave requests; approval steps ride along as JSON
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		duration_days TEXT NOT NULL,
		justification TEXT,
		attachment_ref TEXT,
		irregular INTEGER NOT NULL DEFAULT 0,
		steps_json TEXT NOT NULL,
		status TEXT NOT NULL,
		finalization_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee
		ON leave_requests(employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_dates
		ON leave_requests(employee_id, from_date, to_date);

	-- Audit log (append-only: no UPDATE, no DELETE)
	CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		employee_id TEXT,
		leave_type_id TEXT,
		amount TEXT,
		reason TEXT,
		metadata_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_entity
		ON audit_entries(entity_type, entity_id);
	CREATE INDEX IF NOT EXISTS idx_audit_actor
		ON audit_entries(actor_id);
	CREATE INDEX IF NOT EXISTS idx_audit_created
		ON audit_entries(created_at DESC);

	-- Schedule rules (pattern stored in wire encoding)
	CREATE TABLE IF NOT EXISTS schedule_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		pattern TEXT NOT NULL,
		anchor_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	-- Shifts
	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		end_minute INTEGER NOT NULL,
		punch_policy TEXT NOT NULL,
		grace_in_minutes INTEGER NOT NULL DEFAULT 0,
		grace_out_minutes INTEGER NOT NULL DEFAULT 0,
		overtime_approval INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS shift_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	-- Shift assignments (exactly one target column is non-empty)
	CREATE TABLE IF NOT EXISTS shift_assignments (
		id TEXT PRIMARY KEY,
		employee_id TEXT,
		department_id TEXT,
		position_id TEXT,
		shift_id TEXT NOT NULL,
		rule_id TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_employee
		ON shift_assignments(employee_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_status
		ON shift_assignments(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanDays(s string) (core.Days, error) {
	if s == "" {
		return core.ZeroDays(), nil
	}
	return core.ParseDays(s)
}

func scanNullableDate(ns sql.NullString) (*core.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := core.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
