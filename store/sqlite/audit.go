package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrline/leave-engine/audit"
	"github.com/hrline/leave-engine/core"
)

// =============================================================================
// AUDIT STORE (audit.Recorder interface)
// =============================================================================

// AuditStore persists the append-only audit trail. Rows are never
// updated or deleted.
type AuditStore struct {
	s *Store
}

var _ audit.Recorder = (*AuditStore)(nil)

func (as *AuditStore) Append(ctx context.Context, e audit.Entry) error {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()

	var amount any
	if e.Amount != nil {
		amount = e.Amount.String()
	}

	var metadata any
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadata = string(b)
	}

	_, err := as.s.db.ExecContext(ctx, `
		INSERT INTO audit_entries
		(id, created_at, actor_id, actor_role, action, entity_type, entity_id,
		 employee_id, leave_type_id, amount, reason, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, formatTime(e.CreatedAt), e.ActorID, string(e.ActorRole),
		string(e.Action), e.EntityType, e.EntityID,
		nullString(e.EmployeeID), nullString(e.LeaveTypeID),
		amount, e.Reason, metadata)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Query returns matching entries newest first, along with the total
// match count before paging.
func (as *AuditStore) Query(ctx context.Context, f audit.Filter) (audit.Page, error) {
	as.s.mu.RLock()
	defer as.s.mu.RUnlock()

	where, args := auditPredicates(f)

	var page audit.Page
	countQ := `SELECT COUNT(*) FROM audit_entries` + where
	if err := as.s.db.QueryRowContext(ctx, countQ, args...).Scan(&page.Total); err != nil {
		return audit.Page{}, err
	}

	q := `SELECT id, created_at, actor_id, actor_role, action, entity_type,
		entity_id, employee_id, leave_type_id, amount, reason, metadata_json
		FROM audit_entries` + where + `
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, audit.ClampLimit(f.Limit), f.Offset)

	rows, err := as.s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return audit.Page{}, err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return audit.Page{}, err
		}
		page.Entries = append(page.Entries, e)
	}
	return page, rows.Err()
}

func auditPredicates(f audit.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if f.ActorID != "" {
		clauses = append(clauses, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.EntityType != "" {
		clauses = append(clauses, "entity_type = ?")
		args = append(args, f.EntityType)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id = ?")
		args = append(args, f.EntityID)
	}
	if f.EmployeeID != "" {
		clauses = append(clauses, "employee_id = ?")
		args = append(args, f.EmployeeID)
	}
	if f.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, string(f.Action))
	}
	// Date bounds are inclusive; To covers the whole day.
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.From.String()+"T00:00:00Z")
	}
	if f.To != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.To.String()+"T23:59:59Z")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanAuditEntry(row rowScanner) (audit.Entry, error) {
	var (
		e                      audit.Entry
		createdAt, role        string
		action                 string
		employeeID, leaveType  sql.NullString
		amount, metadata       sql.NullString
	)

	err := row.Scan(&e.ID, &createdAt, &e.ActorID, &role, &action,
		&e.EntityType, &e.EntityID, &employeeID, &leaveType,
		&amount, &e.Reason, &metadata)
	if err != nil {
		return audit.Entry{}, err
	}

	e.CreatedAt = scanTime(createdAt)
	e.ActorRole = core.Role(role)
	e.Action = audit.Action(action)
	e.EmployeeID = employeeID.String
	e.LeaveTypeID = leaveType.String

	if amount.Valid {
		d, err := scanDays(amount.String)
		if err != nil {
			return audit.Entry{}, err
		}
		e.Amount = &d
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
			return audit.Entry{}, fmt.Errorf("failed to decode audit metadata: %w", err)
		}
	}
	return e, nil
}
