/*
Package audit provides the append-only history recorder.

PURPOSE:
  Every HR-initiated balance change (manual adjustments, finalizations,
  overrides, rollovers) appends one entry here. Entries are never updated
  or deleted; the log is the authoritative answer to "who changed this
  balance and why".

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. QUERYABLE: Entries are filtered with a typed filter struct, each
     optional field mapping to exactly one storage predicate.
  3. BOUNDED READS: Queries return at most 100 rows per page, newest
     first.

SEE ALSO:
  - ledger: calls Append on every Adjust/Rollover
  - leave: calls Append on Finalize/Override
  - store/sqlite: persistence
*/
package audit

import (
	"context"
	"time"

	"github.com/hrline/leave-engine/core"
)

// =============================================================================
// ENTRY - One immutable audit record
// =============================================================================

type Action string

const (
	ActionAdjustmentAdd        Action = "adjustment_add"
	ActionAdjustmentDeduct     Action = "adjustment_deduct"
	ActionAdjustmentEncashment Action = "adjustment_encashment"
	ActionRequestFinalized     Action = "request_finalized"
	ActionRequestOverridden    Action = "request_overridden"
	ActionRollover             Action = "rollover"
)

type Entry struct {
	ID          string
	CreatedAt   time.Time
	ActorID     string
	ActorRole   core.Role
	Action      Action
	EntityType  string // "entitlement", "leave_request"
	EntityID    string
	EmployeeID  string
	LeaveTypeID string
	Amount      *core.Days // day delta for balance-affecting actions
	Reason      string
	Metadata    map[string]string
}

// =============================================================================
// RECORDER - Append-only log with typed queries
// =============================================================================

// MaxPageSize caps a single audit query.
const MaxPageSize = 100

// Filter holds optional query predicates. A nil/zero field means "no
// constraint"; each set field maps to one storage predicate.
type Filter struct {
	ActorID    string
	EntityType string
	EntityID   string
	EmployeeID string
	Action     Action
	From       *core.Date
	To         *core.Date
	Limit      int
	Offset     int
}

// Page is one page of query results, newest first.
type Page struct {
	Entries []Entry
	Total   int
}

type Recorder interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, f Filter) (Page, error)
}

// ClampLimit normalizes a requested page size into (0, MaxPageSize].
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
