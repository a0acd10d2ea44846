package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hrline/leave-engine/core"
)

// =============================================================================
// SHIFT - A time-of-day work window with punch policy
// =============================================================================

type PunchPolicy string

const (
	PunchFirstLast  PunchPolicy = "first_last"
	PunchAllPunches PunchPolicy = "all_punches"
)

type Shift struct {
	ID   string
	Name string

	// Time-of-day window in minutes since midnight. An overnight shift
	// has EndMinute < StartMinute.
	StartMinute int
	EndMinute   int

	PunchPolicy      PunchPolicy
	GraceInMinutes   int
	GraceOutMinutes  int
	OvertimeApproval bool
	Active           bool
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, &core.ValidationError{Field: "time", Message: "invalid time " + s + " (use HH:MM)"}
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, &core.ValidationError{Field: "time", Message: "invalid hour in " + s}
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, &core.ValidationError{Field: "time", Message: "invalid minute in " + s}
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ShiftType is a named shift category.
type ShiftType struct {
	ID     string
	Name   string
	Active bool
}

// =============================================================================
// SCHEDULE RULE - Named pattern with anchor
// =============================================================================

type Rule struct {
	ID         string
	Name       string
	Pattern    Pattern
	AnchorDate core.Date
	Active     bool
}

// Matches evaluates the rule's pattern for a date.
func (r *Rule) Matches(date core.Date) bool {
	return r.Pattern.Matches(date, r.AnchorDate)
}

// =============================================================================
// STORES
// =============================================================================

type ShiftStore interface {
	Get(ctx context.Context, id string) (*Shift, error)
	List(ctx context.Context) ([]*Shift, error)
	Save(ctx context.Context, s *Shift) error
}

type ShiftTypeStore interface {
	List(ctx context.Context) ([]*ShiftType, error)
	Save(ctx context.Context, t *ShiftType) error
}

type RuleStore interface {
	Get(ctx context.Context, id string) (*Rule, error)
	List(ctx context.Context) ([]*Rule, error)
	Save(ctx context.Context, r *Rule) error
}
