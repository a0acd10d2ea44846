/*
Package schedule implements shift scheduling rules and the shift
assignment lifecycle.

PURPOSE:
  A schedule rule selects which calendar days an assignment covers.
  Three pattern kinds exist:

    WEEKLY     a fixed set of weekdays            WEEKLY:MON,TUE,WED
    CYCLE      on/off rotation from an anchor     CYCLE:5ON_2OFF
    ALTERNATE  two weekday sets on alternating    ALTERNATE:WEEK_A:MON,WED|WEEK_B:TUE,THU
               weeks

  Internally patterns are a structured variant type; the delimited
  string encoding exists only at the storage/transport boundary and is
  parsed back for editing and evaluation.

EVALUATION:
  - WEEKLY matches purely on weekday; idempotent and date-independent.
  - CYCLE matches iff mod(daysBetween(anchor, date), on+off) < on,
    using a floor mod so dates before the anchor evaluate consistently.
    Periodic with period on+off.
  - ALTERNATE applies week set A on even weeks and B on odd weeks,
    counting whole weeks from a fixed Monday epoch.

SEE ALSO:
  - assignment.go: the pending/approved/cancelled lifecycle and derived
    expiry
  - shift.go: shift and shift-type definitions
*/
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hrline/leave-engine/core"
)

// =============================================================================
// PATTERN - Structured variant type
// =============================================================================

type PatternKind string

const (
	PatternWeekly    PatternKind = "WEEKLY"
	PatternCycle     PatternKind = "CYCLE"
	PatternAlternate PatternKind = "ALTERNATE"
)

// Pattern decides whether a date is a scheduled day. anchor is the
// rule's reference date; WEEKLY and ALTERNATE ignore it.
type Pattern interface {
	Kind() PatternKind
	Matches(date core.Date, anchor core.Date) bool
	Encode() string
}

// weekEpoch anchors ALTERNATE week parity. A Monday, so ISO weeks and
// epoch weeks start together.
var weekEpoch = core.NewDate(2001, time.January, 1)

// =============================================================================
// WEEKLY
// =============================================================================

type WeeklyPattern struct {
	Days map[time.Weekday]bool
}

func NewWeeklyPattern(days ...time.Weekday) *WeeklyPattern {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return &WeeklyPattern{Days: set}
}

func (p *WeeklyPattern) Kind() PatternKind { return PatternWeekly }

func (p *WeeklyPattern) Matches(date core.Date, _ core.Date) bool {
	return p.Days[date.Weekday()]
}

func (p *WeeklyPattern) Encode() string {
	return string(PatternWeekly) + ":" + encodeDaySet(p.Days)
}

// =============================================================================
// CYCLE
// =============================================================================

type CyclePattern struct {
	OnDays  int
	OffDays int
}

func (p *CyclePattern) Kind() PatternKind { return PatternCycle }

func (p *CyclePattern) Matches(date core.Date, anchor core.Date) bool {
	period := p.OnDays + p.OffDays
	if period <= 0 {
		return false
	}
	return floorMod(core.DaysBetween(anchor, date), period) < p.OnDays
}

func (p *CyclePattern) Encode() string {
	return fmt.Sprintf("%s:%dON_%dOFF", PatternCycle, p.OnDays, p.OffDays)
}

// floorMod always returns a value in [0, m).
func floorMod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// =============================================================================
// ALTERNATE
// =============================================================================

type AlternatePattern struct {
	WeekA map[time.Weekday]bool
	WeekB map[time.Weekday]bool
}

func (p *AlternatePattern) Kind() PatternKind { return PatternAlternate }

func (p *AlternatePattern) Matches(date core.Date, _ core.Date) bool {
	weeks := core.DaysBetween(weekEpoch, date) / 7
	if date.Before(weekEpoch) {
		weeks = (core.DaysBetween(weekEpoch, date) - 6) / 7
	}
	if floorMod(weeks, 2) == 0 {
		return p.WeekA[date.Weekday()]
	}
	return p.WeekB[date.Weekday()]
}

func (p *AlternatePattern) Encode() string {
	return fmt.Sprintf("%s:WEEK_A:%s|WEEK_B:%s",
		PatternAlternate, encodeDaySet(p.WeekA), encodeDaySet(p.WeekB))
}

// =============================================================================
// WIRE ENCODING
// =============================================================================

var weekdayCodes = []struct {
	code string
	day  time.Weekday
}{
	{"SUN", time.Sunday}, {"MON", time.Monday}, {"TUE", time.Tuesday},
	{"WED", time.Wednesday}, {"THU", time.Thursday}, {"FRI", time.Friday},
	{"SAT", time.Saturday},
}

func encodeDaySet(set map[time.Weekday]bool) string {
	var codes []string
	for _, wc := range weekdayCodes {
		if set[wc.day] {
			codes = append(codes, wc.code)
		}
	}
	return strings.Join(codes, ",")
}

func parseDaySet(s string) (map[time.Weekday]bool, error) {
	set := make(map[time.Weekday]bool)
	if s == "" {
		return set, nil
	}
	for _, code := range strings.Split(s, ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		found := false
		for _, wc := range weekdayCodes {
			if wc.code == code {
				set[wc.day] = true
				found = true
				break
			}
		}
		if !found {
			return nil, &core.ValidationError{Field: "pattern", Message: "unknown weekday code: " + code}
		}
	}
	return set, nil
}

// ParsePattern decodes the wire encoding into a structured pattern.
func ParsePattern(s string) (Pattern, error) {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok {
		return nil, &core.ValidationError{Field: "pattern", Message: "malformed pattern: " + s}
	}

	switch PatternKind(strings.ToUpper(kind)) {
	case PatternWeekly:
		days, err := parseDaySet(rest)
		if err != nil {
			return nil, err
		}
		if len(days) == 0 {
			return nil, &core.ValidationError{Field: "pattern", Message: "weekly pattern needs at least one weekday"}
		}
		return &WeeklyPattern{Days: days}, nil

	case PatternCycle:
		return parseCycle(rest)

	case PatternAlternate:
		return parseAlternate(rest)

	default:
		return nil, &core.ValidationError{Field: "pattern", Message: "unknown pattern kind: " + kind}
	}
}

// parseCycle decodes "5ON_2OFF".
func parseCycle(rest string) (Pattern, error) {
	onPart, offPart, ok := strings.Cut(strings.ToUpper(rest), "_")
	if !ok || !strings.HasSuffix(onPart, "ON") || !strings.HasSuffix(offPart, "OFF") {
		return nil, &core.ValidationError{Field: "pattern", Message: "malformed cycle pattern: " + rest}
	}
	on, err := strconv.Atoi(strings.TrimSuffix(onPart, "ON"))
	if err != nil {
		return nil, &core.ValidationError{Field: "pattern", Message: "malformed cycle pattern: " + rest}
	}
	off, err := strconv.Atoi(strings.TrimSuffix(offPart, "OFF"))
	if err != nil {
		return nil, &core.ValidationError{Field: "pattern", Message: "malformed cycle pattern: " + rest}
	}
	if on <= 0 || off < 0 {
		return nil, &core.ValidationError{Field: "pattern", Message: "cycle needs positive on-days and non-negative off-days"}
	}
	return &CyclePattern{OnDays: on, OffDays: off}, nil
}

// parseAlternate decodes "WEEK_A:MON,WED|WEEK_B:TUE,THU".
func parseAlternate(rest string) (Pattern, error) {
	aPart, bPart, ok := strings.Cut(rest, "|")
	if !ok {
		return nil, &core.ValidationError{Field: "pattern", Message: "malformed alternate pattern: " + rest}
	}
	aPart = strings.TrimPrefix(strings.ToUpper(aPart), "WEEK_A:")
	bPart = strings.TrimPrefix(strings.ToUpper(bPart), "WEEK_B:")

	weekA, err := parseDaySet(aPart)
	if err != nil {
		return nil, err
	}
	weekB, err := parseDaySet(bPart)
	if err != nil {
		return nil, err
	}
	if len(weekA) == 0 && len(weekB) == 0 {
		return nil, &core.ValidationError{Field: "pattern", Message: "alternate pattern needs at least one weekday"}
	}
	return &AlternatePattern{WeekA: weekA, WeekB: weekB}, nil
}
