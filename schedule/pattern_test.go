package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrline/leave-engine/core"
	"github.com/hrline/leave-engine/schedule"
)

func date(y int, m time.Month, d int) core.Date { return core.NewDate(y, m, d) }

// =============================================================================
// WEEKLY
// =============================================================================

func TestWeeklyPattern_MatchesConfiguredWeekdays(t *testing.T) {
	p := schedule.NewWeeklyPattern(time.Monday, time.Wednesday, time.Friday)
	anchor := date(2025, time.January, 1)

	assert.True(t, p.Matches(date(2025, time.June, 2), anchor))  // Monday
	assert.False(t, p.Matches(date(2025, time.June, 3), anchor)) // Tuesday
	assert.True(t, p.Matches(date(2025, time.June, 4), anchor))  // Wednesday
	assert.False(t, p.Matches(date(2025, time.June, 7), anchor)) // Saturday
}

func TestWeeklyPattern_EncodeRoundTrip(t *testing.T) {
	p := schedule.NewWeeklyPattern(time.Friday, time.Monday)

	encoded := p.Encode()
	assert.Equal(t, "WEEKLY:MON,FRI", encoded, "weekday codes are emitted in week order")

	parsed, err := schedule.ParsePattern(encoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, parsed.Encode())
}

// =============================================================================
// CYCLE
// =============================================================================

func TestCyclePattern_FiveOnTwoOff(t *testing.T) {
	// GIVEN: A 5ON_2OFF cycle anchored on Monday June 2
	// THEN: Days 0-4 of each 7-day period are on, days 5-6 off

	p := &schedule.CyclePattern{OnDays: 5, OffDays: 2}
	anchor := date(2025, time.June, 2)

	for offset := 0; offset < 14; offset++ {
		d := anchor.AddDays(offset)
		want := offset%7 < 5
		assert.Equal(t, want, p.Matches(d, anchor), "offset %d", offset)
	}
}

func TestCyclePattern_BeforeAnchor(t *testing.T) {
	// Dates before the anchor still land on a well-defined phase.
	p := &schedule.CyclePattern{OnDays: 2, OffDays: 1}
	anchor := date(2025, time.June, 4)

	assert.False(t, p.Matches(date(2025, time.June, 3), anchor)) // phase 2, off
	assert.True(t, p.Matches(date(2025, time.June, 2), anchor))  // phase 1, on
	assert.True(t, p.Matches(date(2025, time.June, 1), anchor))  // phase 0, on
}

func TestCyclePattern_EncodeRoundTrip(t *testing.T) {
	p := &schedule.CyclePattern{OnDays: 5, OffDays: 2}
	assert.Equal(t, "CYCLE:5ON_2OFF", p.Encode())

	parsed, err := schedule.ParsePattern("CYCLE:5ON_2OFF")
	require.NoError(t, err)
	assert.Equal(t, p, parsed)
}

// =============================================================================
// ALTERNATE
// =============================================================================

func TestAlternatePattern_ParityFlipsWeekly(t *testing.T) {
	// GIVEN: Week A works Monday, week B works Tuesday
	// THEN: Parity flips on consecutive weeks and repeats after two

	p := &schedule.AlternatePattern{
		WeekA: map[time.Weekday]bool{time.Monday: true},
		WeekB: map[time.Weekday]bool{time.Tuesday: true},
	}
	anchor := date(2025, time.January, 1)

	// 2001-01-01 is the week-parity epoch (a Monday, week A).
	assert.True(t, p.Matches(date(2001, time.January, 1), anchor))
	assert.False(t, p.Matches(date(2001, time.January, 2), anchor))
	assert.False(t, p.Matches(date(2001, time.January, 8), anchor))
	assert.True(t, p.Matches(date(2001, time.January, 9), anchor))
	assert.True(t, p.Matches(date(2001, time.January, 15), anchor))
}

func TestAlternatePattern_EncodeRoundTrip(t *testing.T) {
	p := &schedule.AlternatePattern{
		WeekA: map[time.Weekday]bool{time.Monday: true, time.Wednesday: true},
		WeekB: map[time.Weekday]bool{time.Tuesday: true},
	}

	encoded := p.Encode()
	assert.Equal(t, "ALTERNATE:WEEK_A:MON,WED|WEEK_B:TUE", encoded)

	parsed, err := schedule.ParsePattern(encoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, parsed.Encode())
}

// =============================================================================
// PARSING ERRORS
// =============================================================================

func TestParsePattern_Invalid(t *testing.T) {
	cases := []string{
		"",
		"WEEKLY",           // no day list
		"WEEKLY:",          // empty day set
		"WEEKLY:MON,XYZ",   // unknown weekday code
		"CYCLE:5ON",        // missing off part
		"CYCLE:XON_2OFF",   // non-numeric
		"CYCLE:0ON_2OFF",   // zero on-days
		"ALTERNATE:WEEK_A:MON", // missing week B
		"SEASONAL:SUMMER",  // unknown kind
	}
	for _, in := range cases {
		_, err := schedule.ParsePattern(in)
		assert.ErrorIs(t, err, core.ErrValidation, "input %q", in)
	}
}

func TestParsePattern_KindIsCaseInsensitive(t *testing.T) {
	p, err := schedule.ParsePattern("weekly:mon,fri")
	require.NoError(t, err)
	assert.Equal(t, schedule.PatternWeekly, p.Kind())
}

// =============================================================================
// RULE
// =============================================================================

func TestRule_MatchesDelegatesWithAnchor(t *testing.T) {
	rule := &schedule.Rule{
		ID:         "r-1",
		Name:       "ops rotation",
		Pattern:    &schedule.CyclePattern{OnDays: 1, OffDays: 1},
		AnchorDate: date(2025, time.June, 2),
		Active:     true,
	}

	assert.True(t, rule.Matches(date(2025, time.June, 2)))
	assert.False(t, rule.Matches(date(2025, time.June, 3)))
	assert.True(t, rule.Matches(date(2025, time.June, 4)))
}

// =============================================================================
// CLOCK MINUTES
// =============================================================================

func TestParseClock(t *testing.T) {
	m, err := schedule.ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)

	_, err = schedule.ParseClock("24:00")
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = schedule.ParseClock("9¾")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "09:30", schedule.FormatClock(570))
	assert.Equal(t, "00:00", schedule.FormatClock(0))
	assert.Equal(t, "23:59", schedule.FormatClock(1439))
}
