package core

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Decimal day quantity (half-days are legal)
// =============================================================================

// Days is a quantity of leave days. Backed by decimal to keep half-day
// arithmetic exact; float64 appears only at the API boundary.
type Days struct {
	Value decimal.Decimal
}

func NewDays(v float64) Days     { return Days{Value: decimal.NewFromFloat(v)} }
func DaysFromInt(v int) Days     { return Days{Value: decimal.NewFromInt(int64(v))} }
func ZeroDays() Days             { return Days{Value: decimal.Zero} }

// ParseDays parses a decimal string; malformed input yields a ValidationError.
func ParseDays(s string) (Days, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Days{}, &ValidationError{Field: "days", Message: "invalid day amount: " + s}
	}
	return Days{Value: d}, nil
}

func (d Days) Add(o Days) Days          { return Days{Value: d.Value.Add(o.Value)} }
func (d Days) Sub(o Days) Days          { return Days{Value: d.Value.Sub(o.Value)} }
func (d Days) Neg() Days                { return Days{Value: d.Value.Neg()} }
func (d Days) IsZero() bool             { return d.Value.IsZero() }
func (d Days) IsNegative() bool         { return d.Value.IsNegative() }
func (d Days) IsPositive() bool         { return d.Value.IsPositive() }
func (d Days) Equal(o Days) bool        { return d.Value.Equal(o.Value) }
func (d Days) GreaterThan(o Days) bool  { return d.Value.GreaterThan(o.Value) }
func (d Days) LessThan(o Days) bool     { return d.Value.LessThan(o.Value) }

func (d Days) Min(o Days) Days {
	if d.LessThan(o) {
		return d
	}
	return o
}

func (d Days) Max(o Days) Days {
	if d.GreaterThan(o) {
		return d
	}
	return o
}

func (d Days) Float64() float64 { return d.Value.InexactFloat64() }
func (d Days) String() string   { return d.Value.String() }

// =============================================================================
// ROUNDING - Applied at accrual time, never at consumption
// =============================================================================

type RoundingRule string

const (
	RoundNone    RoundingRule = "none"
	RoundNearest RoundingRule = "round"
	RoundUp      RoundingRule = "round_up"
	RoundDown    RoundingRule = "round_down"
)

// Apply rounds an accrued quantity to whole days per the rule.
func (r RoundingRule) Apply(d Days) Days {
	switch r {
	case RoundNearest:
		return Days{Value: d.Value.Round(0)}
	case RoundUp:
		return Days{Value: d.Value.Ceil()}
	case RoundDown:
		return Days{Value: d.Value.Floor()}
	default:
		return d
	}
}
