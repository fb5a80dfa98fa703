package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines unit-safe lengths used by the document description.
// The engine itself works in millimetres; font sizes stay in points.

// Unit represents the original unit of a length value as written in the DSL.
type Unit int

const (
	UnitNone    Unit = iota // bare numbers, interpreted by the caller
	UnitMM                  // millimeters
	UnitCM                  // centimeters
	UnitIN                  // inches
	UnitPT                  // points
	UnitPercent             // percentage of a reference length
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// String returns the DSL suffix of a Unit value.
func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPercent:
		return "%"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToMM converts to millimetres. Bare numbers are taken as millimetres,
// percentages resolve against reference.
func (l Length) ToMM(reference float64) float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	case UnitPercent:
		return reference * l.Value / 100
	default:
		return l.Value
	}
}

// ToPT converts to points. Bare numbers are taken as points.
func (l Length) ToPT(reference float64) float64 {
	switch l.Unit {
	case UnitNone, UnitPT:
		return l.Value
	case UnitPercent:
		return reference * l.Value / 100
	default:
		return l.ToMM(reference) * MmToPt
	}
}

var unitSuffixes = []struct {
	s string
	u Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"%", UnitPercent}}

// ParseLength parses a DSL length such as 12pt, 18mm, 50% or 3.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("长度 %q 无法解析: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}

// IsLength reports whether value parses as a length.
func IsLength(value string) bool {
	_, err := ParseLength(value)
	return err == nil
}
