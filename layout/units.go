package layout

import (
	"strconv"
	"strings"

	"github.com/ByLCY/marginalia/errors"
)

// This file defines unit-safe lengths for document options. Layout works in CSS px (96 per inch);
// the canvas renderer works in mm and pt.

// Unit represents the original unit of a length value as specified in the document.
type Unit int

const (
	UnitNone Unit = iota // bare numbers, read as px
	UnitPX
	UnitPT
	UnitMM
	UnitCM
	UnitIN
	UnitEM // relative to the font size
)

// Conversion constants.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
	PxToMm = 25.4 / 96
	MmToPx = 1.0 / PxToMm
	PxToPt = 0.75
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitPX:
		return "px"
	case UnitPT:
		return "pt"
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitEM:
		return "em"
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

// ToPX converts the length to px. fontSize (px) resolves em units.
func (l Length) ToPX(fontSize float64) float64 {
	switch l.Unit {
	case UnitPT:
		return l.Value / PxToPt
	case UnitMM:
		return l.Value * MmToPx
	case UnitCM:
		return l.Value * 10 * MmToPx
	case UnitIN:
		return l.Value * 96
	case UnitEM:
		return l.Value * fontSize
	default:
		return l.Value
	}
}

// ToMM converts the length to mm.
func (l Length) ToMM(fontSize float64) float64 { return l.ToPX(fontSize) * PxToMm }

var unitSuffixes = []struct {
	s string
	u Unit
}{{"px", UnitPX}, {"pt", UnitPT}, {"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"em", UnitEM}}

// ParseLength parses a document length like "20px", "12pt" or "1.5em".
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, errors.New(errors.ErrCodeInvalidFormat, "长度值为空")
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
		return Length{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "长度值 %q 无法解析", value)
	}
	return Length{Value: f, Unit: unit}, nil
}
