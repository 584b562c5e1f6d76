package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ScoreKind discriminates the value stored in a learner's score map slot.
type ScoreKind int

const (
	// ScoreUnset marks a slot with no value yet (never serialized).
	ScoreUnset ScoreKind = iota
	// ScoreNumeric marks a directly entered or summed numeric value.
	ScoreNumeric
	// ScoreGrade marks a resolved grade label.
	ScoreGrade
)

// ScoreValue is a tagged union over the two value shapes a score map slot can
// hold. Keeping the tag explicit prevents computation code from silently
// treating a grade label as a number.
type ScoreValue struct {
	Kind   ScoreKind
	Number float64
	Label  string
}

// Numeric wraps a float as a score value.
func Numeric(n float64) ScoreValue {
	return ScoreValue{Kind: ScoreNumeric, Number: n}
}

// GradeLabel wraps a resolved grade label as a score value.
func GradeLabel(label string) ScoreValue {
	return ScoreValue{Kind: ScoreGrade, Label: label}
}

// AsNumber returns the numeric value and whether the slot actually holds one.
func (v ScoreValue) AsNumber() (float64, bool) {
	if v.Kind != ScoreNumeric {
		return 0, false
	}
	return v.Number, true
}

// MarshalJSON keeps the wire shape a plain number or string.
func (v ScoreValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ScoreNumeric:
		return json.Marshal(v.Number)
	case ScoreGrade:
		return json.Marshal(v.Label)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a number or a string.
func (v *ScoreValue) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Numeric(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = GradeLabel(s)
		return nil
	}
	if string(data) == "null" {
		*v = ScoreValue{}
		return nil
	}
	return fmt.Errorf("score value must be a number or a string, got %s", data)
}

// ScoreMap maps column ids to score values. Stored as a JSONB document.
type ScoreMap map[string]ScoreValue

// Value implements driver.Valuer for JSONB persistence.
func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB persistence.
func (m *ScoreMap) Scan(src interface{}) error {
	if src == nil {
		*m = ScoreMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported score map source type %T", src)
	}
	if len(raw) == 0 {
		*m = ScoreMap{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Clone returns an independent copy of the map.
func (m ScoreMap) Clone() ScoreMap {
	out := make(ScoreMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
