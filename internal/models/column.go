package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ColumnType distinguishes directly-entered columns from derived ones.
type ColumnType string

const (
	ColumnScore ColumnType = "score"
	ColumnSum   ColumnType = "sum"
	ColumnGrade ColumnType = "grade"
)

// Valid reports whether the type is one of the closed set.
func (t ColumnType) Valid() bool {
	switch t {
	case ColumnScore, ColumnSum, ColumnGrade:
		return true
	}
	return false
}

// Derived reports whether the column's value is computed from other columns.
func (t ColumnType) Derived() bool {
	return t == ColumnSum || t == ColumnGrade
}

// StringList is a JSONB-persisted ordered list of column ids.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported string list source type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Contains reports whether the list holds the given id.
func (l StringList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Without returns a copy of the list with every occurrence of id removed.
func (l StringList) Without(id string) StringList {
	out := make(StringList, 0, len(l))
	for _, v := range l {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ScoreColumn describes one column of a group's scoresheet. Score and sum
// columns keep the user-defined display order via Position; grade columns are
// always evaluated and rendered after them.
type ScoreColumn struct {
	ID            string     `db:"id" json:"id"`
	GroupID       string     `db:"group_id" json:"group_id"`
	Name          string     `db:"name" json:"name"`
	Type          ColumnType `db:"type" json:"type"`
	SourceColumns StringList `db:"source_columns" json:"source_columns,omitempty"`
	Position      int        `db:"position" json:"position"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
