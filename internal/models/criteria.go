package models

import "time"

// GradingCriterion maps a score threshold to a grade label and display color.
// Resolution is first-match by descending MinScore, so duplicate thresholds
// stay well-defined.
type GradingCriterion struct {
	ID        string    `db:"id" json:"id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Grade     string    `db:"grade" json:"grade"`
	MinScore  float64   `db:"min_score" json:"min_score"`
	Color     string    `db:"color" json:"color"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
