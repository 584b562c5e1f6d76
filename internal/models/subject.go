package models

import "time"

// Subject owns its groups and the grading criteria shared by all of their
// grade columns.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	GradingCriteria []GradingCriterion `db:"-" json:"grading_criteria"`
	Groups          []Group            `db:"-" json:"groups,omitempty"`
}

// SubjectFilter narrows subject listings.
type SubjectFilter struct {
	Search   string
	Page     int
	PageSize int
}

// Pagination carries list metadata in response envelopes.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
