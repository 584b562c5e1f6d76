package models

// Request payloads for the scoresheet surface. Validation tags run through a
// shared validator instance in the service layer.

// CreateSubjectRequest creates a subject with its initial criteria. When
// Criteria is empty the default A-F scale is seeded.
type CreateSubjectRequest struct {
	Name        string                   `json:"name" validate:"required"`
	Description string                   `json:"description"`
	Criteria    []CreateCriterionRequest `json:"criteria" validate:"omitempty,dive"`
}

// UpdateSubjectRequest patches subject metadata.
type UpdateSubjectRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// CreateCriterionRequest adds a grading criterion to a subject.
type CreateCriterionRequest struct {
	Grade    string  `json:"grade" validate:"required"`
	MinScore float64 `json:"min_score" validate:"gte=0"`
	Color    string  `json:"color" validate:"omitempty,hexcolor"`
}

// UpdateCriterionRequest patches a grading criterion.
type UpdateCriterionRequest struct {
	Grade    string  `json:"grade" validate:"required"`
	MinScore float64 `json:"min_score" validate:"gte=0"`
	Color    string  `json:"color" validate:"omitempty,hexcolor"`
}

// CreateGroupRequest adds a group to a subject.
type CreateGroupRequest struct {
	Name string `json:"name" validate:"required"`
}

// UpdateGroupRequest renames a group.
type UpdateGroupRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateLearnerRequest enrolls a learner into a group. LearnerID is the
// external identifier shown on the sheet, unique within the group.
type CreateLearnerRequest struct {
	LearnerID string `json:"learner_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
}

// UpdateLearnerRequest patches a learner's identity fields.
type UpdateLearnerRequest struct {
	LearnerID string `json:"learner_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
}

// CreateColumnRequest adds a column to a group. SourceColumns is required for
// derived (sum/grade) columns and must be empty for score columns.
type CreateColumnRequest struct {
	Name          string   `json:"name" validate:"required"`
	Type          string   `json:"type" validate:"required,oneof=score sum grade"`
	SourceColumns []string `json:"source_columns"`
	Position      int      `json:"position" validate:"gte=0"`
}

// UpdateColumnRequest patches a column. Type is immutable after creation.
type UpdateColumnRequest struct {
	Name          string   `json:"name" validate:"required"`
	SourceColumns []string `json:"source_columns"`
	Position      int      `json:"position" validate:"gte=0"`
}

// ScoreEntryRequest writes one cell of the sheet. Value arrives as a string so
// an empty box and a zero stay distinguishable at the transport layer.
type ScoreEntryRequest struct {
	LearnerID string `json:"learner_id" validate:"required"`
	ColumnID  string `json:"column_id" validate:"required"`
	Value     string `json:"value"`
}

// CreateExportRequest enqueues a scoresheet render.
type CreateExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}

// DefaultGradingCriteria is the scale seeded for subjects created without an
// explicit one.
func DefaultGradingCriteria() []CreateCriterionRequest {
	return []CreateCriterionRequest{
		{Grade: "A", MinScore: 90, Color: "#22c55e"},
		{Grade: "B", MinScore: 80, Color: "#84cc16"},
		{Grade: "C", MinScore: 70, Color: "#eab308"},
		{Grade: "D", MinScore: 60, Color: "#f97316"},
		{Grade: "F", MinScore: 0, Color: "#ef4444"},
	}
}
