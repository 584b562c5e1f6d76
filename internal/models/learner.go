package models

import "time"

// Learner is one row of a group's scoresheet. LearnerID is the external
// identifier (unique within the group); Scores maps column ids to values.
type Learner struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	LearnerID string    `db:"learner_id" json:"learner_id"`
	Name      string    `db:"name" json:"name"`
	Scores    ScoreMap  `db:"scores" json:"scores"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
