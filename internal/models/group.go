package models

import "time"

// Group owns its learners and columns exclusively.
type Group struct {
	ID        string    `db:"id" json:"id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Learners []Learner     `db:"-" json:"learners"`
	Columns  []ScoreColumn `db:"-" json:"columns"`
}

// ColumnByID returns a pointer to the column with the given id, or nil.
func (g *Group) ColumnByID(id string) *ScoreColumn {
	for i := range g.Columns {
		if g.Columns[i].ID == id {
			return &g.Columns[i]
		}
	}
	return nil
}

// LearnerByID returns a pointer to the learner with the given external
// learner id, or nil.
func (g *Group) LearnerByID(learnerID string) *Learner {
	for i := range g.Learners {
		if g.Learners[i].LearnerID == learnerID {
			return &g.Learners[i]
		}
	}
	return nil
}
