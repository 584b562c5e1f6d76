package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scoresheet-api/internal/models"
)

// LearnerRepository provides database access for learners.
type LearnerRepository struct {
	db *sqlx.DB
}

// NewLearnerRepository creates a new instance of LearnerRepository.
func NewLearnerRepository(db *sqlx.DB) *LearnerRepository {
	return &LearnerRepository{db: db}
}

// ExistsByLearnerID reports whether the external learner id is already taken
// within the group.
func (r *LearnerRepository) ExistsByLearnerID(ctx context.Context, groupID, learnerID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM learners WHERE group_id = $1 AND learner_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, groupID, learnerID); err != nil {
		return false, fmt.Errorf("check learner id: %w", err)
	}
	return exists, nil
}

// Insert adds a learner to a group.
func (r *LearnerRepository) Insert(ctx context.Context, learner *models.Learner) error {
	if learner.ID == "" {
		learner.ID = uuid.NewString()
	}
	if learner.Scores == nil {
		learner.Scores = models.ScoreMap{}
	}
	now := time.Now().UTC()
	learner.CreatedAt = now
	learner.UpdatedAt = now

	const query = `INSERT INTO learners (id, group_id, learner_id, name, scores, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, learner.ID, learner.GroupID, learner.LearnerID, learner.Name, learner.Scores, learner.CreatedAt, learner.UpdatedAt); err != nil {
		return fmt.Errorf("insert learner: %w", err)
	}
	return nil
}

// Update patches a learner's external id and name.
func (r *LearnerRepository) Update(ctx context.Context, learner *models.Learner) error {
	learner.UpdatedAt = time.Now().UTC()

	const query = `UPDATE learners SET learner_id = $2, name = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, learner.ID, learner.LearnerID, learner.Name, learner.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update learner: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateScores replaces a learner's score map.
func (r *LearnerRepository) UpdateScores(ctx context.Context, id string, scores models.ScoreMap) error {
	const query = `UPDATE learners SET scores = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, scores, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update learner scores: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a learner.
func (r *LearnerRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM learners WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete learner: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
