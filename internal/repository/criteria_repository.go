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

// CriteriaRepository provides database access for grading criteria.
type CriteriaRepository struct {
	db *sqlx.DB
}

// NewCriteriaRepository creates a new instance of CriteriaRepository.
func NewCriteriaRepository(db *sqlx.DB) *CriteriaRepository {
	return &CriteriaRepository{db: db}
}

// ListBySubject returns the subject's criteria ordered by descending
// threshold, which is also resolution order.
func (r *CriteriaRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.GradingCriterion, error) {
	const query = `SELECT id, subject_id, grade, min_score, color, created_at, updated_at FROM grading_criteria WHERE subject_id = $1 ORDER BY min_score DESC`
	criteria := []models.GradingCriterion{}
	if err := r.db.SelectContext(ctx, &criteria, query, subjectID); err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	return criteria, nil
}

// FindByID returns a criterion by identifier.
func (r *CriteriaRepository) FindByID(ctx context.Context, id string) (*models.GradingCriterion, error) {
	const query = `SELECT id, subject_id, grade, min_score, color, created_at, updated_at FROM grading_criteria WHERE id = $1 LIMIT 1`
	var criterion models.GradingCriterion
	if err := r.db.GetContext(ctx, &criterion, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find criterion by id: %w", err)
	}
	return &criterion, nil
}

// Create inserts a new criterion.
func (r *CriteriaRepository) Create(ctx context.Context, criterion *models.GradingCriterion) error {
	if criterion.ID == "" {
		criterion.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	criterion.CreatedAt = now
	criterion.UpdatedAt = now

	const query = `INSERT INTO grading_criteria (id, subject_id, grade, min_score, color, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, criterion.ID, criterion.SubjectID, criterion.Grade, criterion.MinScore, criterion.Color, criterion.CreatedAt, criterion.UpdatedAt); err != nil {
		return fmt.Errorf("insert criterion: %w", err)
	}
	return nil
}

// Update patches the grade label, threshold and color.
func (r *CriteriaRepository) Update(ctx context.Context, criterion *models.GradingCriterion) error {
	criterion.UpdatedAt = time.Now().UTC()

	const query = `UPDATE grading_criteria SET grade = $2, min_score = $3, color = $4, updated_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, criterion.ID, criterion.Grade, criterion.MinScore, criterion.Color, criterion.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update criterion: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a criterion.
func (r *CriteriaRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM grading_criteria WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete criterion: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
