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

// GroupRepository provides database access for groups and their columns.
// Columns load with score/sum columns first in display order and grade
// columns last, which is also evaluation order.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new instance of GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// ListBySubject returns the subject's groups without learners or columns.
func (r *GroupRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.Group, error) {
	const query = `SELECT id, subject_id, name, created_at, updated_at FROM groups WHERE subject_id = $1 ORDER BY created_at`
	groups := []models.Group{}
	if err := r.db.SelectContext(ctx, &groups, query, subjectID); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindByID returns a group with its learners and columns loaded.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, subject_id, name, created_at, updated_at FROM groups WHERE id = $1 LIMIT 1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find group by id: %w", err)
	}

	const learnerQuery = `SELECT id, group_id, learner_id, name, scores, created_at, updated_at FROM learners WHERE group_id = $1 ORDER BY created_at`
	group.Learners = []models.Learner{}
	if err := r.db.SelectContext(ctx, &group.Learners, learnerQuery, id); err != nil {
		return nil, fmt.Errorf("load group learners: %w", err)
	}

	const columnQuery = `SELECT id, group_id, name, type, source_columns, position, created_at, updated_at FROM score_columns WHERE group_id = $1 ORDER BY (type = 'grade'), position`
	group.Columns = []models.ScoreColumn{}
	if err := r.db.SelectContext(ctx, &group.Columns, columnQuery, id); err != nil {
		return nil, fmt.Errorf("load group columns: %w", err)
	}

	return &group, nil
}

// Create inserts a new group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now

	const query = `INSERT INTO groups (id, subject_id, name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, group.ID, group.SubjectID, group.Name, group.CreatedAt, group.UpdatedAt); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// UpdateName renames a group.
func (r *GroupRepository) UpdateName(ctx context.Context, id, name string) error {
	const query = `UPDATE groups SET name = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a group; learners and columns cascade at the schema level.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM groups WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertColumn appends a column to the group.
func (r *GroupRepository) InsertColumn(ctx context.Context, column *models.ScoreColumn) error {
	if column.ID == "" {
		column.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	column.CreatedAt = now
	column.UpdatedAt = now

	const query = `INSERT INTO score_columns (id, group_id, name, type, source_columns, position, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, column.ID, column.GroupID, column.Name, column.Type, column.SourceColumns, column.Position, column.CreatedAt, column.UpdatedAt); err != nil {
		return fmt.Errorf("insert column: %w", err)
	}
	return nil
}

// UpdateColumn patches a column's name, sources and position.
func (r *GroupRepository) UpdateColumn(ctx context.Context, column *models.ScoreColumn) error {
	column.UpdatedAt = time.Now().UTC()

	const query = `UPDATE score_columns SET name = $2, source_columns = $3, position = $4, updated_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, column.ID, column.Name, column.SourceColumns, column.Position, column.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update column: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteColumn removes a column row. Score map cleanup and source-list
// cleanup are persisted separately via SaveSnapshot.
func (r *GroupRepository) DeleteColumn(ctx context.Context, id string) error {
	const query = `DELETE FROM score_columns WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete column: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SaveSnapshot persists the in-memory group snapshot produced by the
// evaluator: every learner's score map and every column's source list, in one
// transaction so readers never observe a half-applied recompute.
func (r *GroupRepository) SaveSnapshot(ctx context.Context, group *models.Group) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()

	const learnerQuery = `UPDATE learners SET scores = $2, updated_at = $3 WHERE id = $1`
	for i := range group.Learners {
		learner := &group.Learners[i]
		if _, err := tx.ExecContext(ctx, learnerQuery, learner.ID, learner.Scores, now); err != nil {
			return fmt.Errorf("save learner scores: %w", err)
		}
	}

	const columnQuery = `UPDATE score_columns SET source_columns = $2, updated_at = $3 WHERE id = $1`
	for i := range group.Columns {
		column := &group.Columns[i]
		if _, err := tx.ExecContext(ctx, columnQuery, column.ID, column.SourceColumns, now); err != nil {
			return fmt.Errorf("save column sources: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}
	return nil
}
