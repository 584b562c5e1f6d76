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

// ExportRepository tracks asynchronous export jobs.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository creates a new instance of ExportRepository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Insert records a freshly enqueued job.
func (r *ExportRepository) Insert(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusPending
	}
	job.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO export_jobs (id, group_id, format, status, file_path, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, job.ID, job.GroupID, job.Format, job.Status, job.FilePath, job.Error, job.CreatedAt); err != nil {
		return fmt.Errorf("insert export job: %w", err)
	}
	return nil
}

// FindByID returns an export job by identifier.
func (r *ExportRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, group_id, format, status, file_path, error, created_at, completed_at FROM export_jobs WHERE id = $1 LIMIT 1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find export job by id: %w", err)
	}
	return &job, nil
}

// MarkCompleted stores the rendered file path and flips the status.
func (r *ExportRepository) MarkCompleted(ctx context.Context, id, filePath string) error {
	const query = `UPDATE export_jobs SET status = $2, file_path = $3, completed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusCompleted, filePath, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason.
func (r *ExportRepository) MarkFailed(ctx context.Context, id, reason string) error {
	const query = `UPDATE export_jobs SET status = $2, error = $3, completed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusFailed, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return nil
}
