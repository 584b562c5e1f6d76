package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/scoresheet-api/internal/grading"
	"github.com/noah-isme/scoresheet-api/internal/models"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
	"github.com/noah-isme/scoresheet-api/pkg/export"
	"github.com/noah-isme/scoresheet-api/pkg/jobs"
)

// JobTypeScoresheetExport tags export render jobs on the queue.
const JobTypeScoresheetExport = "scoresheet_export"

type exportRepository interface {
	Insert(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkCompleted(ctx context.Context, id, filePath string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type exportGroupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type downloadSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string) (exportID, relPath string, err error)
}

type sheetRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

// ExportService renders scoresheets asynchronously: Enqueue records a pending
// job and pushes it onto the worker queue, HandleJob does the actual render.
type ExportService struct {
	exports   exportRepository
	groups    exportGroupReader
	criteria  groupCriteriaLister
	storage   exportStorage
	signer    downloadSigner
	queue     jobEnqueuer
	renderers map[string]sheetRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(exports exportRepository, groups exportGroupReader, criteria groupCriteriaLister, storage exportStorage, signer downloadSigner, queue jobEnqueuer, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		exports:  exports,
		groups:   groups,
		criteria: criteria,
		storage:  storage,
		signer:   signer,
		queue:    queue,
		renderers: map[string]sheetRenderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(),
		},
		validator: validate,
		logger:    logger,
	}
}

// SetQueue wires the worker queue after construction. The queue's handler is
// this service's HandleJob, so the two reference each other.
func (s *ExportService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Enqueue records a pending export job for the group and schedules the render.
func (s *ExportService) Enqueue(ctx context.Context, groupID string, req models.CreateExportRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue not available")
	}

	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch group")
	}

	job := &models.ExportJob{GroupID: groupID, Format: req.Format}
	if err := s.exports.Insert(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeScoresheetExport, Payload: job.ID}); err != nil {
		if markErr := s.exports.MarkFailed(ctx, job.ID, "failed to schedule export"); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule export")
	}

	return job, nil
}

// HandleJob is the queue worker entrypoint. Render errors are terminal and
// mark the job failed; persistence errors return so the queue retries.
func (s *ExportService) HandleJob(ctx context.Context, job jobs.Job) error {
	jobID, ok := job.Payload.(string)
	if !ok || jobID == "" {
		s.logger.Error("export job carries no id", zap.String("queue_job", job.ID))
		return nil
	}

	record, err := s.exports.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("export job vanished before render", zap.String("job_id", jobID))
			return nil
		}
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}
	if record.Status != models.ExportStatusPending {
		return nil
	}

	group, err := s.groups.FindByID(ctx, record.GroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.fail(ctx, jobID, "group no longer exists")
		}
		return fmt.Errorf("load group %s: %w", record.GroupID, err)
	}
	criteria, err := s.criteria.ListBySubject(ctx, group.SubjectID)
	if err != nil {
		return fmt.Errorf("load criteria for group %s: %w", group.ID, err)
	}

	renderer, ok := s.renderers[record.Format]
	if !ok {
		return s.fail(ctx, jobID, fmt.Sprintf("unsupported format %q", record.Format))
	}

	data, err := renderer.Render(BuildSheet(group, criteria))
	if err != nil {
		return s.fail(ctx, jobID, err.Error())
	}

	filename := fmt.Sprintf("%s/%s.%s", group.ID, record.ID, record.Format)
	stored, err := s.storage.Save(filename, data)
	if err != nil {
		return fmt.Errorf("store export %s: %w", jobID, err)
	}

	if err := s.exports.MarkCompleted(ctx, jobID, stored); err != nil {
		return fmt.Errorf("mark export completed %s: %w", jobID, err)
	}

	s.logger.Info("export rendered",
		zap.String("job_id", jobID),
		zap.String("group_id", group.ID),
		zap.String("format", record.Format),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Status returns the job and, once completed, a signed download token.
func (s *ExportService) Status(ctx context.Context, id string) (*models.ExportJob, string, error) {
	job, err := s.exports.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch export job")
	}

	if job.Status != models.ExportStatusCompleted {
		return job, "", nil
	}

	token, _, err := s.signer.Generate(job.ID, job.FilePath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	return job, token, nil
}

// Download validates a token and opens the file it covers.
func (s *ExportService) Download(ctx context.Context, token string) (*os.File, *models.ExportJob, error) {
	exportID, relPath, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	job, err := s.exports.FindByID(ctx, exportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch export job")
	}
	if job.FilePath != relPath || job.Status != models.ExportStatusCompleted {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download token does not match export")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return file, job, nil
}

func (s *ExportService) fail(ctx context.Context, jobID, reason string) error {
	if err := s.exports.MarkFailed(ctx, jobID, reason); err != nil {
		return fmt.Errorf("mark export failed %s: %w", jobID, err)
	}
	s.logger.Warn("export render failed", zap.String("job_id", jobID), zap.String("reason", reason))
	return nil
}

// BuildSheet flattens a group into tabular export content: identity columns
// first, then the group's columns in display order. Grade cells carry their
// criterion color so the PDF renderer can fill them.
func BuildSheet(group *models.Group, criteria []models.GradingCriterion) export.Sheet {
	headers := make([]string, 0, len(group.Columns)+2)
	headers = append(headers, "Learner ID", "Name")
	for _, col := range group.Columns {
		headers = append(headers, col.Name)
	}

	rows := make([][]export.Cell, 0, len(group.Learners))
	for _, learner := range group.Learners {
		row := make([]export.Cell, 0, len(headers))
		row = append(row, export.Cell{Text: learner.LearnerID}, export.Cell{Text: learner.Name})
		for _, col := range group.Columns {
			row = append(row, cellFor(learner.Scores[col.ID], col, criteria))
		}
		rows = append(rows, row)
	}

	return export.Sheet{Title: group.Name, Headers: headers, Rows: rows}
}

func cellFor(value models.ScoreValue, col models.ScoreColumn, criteria []models.GradingCriterion) export.Cell {
	switch col.Type {
	case models.ColumnGrade:
		if value.Kind != models.ScoreGrade {
			return export.Cell{}
		}
		return export.Cell{Text: value.Label, Fill: grading.ColorFor(value.Label, criteria)}
	default:
		if n, ok := value.AsNumber(); ok {
			return export.Cell{Text: strconv.FormatFloat(n, 'f', -1, 64)}
		}
		return export.Cell{}
	}
}
