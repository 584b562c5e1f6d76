package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/scoresheet-api/internal/grading"
	"github.com/noah-isme/scoresheet-api/internal/models"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
	"github.com/noah-isme/scoresheet-api/pkg/jobs"
)

// JobTypeGroupRecompute tags recompute jobs fanned out after criteria changes.
const JobTypeGroupRecompute = "group_recompute"

type criteriaRepository interface {
	ListBySubject(ctx context.Context, subjectID string) ([]models.GradingCriterion, error)
	FindByID(ctx context.Context, id string) (*models.GradingCriterion, error)
	Create(ctx context.Context, criterion *models.GradingCriterion) error
	Update(ctx context.Context, criterion *models.GradingCriterion) error
	Delete(ctx context.Context, id string) error
}

type subjectFinder interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// CriteriaService manages a subject's grading scale. Every mutation fans out
// a recompute job per group so persisted grade columns track the new scale.
type CriteriaService struct {
	criteria  criteriaRepository
	subjects  subjectFinder
	groups    subjectGroupLister
	queue     jobEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCriteriaService constructs a CriteriaService instance.
func NewCriteriaService(criteria criteriaRepository, subjects subjectFinder, groups subjectGroupLister, queue jobEnqueuer, validate *validator.Validate, logger *zap.Logger) *CriteriaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CriteriaService{
		criteria:  criteria,
		subjects:  subjects,
		groups:    groups,
		queue:     queue,
		validator: validate,
		logger:    logger,
	}
}

// List returns the subject's scale in resolution order.
func (s *CriteriaService) List(ctx context.Context, subjectID string) ([]models.GradingCriterion, error) {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subject")
	}

	criteria, err := s.criteria.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list criteria")
	}
	return criteria, nil
}

// Create adds a criterion to the subject's scale.
func (s *CriteriaService) Create(ctx context.Context, subjectID string, req models.CreateCriterionRequest) (*models.GradingCriterion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid criterion payload")
	}
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subject")
	}

	criterion := &models.GradingCriterion{
		SubjectID: subjectID,
		Grade:     req.Grade,
		MinScore:  req.MinScore,
		Color:     s.colorOrNeutral(req.Color),
	}
	if err := s.criteria.Create(ctx, criterion); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create criterion")
	}

	s.fanOutRecompute(ctx, subjectID)
	return criterion, nil
}

// Update patches a criterion.
func (s *CriteriaService) Update(ctx context.Context, id string, req models.UpdateCriterionRequest) (*models.GradingCriterion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid criterion payload")
	}

	criterion, err := s.criteria.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "criterion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch criterion")
	}

	criterion.Grade = req.Grade
	criterion.MinScore = req.MinScore
	criterion.Color = s.colorOrNeutral(req.Color)
	if err := s.criteria.Update(ctx, criterion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "criterion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update criterion")
	}

	s.fanOutRecompute(ctx, criterion.SubjectID)
	return criterion, nil
}

// Delete removes a criterion. Removing the last one leaves grade columns
// unresolvable; subsequent recomputes clear their cells until a scale exists.
func (s *CriteriaService) Delete(ctx context.Context, id string) error {
	criterion, err := s.criteria.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "criterion not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch criterion")
	}

	if err := s.criteria.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "criterion not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete criterion")
	}

	s.fanOutRecompute(ctx, criterion.SubjectID)
	return nil
}

func (s *CriteriaService) colorOrNeutral(color string) string {
	if color == "" {
		return grading.NeutralColor
	}
	return color
}

// fanOutRecompute enqueues one recompute job per group of the subject. Queue
// pressure only costs freshness of derived columns, so failures log and move
// on.
func (s *CriteriaService) fanOutRecompute(ctx context.Context, subjectID string) {
	if s.queue == nil {
		return
	}

	groups, err := s.groups.ListBySubject(ctx, subjectID)
	if err != nil {
		s.logger.Warn("failed to list groups for recompute fan-out", zap.String("subject_id", subjectID), zap.Error(err))
		return
	}

	for _, group := range groups {
		job := jobs.Job{ID: uuid.NewString(), Type: JobTypeGroupRecompute, Payload: group.ID}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue group recompute", zap.String("group_id", group.ID), zap.Error(err))
		}
	}
}
