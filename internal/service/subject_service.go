package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/scoresheet-api/internal/models"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
)

const subjectListCacheKey = "subjects:list"

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

type subjectCriteriaRepository interface {
	ListBySubject(ctx context.Context, subjectID string) ([]models.GradingCriterion, error)
	Create(ctx context.Context, criterion *models.GradingCriterion) error
}

type subjectGroupLister interface {
	ListBySubject(ctx context.Context, subjectID string) ([]models.Group, error)
}

type CacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SubjectService manages subjects and seeds their grading scales.
type SubjectService struct {
	subjects  subjectRepository
	criteria  subjectCriteriaRepository
	groups    subjectGroupLister
	cache     CacheStore
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService instance.
func NewSubjectService(subjects subjectRepository, criteria subjectCriteriaRepository, groups subjectGroupLister, cache CacheStore, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{
		subjects:  subjects,
		criteria:  criteria,
		groups:    groups,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

// List returns subjects matching the filter. Unfiltered first pages come from
// cache when available.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	cacheable := s.cache != nil && filter.Search == "" && filter.Page <= 1

	if cacheable {
		var cached struct {
			Subjects   []models.Subject  `json:"subjects"`
			Pagination models.Pagination `json:"pagination"`
		}
		if err := s.cache.Get(ctx, subjectListCacheKey, &cached); err == nil {
			return cached.Subjects, &cached.Pagination, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("subject list cache read failed", zap.Error(err))
		}
	}

	subjects, total, err := s.subjects.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}

	if cacheable {
		payload := struct {
			Subjects   []models.Subject  `json:"subjects"`
			Pagination models.Pagination `json:"pagination"`
		}{Subjects: subjects, Pagination: *pagination}
		if err := s.cache.Set(ctx, subjectListCacheKey, payload, s.cacheTTL); err != nil {
			s.logger.Warn("subject list cache write failed", zap.Error(err))
		}
	}

	return subjects, pagination, nil
}

// Get returns a subject with its criteria and groups loaded.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subject")
	}

	if subject.GradingCriteria, err = s.criteria.ListBySubject(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading criteria")
	}
	if subject.Groups, err = s.groups.ListBySubject(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups")
	}

	return subject, nil
}

// Create inserts a subject and seeds its grading scale. An empty criteria
// payload gets the default A-F scale so grade columns always have something to
// resolve against.
func (s *SubjectService) Create(ctx context.Context, req models.CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject := &models.Subject{Name: req.Name, Description: req.Description}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}

	seed := req.Criteria
	if len(seed) == 0 {
		seed = models.DefaultGradingCriteria()
	}
	for _, c := range seed {
		criterion := &models.GradingCriterion{
			SubjectID: subject.ID,
			Grade:     c.Grade,
			MinScore:  c.MinScore,
			Color:     c.Color,
		}
		if err := s.criteria.Create(ctx, criterion); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to seed criterion %s", c.Grade))
		}
		subject.GradingCriteria = append(subject.GradingCriteria, *criterion)
	}

	s.invalidateList(ctx)
	return subject, nil
}

// Update patches subject metadata.
func (s *SubjectService) Update(ctx context.Context, id string, req models.UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject := &models.Subject{ID: id, Name: req.Name, Description: req.Description}
	if err := s.subjects.Update(ctx, subject); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}

	s.invalidateList(ctx)
	return subject, nil
}

// Delete removes a subject and everything it owns.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if err := s.subjects.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}

	s.invalidateList(ctx)
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "group:*"); err != nil {
			s.logger.Warn("group cache invalidation failed", zap.Error(err))
		}
	}
	return nil
}

func (s *SubjectService) invalidateList(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, subjectListCacheKey); err != nil {
		s.logger.Warn("subject list cache invalidation failed", zap.Error(err))
	}
}
