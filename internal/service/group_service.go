package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/scoresheet-api/internal/grading"
	"github.com/noah-isme/scoresheet-api/internal/models"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
)

type groupRepository interface {
	ListBySubject(ctx context.Context, subjectID string) ([]models.Group, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	UpdateName(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	InsertColumn(ctx context.Context, column *models.ScoreColumn) error
	UpdateColumn(ctx context.Context, column *models.ScoreColumn) error
	DeleteColumn(ctx context.Context, id string) error
	SaveSnapshot(ctx context.Context, group *models.Group) error
}

type learnerRepository interface {
	ExistsByLearnerID(ctx context.Context, groupID, learnerID string) (bool, error)
	Insert(ctx context.Context, learner *models.Learner) error
	Update(ctx context.Context, learner *models.Learner) error
	UpdateScores(ctx context.Context, id string, scores models.ScoreMap) error
	Delete(ctx context.Context, id string) error
}

type groupCriteriaLister interface {
	ListBySubject(ctx context.Context, subjectID string) ([]models.GradingCriterion, error)
}

type recomputeObserver interface {
	ObserveRecompute(duration time.Duration)
	RecordScoreEntry()
}

// keyedMutex serializes mutations per group so concurrent score entries on the
// same sheet cannot interleave their read-modify-write cycles.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// GroupService manages groups, their learners and columns, and keeps derived
// columns consistent through the evaluator on every mutation.
type GroupService struct {
	groups    groupRepository
	learners  learnerRepository
	subjects  subjectFinder
	criteria  groupCriteriaLister
	cache     CacheStore
	cacheTTL  time.Duration
	metrics   recomputeObserver
	locks     *keyedMutex
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs a GroupService instance.
func NewGroupService(groups groupRepository, learners learnerRepository, subjects subjectFinder, criteria groupCriteriaLister, cache CacheStore, cacheTTL time.Duration, metrics recomputeObserver, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{
		groups:    groups,
		learners:  learners,
		subjects:  subjects,
		criteria:  criteria,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		locks:     newKeyedMutex(),
		validator: validate,
		logger:    logger,
	}
}

func groupCacheKey(id string) string {
	return "group:" + id
}

// Get returns a group snapshot with learners and columns, served from cache
// when fresh.
func (s *GroupService) Get(ctx context.Context, id string) (*models.Group, error) {
	if s.cache != nil {
		var cached models.Group
		if err := s.cache.Get(ctx, groupCacheKey(id), &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("group cache read failed", zap.String("group_id", id), zap.Error(err))
		}
	}

	group, err := s.loadGroup(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheGroup(ctx, group)
	return group, nil
}

// ListBySubject returns the subject's groups without learners or columns.
func (s *GroupService) ListBySubject(ctx context.Context, subjectID string) ([]models.Group, error) {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subject")
	}

	groups, err := s.groups.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	if groups == nil {
		groups = []models.Group{}
	}
	return groups, nil
}

// Create adds a group to a subject.
func (s *GroupService) Create(ctx context.Context, subjectID string, req models.CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subject")
	}

	group := &models.Group{SubjectID: subjectID, Name: req.Name, Learners: []models.Learner{}, Columns: []models.ScoreColumn{}}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}

// Update renames a group.
func (s *GroupService) Update(ctx context.Context, id string, req models.UpdateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if err := s.groups.UpdateName(ctx, id, req.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}

	s.invalidate(ctx, id)
	return s.Get(ctx, id)
}

// Delete removes a group and everything it owns.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	if err := s.groups.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	s.invalidate(ctx, id)
	return nil
}

// AddLearner enrolls a learner and materializes derived columns for the row.
func (s *GroupService) AddLearner(ctx context.Context, groupID string, req models.CreateLearnerRequest) (*models.Learner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid learner payload")
	}

	unlock := s.locks.lock(groupID)
	defer unlock()

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	taken, err := s.learners.ExistsByLearnerID(ctx, groupID, req.LearnerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check learner id")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("learner id %s already exists in this group", req.LearnerID))
	}

	learner := &models.Learner{GroupID: groupID, LearnerID: req.LearnerID, Name: req.Name, Scores: models.ScoreMap{}}
	if err := s.learners.Insert(ctx, learner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add learner")
	}

	criteria, err := s.criteriaFor(ctx, group)
	if err != nil {
		return nil, err
	}
	group.Learners = append(group.Learners, *learner)
	if err := s.recompute(group, criteria); err != nil {
		return nil, err
	}
	fresh := &group.Learners[len(group.Learners)-1]
	if err := s.learners.UpdateScores(ctx, fresh.ID, fresh.Scores); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist learner scores")
	}

	s.invalidate(ctx, groupID)
	return fresh, nil
}

// UpdateLearner patches a learner's identity fields.
func (s *GroupService) UpdateLearner(ctx context.Context, groupID, learnerRowID string, req models.UpdateLearnerRequest) (*models.Learner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid learner payload")
	}

	unlock := s.locks.lock(groupID)
	defer unlock()

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var current *models.Learner
	for i := range group.Learners {
		if group.Learners[i].ID == learnerRowID {
			current = &group.Learners[i]
			break
		}
	}
	if current == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "learner not found in group")
	}

	if req.LearnerID != current.LearnerID {
		taken, err := s.learners.ExistsByLearnerID(ctx, groupID, req.LearnerID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check learner id")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("learner id %s already exists in this group", req.LearnerID))
		}
	}

	current.LearnerID = req.LearnerID
	current.Name = req.Name
	if err := s.learners.Update(ctx, current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "learner not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update learner")
	}

	s.invalidate(ctx, groupID)
	return current, nil
}

// DeleteLearner removes a learner from the group.
func (s *GroupService) DeleteLearner(ctx context.Context, groupID, learnerRowID string) error {
	unlock := s.locks.lock(groupID)
	defer unlock()

	if err := s.learners.Delete(ctx, learnerRowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "learner not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete learner")
	}

	s.invalidate(ctx, groupID)
	return nil
}

// AddColumn appends a column and recomputes the sheet so derived entries
// materialize immediately.
func (s *GroupService) AddColumn(ctx context.Context, groupID string, req models.CreateColumnRequest) (*models.ScoreColumn, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid column payload")
	}

	unlock := s.locks.lock(groupID)
	defer unlock()

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	column := models.ScoreColumn{
		GroupID:       groupID,
		Name:          req.Name,
		Type:          models.ColumnType(req.Type),
		SourceColumns: models.StringList(req.SourceColumns),
		Position:      req.Position,
	}
	if err := grading.ValidateSources(group, column); err != nil {
		return nil, err
	}

	if err := s.groups.InsertColumn(ctx, &column); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add column")
	}

	group.Columns = append(group.Columns, column)
	if column.Type.Derived() {
		criteria, err := s.criteriaFor(ctx, group)
		if err != nil {
			return nil, err
		}
		if err := s.recompute(group, criteria); err != nil {
			return nil, err
		}
		if err := s.groups.SaveSnapshot(ctx, group); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist recomputed sheet")
		}
	}

	s.invalidate(ctx, groupID)
	return &column, nil
}

// UpdateColumn patches a column's name, sources and position. The type is
// fixed at creation.
func (s *GroupService) UpdateColumn(ctx context.Context, groupID, columnID string, req models.UpdateColumnRequest) (*models.ScoreColumn, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid column payload")
	}

	unlock := s.locks.lock(groupID)
	defer unlock()

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	column := group.ColumnByID(columnID)
	if column == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "column not found in group")
	}

	column.Name = req.Name
	column.SourceColumns = models.StringList(req.SourceColumns)
	column.Position = req.Position
	if err := grading.ValidateSources(group, *column); err != nil {
		return nil, err
	}

	if err := s.groups.UpdateColumn(ctx, column); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "column not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update column")
	}

	if column.Type.Derived() {
		criteria, err := s.criteriaFor(ctx, group)
		if err != nil {
			return nil, err
		}
		if err := s.recompute(group, criteria); err != nil {
			return nil, err
		}
		if err := s.groups.SaveSnapshot(ctx, group); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist recomputed sheet")
		}
	}

	s.invalidate(ctx, groupID)
	return column, nil
}

// DeleteColumn removes a column and scrubs every trace of it: learner score
// entries and references from other columns' source lists, then recomputes so
// dependents settle on their reduced inputs.
func (s *GroupService) DeleteColumn(ctx context.Context, groupID, columnID string) error {
	unlock := s.locks.lock(groupID)
	defer unlock()

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.ColumnByID(columnID) == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "column not found in group")
	}

	grading.PruneColumn(group, columnID)

	if err := s.groups.DeleteColumn(ctx, columnID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "column not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete column")
	}

	criteria, err := s.criteriaFor(ctx, group)
	if err != nil {
		return err
	}
	if err := s.recompute(group, criteria); err != nil {
		return err
	}
	if err := s.groups.SaveSnapshot(ctx, group); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist recomputed sheet")
	}

	s.invalidate(ctx, groupID)
	return nil
}

// EnterScore writes one cell and returns the learner's recomputed row.
func (s *GroupService) EnterScore(ctx context.Context, groupID string, req models.ScoreEntryRequest) (*models.Learner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}

	unlock := s.locks.lock(groupID)
	defer unlock()

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	criteria, err := s.criteriaFor(ctx, group)
	if err != nil {
		return nil, err
	}

	learner, err := grading.ApplyScoreEdit(group, req.LearnerID, req.ColumnID, req.Value, criteria)
	if err != nil {
		return nil, err
	}

	if err := s.learners.UpdateScores(ctx, learner.ID, learner.Scores); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist score entry")
	}

	if s.metrics != nil {
		s.metrics.RecordScoreEntry()
	}
	s.invalidate(ctx, groupID)
	return learner, nil
}

// Recompute rebuilds every derived column for the group and persists the
// snapshot. Criteria changes fan out here through the job queue.
func (s *GroupService) Recompute(ctx context.Context, groupID string) error {
	unlock := s.locks.lock(groupID)
	defer unlock()

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	criteria, err := s.criteriaFor(ctx, group)
	if err != nil {
		return err
	}

	if err := s.recompute(group, criteria); err != nil {
		return err
	}
	if err := s.groups.SaveSnapshot(ctx, group); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist recomputed sheet")
	}

	s.invalidate(ctx, groupID)
	return nil
}

func (s *GroupService) loadGroup(ctx context.Context, id string) (*models.Group, error) {
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch group")
	}
	return group, nil
}

func (s *GroupService) criteriaFor(ctx context.Context, group *models.Group) ([]models.GradingCriterion, error) {
	criteria, err := s.criteria.ListBySubject(ctx, group.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading criteria")
	}
	return criteria, nil
}

func (s *GroupService) recompute(group *models.Group, criteria []models.GradingCriterion) error {
	start := time.Now()
	if err := grading.RecomputeAll(group, criteria); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveRecompute(time.Since(start))
	}
	return nil
}

func (s *GroupService) cacheGroup(ctx context.Context, group *models.Group) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, groupCacheKey(group.ID), group, s.cacheTTL); err != nil {
		s.logger.Warn("group cache write failed", zap.String("group_id", group.ID), zap.Error(err))
	}
}

func (s *GroupService) invalidate(ctx context.Context, groupID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, groupCacheKey(groupID)); err != nil {
		s.logger.Warn("group cache invalidation failed", zap.String("group_id", groupID), zap.Error(err))
	}
}
