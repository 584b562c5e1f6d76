package grading

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/scoresheet-api/internal/models"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
)

// The evaluator keeps every sum and grade column a pure function of the
// group's score columns. Sum columns are recomputed first, in column order,
// then grade columns, so a grade column reading a sum always sees the value
// from the same pass.

// RecomputeAll rebuilds every derived column entry for every learner in the
// group. Missing or non-numeric sum sources contribute 0. A grade column is
// left unset rather than computed when its source holds no numeric value or
// when the subject has no criteria left to resolve against.
func RecomputeAll(group *models.Group, criteria []models.GradingCriterion) error {
	for i := range group.Learners {
		if err := recomputeLearner(group.Columns, &group.Learners[i], criteria); err != nil {
			return err
		}
	}
	return nil
}

// ApplyScoreEdit parses a raw score entry, writes it into the learner's score
// map and recomputes that learner's derived columns. An empty string clears
// the entry to 0; anything non-numeric rejects the edit without mutation.
func ApplyScoreEdit(group *models.Group, learnerID, columnID, raw string, criteria []models.GradingCriterion) (*models.Learner, error) {
	learner := group.LearnerByID(learnerID)
	if learner == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "learner not found in group")
	}
	column := group.ColumnByID(columnID)
	if column == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "column not found in group")
	}
	if column.Type != models.ColumnScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only score columns accept direct entry")
	}

	value, err := parseScore(raw)
	if err != nil {
		return nil, err
	}

	if learner.Scores == nil {
		learner.Scores = models.ScoreMap{}
	}
	learner.Scores[columnID] = models.Numeric(value)

	if err := recomputeLearner(group.Columns, learner, criteria); err != nil {
		return nil, err
	}
	return learner, nil
}

// PruneColumn removes a column from the group along with every trace of it:
// learner score map entries and references from other columns' source lists.
func PruneColumn(group *models.Group, columnID string) {
	columns := make([]models.ScoreColumn, 0, len(group.Columns))
	for _, col := range group.Columns {
		if col.ID == columnID {
			continue
		}
		if col.SourceColumns.Contains(columnID) {
			col.SourceColumns = col.SourceColumns.Without(columnID)
		}
		columns = append(columns, col)
	}
	group.Columns = columns

	for i := range group.Learners {
		delete(group.Learners[i].Scores, columnID)
	}
}

// ValidateSources enforces source-type rules at the data-entry boundary so
// dependency cycles cannot be created: sum columns may only reference score
// columns, grade columns reference one score or sum column, score columns
// reference nothing.
func ValidateSources(group *models.Group, column models.ScoreColumn) error {
	switch column.Type {
	case models.ColumnScore:
		if len(column.SourceColumns) > 0 {
			return appErrors.Clone(appErrors.ErrValidation, "score columns must not declare source columns")
		}
		return nil
	case models.ColumnSum:
		for _, sourceID := range column.SourceColumns {
			source := group.ColumnByID(sourceID)
			if source == nil {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("source column %s does not exist", sourceID))
			}
			if source.Type != models.ColumnScore {
				return appErrors.Clone(appErrors.ErrValidation, "sum columns may only reference score columns")
			}
		}
		return nil
	case models.ColumnGrade:
		if len(column.SourceColumns) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "grade columns require a source column")
		}
		source := group.ColumnByID(column.SourceColumns[0])
		if source == nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("source column %s does not exist", column.SourceColumns[0]))
		}
		if source.Type == models.ColumnGrade {
			return appErrors.Clone(appErrors.ErrValidation, "grade columns cannot reference other grade columns")
		}
		return nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown column type %q", column.Type))
	}
}

func recomputeLearner(columns []models.ScoreColumn, learner *models.Learner, criteria []models.GradingCriterion) error {
	if learner.Scores == nil {
		learner.Scores = models.ScoreMap{}
	}

	// Sums first, in display order.
	for _, col := range columns {
		if col.Type != models.ColumnSum {
			continue
		}
		learner.Scores[col.ID] = models.Numeric(sumSources(learner.Scores, col.SourceColumns))
	}

	// Grade columns always evaluate after every sum is fresh.
	for _, col := range columns {
		if col.Type != models.ColumnGrade {
			continue
		}
		if len(col.SourceColumns) == 0 {
			delete(learner.Scores, col.ID)
			continue
		}
		source, ok := learner.Scores[col.SourceColumns[0]].AsNumber()
		if !ok {
			// No numeric input yet; unset means "no grade yet", not an error.
			delete(learner.Scores, col.ID)
			continue
		}
		if len(criteria) == 0 {
			// With every criterion deleted there is nothing to resolve
			// against. Clearing the cell keeps structural changes (pruned
			// columns, scrubbed score maps) persistable; a stale label must
			// not survive just because the scale is gone.
			delete(learner.Scores, col.ID)
			continue
		}
		grade, err := ResolveGrade(source, criteria)
		if err != nil {
			return err
		}
		learner.Scores[col.ID] = models.GradeLabel(grade)
	}

	return nil
}

// sumSources totals the numeric sources of a sum column. Grade-typed slots
// fail AsNumber and therefore contribute 0, as do missing entries.
func sumSources(scores models.ScoreMap, sources models.StringList) float64 {
	total := 0.0
	for _, sourceID := range sources {
		if v, ok := scores[sourceID].AsNumber(); ok {
			total += v
		}
	}
	return total
}

func parseScore(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%q is not a numeric score", raw))
	}
	return value, nil
}
