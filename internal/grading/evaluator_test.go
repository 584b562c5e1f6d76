package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scoresheet-api/internal/models"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
)

// sheet builds a group with one learner and a score -> sum -> grade chain:
// two score columns feeding a sum, and a grade column reading the sum.
func sheet() *models.Group {
	return &models.Group{
		ID:        "g1",
		SubjectID: "s1",
		Columns: []models.ScoreColumn{
			{ID: "hw", Name: "Homework", Type: models.ColumnScore, Position: 0},
			{ID: "exam", Name: "Exam", Type: models.ColumnScore, Position: 1},
			{ID: "total", Name: "Total", Type: models.ColumnSum, SourceColumns: models.StringList{"hw", "exam"}, Position: 2},
			{ID: "final", Name: "Final", Type: models.ColumnGrade, SourceColumns: models.StringList{"total"}, Position: 3},
		},
		Learners: []models.Learner{
			{ID: "row1", GroupID: "g1", LearnerID: "L001", Name: "Ada", Scores: models.ScoreMap{}},
		},
	}
}

func TestRecomputeAllSumAndGrade(t *testing.T) {
	group := sheet()
	group.Learners[0].Scores["hw"] = models.Numeric(40)
	group.Learners[0].Scores["exam"] = models.Numeric(52)

	require.NoError(t, RecomputeAll(group, letterScale()))

	total, ok := group.Learners[0].Scores["total"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 92.0, total)
	assert.Equal(t, models.GradeLabel("A"), group.Learners[0].Scores["final"])
}

func TestRecomputeAllMissingSourcesContributeZero(t *testing.T) {
	group := sheet()
	group.Learners[0].Scores["hw"] = models.Numeric(30)
	// exam never entered

	require.NoError(t, RecomputeAll(group, letterScale()))

	total, ok := group.Learners[0].Scores["total"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 30.0, total)
	assert.Equal(t, models.GradeLabel("F"), group.Learners[0].Scores["final"])
}

func TestRecomputeAllGradeSlotNeverFeedsSum(t *testing.T) {
	group := sheet()
	// A stale grade label sitting in a sum's source slot must count as 0, not
	// coerce to a number.
	group.Columns[2].SourceColumns = models.StringList{"hw", "final"}
	group.Learners[0].Scores["hw"] = models.Numeric(70)
	group.Learners[0].Scores["final"] = models.GradeLabel("A")

	require.NoError(t, RecomputeAll(group, letterScale()))

	total, ok := group.Learners[0].Scores["total"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 70.0, total)
}

func TestRecomputeAllIdempotent(t *testing.T) {
	group := sheet()
	group.Learners[0].Scores["hw"] = models.Numeric(35)
	group.Learners[0].Scores["exam"] = models.Numeric(40)

	require.NoError(t, RecomputeAll(group, letterScale()))
	first := group.Learners[0].Scores.Clone()

	require.NoError(t, RecomputeAll(group, letterScale()))
	assert.Equal(t, first, group.Learners[0].Scores)
}

func TestRecomputeAllUnsetsGradeWithoutNumericSource(t *testing.T) {
	group := sheet()
	// Grade column pointed directly at an empty score column.
	group.Columns[3].SourceColumns = models.StringList{"hw"}
	group.Learners[0].Scores["final"] = models.GradeLabel("A")

	require.NoError(t, RecomputeAll(group, letterScale()))

	_, present := group.Learners[0].Scores["final"]
	assert.False(t, present, "grade entry should be cleared when its source is unset")
}

func TestRecomputeAllEmptyCriteriaClearsGrades(t *testing.T) {
	group := sheet()
	group.Learners[0].Scores["hw"] = models.Numeric(50)
	group.Learners[0].Scores["exam"] = models.Numeric(45)
	group.Learners[0].Scores["final"] = models.GradeLabel("A")

	require.NoError(t, RecomputeAll(group, nil))

	total, ok := group.Learners[0].Scores["total"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 95.0, total, "sums do not depend on the scale")
	_, present := group.Learners[0].Scores["final"]
	assert.False(t, present, "with no criteria a grade cell is cleared, not kept stale")
}

func TestApplyScoreEditRecomputesRow(t *testing.T) {
	group := sheet()
	group.Learners[0].Scores["exam"] = models.Numeric(50)

	learner, err := ApplyScoreEdit(group, "L001", "hw", "45", letterScale())
	require.NoError(t, err)

	total, ok := learner.Scores["total"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 95.0, total)
	assert.Equal(t, models.GradeLabel("A"), learner.Scores["final"])
}

func TestApplyScoreEditEmptyClearsToZero(t *testing.T) {
	group := sheet()
	group.Learners[0].Scores["hw"] = models.Numeric(88)

	learner, err := ApplyScoreEdit(group, "L001", "hw", "  ", letterScale())
	require.NoError(t, err)

	value, ok := learner.Scores["hw"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 0.0, value)
}

func TestApplyScoreEditRejectsNonNumeric(t *testing.T) {
	group := sheet()
	group.Learners[0].Scores["hw"] = models.Numeric(20)

	_, err := ApplyScoreEdit(group, "L001", "hw", "abc", letterScale())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// Rejected edits must not mutate the sheet.
	value, ok := group.Learners[0].Scores["hw"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 20.0, value)
}

func TestApplyScoreEditOnlyScoreColumns(t *testing.T) {
	group := sheet()

	_, err := ApplyScoreEdit(group, "L001", "total", "10", letterScale())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplyScoreEditUnknownTargets(t *testing.T) {
	group := sheet()

	_, err := ApplyScoreEdit(group, "nope", "hw", "10", letterScale())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = ApplyScoreEdit(group, "L001", "nope", "10", letterScale())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPruneColumnScrubsEveryTrace(t *testing.T) {
	group := sheet()
	group.Learners[0].Scores["hw"] = models.Numeric(40)
	group.Learners[0].Scores["exam"] = models.Numeric(50)
	require.NoError(t, RecomputeAll(group, letterScale()))

	PruneColumn(group, "exam")

	assert.Nil(t, group.ColumnByID("exam"))
	_, present := group.Learners[0].Scores["exam"]
	assert.False(t, present)

	total := group.ColumnByID("total")
	require.NotNil(t, total)
	assert.Equal(t, models.StringList{"hw"}, total.SourceColumns)

	// Recompute settles the sum on its reduced inputs.
	require.NoError(t, RecomputeAll(group, letterScale()))
	value, ok := group.Learners[0].Scores["total"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 40.0, value)
}

func TestValidateSources(t *testing.T) {
	group := sheet()

	err := ValidateSources(group, models.ScoreColumn{Type: models.ColumnScore, SourceColumns: models.StringList{"hw"}})
	assert.Error(t, err, "score columns must not declare sources")

	err = ValidateSources(group, models.ScoreColumn{Type: models.ColumnSum, SourceColumns: models.StringList{"hw", "exam"}})
	assert.NoError(t, err)

	err = ValidateSources(group, models.ScoreColumn{Type: models.ColumnSum, SourceColumns: models.StringList{"total"}})
	assert.Error(t, err, "sum columns may only reference score columns")

	err = ValidateSources(group, models.ScoreColumn{Type: models.ColumnGrade, SourceColumns: models.StringList{"total"}})
	assert.NoError(t, err)

	err = ValidateSources(group, models.ScoreColumn{Type: models.ColumnGrade})
	assert.Error(t, err, "grade columns require a source")

	err = ValidateSources(group, models.ScoreColumn{Type: models.ColumnGrade, SourceColumns: models.StringList{"final"}})
	assert.Error(t, err, "grade columns cannot chain off grade columns")

	err = ValidateSources(group, models.ScoreColumn{Type: models.ColumnSum, SourceColumns: models.StringList{"ghost"}})
	assert.Error(t, err, "sources must exist")
}
