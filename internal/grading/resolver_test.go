package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scoresheet-api/internal/models"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
)

func letterScale() []models.GradingCriterion {
	return []models.GradingCriterion{
		{Grade: "A", MinScore: 90, Color: "#22c55e"},
		{Grade: "B", MinScore: 80, Color: "#84cc16"},
		{Grade: "C", MinScore: 70, Color: "#eab308"},
		{Grade: "D", MinScore: 60, Color: "#f97316"},
		{Grade: "F", MinScore: 0, Color: "#ef4444"},
	}
}

func TestResolveGradeThresholds(t *testing.T) {
	criteria := letterScale()

	cases := []struct {
		score float64
		want  string
	}{
		{100, "A"},
		{90, "A"},
		{89.99, "B"},
		{80, "B"},
		{70, "C"},
		{60, "D"},
		{59.99, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		grade, err := ResolveGrade(tc.score, criteria)
		require.NoError(t, err)
		assert.Equal(t, tc.want, grade, "score %v", tc.score)
	}
}

func TestResolveGradeUnsortedInput(t *testing.T) {
	// Resolution must not depend on the caller's ordering.
	criteria := []models.GradingCriterion{
		{Grade: "F", MinScore: 0},
		{Grade: "A", MinScore: 90},
		{Grade: "C", MinScore: 70},
		{Grade: "B", MinScore: 80},
	}

	grade, err := ResolveGrade(85, criteria)
	require.NoError(t, err)
	assert.Equal(t, "B", grade)
}

func TestResolveGradeClampsToLowest(t *testing.T) {
	criteria := []models.GradingCriterion{
		{Grade: "A", MinScore: 90},
		{Grade: "B", MinScore: 80},
	}

	grade, err := ResolveGrade(10, criteria)
	require.NoError(t, err)
	assert.Equal(t, "B", grade)

	grade, err = ResolveGrade(-5, criteria)
	require.NoError(t, err)
	assert.Equal(t, "B", grade)
}

func TestResolveGradeDuplicateThresholds(t *testing.T) {
	// Stable sort keeps input order for equal thresholds, so the first listed
	// criterion wins deterministically.
	criteria := []models.GradingCriterion{
		{Grade: "Pass", MinScore: 50},
		{Grade: "Merit", MinScore: 50},
	}

	grade, err := ResolveGrade(60, criteria)
	require.NoError(t, err)
	assert.Equal(t, "Pass", grade)
}

func TestResolveGradeEmptyCriteria(t *testing.T) {
	_, err := ResolveGrade(75, nil)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNoCriteria.Code, appErr.Code)
}

func TestResolveGradeDoesNotMutateInput(t *testing.T) {
	criteria := []models.GradingCriterion{
		{Grade: "F", MinScore: 0},
		{Grade: "A", MinScore: 90},
	}

	_, err := ResolveGrade(95, criteria)
	require.NoError(t, err)
	assert.Equal(t, "F", criteria[0].Grade)
	assert.Equal(t, "A", criteria[1].Grade)
}

func TestColorFor(t *testing.T) {
	criteria := letterScale()

	assert.Equal(t, "#22c55e", ColorFor("A", criteria))
	assert.Equal(t, "#ef4444", ColorFor("F", criteria))
	assert.Equal(t, NeutralColor, ColorFor("Z", criteria))
	assert.Equal(t, NeutralColor, ColorFor("A", nil))
}
