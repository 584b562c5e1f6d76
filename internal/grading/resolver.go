package grading

import (
	"sort"

	"github.com/noah-isme/scoresheet-api/internal/models"
	appErrors "github.com/noah-isme/scoresheet-api/pkg/errors"
)

// NeutralColor is returned for grade labels matching no criterion, e.g. a
// stale label left behind after its criterion was deleted.
const NeutralColor = "#6b7280"

// ResolveGrade maps a numeric score to a grade label using threshold rules.
// Criteria are ordered by descending MinScore and the first threshold at or
// below the score wins. A score below every threshold clamps to the lowest
// defined grade; that is a policy choice carried over from the product, not a
// derived guarantee. An empty criteria set is an error, never a default grade.
func ResolveGrade(score float64, criteria []models.GradingCriterion) (string, error) {
	if len(criteria) == 0 {
		return "", appErrors.Clone(appErrors.ErrNoCriteria, "no grading criteria defined for subject")
	}

	sorted := make([]models.GradingCriterion, len(criteria))
	copy(sorted, criteria)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinScore > sorted[j].MinScore
	})

	for _, c := range sorted {
		if score >= c.MinScore {
			return c.Grade, nil
		}
	}

	return sorted[len(sorted)-1].Grade, nil
}

// ColorFor returns the display color configured for a grade label.
func ColorFor(grade string, criteria []models.GradingCriterion) string {
	for _, c := range criteria {
		if c.Grade == grade {
			return c.Color
		}
	}
	return NeutralColor
}
