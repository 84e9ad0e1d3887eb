package service

import (
	"math"

	"github.com/noah-isme/gema-intern-api/internal/dto"
	"github.com/noah-isme/gema-intern-api/internal/models"
)

// CompetencyDiscrepancyThreshold is the absolute rating gap above which a competency is flagged.
const CompetencyDiscrepancyThreshold = 1.5

// CompareCompetencies lines up the self and mentor ratings for every competency key.
// A difference is only computed when both sides rated the key.
func CompareCompetencies(self, mentor models.CompetencyRatings) []dto.CompetencyComparisonItem {
	items := make([]dto.CompetencyComparisonItem, 0, len(models.CompetencyKeys))

	for _, key := range models.CompetencyKeys {
		item := dto.CompetencyComparisonItem{Competency: key}

		selfRating, hasSelf := self[key]
		if hasSelf {
			value := selfRating
			item.SelfRating = &value
		}

		mentorRating, hasMentor := mentor[key]
		if hasMentor {
			value := mentorRating
			item.MentorRating = &value
		}

		if hasSelf && hasMentor {
			diff := float64(selfRating - mentorRating)
			item.Difference = &diff
			item.Discrepancy = math.Abs(diff) > CompetencyDiscrepancyThreshold
		}

		items = append(items, item)
	}

	return items
}
