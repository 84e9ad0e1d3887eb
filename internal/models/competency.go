package models

// Competency keys rated by students and mentors on a 1-5 scale.
const (
	CompetencyTechnicalSkills    = "technical_skills"
	CompetencyProblemSolving     = "problem_solving"
	CompetencyCommunication      = "communication"
	CompetencyTeamwork           = "teamwork"
	CompetencyTimeManagement     = "time_management"
	CompetencyAdaptability       = "adaptability"
	CompetencyInitiative         = "initiative"
	CompetencyProfessionalEthics = "professional_ethics"
)

const (
	// CompetencyRatingMin is the lowest accepted rating.
	CompetencyRatingMin = 1
	// CompetencyRatingMax is the highest accepted rating.
	CompetencyRatingMax = 5
)

// CompetencyKeys lists the rubric dimensions in display order.
var CompetencyKeys = []string{
	CompetencyTechnicalSkills,
	CompetencyProblemSolving,
	CompetencyCommunication,
	CompetencyTeamwork,
	CompetencyTimeManagement,
	CompetencyAdaptability,
	CompetencyInitiative,
	CompetencyProfessionalEthics,
}

// CompetencyRatings maps competency keys to ratings.
type CompetencyRatings map[string]int

// IsComplete reports whether every competency carries a rating within range.
func (r CompetencyRatings) IsComplete() bool {
	for _, key := range CompetencyKeys {
		value, ok := r[key]
		if !ok || value < CompetencyRatingMin || value > CompetencyRatingMax {
			return false
		}
	}
	return true
}
