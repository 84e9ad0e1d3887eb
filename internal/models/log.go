package models

import (
	"time"

	"gorm.io/datatypes"
)

// LogStatus captures the review workflow state of a daily log.
type LogStatus string

const (
	// LogStatusDraft is the initial, student-editable state.
	LogStatusDraft LogStatus = "draft"
	// LogStatusSubmitted indicates the log awaits mentor review.
	LogStatusSubmitted LogStatus = "submitted"
	// LogStatusApproved indicates the mentor accepted the log.
	LogStatusApproved LogStatus = "approved"
	// LogStatusNeedsRevision indicates the mentor asked the student for changes.
	LogStatusNeedsRevision LogStatus = "needs_revision"
	// LogStatusValidated is the terminal state set by the academic advisor.
	LogStatusValidated LogStatus = "validated"
)

// Log is one day of internship activity recorded by a student.
type Log struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	StudentID           uint       `gorm:"not null;uniqueIndex:idx_logs_student_date" json:"student_id"`
	Date                time.Time  `gorm:"type:date;not null;uniqueIndex:idx_logs_student_date" json:"date"`
	Title               string     `gorm:"size:100;not null" json:"title"`
	Content             string     `gorm:"type:text" json:"content"`
	ActivitiesPerformed string     `gorm:"type:text" json:"activities_performed"`
	SkillsLearned       string     `gorm:"type:text" json:"skills_learned"`
	ChallengesFaced     string     `gorm:"type:text" json:"challenges_faced"`
	HoursSpent          int        `gorm:"not null;default:0" json:"hours_spent"`
	Status              LogStatus  `gorm:"size:32;not null;default:draft;index" json:"status"`
	AdvisorNotes        string     `gorm:"type:text" json:"advisor_notes"`
	ValidatedAt         *time.Time `json:"validated_at"`
	ValidatedBy         *uint      `json:"validated_by"`
	SubmittedAt         *time.Time `json:"submitted_at"`
	XPEarned            int        `gorm:"not null;default:0" json:"xp_earned"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Photos         []LogPhoto      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"photos"`
	Documents      []LogDocument   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"documents"`
	SelfAssessment *SelfAssessment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"self_assessment,omitempty"`
}

// IsEditable reports whether the owning student may still change the log.
func (l Log) IsEditable() bool {
	return l.Status == LogStatusDraft || l.Status == LogStatusNeedsRevision
}

// LogPhoto is an uploaded photo attached to a log.
type LogPhoto struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LogID     uint      `gorm:"index;not null" json:"log_id"`
	URI       string    `gorm:"size:512;not null" json:"uri"`
	Caption   string    `gorm:"size:255" json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

// LogDocument is a supporting document attached to a log.
type LogDocument struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LogID     uint      `gorm:"index;not null" json:"log_id"`
	URI       string    `gorm:"size:512;not null" json:"uri"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	MimeType  string    `gorm:"size:128" json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// SelfAssessment is the student's own competency rating for a log.
type SelfAssessment struct {
	ID                uint                                  `gorm:"primaryKey" json:"id"`
	LogID             uint                                  `gorm:"uniqueIndex;not null" json:"log_id"`
	CompetencyRatings datatypes.JSONType[CompetencyRatings] `json:"competency_ratings"`
	ReflectionNotes   string                                `gorm:"type:text" json:"reflection_notes"`
	CreatedAt         time.Time                             `json:"created_at"`
	UpdatedAt         time.Time                             `json:"updated_at"`
}

// MentorFeedback is one immutable review of a log. A log keeps the full history;
// the most recent row is the current feedback.
type MentorFeedback struct {
	ID                uint                                  `gorm:"primaryKey" json:"id"`
	LogID             uint                                  `gorm:"index;not null" json:"log_id"`
	MentorID          uint                                  `gorm:"not null" json:"mentor_id"`
	Rating            int                                   `gorm:"not null" json:"rating"`
	Comments          string                                `gorm:"type:text" json:"comments"`
	CompetencyRatings datatypes.JSONType[CompetencyRatings] `json:"competency_ratings"`
	IsApproved        bool                                  `gorm:"not null;default:false" json:"is_approved"`
	RevisionRequired  bool                                  `gorm:"not null;default:false" json:"revision_required"`
	RevisionNotes     string                                `gorm:"type:text" json:"revision_notes"`
	AreasOfExcellence string                                `gorm:"type:text" json:"areas_of_excellence"`
	CreatedAt         time.Time                             `gorm:"index" json:"created_at"`
}
