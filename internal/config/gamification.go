package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/viper"
)

// PointTable holds the XP granted per activity kind.
type PointTable struct {
	LogSubmitted            int
	PhotoAttached           int
	SelfAssessmentCompleted int
	LogApproved             int
	PollCompleted           int
	PerfectQuiz             int
}

// LevelThreshold maps the minimum XP required to reach a level.
type LevelThreshold struct {
	Level int
	MinXP int
}

// LevelTable is a list of thresholds sorted by MinXP ascending.
type LevelTable []LevelThreshold

// GamificationConfig groups point and level configuration.
type GamificationConfig struct {
	Points            PointTable
	Levels            LevelTable
	WeekStreakLength  int
	QuizMasterAnswers int
}

// DefaultLevels returns the built-in level table.
func DefaultLevels() LevelTable {
	return LevelTable{
		{Level: 1, MinXP: 0},
		{Level: 2, MinXP: 100},
		{Level: 3, MinXP: 250},
		{Level: 4, MinXP: 500},
		{Level: 5, MinXP: 1000},
		{Level: 6, MinXP: 2000},
		{Level: 7, MinXP: 3500},
		{Level: 8, MinXP: 5500},
		{Level: 9, MinXP: 8000},
		{Level: 10, MinXP: 12000},
	}
}

// DefaultGamification returns the default point and level configuration.
func DefaultGamification() GamificationConfig {
	return GamificationConfig{
		Points: PointTable{
			LogSubmitted:            10,
			PhotoAttached:           2,
			SelfAssessmentCompleted: 5,
			LogApproved:             20,
			PollCompleted:           5,
			PerfectQuiz:             10,
		},
		Levels:            DefaultLevels(),
		WeekStreakLength:  7,
		QuizMasterAnswers: 5,
	}
}

// Validate checks the level table starts at zero XP and point values are non-negative.
func (g GamificationConfig) Validate() error {
	if len(g.Levels) == 0 {
		return errors.New("level table must not be empty")
	}

	sorted := g.Levels.Sorted()
	if sorted[0].MinXP != 0 {
		return fmt.Errorf("level table must start at 0 xp, got %d", sorted[0].MinXP)
	}

	points := []int{
		g.Points.LogSubmitted,
		g.Points.PhotoAttached,
		g.Points.SelfAssessmentCompleted,
		g.Points.LogApproved,
		g.Points.PollCompleted,
		g.Points.PerfectQuiz,
	}
	for _, p := range points {
		if p < 0 {
			return errors.New("xp point values must not be negative")
		}
	}

	return nil
}

// Sorted returns a copy of the table ordered by MinXP ascending.
func (t LevelTable) Sorted() LevelTable {
	out := make(LevelTable, len(t))
	copy(out, t)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinXP < out[j].MinXP
	})
	return out
}

// LevelFor returns the highest level whose MinXP does not exceed totalXP, defaulting to 1.
func (t LevelTable) LevelFor(totalXP int) int {
	sorted := t.Sorted()
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].MinXP <= totalXP {
			return sorted[i].Level
		}
	}
	return 1
}

func setGamificationDefaults(v *viper.Viper) {
	defaults := DefaultGamification()
	v.SetDefault("xp.log_submitted", defaults.Points.LogSubmitted)
	v.SetDefault("xp.photo_attached", defaults.Points.PhotoAttached)
	v.SetDefault("xp.self_assessment", defaults.Points.SelfAssessmentCompleted)
	v.SetDefault("xp.log_approved", defaults.Points.LogApproved)
	v.SetDefault("xp.poll_completed", defaults.Points.PollCompleted)
	v.SetDefault("xp.perfect_quiz", defaults.Points.PerfectQuiz)
	v.SetDefault("badges.week_streak", defaults.WeekStreakLength)
	v.SetDefault("badges.quiz_master_answers", defaults.QuizMasterAnswers)
}

func loadGamification(v *viper.Viper) GamificationConfig {
	return GamificationConfig{
		Points: PointTable{
			LogSubmitted:            v.GetInt("xp.log_submitted"),
			PhotoAttached:           v.GetInt("xp.photo_attached"),
			SelfAssessmentCompleted: v.GetInt("xp.self_assessment"),
			LogApproved:             v.GetInt("xp.log_approved"),
			PollCompleted:           v.GetInt("xp.poll_completed"),
			PerfectQuiz:             v.GetInt("xp.perfect_quiz"),
		},
		Levels:            DefaultLevels(),
		WeekStreakLength:  v.GetInt("badges.week_streak"),
		QuizMasterAnswers: v.GetInt("badges.quiz_master_answers"),
	}
}
