package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 10, cfg.UploadMaxSizeMB)
	require.Equal(t, time.Minute, cfg.LeaderboardCacheTTL)
	require.Equal(t, DefaultGamification().Points, cfg.Gamification.Points)
	require.Equal(t, 7, cfg.Gamification.WeekStreakLength)
	require.Equal(t, 5, cfg.Gamification.QuizMasterAnswers)
}

func TestLoadOverridesPointTable(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_XP_LOG_SUBMITTED", "25")
	t.Setenv("GEMA_LEADERBOARD_CACHE_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 25, cfg.Gamification.Points.LogSubmitted)
	require.Equal(t, 5*time.Minute, cfg.LeaderboardCacheTTL)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsNegativePoints(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_XP_PERFECT_QUIZ", "-5")

	_, err := Load()
	require.Error(t, err)
}

func TestLevelForThresholds(t *testing.T) {
	levels := DefaultLevels()

	cases := map[int]int{
		0:     1,
		99:    1,
		100:   2,
		249:   2,
		250:   3,
		11999: 9,
		12000: 10,
		50000: 10,
	}
	for xp, level := range cases {
		require.Equal(t, level, levels.LevelFor(xp), "xp %d", xp)
	}
}

func TestLevelForUnsortedTable(t *testing.T) {
	levels := LevelTable{
		{Level: 3, MinXP: 300},
		{Level: 1, MinXP: 0},
		{Level: 2, MinXP: 100},
	}

	require.Equal(t, 2, levels.LevelFor(150))
	require.Equal(t, 3, levels.LevelFor(300))
	require.Equal(t, LevelTable{{Level: 3, MinXP: 300}, {Level: 1, MinXP: 0}, {Level: 2, MinXP: 100}}, levels)
}

func TestGamificationValidate(t *testing.T) {
	require.NoError(t, DefaultGamification().Validate())

	cfg := DefaultGamification()
	cfg.Levels = LevelTable{{Level: 1, MinXP: 10}}
	require.Error(t, cfg.Validate())

	cfg = DefaultGamification()
	cfg.Levels = nil
	require.Error(t, cfg.Validate())
}
