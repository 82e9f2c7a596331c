package domain

import "time"

// GuildConfig holds the provisioned study channels for a guild
type GuildConfig struct {
	GuildID        string
	VoiceChannelID string
	CategoryID     string
}

// LeaderboardEntry is one row of a study-time leaderboard
type LeaderboardEntry struct {
	UserID       string
	TotalSeconds int64
}

// StudyStore defines the interface for durable study-time storage.
// Totals only ever grow; the single exception is ResetWeeklyData,
// which deletes one week's bucket for one guild.
type StudyStore interface {
	UpsertGuildConfig(guildID, voiceChannelID, categoryID string) error
	GetGuildConfig(guildID string) (*GuildConfig, error)

	CreateSessionRecord(guildID, voiceChannelID string, startedAt time.Time) (int64, error)
	CloseSessionRecord(recordID int64, endedAt time.Time, durationSeconds int64) error

	// AddStudySeconds credits both the all-time and the current
	// ISO-week totals. Seconds <= 0 are a no-op.
	AddStudySeconds(guildID, userID string, seconds int64, at time.Time) error
	GetTopUsers(guildID string, limit int) ([]LeaderboardEntry, error)
	GetWeeklyTopUsers(guildID string, weekStart time.Time, limit int) ([]LeaderboardEntry, error)
	ResetWeeklyData(guildID string, weekStart time.Time) (int64, error)
	GetUserSeconds(guildID, userID string) (int64, error)
}
