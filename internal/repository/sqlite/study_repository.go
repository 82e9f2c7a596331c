package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/glebk/study-bot/internal/domain"
)

// weekKey is the storage format of a weekly bucket key. The caller is
// expected to pass instants produced by domain.WeekStartUTC.
const weekKey = "2006-01-02"

// StudyRepository implements domain.StudyStore using SQLite
type StudyRepository struct {
	db *Database
}

// NewStudyRepository creates a new StudyRepository
func NewStudyRepository(db *Database) *StudyRepository {
	return &StudyRepository{db: db}
}

// UpsertGuildConfig stores or replaces the provisioned channels for a guild
func (r *StudyRepository) UpsertGuildConfig(guildID, voiceChannelID, categoryID string) error {
	query := `
		INSERT INTO guild_config (guild_id, study_voice_channel_id, study_category_id)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			study_voice_channel_id = excluded.study_voice_channel_id,
			study_category_id = excluded.study_category_id
	`

	if _, err := r.db.GetDB().Exec(query, guildID, voiceChannelID, categoryID); err != nil {
		return fmt.Errorf("failed to upsert guild config: %w", err)
	}

	return nil
}

// GetGuildConfig retrieves the stored channel configuration, nil if absent
func (r *StudyRepository) GetGuildConfig(guildID string) (*domain.GuildConfig, error) {
	query := `
		SELECT study_voice_channel_id, study_category_id
		FROM guild_config
		WHERE guild_id = ?
	`

	cfg := &domain.GuildConfig{GuildID: guildID}
	var voiceChannelID, categoryID sql.NullString

	err := r.db.GetDB().QueryRow(query, guildID).Scan(&voiceChannelID, &categoryID)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild config: %w", err)
	}

	if voiceChannelID.Valid {
		cfg.VoiceChannelID = voiceChannelID.String
	}
	if categoryID.Valid {
		cfg.CategoryID = categoryID.String
	}

	return cfg, nil
}

// CreateSessionRecord opens a new session-history row and returns its ID
func (r *StudyRepository) CreateSessionRecord(guildID, voiceChannelID string, startedAt time.Time) (int64, error) {
	query := `
		INSERT INTO session_history (guild_id, voice_channel_id, started_at)
		VALUES (?, ?, ?)
	`

	result, err := r.db.GetDB().Exec(query, guildID, voiceChannelID, startedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to create session record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session record ID: %w", err)
	}

	return id, nil
}

// CloseSessionRecord fills in the end instant and duration of a session
func (r *StudyRepository) CloseSessionRecord(recordID int64, endedAt time.Time, durationSeconds int64) error {
	query := `
		UPDATE session_history
		SET ended_at = ?, duration_seconds = ?
		WHERE id = ?
	`

	if _, err := r.db.GetDB().Exec(query, endedAt.UTC(), durationSeconds, recordID); err != nil {
		return fmt.Errorf("failed to close session record: %w", err)
	}

	return nil
}

// AddStudySeconds credits seconds to the all-time and current-week totals
func (r *StudyRepository) AddStudySeconds(guildID, userID string, seconds int64, at time.Time) error {
	if seconds <= 0 {
		return nil
	}

	totalQuery := `
		INSERT INTO study_time (guild_id, user_id, total_seconds)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id, user_id)
		DO UPDATE SET total_seconds = total_seconds + excluded.total_seconds
	`

	if _, err := r.db.GetDB().Exec(totalQuery, guildID, userID, seconds); err != nil {
		return fmt.Errorf("failed to add study seconds: %w", err)
	}

	weeklyQuery := `
		INSERT INTO weekly_study_time (guild_id, user_id, week_start, total_seconds)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id, week_start)
		DO UPDATE SET total_seconds = total_seconds + excluded.total_seconds
	`

	weekStart := domain.WeekStartUTC(at).Format(weekKey)
	if _, err := r.db.GetDB().Exec(weeklyQuery, guildID, userID, weekStart, seconds); err != nil {
		return fmt.Errorf("failed to add weekly study seconds: %w", err)
	}

	return nil
}

// GetTopUsers returns the all-time leaderboard, highest totals first
func (r *StudyRepository) GetTopUsers(guildID string, limit int) ([]domain.LeaderboardEntry, error) {
	query := `
		SELECT user_id, total_seconds
		FROM study_time
		WHERE guild_id = ?
		ORDER BY total_seconds DESC
		LIMIT ?
	`

	rows, err := r.db.GetDB().Query(query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	return scanLeaderboard(rows)
}

// GetWeeklyTopUsers returns the leaderboard for one week bucket
func (r *StudyRepository) GetWeeklyTopUsers(guildID string, weekStart time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	query := `
		SELECT user_id, total_seconds
		FROM weekly_study_time
		WHERE guild_id = ? AND week_start = ?
		ORDER BY total_seconds DESC
		LIMIT ?
	`

	rows, err := r.db.GetDB().Query(query, guildID, weekStart.UTC().Format(weekKey), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly top users: %w", err)
	}
	defer rows.Close()

	return scanLeaderboard(rows)
}

// ResetWeeklyData deletes one week's bucket for a guild and reports how
// many rows were removed. Other weeks and the all-time totals are untouched.
func (r *StudyRepository) ResetWeeklyData(guildID string, weekStart time.Time) (int64, error) {
	query := `DELETE FROM weekly_study_time WHERE guild_id = ? AND week_start = ?`

	result, err := r.db.GetDB().Exec(query, guildID, weekStart.UTC().Format(weekKey))
	if err != nil {
		return 0, fmt.Errorf("failed to reset weekly data: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reset rows: %w", err)
	}

	return deleted, nil
}

// GetUserSeconds returns a user's all-time total, 0 if absent
func (r *StudyRepository) GetUserSeconds(guildID, userID string) (int64, error) {
	query := `SELECT total_seconds FROM study_time WHERE guild_id = ? AND user_id = ?`

	var total int64
	err := r.db.GetDB().QueryRow(query, guildID, userID).Scan(&total)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get user seconds: %w", err)
	}

	return total, nil
}

func scanLeaderboard(rows *sql.Rows) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry

	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.TotalSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard rows: %w", err)
	}

	return entries, nil
}
