package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Database wraps the SQL database connection
type Database struct {
	db *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	database := &Database{db: db}

	if err := database.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// GetDB returns the underlying database connection
func (d *Database) GetDB() *sql.DB {
	return d.db
}

// initSchema creates the database tables
func (d *Database) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS study_time (
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		total_seconds INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (guild_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS weekly_study_time (
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		week_start TEXT NOT NULL,
		total_seconds INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (guild_id, user_id, week_start)
	);

	CREATE TABLE IF NOT EXISTS session_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		voice_channel_id TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		duration_seconds INTEGER
	);

	CREATE TABLE IF NOT EXISTS guild_config (
		guild_id TEXT PRIMARY KEY,
		study_voice_channel_id TEXT,
		study_category_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_study_time_guild ON study_time(guild_id, total_seconds);
	CREATE INDEX IF NOT EXISTS idx_weekly_study_time_guild_week ON weekly_study_time(guild_id, week_start);
	CREATE INDEX IF NOT EXISTS idx_session_history_guild ON session_history(guild_id);
	`

	_, err := d.db.Exec(schema)
	return err
}
