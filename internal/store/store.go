package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"viralops/manager-go/internal/utils"
)

// Store wraps the local SQLite database that tracks uploads, analytics,
// compliance results and revenue.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_loc=UTC", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent workers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	utils.Debug("sqlite opened", "path", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id TEXT UNIQUE,
		video_url TEXT,
		channel_id TEXT NOT NULL DEFAULT '',
		local_video_path TEXT NOT NULL,
		local_thumbnail_path TEXT,
		file_size_bytes INTEGER DEFAULT 0,
		duration_seconds REAL DEFAULT 0,
		title TEXT NOT NULL,
		description TEXT DEFAULT '',
		tags TEXT DEFAULT '[]',
		category_id TEXT DEFAULT '28',
		privacy_status TEXT DEFAULT 'public',
		scheduled_publish_time DATETIME,
		playlist_id TEXT,
		upload_status TEXT DEFAULT 'pending',
		upload_attempts INTEGER DEFAULT 0,
		last_attempt_time DATETIME,
		upload_start_time DATETIME,
		upload_complete_time DATETIME,
		upload_duration_seconds REAL DEFAULT 0,
		error_type TEXT,
		error_message TEXT,
		retry_after_seconds INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS upload_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		upload_id INTEGER NOT NULL,
		session_start DATETIME DEFAULT CURRENT_TIMESTAMP,
		session_end DATETIME,
		attempt_number INTEGER DEFAULT 0,
		session_status TEXT,
		error_type TEXT,
		error_details TEXT,
		retry_delay_seconds INTEGER DEFAULT 0,
		FOREIGN KEY (upload_id) REFERENCES uploads (id)
	)`,
	`CREATE TABLE IF NOT EXISTS video_analytics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id TEXT NOT NULL,
		channel_id TEXT NOT NULL DEFAULT '',
		views INTEGER DEFAULT 0,
		likes INTEGER DEFAULT 0,
		comments INTEGER DEFAULT 0,
		shares INTEGER DEFAULT 0,
		watch_time_minutes REAL DEFAULT 0,
		average_view_duration_seconds REAL DEFAULT 0,
		click_through_rate REAL DEFAULT 0,
		engagement_rate REAL DEFAULT 0,
		estimated_revenue REAL DEFAULT 0,
		metrics_date TEXT NOT NULL,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS compliance_results (
		content_id TEXT PRIMARY KEY,
		overall_score REAL DEFAULT 0,
		is_compliant BOOLEAN DEFAULT FALSE,
		violations TEXT DEFAULT '[]',
		warnings TEXT DEFAULT '[]',
		recommendations TEXT DEFAULT '[]',
		checked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		check_duration_seconds REAL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS revenue_sources (
		source_id TEXT PRIMARY KEY,
		source_name TEXT NOT NULL,
		source_type TEXT NOT NULL,
		monthly_revenue REAL DEFAULT 0,
		growth_rate REAL DEFAULT 0,
		active_since TEXT,
		last_updated DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS revenue_daily (
		date TEXT NOT NULL,
		source_id TEXT NOT NULL,
		revenue REAL DEFAULT 0,
		views INTEGER DEFAULT 0,
		clicks INTEGER DEFAULT 0,
		conversions INTEGER DEFAULT 0,
		PRIMARY KEY (date, source_id)
	)`,
	`CREATE TABLE IF NOT EXISTS channel_metrics (
		channel_id TEXT NOT NULL,
		date TEXT NOT NULL,
		subscribers INTEGER DEFAULT 0,
		views INTEGER DEFAULT 0,
		watch_time_hours REAL DEFAULT 0,
		cpm REAL DEFAULT 0,
		rpm REAL DEFAULT 0,
		engagement_rate REAL DEFAULT 0,
		video_count INTEGER DEFAULT 0,
		PRIMARY KEY (channel_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_uploads_video_id ON uploads (video_id)`,
	`CREATE INDEX IF NOT EXISTS idx_uploads_status ON uploads (upload_status)`,
	`CREATE INDEX IF NOT EXISTS idx_uploads_scheduled ON uploads (scheduled_publish_time)`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_video_id ON video_analytics (video_id)`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_date ON video_analytics (metrics_date)`,
}

// Migrate applies the schema. Every statement is idempotent so running it on
// every start is safe.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	utils.Info("database schema up to date")
	return nil
}
