package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"viralops/manager-go/internal/utils"
)

const (
	UploadPending    = "pending"
	UploadProcessing = "processing"
	UploadCompleted  = "completed"
	UploadFailed     = "failed"
	UploadRetrying   = "retrying"
)

// Upload is one row in the uploads table: a scheduled video with its
// metadata, attempt history and outcome.
type Upload struct {
	ID                    int64
	VideoID               *string
	VideoURL              *string
	ChannelID             string
	LocalVideoPath        string
	LocalThumbnailPath    *string
	FileSizeBytes         int64
	DurationSeconds       float64
	Title                 string
	Description           string
	Tags                  []byte
	CategoryID            string
	PrivacyStatus         string
	ScheduledPublishTime  *time.Time
	PlaylistID            *string
	UploadStatus          string
	UploadAttempts        int
	LastAttemptTime       *time.Time
	UploadStartTime       *time.Time
	UploadCompleteTime    *time.Time
	UploadDurationSeconds float64
	ErrorType             *string
	ErrorMessage          *string
	RetryAfterSeconds     int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

const uploadColumns = `id, video_id, video_url, channel_id, local_video_path, local_thumbnail_path,
	file_size_bytes, duration_seconds, title, description, tags, category_id, privacy_status,
	scheduled_publish_time, playlist_id, upload_status, upload_attempts, last_attempt_time,
	upload_start_time, upload_complete_time, upload_duration_seconds,
	error_type, error_message, retry_after_seconds, created_at, updated_at`

func scanUpload(row interface{ Scan(...any) error }) (Upload, error) {
	var u Upload
	err := row.Scan(
		&u.ID,
		&u.VideoID,
		&u.VideoURL,
		&u.ChannelID,
		&u.LocalVideoPath,
		&u.LocalThumbnailPath,
		&u.FileSizeBytes,
		&u.DurationSeconds,
		&u.Title,
		&u.Description,
		&u.Tags,
		&u.CategoryID,
		&u.PrivacyStatus,
		&u.ScheduledPublishTime,
		&u.PlaylistID,
		&u.UploadStatus,
		&u.UploadAttempts,
		&u.LastAttemptTime,
		&u.UploadStartTime,
		&u.UploadCompleteTime,
		&u.UploadDurationSeconds,
		&u.ErrorType,
		&u.ErrorMessage,
		&u.RetryAfterSeconds,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (s *Store) CreateUpload(ctx context.Context, u Upload) (int64, error) {
	utils.Debug("db create upload", "title_len", len(u.Title), "channel", u.ChannelID)
	if u.CategoryID == "" {
		u.CategoryID = "28"
	}
	if u.PrivacyStatus == "" {
		u.PrivacyStatus = "public"
	}
	if len(u.Tags) == 0 {
		u.Tags = []byte("[]")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (
			channel_id, local_video_path, local_thumbnail_path, file_size_bytes, duration_seconds,
			title, description, tags, category_id, privacy_status,
			scheduled_publish_time, playlist_id, upload_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')
	`, u.ChannelID, u.LocalVideoPath, u.LocalThumbnailPath, u.FileSizeBytes, u.DurationSeconds,
		u.Title, u.Description, string(u.Tags), u.CategoryID, u.PrivacyStatus,
		u.ScheduledPublishTime, u.PlaylistID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetUpload(ctx context.Context, id int64) (Upload, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id)
	return scanUpload(row)
}

func (s *Store) GetUploadByVideoID(ctx context.Context, videoID string) (Upload, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE video_id = ?`, videoID)
	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Upload{}, nil
	}
	return u, err
}

// ListDueUploads returns uploads ready to process, oldest first: pending
// rows whose publish time (if any) has passed, and retrying rows whose
// recorded backoff delay has elapsed since the last attempt.
func (s *Store) ListDueUploads(ctx context.Context, limit int) ([]Upload, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+uploadColumns+`
		FROM uploads
		WHERE (upload_status = 'pending'
		   OR (upload_status = 'retrying'
		       AND (last_attempt_time IS NULL
		            OR datetime(last_attempt_time, '+' || retry_after_seconds || ' seconds') <= datetime('now'))))
		  AND (scheduled_publish_time IS NULL OR scheduled_publish_time <= ?)
		ORDER BY created_at
		LIMIT ?
	`, time.Now().UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

func (s *Store) MarkUploadStarted(ctx context.Context, id int64) error {
	utils.Debug("db upload started", "id", id)
	_, err := s.db.ExecContext(ctx, `
		UPDATE uploads
		SET upload_status = 'processing',
			upload_attempts = upload_attempts + 1,
			last_attempt_time = CURRENT_TIMESTAMP,
			upload_start_time = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id)
	return err
}

func (s *Store) MarkUploadCompleted(ctx context.Context, id int64, videoID, videoURL string, uploadDuration time.Duration) error {
	utils.Debug("db upload completed", "id", id, "video_id", videoID)
	_, err := s.db.ExecContext(ctx, `
		UPDATE uploads
		SET upload_status = 'completed',
			video_id = ?,
			video_url = ?,
			upload_complete_time = CURRENT_TIMESTAMP,
			upload_duration_seconds = ?,
			error_type = NULL,
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, videoID, videoURL, uploadDuration.Seconds(), id)
	return err
}

// MarkUploadFailed records a failed attempt. When willRetry is true the row
// stays live as retrying with the delay noted; otherwise it is terminal.
func (s *Store) MarkUploadFailed(ctx context.Context, id int64, errorType, errorMessage string, retryAfter time.Duration, willRetry bool) error {
	status := UploadFailed
	if willRetry {
		status = UploadRetrying
	}
	utils.Debug("db upload failed", "id", id, "status", status, "error_type", errorType)
	_, err := s.db.ExecContext(ctx, `
		UPDATE uploads
		SET upload_status = ?,
			error_type = ?,
			error_message = ?,
			retry_after_seconds = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, errorType, errorMessage, int(retryAfter.Seconds()), id)
	return err
}

// UploadSession is one attempt record for an upload.
type UploadSession struct {
	UploadID          int64
	AttemptNumber     int
	Status            string
	ErrorType         string
	ErrorDetails      string
	RetryDelaySeconds int
}

func (s *Store) RecordUploadSession(ctx context.Context, sess UploadSession) error {
	utils.Debug("db record upload session", "upload_id", sess.UploadID, "attempt", sess.AttemptNumber, "status", sess.Status)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO upload_sessions (upload_id, session_end, attempt_number, session_status, error_type, error_details, retry_delay_seconds)
		VALUES (?, CURRENT_TIMESTAMP, ?, ?, ?, ?, ?)
	`, sess.UploadID, sess.AttemptNumber, sess.Status, nullable(sess.ErrorType), nullable(sess.ErrorDetails), sess.RetryDelaySeconds)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// UploadStats aggregates the uploads table by status.
type UploadStats struct {
	ByStatus      map[string]int `json:"by_status"`
	Total         int            `json:"total"`
	TotalAttempts int            `json:"total_attempts"`
}

func (s *Store) UploadStatistics(ctx context.Context) (UploadStats, error) {
	stats := UploadStats{ByStatus: map[string]int{}}
	rows, err := s.db.QueryContext(ctx, `
		SELECT upload_status, COUNT(*), COALESCE(SUM(upload_attempts), 0)
		FROM uploads
		GROUP BY upload_status
	`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count, attempts int
		if err := rows.Scan(&status, &count, &attempts); err != nil {
			return stats, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
		stats.TotalAttempts += attempts
	}
	return stats, rows.Err()
}
