package uploads

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"viralops/manager-go/internal/store"
	"viralops/manager-go/internal/tasks"
	"viralops/manager-go/internal/utils"
)

const defaultMaxAttempts = 3

// Manager schedules uploads into the database and drives them through the
// configured Uploader, with attempts and failures classified for retry.
type Manager struct {
	store       *store.Store
	uploader    Uploader
	maxAttempts int
}

func NewManager(st *store.Store, uploader Uploader, maxAttempts int) *Manager {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Manager{store: st, uploader: uploader, maxAttempts: maxAttempts}
}

// ScheduleRequest describes a video to be queued for upload.
type ScheduleRequest struct {
	ChannelID     string     `json:"channel_id"`
	VideoPath     string     `json:"video_path"`
	ThumbnailPath string     `json:"thumbnail_path,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	CategoryID    string     `json:"category_id,omitempty"`
	PrivacyStatus string     `json:"privacy_status,omitempty"`
	PublishAt     *time.Time `json:"publish_at,omitempty"`
	PlaylistID    string     `json:"playlist_id,omitempty"`
}

// Schedule records the upload. Nothing is sent to the platform until a
// worker processes the row.
func (m *Manager) Schedule(ctx context.Context, req ScheduleRequest) (int64, error) {
	if req.VideoPath == "" {
		return 0, fmt.Errorf("video path is required")
	}
	if req.Title == "" {
		return 0, fmt.Errorf("title is required")
	}

	var fileSize int64
	if fi, err := os.Stat(req.VideoPath); err == nil {
		fileSize = fi.Size()
	} else {
		utils.Warn("video file not accessible at schedule time", "path", req.VideoPath, "err", err)
	}

	tags, err := json.Marshal(req.Tags)
	if err != nil {
		return 0, err
	}

	upload := store.Upload{
		ChannelID:            req.ChannelID,
		LocalVideoPath:       req.VideoPath,
		FileSizeBytes:        fileSize,
		Title:                req.Title,
		Description:          req.Description,
		Tags:                 tags,
		CategoryID:           req.CategoryID,
		PrivacyStatus:        req.PrivacyStatus,
		ScheduledPublishTime: req.PublishAt,
	}
	if req.ThumbnailPath != "" {
		upload.LocalThumbnailPath = &req.ThumbnailPath
	}
	if req.PlaylistID != "" {
		upload.PlaylistID = &req.PlaylistID
	}

	id, err := m.store.CreateUpload(ctx, upload)
	if err != nil {
		return 0, err
	}
	utils.Info("upload scheduled", "upload_id", id, "channel", req.ChannelID, "title_len", len(req.Title))
	return id, nil
}

// Process runs one upload attempt for a stored row. Failures are classified
// and recorded; the returned error carries the original failure so callers
// can retry through the task queue.
func (m *Manager) Process(ctx context.Context, uploadID int64) error {
	u, err := m.store.GetUpload(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("load upload %d: %w", uploadID, err)
	}
	if u.UploadStatus == store.UploadCompleted {
		utils.Debug("upload already completed", "upload_id", uploadID)
		return nil
	}

	if err := m.store.MarkUploadStarted(ctx, uploadID); err != nil {
		return err
	}
	attempt := u.UploadAttempts + 1

	var tags []string
	if len(u.Tags) > 0 {
		if err := json.Unmarshal(u.Tags, &tags); err != nil {
			utils.Warn("unparseable tags on upload", "upload_id", uploadID, "err", err)
		}
	}
	req := Request{
		VideoPath:     u.LocalVideoPath,
		Title:         u.Title,
		Description:   u.Description,
		Tags:          tags,
		CategoryID:    u.CategoryID,
		PrivacyStatus: u.PrivacyStatus,
		PublishAt:     u.ScheduledPublishTime,
	}
	if u.LocalThumbnailPath != nil {
		req.ThumbnailPath = *u.LocalThumbnailPath
	}

	start := time.Now()
	outcome, uploadErr := m.uploader.Upload(ctx, req)
	elapsed := time.Since(start)

	if uploadErr == nil {
		if err := m.store.MarkUploadCompleted(ctx, uploadID, outcome.VideoID, outcome.VideoURL, elapsed); err != nil {
			// The platform accepted the video but the row update failed.
			// Park the row as terminal so batches never upload it twice.
			class := tasks.Classify(err.Error())
			if ferr := m.store.MarkUploadFailed(ctx, uploadID, string(class), err.Error(), 0, false); ferr != nil {
				utils.Error("record completion failure", "upload_id", uploadID, "err", ferr)
			}
			_ = m.store.RecordUploadSession(ctx, store.UploadSession{
				UploadID:      uploadID,
				AttemptNumber: attempt,
				Status:        "failed",
				ErrorType:     string(class),
				ErrorDetails:  err.Error(),
			})
			return fmt.Errorf("record upload %d completion: %w", uploadID, err)
		}
		_ = m.store.RecordUploadSession(ctx, store.UploadSession{
			UploadID:      uploadID,
			AttemptNumber: attempt,
			Status:        "completed",
		})
		utils.Info("upload completed", "upload_id", uploadID, "video_id", outcome.VideoID, "took", elapsed.Round(time.Second))
		return nil
	}

	class := tasks.Classify(uploadErr.Error())
	delay := tasks.Backoff(class, attempt-1)
	willRetry := tasks.Retryable(class) && attempt < m.maxAttempts

	if err := m.store.MarkUploadFailed(ctx, uploadID, string(class), uploadErr.Error(), delay, willRetry); err != nil {
		utils.Error("record upload failure", "upload_id", uploadID, "err", err)
	}
	_ = m.store.RecordUploadSession(ctx, store.UploadSession{
		UploadID:          uploadID,
		AttemptNumber:     attempt,
		Status:            "failed",
		ErrorType:         string(class),
		ErrorDetails:      uploadErr.Error(),
		RetryDelaySeconds: int(delay.Seconds()),
	})
	utils.Error("upload attempt failed", "upload_id", uploadID, "attempt", attempt, "class", class, "will_retry", willRetry, "err", uploadErr)
	return fmt.Errorf("upload %d attempt %d: %w", uploadID, attempt, uploadErr)
}

// ProcessDue runs every upload that is ready (pending or retrying with its
// publish time reached). It keeps going past individual failures.
func (m *Manager) ProcessDue(ctx context.Context, limit int) (processed, failed int, err error) {
	due, err := m.store.ListDueUploads(ctx, limit)
	if err != nil {
		return 0, 0, err
	}
	for _, u := range due {
		if err := m.Process(ctx, u.ID); err != nil {
			failed++
			continue
		}
		processed++
	}
	utils.Info("batch processed", "ok", processed, "failed", failed, "due", len(due))
	return processed, failed, nil
}

// Statistics reports upload counts by status.
func (m *Manager) Statistics(ctx context.Context) (store.UploadStats, error) {
	return m.store.UploadStatistics(ctx)
}
