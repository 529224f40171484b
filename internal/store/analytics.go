package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"viralops/manager-go/internal/utils"
)

// VideoAnalytics is one daily metrics snapshot for a published video.
type VideoAnalytics struct {
	ID                         int64
	VideoID                    string
	ChannelID                  string
	Views                      int
	Likes                      int
	Comments                   int
	Shares                     int
	WatchTimeMinutes           float64
	AverageViewDurationSeconds float64
	ClickThroughRate           float64
	EngagementRate             float64
	EstimatedRevenue           float64
	MetricsDate                string
	RecordedAt                 time.Time
}

func (s *Store) InsertVideoAnalytics(ctx context.Context, a VideoAnalytics) error {
	utils.Debug("db insert video analytics", "video_id", a.VideoID, "date", a.MetricsDate)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_analytics (
			video_id, channel_id, views, likes, comments, shares,
			watch_time_minutes, average_view_duration_seconds, click_through_rate,
			engagement_rate, estimated_revenue, metrics_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.VideoID, a.ChannelID, a.Views, a.Likes, a.Comments, a.Shares,
		a.WatchTimeMinutes, a.AverageViewDurationSeconds, a.ClickThroughRate,
		a.EngagementRate, a.EstimatedRevenue, a.MetricsDate)
	return err
}

// LatestVideoAnalytics returns the newest snapshot for a video, or nil when
// none has been recorded.
func (s *Store) LatestVideoAnalytics(ctx context.Context, videoID string) (*VideoAnalytics, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, video_id, channel_id, views, likes, comments, shares,
			watch_time_minutes, average_view_duration_seconds, click_through_rate,
			engagement_rate, estimated_revenue, metrics_date, recorded_at
		FROM video_analytics
		WHERE video_id = ?
		ORDER BY recorded_at DESC
		LIMIT 1
	`, videoID)

	var a VideoAnalytics
	err := row.Scan(
		&a.ID, &a.VideoID, &a.ChannelID, &a.Views, &a.Likes, &a.Comments, &a.Shares,
		&a.WatchTimeMinutes, &a.AverageViewDurationSeconds, &a.ClickThroughRate,
		&a.EngagementRate, &a.EstimatedRevenue, &a.MetricsDate, &a.RecordedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ChannelAnalyticsSummary aggregates a channel's snapshots over a date range.
type ChannelAnalyticsSummary struct {
	ChannelID        string  `json:"channel_id"`
	Videos           int     `json:"videos"`
	TotalViews       int     `json:"total_views"`
	TotalWatchTime   float64 `json:"total_watch_time_minutes"`
	AvgEngagement    float64 `json:"avg_engagement_rate"`
	EstimatedRevenue float64 `json:"estimated_revenue"`
}

func (s *Store) ChannelAnalytics(ctx context.Context, channelID, fromDate, toDate string) (ChannelAnalyticsSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT video_id), COALESCE(SUM(views), 0), COALESCE(SUM(watch_time_minutes), 0),
			COALESCE(AVG(engagement_rate), 0), COALESCE(SUM(estimated_revenue), 0)
		FROM video_analytics
		WHERE channel_id = ? AND metrics_date BETWEEN ? AND ?
	`, channelID, fromDate, toDate)

	summary := ChannelAnalyticsSummary{ChannelID: channelID}
	err := row.Scan(&summary.Videos, &summary.TotalViews, &summary.TotalWatchTime, &summary.AvgEngagement, &summary.EstimatedRevenue)
	return summary, err
}
