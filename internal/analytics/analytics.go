// Package analytics records per-video performance snapshots and aggregates
// them per channel.
package analytics

import (
	"context"
	"fmt"
	"time"

	"viralops/manager-go/internal/store"
	"viralops/manager-go/internal/utils"
)

// Stats is a raw metrics snapshot for one video.
type Stats struct {
	Views                      int     `json:"views"`
	Likes                      int     `json:"likes"`
	Comments                   int     `json:"comments"`
	Shares                     int     `json:"shares"`
	WatchTimeMinutes           float64 `json:"watch_time_minutes"`
	AverageViewDurationSeconds float64 `json:"average_view_duration_seconds"`
	ClickThroughRate           float64 `json:"click_through_rate"`
	EstimatedRevenue           float64 `json:"estimated_revenue"`
}

// EngagementRate is likes plus comments over views.
func (s Stats) EngagementRate() float64 {
	if s.Views == 0 {
		return 0
	}
	return float64(s.Likes+s.Comments) / float64(s.Views)
}

// Fetcher pulls current stats for a video from the platform. Implementations
// wrap the analytics API; tests use a stub.
type Fetcher interface {
	FetchVideoStats(ctx context.Context, videoID string) (Stats, error)
}

// Collector persists fetched stats.
type Collector struct {
	store *store.Store
}

func NewCollector(st *store.Store) *Collector {
	return &Collector{store: st}
}

// Record stores one snapshot for a video on a given date.
func (c *Collector) Record(ctx context.Context, videoID, channelID, date string, stats Stats) error {
	if videoID == "" {
		return fmt.Errorf("video id is required")
	}
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	err := c.store.InsertVideoAnalytics(ctx, store.VideoAnalytics{
		VideoID:                    videoID,
		ChannelID:                  channelID,
		Views:                      stats.Views,
		Likes:                      stats.Likes,
		Comments:                   stats.Comments,
		Shares:                     stats.Shares,
		WatchTimeMinutes:           stats.WatchTimeMinutes,
		AverageViewDurationSeconds: stats.AverageViewDurationSeconds,
		ClickThroughRate:           stats.ClickThroughRate,
		EngagementRate:             stats.EngagementRate(),
		EstimatedRevenue:           stats.EstimatedRevenue,
		MetricsDate:                date,
	})
	if err != nil {
		return err
	}
	utils.Debug("video stats recorded", "video_id", videoID, "views", stats.Views)
	return nil
}

// Collect fetches and stores stats for each video, continuing past
// individual failures. It returns the number recorded.
func (c *Collector) Collect(ctx context.Context, fetcher Fetcher, channelID string, videoIDs []string) (int, error) {
	date := time.Now().UTC().Format("2006-01-02")
	recorded := 0
	for _, videoID := range videoIDs {
		stats, err := fetcher.FetchVideoStats(ctx, videoID)
		if err != nil {
			utils.Warn("stats fetch failed", "video_id", videoID, "err", err)
			continue
		}
		if err := c.Record(ctx, videoID, channelID, date, stats); err != nil {
			utils.Warn("stats record failed", "video_id", videoID, "err", err)
			continue
		}
		recorded++
	}
	utils.Info("analytics collected", "channel", channelID, "recorded", recorded, "requested", len(videoIDs))
	return recorded, nil
}

// Latest returns the newest snapshot for a video.
func (c *Collector) Latest(ctx context.Context, videoID string) (*store.VideoAnalytics, error) {
	return c.store.LatestVideoAnalytics(ctx, videoID)
}

// ChannelSummary aggregates a channel's snapshots over a date range.
func (c *Collector) ChannelSummary(ctx context.Context, channelID, fromDate, toDate string) (store.ChannelAnalyticsSummary, error) {
	return c.store.ChannelAnalytics(ctx, channelID, fromDate, toDate)
}
