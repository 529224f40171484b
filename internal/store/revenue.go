package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"viralops/manager-go/internal/utils"
)

// RevenueSource is a tracked income stream (adsense, sponsorship, affiliate).
type RevenueSource struct {
	SourceID       string
	SourceName     string
	SourceType     string
	MonthlyRevenue float64
	GrowthRate     float64
	ActiveSince    string
	LastUpdated    time.Time
}

func (s *Store) UpsertRevenueSource(ctx context.Context, src RevenueSource) error {
	utils.Debug("db upsert revenue source", "source_id", src.SourceID, "type", src.SourceType)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revenue_sources (source_id, source_name, source_type, monthly_revenue, growth_rate, active_since, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (source_id) DO UPDATE SET
			source_name = excluded.source_name,
			source_type = excluded.source_type,
			monthly_revenue = excluded.monthly_revenue,
			growth_rate = excluded.growth_rate,
			last_updated = CURRENT_TIMESTAMP
	`, src.SourceID, src.SourceName, src.SourceType, src.MonthlyRevenue, src.GrowthRate, src.ActiveSince)
	return err
}

func (s *Store) ListRevenueSources(ctx context.Context) ([]RevenueSource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, source_name, source_type, monthly_revenue, growth_rate, COALESCE(active_since, ''), last_updated
		FROM revenue_sources
		ORDER BY source_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []RevenueSource
	for rows.Next() {
		var src RevenueSource
		if err := rows.Scan(&src.SourceID, &src.SourceName, &src.SourceType, &src.MonthlyRevenue, &src.GrowthRate, &src.ActiveSince, &src.LastUpdated); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *Store) GetRevenueSource(ctx context.Context, sourceID string) (*RevenueSource, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT source_id, source_name, source_type, monthly_revenue, growth_rate, COALESCE(active_since, ''), last_updated
		FROM revenue_sources
		WHERE source_id = ?
	`, sourceID)
	var src RevenueSource
	err := row.Scan(&src.SourceID, &src.SourceName, &src.SourceType, &src.MonthlyRevenue, &src.GrowthRate, &src.ActiveSince, &src.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// DailyRevenue is one day's figures for one source. Date is YYYY-MM-DD.
type DailyRevenue struct {
	Date        string
	SourceID    string
	Revenue     float64
	Views       int
	Clicks      int
	Conversions int
}

func (s *Store) UpsertDailyRevenue(ctx context.Context, d DailyRevenue) error {
	utils.Debug("db upsert daily revenue", "date", d.Date, "source_id", d.SourceID, "revenue", d.Revenue)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revenue_daily (date, source_id, revenue, views, clicks, conversions)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (date, source_id) DO UPDATE SET
			revenue = excluded.revenue,
			views = excluded.views,
			clicks = excluded.clicks,
			conversions = excluded.conversions
	`, d.Date, d.SourceID, d.Revenue, d.Views, d.Clicks, d.Conversions)
	return err
}

// RevenueBySource sums daily revenue per source over a date range.
func (s *Store) RevenueBySource(ctx context.Context, fromDate, toDate string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, COALESCE(SUM(revenue), 0)
		FROM revenue_daily
		WHERE date BETWEEN ? AND ?
		GROUP BY source_id
	`, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[string]float64{}
	for rows.Next() {
		var sourceID string
		var total float64
		if err := rows.Scan(&sourceID, &total); err != nil {
			return nil, err
		}
		totals[sourceID] = total
	}
	return totals, rows.Err()
}

// ChannelMetrics is one day's channel-level stats.
type ChannelMetrics struct {
	ChannelID      string
	Date           string
	Subscribers    int
	Views          int
	WatchTimeHours float64
	CPM            float64
	RPM            float64
	EngagementRate float64
	VideoCount     int
}

func (s *Store) UpsertChannelMetrics(ctx context.Context, m ChannelMetrics) error {
	utils.Debug("db upsert channel metrics", "channel", m.ChannelID, "date", m.Date)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channel_metrics (channel_id, date, subscribers, views, watch_time_hours, cpm, rpm, engagement_rate, video_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (channel_id, date) DO UPDATE SET
			subscribers = excluded.subscribers,
			views = excluded.views,
			watch_time_hours = excluded.watch_time_hours,
			cpm = excluded.cpm,
			rpm = excluded.rpm,
			engagement_rate = excluded.engagement_rate,
			video_count = excluded.video_count
	`, m.ChannelID, m.Date, m.Subscribers, m.Views, m.WatchTimeHours, m.CPM, m.RPM, m.EngagementRate, m.VideoCount)
	return err
}

// LatestChannelMetrics returns the newest metrics row per channel.
func (s *Store) LatestChannelMetrics(ctx context.Context, channelID string) (*ChannelMetrics, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT channel_id, date, subscribers, views, watch_time_hours, cpm, rpm, engagement_rate, video_count
		FROM channel_metrics
		WHERE channel_id = ?
		ORDER BY date DESC
		LIMIT 1
	`, channelID)
	var m ChannelMetrics
	err := row.Scan(&m.ChannelID, &m.Date, &m.Subscribers, &m.Views, &m.WatchTimeHours, &m.CPM, &m.RPM, &m.EngagementRate, &m.VideoCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
