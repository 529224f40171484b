package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUploadLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateUpload(ctx, Upload{
		ChannelID:      "tech_daily",
		LocalVideoPath: "/videos/ep1.mp4",
		Title:          "Episode 1",
		Description:    "first",
		Tags:           []byte(`["tech","go"]`),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := s.GetUpload(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.UploadStatus != UploadPending {
		t.Errorf("status = %s, want pending", u.UploadStatus)
	}
	if u.CategoryID != "28" || u.PrivacyStatus != "public" {
		t.Errorf("defaults not applied: category=%s privacy=%s", u.CategoryID, u.PrivacyStatus)
	}

	if err := s.MarkUploadStarted(ctx, id); err != nil {
		t.Fatalf("mark started: %v", err)
	}
	u, _ = s.GetUpload(ctx, id)
	if u.UploadStatus != UploadProcessing || u.UploadAttempts != 1 {
		t.Errorf("after start: status=%s attempts=%d", u.UploadStatus, u.UploadAttempts)
	}

	if err := s.MarkUploadCompleted(ctx, id, "abc123", "https://www.youtube.com/watch?v=abc123", 42*time.Second); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	u, _ = s.GetUpload(ctx, id)
	if u.UploadStatus != UploadCompleted {
		t.Errorf("status = %s, want completed", u.UploadStatus)
	}
	if u.VideoID == nil || *u.VideoID != "abc123" {
		t.Errorf("video id = %v", u.VideoID)
	}
	if u.UploadDurationSeconds != 42 {
		t.Errorf("upload duration = %f", u.UploadDurationSeconds)
	}

	byVideo, err := s.GetUploadByVideoID(ctx, "abc123")
	if err != nil {
		t.Fatalf("get by video id: %v", err)
	}
	if byVideo.ID != id {
		t.Errorf("lookup by video id returned row %d, want %d", byVideo.ID, id)
	}
}

func TestMarkUploadFailedRetrying(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.CreateUpload(ctx, Upload{ChannelID: "c", LocalVideoPath: "/v.mp4", Title: "t"})
	if err := s.MarkUploadFailed(ctx, id, "rate_limited", "429", 5*time.Minute, true); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	u, _ := s.GetUpload(ctx, id)
	if u.UploadStatus != UploadRetrying {
		t.Errorf("status = %s, want retrying", u.UploadStatus)
	}
	if u.RetryAfterSeconds != 300 {
		t.Errorf("retry after = %d, want 300", u.RetryAfterSeconds)
	}

	if err := s.MarkUploadFailed(ctx, id, "authentication_failed", "401", 0, false); err != nil {
		t.Fatalf("mark terminal: %v", err)
	}
	u, _ = s.GetUpload(ctx, id)
	if u.UploadStatus != UploadFailed {
		t.Errorf("status = %s, want failed", u.UploadStatus)
	}
}

func TestListDueUploads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dueNow, _ := s.CreateUpload(ctx, Upload{ChannelID: "c", LocalVideoPath: "/a.mp4", Title: "due"})
	future := time.Now().UTC().Add(time.Hour)
	_, _ = s.CreateUpload(ctx, Upload{ChannelID: "c", LocalVideoPath: "/b.mp4", Title: "later", ScheduledPublishTime: &future})
	doneID, _ := s.CreateUpload(ctx, Upload{ChannelID: "c", LocalVideoPath: "/c.mp4", Title: "done"})
	_ = s.MarkUploadCompleted(ctx, doneID, "x1", "url", time.Second)

	due, err := s.ListDueUploads(ctx, 10)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due = %d, want 1", len(due))
	}
	if due[0].ID != dueNow {
		t.Errorf("due row = %d, want %d", due[0].ID, dueNow)
	}
}

func TestListDueUploadsHonorsRetryDelay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	backedOff, _ := s.CreateUpload(ctx, Upload{ChannelID: "c", LocalVideoPath: "/a.mp4", Title: "quota"})
	_ = s.MarkUploadStarted(ctx, backedOff)
	if err := s.MarkUploadFailed(ctx, backedOff, "quota_exceeded", "403", time.Hour, true); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	ready, _ := s.CreateUpload(ctx, Upload{ChannelID: "c", LocalVideoPath: "/b.mp4", Title: "net"})
	_ = s.MarkUploadStarted(ctx, ready)
	if err := s.MarkUploadFailed(ctx, ready, "network_error", "reset", 0, true); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	due, err := s.ListDueUploads(ctx, 10)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due = %d, want 1 (hour-long backoff still pending)", len(due))
	}
	if due[0].ID != ready {
		t.Errorf("due row = %d, want %d", due[0].ID, ready)
	}
}

func TestUploadStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateUpload(ctx, Upload{ChannelID: "c", LocalVideoPath: "/a.mp4", Title: "a"})
	_, _ = s.CreateUpload(ctx, Upload{ChannelID: "c", LocalVideoPath: "/b.mp4", Title: "b"})
	_ = s.MarkUploadStarted(ctx, a)
	_ = s.MarkUploadCompleted(ctx, a, "v1", "url", time.Second)

	stats, err := s.UploadStatistics(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
	if stats.ByStatus[UploadCompleted] != 1 || stats.ByStatus[UploadPending] != 1 {
		t.Errorf("by status = %v", stats.ByStatus)
	}
	if stats.TotalAttempts != 1 {
		t.Errorf("attempts = %d, want 1", stats.TotalAttempts)
	}
}

func TestUploadSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.CreateUpload(ctx, Upload{ChannelID: "c", LocalVideoPath: "/a.mp4", Title: "a"})
	err := s.RecordUploadSession(ctx, UploadSession{
		UploadID:          id,
		AttemptNumber:     1,
		Status:            "failed",
		ErrorType:         "network_error",
		ErrorDetails:      "connection reset",
		RetryDelaySeconds: 60,
	})
	if err != nil {
		t.Fatalf("record session: %v", err)
	}
}

func TestVideoAnalytics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if latest, err := s.LatestVideoAnalytics(ctx, "none"); err != nil || latest != nil {
		t.Fatalf("expected nil for unknown video, got %v err %v", latest, err)
	}

	err := s.InsertVideoAnalytics(ctx, VideoAnalytics{
		VideoID:          "v1",
		ChannelID:        "tech_daily",
		Views:            1000,
		Likes:            50,
		Comments:         10,
		EngagementRate:   0.06,
		EstimatedRevenue: 4.2,
		MetricsDate:      "2026-08-23",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	latest, err := s.LatestVideoAnalytics(ctx, "v1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Views != 1000 {
		t.Fatalf("latest = %+v", latest)
	}

	summary, err := s.ChannelAnalytics(ctx, "tech_daily", "2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("channel analytics: %v", err)
	}
	if summary.Videos != 1 || summary.TotalViews != 1000 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestComplianceResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if r, err := s.GetComplianceResult(ctx, "missing"); err != nil || r != nil {
		t.Fatalf("expected nil for unknown content, got %v err %v", r, err)
	}

	err := s.SaveComplianceResult(ctx, ComplianceResult{
		ContentID:    "content-1",
		OverallScore: 85,
		IsCompliant:  true,
		Warnings:     []string{"borderline title"},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	r, err := s.GetComplianceResult(ctx, "content-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !r.IsCompliant || r.OverallScore != 85 {
		t.Errorf("result = %+v", r)
	}
	if len(r.Warnings) != 1 || len(r.Violations) != 0 {
		t.Errorf("lists = warnings %v violations %v", r.Warnings, r.Violations)
	}

	// Upsert replaces the previous result.
	err = s.SaveComplianceResult(ctx, ComplianceResult{
		ContentID:    "content-1",
		OverallScore: 40,
		IsCompliant:  false,
		Violations:   []string{"copyright match"},
	})
	if err != nil {
		t.Fatalf("save again: %v", err)
	}
	r, _ = s.GetComplianceResult(ctx, "content-1")
	if r.IsCompliant || r.OverallScore != 40 {
		t.Errorf("updated result = %+v", r)
	}

	err = s.SaveComplianceResult(ctx, ComplianceResult{
		ContentID:    "content-2",
		OverallScore: 90,
		IsCompliant:  true,
	})
	if err != nil {
		t.Fatalf("save second: %v", err)
	}

	results, err := s.ListComplianceResults(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("listed %d results, want 2", len(results))
	}

	stats, err := s.ComplianceStatistics(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 || stats.Passed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.AverageScore != 65 {
		t.Errorf("average = %f, want 65", stats.AverageScore)
	}
}

func TestRevenueTables(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpsertRevenueSource(ctx, RevenueSource{
		SourceID:       "adsense_1",
		SourceName:     "AdSense",
		SourceType:     "adsense",
		MonthlyRevenue: 120.5,
		GrowthRate:     0.1,
		ActiveSince:    "2026-01-01",
	})
	if err != nil {
		t.Fatalf("upsert source: %v", err)
	}

	sources, err := s.ListRevenueSources(ctx)
	if err != nil {
		t.Fatalf("list sources: %v", err)
	}
	if len(sources) != 1 || sources[0].SourceName != "AdSense" {
		t.Fatalf("sources = %+v", sources)
	}

	for day, rev := range map[string]float64{"2026-08-21": 3.5, "2026-08-22": 4.5} {
		if err := s.UpsertDailyRevenue(ctx, DailyRevenue{Date: day, SourceID: "adsense_1", Revenue: rev, Views: 1000}); err != nil {
			t.Fatalf("upsert daily: %v", err)
		}
	}
	// Same day twice replaces, not doubles.
	if err := s.UpsertDailyRevenue(ctx, DailyRevenue{Date: "2026-08-22", SourceID: "adsense_1", Revenue: 5.0, Views: 1200}); err != nil {
		t.Fatalf("upsert daily again: %v", err)
	}

	totals, err := s.RevenueBySource(ctx, "2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("revenue by source: %v", err)
	}
	if totals["adsense_1"] != 8.5 {
		t.Errorf("total = %f, want 8.5", totals["adsense_1"])
	}
}

func TestChannelMetrics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if m, err := s.LatestChannelMetrics(ctx, "nope"); err != nil || m != nil {
		t.Fatalf("expected nil for unknown channel, got %v err %v", m, err)
	}

	for _, date := range []string{"2026-08-21", "2026-08-22"} {
		err := s.UpsertChannelMetrics(ctx, ChannelMetrics{
			ChannelID:   "tech_daily",
			Date:        date,
			Subscribers: 500,
			Views:       10000,
			RPM:         2.1,
		})
		if err != nil {
			t.Fatalf("upsert metrics: %v", err)
		}
	}

	m, err := s.LatestChannelMetrics(ctx, "tech_daily")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if m.Date != "2026-08-22" {
		t.Errorf("latest date = %s, want 2026-08-22", m.Date)
	}
}
