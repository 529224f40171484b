package revenue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"viralops/manager-go/internal/store"
)

func newTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "revenue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewTracker(st), st
}

func TestAddSource(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	id, err := tr.AddSource(ctx, "AdSense", "adsense", 100)
	if err != nil {
		t.Fatalf("add source: %v", err)
	}
	if id == "" {
		t.Fatal("expected a source id")
	}

	sources, err := tr.Sources(ctx)
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(sources) != 1 || sources[0].SourceName != "AdSense" {
		t.Errorf("sources = %+v", sources)
	}

	if _, err := tr.AddSource(ctx, "", "adsense", 0); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestAddSourceIDsAreUnique(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	// Same type in quick succession must still yield distinct rows.
	a, err := tr.AddSource(ctx, "AdSense US", "adsense", 0)
	if err != nil {
		t.Fatalf("add first: %v", err)
	}
	b, err := tr.AddSource(ctx, "AdSense EU", "adsense", 0)
	if err != nil {
		t.Fatalf("add second: %v", err)
	}
	if a == b {
		t.Fatalf("source ids collide: %s", a)
	}

	sources, err := tr.Sources(ctx)
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(sources) != 2 {
		t.Errorf("sources = %d, want 2", len(sources))
	}
}

func TestRecordDailyValidation(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	id, _ := tr.AddSource(ctx, "AdSense", "adsense", 0)

	if err := tr.RecordDaily(ctx, store.DailyRevenue{Date: "23-08-2026", SourceID: id, Revenue: 1}); err == nil {
		t.Error("expected error for bad date format")
	}
	if err := tr.RecordDaily(ctx, store.DailyRevenue{Date: "2026-08-23", SourceID: id, Revenue: -1}); err == nil {
		t.Error("expected error for negative revenue")
	}
	if err := tr.RecordDaily(ctx, store.DailyRevenue{Date: "2026-08-23", SourceID: "ghost", Revenue: 1}); err == nil {
		t.Error("expected error for unknown source")
	}
	if err := tr.RecordDaily(ctx, store.DailyRevenue{Date: "2026-08-23", SourceID: id, Revenue: 4.2, Views: 1000}); err != nil {
		t.Errorf("valid record failed: %v", err)
	}
}

func TestReport(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	id, _ := tr.AddSource(ctx, "AdSense", "adsense", 0)

	today := time.Now().UTC()
	for i := 1; i <= 5; i++ {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		if err := tr.RecordDaily(ctx, store.DailyRevenue{Date: day, SourceID: id, Revenue: 2.0}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	// One entry in the previous window to exercise growth.
	prevDay := today.AddDate(0, 0, -35).Format("2006-01-02")
	if err := tr.RecordDaily(ctx, store.DailyRevenue{Date: prevDay, SourceID: id, Revenue: 5.0}); err != nil {
		t.Fatalf("record prev: %v", err)
	}

	report, err := tr.Report(ctx, 30)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.TotalRevenue != 10 {
		t.Errorf("total = %f, want 10", report.TotalRevenue)
	}
	if report.BySource["AdSense"] != 10 {
		t.Errorf("by source = %v", report.BySource)
	}
	if report.GrowthRatePct != 100 {
		t.Errorf("growth = %f, want 100 (10 vs 5)", report.GrowthRatePct)
	}
	if report.DailyAverage == 0 {
		t.Error("daily average should be set")
	}
}

func TestUpdateChannelMetrics(t *testing.T) {
	tr, st := newTracker(t)
	ctx := context.Background()

	if err := tr.UpdateChannelMetrics(ctx, store.ChannelMetrics{ChannelID: "c", Date: "bad"}); err == nil {
		t.Error("expected error for bad date")
	}
	err := tr.UpdateChannelMetrics(ctx, store.ChannelMetrics{
		ChannelID: "tech_daily", Date: "2026-08-23", Subscribers: 100, Views: 5000, RPM: 1.8,
	})
	if err != nil {
		t.Fatalf("update metrics: %v", err)
	}

	m, err := st.LatestChannelMetrics(ctx, "tech_daily")
	if err != nil || m == nil {
		t.Fatalf("latest: %v %v", m, err)
	}
	if m.RPM != 1.8 {
		t.Errorf("rpm = %f", m.RPM)
	}
}
