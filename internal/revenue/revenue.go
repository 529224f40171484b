// Package revenue tracks real income per source and channel. It records and
// aggregates actual figures; it does not project or estimate future revenue.
package revenue

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"viralops/manager-go/internal/store"
	"viralops/manager-go/internal/utils"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Tracker is the service layer over the revenue tables.
type Tracker struct {
	store *store.Store
}

func NewTracker(st *store.Store) *Tracker {
	return &Tracker{store: st}
}

// AddSource registers a new income stream and returns its generated id.
func (t *Tracker) AddSource(ctx context.Context, name, sourceType string, initialMonthly float64) (string, error) {
	if name == "" || sourceType == "" {
		return "", fmt.Errorf("source name and type are required")
	}
	sourceID := fmt.Sprintf("%s_%s", sourceType, uuid.NewString())
	err := t.store.UpsertRevenueSource(ctx, store.RevenueSource{
		SourceID:       sourceID,
		SourceName:     name,
		SourceType:     sourceType,
		MonthlyRevenue: initialMonthly,
		ActiveSince:    time.Now().UTC().Format("2006-01-02"),
	})
	if err != nil {
		return "", err
	}
	utils.Info("revenue source added", "source_id", sourceID, "type", sourceType)
	return sourceID, nil
}

// RecordDaily stores one day's figures for a source. The source must exist.
func (t *Tracker) RecordDaily(ctx context.Context, d store.DailyRevenue) error {
	if !dateRe.MatchString(d.Date) {
		return fmt.Errorf("date %q must be YYYY-MM-DD", d.Date)
	}
	if d.Revenue < 0 {
		return fmt.Errorf("revenue cannot be negative")
	}
	src, err := t.store.GetRevenueSource(ctx, d.SourceID)
	if err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("unknown revenue source %q", d.SourceID)
	}
	if err := t.store.UpsertDailyRevenue(ctx, d); err != nil {
		return err
	}
	utils.Info("daily revenue recorded", "source_id", d.SourceID, "date", d.Date, "revenue", fmt.Sprintf("%.2f", d.Revenue))
	return nil
}

// UpdateChannelMetrics stores a channel's daily stats.
func (t *Tracker) UpdateChannelMetrics(ctx context.Context, m store.ChannelMetrics) error {
	if !dateRe.MatchString(m.Date) {
		return fmt.Errorf("date %q must be YYYY-MM-DD", m.Date)
	}
	return t.store.UpsertChannelMetrics(ctx, m)
}

// Report aggregates recorded revenue over a trailing window. Growth compares
// against the window immediately before it; all numbers come from stored
// figures only.
type Report struct {
	PeriodStart   string             `json:"period_start"`
	PeriodEnd     string             `json:"period_end"`
	TotalRevenue  float64            `json:"total_revenue"`
	BySource      map[string]float64 `json:"by_source"`
	DailyAverage  float64            `json:"daily_average"`
	GrowthRatePct float64            `json:"growth_rate_pct"`
}

func (t *Tracker) Report(ctx context.Context, daysBack int) (Report, error) {
	if daysBack <= 0 {
		daysBack = 30
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -daysBack)
	prevStart := start.AddDate(0, 0, -daysBack)

	const layout = "2006-01-02"
	report := Report{
		PeriodStart: start.Format(layout),
		PeriodEnd:   end.Format(layout),
	}

	bySource, err := t.store.RevenueBySource(ctx, report.PeriodStart, report.PeriodEnd)
	if err != nil {
		return report, err
	}

	// Key the report by source name where possible.
	sources, err := t.store.ListRevenueSources(ctx)
	if err != nil {
		return report, err
	}
	names := make(map[string]string, len(sources))
	for _, src := range sources {
		names[src.SourceID] = src.SourceName
	}

	report.BySource = map[string]float64{}
	for sourceID, total := range bySource {
		name := names[sourceID]
		if name == "" {
			name = sourceID
		}
		report.BySource[name] += total
		report.TotalRevenue += total
	}
	report.DailyAverage = report.TotalRevenue / float64(daysBack)

	prev, err := t.store.RevenueBySource(ctx, prevStart.Format(layout), start.AddDate(0, 0, -1).Format(layout))
	if err != nil {
		return report, err
	}
	var prevTotal float64
	for _, total := range prev {
		prevTotal += total
	}
	if prevTotal > 0 {
		report.GrowthRatePct = (report.TotalRevenue - prevTotal) / prevTotal * 100
	}

	utils.Info("revenue report generated", "total", fmt.Sprintf("%.2f", report.TotalRevenue), "days", daysBack)
	return report, nil
}

// Sources lists all registered revenue sources.
func (t *Tracker) Sources(ctx context.Context) ([]store.RevenueSource, error) {
	return t.store.ListRevenueSources(ctx)
}
