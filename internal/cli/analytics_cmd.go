package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"viralops/manager-go/internal/analytics"
	"viralops/manager-go/internal/config"
	"viralops/manager-go/internal/utils"
)

func runAnalyticsRecord(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("analytics:record", flag.ContinueOnError)
	video := fs.String("video", "", "Video id (required)")
	channel := fs.String("channel", "", "Channel id")
	date := fs.String("date", "", "Metrics date YYYY-MM-DD, default today")
	views := fs.Int("views", 0, "View count")
	likes := fs.Int("likes", 0, "Like count")
	comments := fs.Int("comments", 0, "Comment count")
	shares := fs.Int("shares", 0, "Share count")
	watchMinutes := fs.Float64("watch-minutes", 0, "Total watch time in minutes")
	avgDuration := fs.Float64("avg-duration", 0, "Average view duration in seconds")
	ctr := fs.Float64("ctr", 0, "Click-through rate")
	revenue := fs.Float64("revenue", 0, "Estimated revenue")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	if *video == "" {
		return fmt.Errorf("--video is required")
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats := analytics.Stats{
		Views:                      *views,
		Likes:                      *likes,
		Comments:                   *comments,
		Shares:                     *shares,
		WatchTimeMinutes:           *watchMinutes,
		AverageViewDurationSeconds: *avgDuration,
		ClickThroughRate:           *ctr,
		EstimatedRevenue:           *revenue,
	}
	collector := analytics.NewCollector(st)
	if err := collector.Record(ctx, *video, *channel, *date, stats); err != nil {
		return err
	}
	fmt.Printf("recorded %s engagement=%.4f\n", *video, stats.EngagementRate())
	return nil
}

func runAnalyticsSummary(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("analytics:summary", flag.ContinueOnError)
	channel := fs.String("channel", "", "Channel id to summarize")
	video := fs.String("video", "", "Video id; prints its latest snapshot instead")
	days := fs.Int("days", 30, "Trailing window for the channel summary")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	if *channel == "" && *video == "" {
		return fmt.Errorf("provide --channel or --video")
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	collector := analytics.NewCollector(st)

	if *video != "" {
		latest, err := collector.Latest(ctx, *video)
		if err != nil {
			return err
		}
		if latest == nil {
			return fmt.Errorf("no snapshots recorded for video %s", *video)
		}
		printJSON(latest)
		return nil
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -*days).Format("2006-01-02")
	to := now.Format("2006-01-02")
	summary, err := collector.ChannelSummary(ctx, *channel, from, to)
	if err != nil {
		return err
	}
	printJSON(summary)
	return nil
}
