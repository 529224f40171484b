package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"viralops/manager-go/internal/config"
	"viralops/manager-go/internal/revenue"
	"viralops/manager-go/internal/store"
	"viralops/manager-go/internal/utils"
)

func runRevenueSource(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("revenue:source", flag.ContinueOnError)
	name := fs.String("name", "", "Source name")
	sourceType := fs.String("type", "adsense", "Source type")
	monthly := fs.Float64("monthly", 0, "Current monthly revenue")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := revenue.NewTracker(st).AddSource(ctx, *name, *sourceType, *monthly)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runRevenueRecord(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("revenue:record", flag.ContinueOnError)
	source := fs.String("source", "", "Source id")
	date := fs.String("date", time.Now().UTC().Format("2006-01-02"), "Date, YYYY-MM-DD")
	amount := fs.Float64("amount", 0, "Revenue for the day")
	views := fs.Int("views", 0, "Views for the day")
	clicks := fs.Int("clicks", 0, "Clicks for the day")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return revenue.NewTracker(st).RecordDaily(ctx, store.DailyRevenue{
		Date:     *date,
		SourceID: *source,
		Revenue:  *amount,
		Views:    *views,
		Clicks:   *clicks,
	})
}

func runRevenueReport(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("revenue:report", flag.ContinueOnError)
	days := fs.Int("days", 30, "Trailing window in days")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := revenue.NewTracker(st).Report(ctx, *days)
	if err != nil {
		return err
	}
	printJSON(report)
	return nil
}
