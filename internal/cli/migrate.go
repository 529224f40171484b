package cli

import (
	"context"
	"flag"

	"viralops/manager-go/internal/config"
	"viralops/manager-go/internal/store"
	"viralops/manager-go/internal/utils"
)

func runMigrate(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}
	utils.Info("migrations applied", "db", cfg.DBPath)
	return nil
}
