package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"viralops/manager-go/internal/config"
	"viralops/manager-go/internal/store"
	"viralops/manager-go/internal/tasks"
	"viralops/manager-go/internal/uploads"
	"viralops/manager-go/internal/utils"
)

func Run(args []string) int {
	// Support a global --verbose flag anywhere in the argv (before or after the command).
	// This is helpful because the stdlib flag parser stops at the first non-flag argument.
	args, globalVerbose := extractGlobalVerbose(args)
	utils.ConfigureLogging(globalVerbose)

	if len(args) < 2 {
		printUsage()
		return 1
	}
	if args[1] == "-h" || args[1] == "--help" || args[1] == "help" {
		printUsage()
		return 0
	}

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}
	utils.Debug("config loaded", "env", cfg.AppEnv, "hostname", cfg.Hostname, "queue", cfg.QueueBackend)

	cmd := args[1]
	cmdArgs := args[2:]

	var runErr error
	switch cmd {
	case "migrate":
		runErr = runMigrate(ctx, cfg, cmdArgs)
	case "worker":
		runErr = runWorker(ctx, cfg, cmdArgs)
	case "scale":
		runErr = runScale(ctx, cfg, cmdArgs)
	case "task:enqueue":
		runErr = runTaskEnqueue(ctx, cfg, cmdArgs)
	case "task:status":
		runErr = runTaskStatus(ctx, cfg, cmdArgs)
	case "queue:stats":
		runErr = runQueueStats(ctx, cfg, cmdArgs)
	case "upload:schedule":
		runErr = runUploadSchedule(ctx, cfg, cmdArgs)
	case "upload:process":
		runErr = runUploadProcess(ctx, cfg, cmdArgs)
	case "upload:batch":
		runErr = runUploadBatch(ctx, cfg, cmdArgs)
	case "upload:stats":
		runErr = runUploadStats(ctx, cfg, cmdArgs)
	case "channel:list":
		runErr = runChannelList(ctx, cfg, cmdArgs)
	case "channel:validate":
		runErr = runChannelValidate(ctx, cfg, cmdArgs)
	case "channel:template":
		runErr = runChannelTemplate(ctx, cfg, cmdArgs)
	case "policy:check":
		runErr = runPolicyCheck(ctx, cfg, cmdArgs)
	case "policy:stats":
		runErr = runPolicyStats(ctx, cfg, cmdArgs)
	case "analytics:record":
		runErr = runAnalyticsRecord(ctx, cfg, cmdArgs)
	case "analytics:summary":
		runErr = runAnalyticsSummary(ctx, cfg, cmdArgs)
	case "revenue:source":
		runErr = runRevenueSource(ctx, cfg, cmdArgs)
	case "revenue:record":
		runErr = runRevenueRecord(ctx, cfg, cmdArgs)
	case "revenue:report":
		runErr = runRevenueReport(ctx, cfg, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		return 1
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		return 1
	}

	return 0
}

func extractGlobalVerbose(args []string) ([]string, bool) {
	if len(args) == 0 {
		return args, false
	}
	verbose := false
	out := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case arg == "--verbose" || arg == "-verbose":
			verbose = true
			continue
		case strings.HasPrefix(arg, "--verbose="):
			raw := strings.TrimPrefix(arg, "--verbose=")
			if parsed, err := strconv.ParseBool(raw); err == nil {
				verbose = parsed
			}
			continue
		case strings.HasPrefix(arg, "-verbose="):
			raw := strings.TrimPrefix(arg, "-verbose=")
			if parsed, err := strconv.ParseBool(raw); err == nil {
				verbose = parsed
			}
			continue
		default:
			out = append(out, arg)
		}
	}
	return out, verbose
}

// openStore opens the SQLite database and ensures the schema exists.
func openStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// newBackend connects the configured queue backend.
func newBackend(ctx context.Context, cfg config.Config) (tasks.Backend, error) {
	switch cfg.QueueBackend {
	case "redis":
		return tasks.NewRedisBackend(ctx, tasks.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Consumer: cfg.Hostname,
		})
	case "amqp":
		return tasks.NewAMQPBackend(cfg.RabbitMQURL())
	default:
		return tasks.NewMemoryBackend(), nil
	}
}

// newUploader picks the external uploader command when configured, the Data
// API client otherwise.
func newUploader(cfg config.Config) (uploads.Uploader, error) {
	if cfg.YouTubeUploadCommand != "" {
		return uploads.NewCLIUploader(cfg.YouTubeUploadCommand)
	}
	return uploads.NewAPIUploader(uploads.APIConfig{
		ClientID:     cfg.YouTubeClientID,
		ClientSecret: cfg.YouTubeClientSecret,
		RefreshToken: cfg.YouTubeRefreshToken,
	})
}

func printUsage() {
	fmt.Println("Usage: manager <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  migrate")
	fmt.Println("  worker [--workers=N] [--lanes=urgent,high,medium,low] [--verbose]")
	fmt.Println("  scale [--throughput=N] [--strategy=balanced|performance|cost] [--cron=SPEC] [--verbose]")
	fmt.Println("  task:enqueue <name> [--lane=medium] [--retries=3] [--payload=JSON]")
	fmt.Println("  task:status <task_id>")
	fmt.Println("  queue:stats")
	fmt.Println("  upload:schedule --channel=ID --video=PATH --title=T [--description=D] [--tags=a,b] [--thumbnail=PATH] [--publish-at=RFC3339]")
	fmt.Println("  upload:process <upload_id> [--queue]")
	fmt.Println("  upload:batch [--limit=N]")
	fmt.Println("  upload:stats")
	fmt.Println("  channel:list [--platform=NAME]")
	fmt.Println("  channel:validate [channel_id]")
	fmt.Println("  channel:template <channel_id> [--platform=youtube] [--niche=general]")
	fmt.Println("  policy:check --title=T [--description=D] [--script-file=PATH] [--channel=ID]")
	fmt.Println("  policy:stats [--recent=N]")
	fmt.Println("  analytics:record --video=ID [--channel=ID] [--views=N] [--likes=N] ...")
	fmt.Println("  analytics:summary --channel=ID [--days=30] | --video=ID")
	fmt.Println("  revenue:source --name=N --type=adsense [--monthly=0]")
	fmt.Println("  revenue:record --source=ID --date=YYYY-MM-DD --amount=N [--views=N]")
	fmt.Println("  revenue:report [--days=30]")
}
