package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"viralops/manager-go/internal/config"
	"viralops/manager-go/internal/tasks"
	"viralops/manager-go/internal/utils"
)

func runTaskEnqueue(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("task:enqueue", flag.ContinueOnError)
	lane := fs.String("lane", tasks.LaneMedium, "Priority lane: urgent, high, medium or low")
	retries := fs.Int("retries", 3, "Maximum retry attempts")
	timeout := fs.Int("timeout", 0, "Task timeout in seconds (0 for default)")
	payload := fs.String("payload", "", "JSON payload")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("usage: task:enqueue <name> [--lane=] [--retries=] [--payload=]")
	}
	name := fs.Args()[0]

	var raw json.RawMessage
	if *payload != "" {
		if !json.Valid([]byte(*payload)) {
			return fmt.Errorf("payload is not valid JSON")
		}
		raw = json.RawMessage(*payload)
	}

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	taskMgr := tasks.NewManager(backend, cfg.Hostname)
	id, err := taskMgr.Enqueue(ctx, name, raw, tasks.Options{
		Lane:       *lane,
		MaxRetries: *retries,
		Timeout:    time.Duration(*timeout) * time.Second,
	})
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runTaskStatus(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("task:status", flag.ContinueOnError)
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("usage: task:status <task_id>")
	}
	taskID := fs.Args()[0]

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	taskMgr := tasks.NewManager(backend, cfg.Hostname)
	result, err := taskMgr.Result(ctx, taskID)
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("no result for task %s", taskID)
	}
	printJSON(result)
	return nil
}

func runQueueStats(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("queue:stats", flag.ContinueOnError)
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	taskMgr := tasks.NewManager(backend, cfg.Hostname)
	stats, err := taskMgr.Stats(ctx)
	if err != nil {
		return err
	}
	printJSON(stats)
	return nil
}
