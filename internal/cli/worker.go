package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"viralops/manager-go/internal/channels"
	"viralops/manager-go/internal/config"
	"viralops/manager-go/internal/content"
	"viralops/manager-go/internal/orchestrator"
	"viralops/manager-go/internal/policy"
	"viralops/manager-go/internal/store"
	"viralops/manager-go/internal/tasks"
	"viralops/manager-go/internal/uploads"
	"viralops/manager-go/internal/utils"
)

// handlerDeps carries everything the task handlers close over. orch is nil
// for plain workers; the scale command sets it so completions feed the
// scaling metrics.
type handlerDeps struct {
	cfg   config.Config
	store *store.Store
	tasks *tasks.Manager
	orch  *orchestrator.Orchestrator
}

func registerHandlers(deps handlerDeps) {
	recordDone := func(started time.Time) {
		if deps.orch != nil {
			deps.orch.RecordCompletion(time.Since(started))
		}
	}

	if uploader, err := newUploader(deps.cfg); err != nil {
		utils.Warn("upload handler disabled", "err", err)
	} else {
		upMgr := uploads.NewManager(deps.store, uploader, 0)
		deps.tasks.Register("upload:process", func(ctx context.Context, task tasks.Task) (json.RawMessage, error) {
			started := time.Now()
			var p struct {
				UploadID int64 `json:"upload_id"`
			}
			if err := json.Unmarshal(task.Payload, &p); err != nil {
				return nil, fmt.Errorf("decode upload payload: %w", err)
			}
			if err := upMgr.Process(ctx, p.UploadID); err != nil {
				return nil, err
			}
			recordDone(started)
			return json.RawMessage(fmt.Sprintf(`{"upload_id":%d}`, p.UploadID)), nil
		})
	}

	if deps.cfg.ContentGenerateCommand != "" {
		gen, err := content.NewCommandGenerator(deps.cfg.ContentGenerateCommand)
		if err != nil {
			utils.Warn("content handler disabled", "err", err)
		} else {
			deps.tasks.Register(orchestrator.TaskContentGenerate, func(ctx context.Context, task tasks.Task) (json.RawMessage, error) {
				started := time.Now()
				var p orchestrator.ContentTask
				if err := json.Unmarshal(task.Payload, &p); err != nil {
					return nil, fmt.Errorf("decode content payload: %w", err)
				}
				brief := content.Brief{
					CategoryName: p.Niche,
					Tags:         []string{p.ContentType},
				}
				raw, err := gen.Generate(ctx, brief)
				if err != nil {
					return nil, err
				}
				script, err := content.BuildScript(task.ID, raw, "", brief)
				if err != nil {
					return nil, err
				}
				recordDone(started)
				return json.Marshal(script)
			})
		}
	} else {
		utils.Debug("content generation not configured on this host")
	}

	checker := policy.NewChecker(deps.cfg.PolicyPassThreshold)
	deps.tasks.Register(orchestrator.TaskComplianceCheck, func(ctx context.Context, task tasks.Task) (json.RawMessage, error) {
		started := time.Now()
		var p orchestrator.ComplianceTask
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode compliance payload: %w", err)
		}

		parent, err := deps.tasks.Result(ctx, p.ParentTaskID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.Status != tasks.StatusCompleted || len(parent.Output) == 0 {
			return nil, fmt.Errorf("content for task %s not ready", p.ParentTaskID)
		}
		var script content.Script
		if err := json.Unmarshal(parent.Output, &script); err != nil {
			return nil, fmt.Errorf("decode generated script: %w", err)
		}

		result := checker.Check(policy.Content{
			ID:          p.ParentTaskID,
			Title:       script.Title,
			Description: script.Description,
			Script:      script.Content,
		}, policy.RulesFromPolicy(p.Rules))

		if err := saveComplianceResult(ctx, deps.store, result); err != nil {
			return nil, err
		}
		if deps.orch != nil {
			deps.orch.RecordCompliance(result.Compliant)
		}
		recordDone(started)
		return json.Marshal(result)
	})
}

func saveComplianceResult(ctx context.Context, st *store.Store, result policy.Result) error {
	return st.SaveComplianceResult(ctx, store.ComplianceResult{
		ContentID:            result.ContentID,
		OverallScore:         result.OverallScore,
		IsCompliant:          result.Compliant,
		Violations:           violationStrings(result.Violations),
		Warnings:             violationStrings(result.Warnings),
		Recommendations:      result.Recommendations,
		CheckedAt:            result.CheckedAt,
		CheckDurationSeconds: result.Duration.Seconds(),
	})
}

func violationStrings(violations []policy.Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, fmt.Sprintf("%s: %s", v.Type, v.Description))
	}
	return out
}

func parseLanes(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var lanes []string
	for _, lane := range strings.Split(raw, ",") {
		lane = strings.TrimSpace(lane)
		if lane == "" {
			continue
		}
		if !tasks.ValidLane(lane) {
			return nil, fmt.Errorf("unknown lane %q", lane)
		}
		lanes = append(lanes, lane)
	}
	return lanes, nil
}

func runWorker(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	workers := fs.Int("workers", 2, "Number of workers to start")
	lanesFlag := fs.String("lanes", "", "Comma-separated lanes to drain (default all)")
	verbose := fs.Bool("verbose", utils.Verbose, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.ConfigureLogging(*verbose)

	if *workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	lanes, err := parseLanes(*lanesFlag)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	taskMgr := tasks.NewManager(backend, cfg.Hostname)
	registerHandlers(handlerDeps{cfg: cfg, store: st, tasks: taskMgr})

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ids := taskMgr.StartWorkers(workerCtx, *workers, lanes)
	utils.Info("workers running", "count", len(ids), "handlers", taskMgr.Registered())

	waitForSignal()

	utils.Info("shutting down workers")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return taskMgr.Shutdown(shutdownCtx)
}

func runScale(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("scale", flag.ContinueOnError)
	throughput := fs.Int("throughput", 100, "Target tasks per hour")
	strategy := fs.String("strategy", "balanced", "Allocation strategy: balanced, performance or cost")
	cronSpec := fs.String("cron", cfg.ScheduleCron, "Cron spec for recurring content scheduling (empty disables)")
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

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	channelMgr, err := channels.NewManager(cfg.ChannelsDir)
	if err != nil {
		return err
	}

	taskMgr := tasks.NewManager(backend, cfg.Hostname)
	orch := orchestrator.New(channelMgr, taskMgr, orchestrator.Options{
		MaxWorkersPerChannel: cfg.MaxWorkersPerChannel,
		TasksPerWorkerHour:   cfg.TasksPerWorkerHour,
		EnableCompliance:     true,
	})
	registerHandlers(handlerDeps{cfg: cfg, store: st, tasks: taskMgr, orch: orch})

	result, err := orch.ScaleSystem(ctx, *throughput, *strategy)
	if err != nil {
		return err
	}
	printJSON(result)

	if *cronSpec != "" {
		if err := orch.StartSchedule(*cronSpec); err != nil {
			return err
		}
	}

	waitForSignal()

	utils.Info("shutting down orchestrator")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return orch.Shutdown(shutdownCtx)
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	utils.Info("signal received", "signal", s.String())
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(b))
}
