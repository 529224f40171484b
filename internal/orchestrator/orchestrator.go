// Package orchestrator sizes worker pools across channels and keeps the
// content pipeline fed. It converts a target hourly throughput into
// per-channel worker allocations, starts the workers on the right lanes and
// periodically schedules content generation and compliance tasks.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"viralops/manager-go/internal/channels"
	"viralops/manager-go/internal/tasks"
	"viralops/manager-go/internal/utils"
)

// Task names the orchestrator enqueues. Workers register handlers for these.
const (
	TaskContentGenerate = "content:generate"
	TaskComplianceCheck = "policy:check"
)

// ContentTask is the payload for a content generation task.
type ContentTask struct {
	ChannelID      string `json:"channel_id"`
	Platform       string `json:"platform"`
	Niche          string `json:"niche"`
	TargetAudience string `json:"target_audience"`
	ContentType    string `json:"content_type"`
}

// ComplianceTask is the payload for a compliance check chained after content
// generation.
type ComplianceTask struct {
	ChannelID    string          `json:"channel_id"`
	ParentTaskID string          `json:"parent_task_id"`
	Rules        map[string]bool `json:"rules,omitempty"`
}

// Options tune the orchestrator. Zero values take the usual defaults.
type Options struct {
	MaxWorkersPerChannel int
	TasksPerWorkerHour   int
	EnableCompliance     bool
}

type Orchestrator struct {
	channels *channels.Manager
	tasks    *tasks.Manager
	opts     Options

	cron      *cron.Cron
	runCtx    context.Context
	runCancel context.CancelFunc

	mu          sync.Mutex
	allocations map[string]Allocation
	workerIDs   map[string][]string

	// Rolling performance history, trimmed to the last completedKeep entries.
	completions []completion
	compliance  []bool
}

type completion struct {
	at       time.Time
	duration time.Duration
}

const completedKeep = 1000

func New(channelMgr *channels.Manager, taskMgr *tasks.Manager, opts Options) *Orchestrator {
	if opts.MaxWorkersPerChannel <= 0 {
		opts.MaxWorkersPerChannel = 5
	}
	if opts.TasksPerWorkerHour <= 0 {
		opts.TasksPerWorkerHour = 20
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		channels:    channelMgr,
		tasks:       taskMgr,
		opts:        opts,
		runCtx:      ctx,
		runCancel:   cancel,
		allocations: map[string]Allocation{},
		workerIDs:   map[string][]string{},
	}
}

// ChannelScale reports the outcome of scaling one channel.
type ChannelScale struct {
	ChannelID           string   `json:"channel_id"`
	Workers             int      `json:"workers"`
	Lanes               []string `json:"lanes"`
	EstimatedThroughput int      `json:"estimated_throughput"`
	TasksScheduled      int      `json:"tasks_scheduled"`
}

// ScaleResult summarizes a ScaleSystem run.
type ScaleResult struct {
	TargetThroughput  int            `json:"target_throughput"`
	Strategy          string         `json:"strategy"`
	Channels          []ChannelScale `json:"channels"`
	WorkersStarted    int            `json:"workers_started"`
	EstimatedCapacity int            `json:"estimated_capacity"`
}

// ScaleSystem allocates and starts workers for every configured channel,
// then schedules the first round of content tasks. Strategy is one of
// "performance", "cost" or "balanced".
func (o *Orchestrator) ScaleSystem(ctx context.Context, targetThroughput int, strategy string) (ScaleResult, error) {
	if targetThroughput <= 0 {
		targetThroughput = 100
	}
	if strategy == "" {
		strategy = "balanced"
	}
	result := ScaleResult{TargetThroughput: targetThroughput, Strategy: strategy}

	configs, err := o.channels.All()
	if err != nil {
		return result, fmt.Errorf("load channels: %w", err)
	}
	if len(configs) == 0 {
		return result, fmt.Errorf("no channels configured")
	}

	utils.Info("scaling system", "target_throughput", targetThroughput, "strategy", strategy, "channels", len(configs))

	allocations := ComputeAllocations(configs, targetThroughput, strategy,
		o.opts.MaxWorkersPerChannel, o.opts.TasksPerWorkerHour)

	for channelID, allocation := range allocations {
		ids := o.tasks.StartWorkers(o.runCtx, allocation.Workers, allocation.Lanes)

		scheduled, err := o.scheduleChannelContent(ctx, channelID, configs[channelID])
		if err != nil {
			utils.Warn("content scheduling failed", "channel", channelID, "err", err)
		}

		o.mu.Lock()
		o.allocations[channelID] = allocation
		o.workerIDs[channelID] = append(o.workerIDs[channelID], ids...)
		o.mu.Unlock()

		result.Channels = append(result.Channels, ChannelScale{
			ChannelID:           channelID,
			Workers:             allocation.Workers,
			Lanes:               allocation.Lanes,
			EstimatedThroughput: allocation.EstimatedThroughput,
			TasksScheduled:      scheduled,
		})
		result.WorkersStarted += allocation.Workers
		result.EstimatedCapacity += allocation.EstimatedThroughput

		utils.Info("channel scaled", "channel", channelID, "workers", allocation.Workers, "lanes", allocation.Lanes)
	}
	return result, nil
}

// scheduleChannelContent enqueues one content generation task per enabled
// platform, with a compliance check chained behind each when enabled.
func (o *Orchestrator) scheduleChannelContent(ctx context.Context, channelID string, cfg *channels.Config) (int, error) {
	scheduled := 0
	contentType := "educational"
	if len(cfg.Content.ContentTypes) > 0 {
		contentType = cfg.Content.ContentTypes[0]
	}

	for _, platform := range cfg.EnabledPlatforms() {
		taskID, err := o.tasks.Enqueue(ctx, TaskContentGenerate, ContentTask{
			ChannelID:      channelID,
			Platform:       platform,
			Niche:          cfg.Content.Niche,
			TargetAudience: cfg.Content.TargetAudience,
			ContentType:    contentType,
		}, tasks.Options{Lane: tasks.LaneHigh})
		if err != nil {
			return scheduled, err
		}
		scheduled++
		utils.Debug("content task scheduled", "channel", channelID, "platform", platform, "task_id", taskID)

		if o.opts.EnableCompliance {
			_, err := o.tasks.Enqueue(ctx, TaskComplianceCheck, ComplianceTask{
				ChannelID:    channelID,
				ParentTaskID: taskID,
				Rules:        cfg.Compliance.ContentPolicy,
			}, tasks.Options{Lane: tasks.LaneMedium})
			if err != nil {
				return scheduled, err
			}
			scheduled++
		}
	}
	return scheduled, nil
}

// ScheduleAllContent runs one content scheduling round for every channel.
// This is what the cron schedule invokes.
func (o *Orchestrator) ScheduleAllContent(ctx context.Context) (int, error) {
	configs, err := o.channels.All()
	if err != nil {
		return 0, err
	}
	total := 0
	for channelID, cfg := range configs {
		scheduled, err := o.scheduleChannelContent(ctx, channelID, cfg)
		total += scheduled
		if err != nil {
			utils.Warn("content scheduling failed", "channel", channelID, "err", err)
		}
	}
	utils.Info("content round scheduled", "tasks", total)
	return total, nil
}

// StartSchedule begins recurring content scheduling on a cron expression.
func (o *Orchestrator) StartSchedule(spec string) error {
	if o.cron != nil {
		return fmt.Errorf("schedule already running")
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := o.ScheduleAllContent(o.runCtx); err != nil {
			utils.Error("scheduled content round failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	c.Start()
	o.cron = c
	utils.Info("content schedule started", "cron", spec)
	return nil
}

// RecordCompletion feeds a finished task into the performance history.
func (o *Orchestrator) RecordCompletion(duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completions = append(o.completions, completion{at: time.Now(), duration: duration})
	if len(o.completions) > completedKeep {
		o.completions = o.completions[len(o.completions)-completedKeep:]
	}
}

// RecordCompliance feeds a compliance check outcome into the history.
func (o *Orchestrator) RecordCompliance(passed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.compliance = append(o.compliance, passed)
	if len(o.compliance) > completedKeep {
		o.compliance = o.compliance[len(o.compliance)-completedKeep:]
	}
}

// Metrics is a point-in-time view of the scaled system.
type Metrics struct {
	ActiveChannels      int                   `json:"active_channels"`
	TotalWorkers        int                   `json:"total_workers"`
	TasksPending        int                   `json:"tasks_pending"`
	CompletedLastHour   int                   `json:"completed_last_hour"`
	AverageTaskDuration float64               `json:"average_task_duration_seconds"`
	CompliancePassRate  float64               `json:"compliance_pass_rate"`
	ErrorRate           float64               `json:"error_rate"`
	ThroughputPerHour   int                   `json:"throughput_per_hour"`
	Lanes               map[string]int        `json:"lanes"`
	Allocations         map[string]Allocation `json:"allocations"`
}

func (o *Orchestrator) Metrics(ctx context.Context) (Metrics, error) {
	stats, err := o.tasks.Stats(ctx)
	if err != nil {
		return Metrics{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	m := Metrics{
		ActiveChannels: len(o.allocations),
		TotalWorkers:   stats.Workers,
		Lanes:          stats.Lanes,
		Allocations:    make(map[string]Allocation, len(o.allocations)),
	}
	for channelID, allocation := range o.allocations {
		m.Allocations[channelID] = allocation
	}
	for _, pending := range stats.Lanes {
		m.TasksPending += pending
	}

	hourAgo := time.Now().Add(-time.Hour)
	var totalDuration time.Duration
	for _, c := range o.completions {
		totalDuration += c.duration
		if c.at.After(hourAgo) {
			m.CompletedLastHour++
		}
	}
	if len(o.completions) > 0 {
		m.AverageTaskDuration = totalDuration.Seconds() / float64(len(o.completions))
	}
	m.ThroughputPerHour = m.CompletedLastHour

	m.CompliancePassRate = 100
	if len(o.compliance) > 0 {
		passed := 0
		for _, ok := range o.compliance {
			if ok {
				passed++
			}
		}
		m.CompliancePassRate = float64(passed) / float64(len(o.compliance)) * 100
	}
	if m.ErrorRate = 10 - m.CompliancePassRate*0.1; m.ErrorRate < 0 {
		m.ErrorRate = 0
	}
	return m, nil
}

// Allocations returns the current per-channel allocations.
func (o *Orchestrator) Allocations() map[string]Allocation {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]Allocation, len(o.allocations))
	for channelID, allocation := range o.allocations {
		out[channelID] = allocation
	}
	return out
}

// Shutdown stops the cron schedule, signals workers to stop and waits for
// them within the context deadline.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	if o.cron != nil {
		stopped := o.cron.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		o.cron = nil
	}
	o.runCancel()
	return o.tasks.Shutdown(ctx)
}
