package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"viralops/manager-go/internal/channels"
	"viralops/manager-go/internal/tasks"
)

func configWith(priority string, platforms []string, contentTypes []string) *channels.Config {
	cfg := &channels.Config{
		ChannelID: "test",
		Platforms: map[string]channels.Platform{},
		Content:   channels.Content{ContentTypes: contentTypes},
	}
	cfg.Scaling.Worker.QueuePriority = priority
	for _, p := range platforms {
		cfg.Platforms[p] = channels.Platform{Enabled: true}
	}
	return cfg
}

func TestLaneAssignment(t *testing.T) {
	cases := []struct {
		priority      string
		multiPlatform bool
		want          []string
	}{
		{"urgent", false, []string{"urgent", "high"}},
		{"high", false, []string{"high", "medium"}},
		{"medium", false, []string{"medium", "low"}},
		{"low", false, []string{"low"}},
		{"medium", true, []string{"high", "medium", "low"}},
		{"high", true, []string{"high", "medium"}},
	}
	for _, c := range cases {
		got := laneAssignment(c.priority, c.multiPlatform)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("laneAssignment(%q, %v) = %v, want %v", c.priority, c.multiPlatform, got, c.want)
		}
	}
}

func TestComputeAllocationsPerformance(t *testing.T) {
	configs := map[string]*channels.Config{
		// weight 3 * 2 platforms * 1.1 = 6.6
		"big": configWith("high", []string{"youtube", "tiktok"}, []string{"educational"}),
		// weight 1 * 1 platform * 1.0 = 1.0
		"small": configWith("low", []string{"youtube"}, nil),
	}

	allocations := ComputeAllocations(configs, 200, "performance", 5, 20)

	big, ok := allocations["big"]
	if !ok {
		t.Fatal("big channel should be allocated")
	}
	// share = int(200 * 6.6/7.6) = 173 -> ceil(173/20) = 9, clamped to 5
	if big.Workers != 5 {
		t.Errorf("big workers = %d, want 5", big.Workers)
	}
	if big.EstimatedThroughput != 100 {
		t.Errorf("big throughput = %d, want 100", big.EstimatedThroughput)
	}
	if big.PriorityLevel != 3 {
		t.Errorf("big priority level = %d, want 3", big.PriorityLevel)
	}
	// Multi-platform channels pick up the high lane.
	if !reflect.DeepEqual(big.Lanes, []string{"high", "medium"}) {
		t.Errorf("big lanes = %v", big.Lanes)
	}

	small, ok := allocations["small"]
	if !ok {
		t.Fatal("small channel should be allocated")
	}
	// share = int(200 * 1/7.6) = 26 -> ceil(26/20) = 2
	if small.Workers != 2 {
		t.Errorf("small workers = %d, want 2", small.Workers)
	}
	if !reflect.DeepEqual(small.Lanes, []string{"low"}) {
		t.Errorf("small lanes = %v", small.Lanes)
	}
}

func TestComputeAllocationsStopsAtTarget(t *testing.T) {
	configs := map[string]*channels.Config{
		"big":   configWith("high", []string{"youtube", "tiktok"}, []string{"educational"}),
		"small": configWith("low", []string{"youtube"}, nil),
	}

	// Target 100 is fully covered by the big channel's 5 workers.
	allocations := ComputeAllocations(configs, 100, "performance", 5, 20)
	if len(allocations) != 1 {
		t.Fatalf("allocations = %d channels, want 1", len(allocations))
	}
	if _, ok := allocations["big"]; !ok {
		t.Error("the higher scoring channel should win the budget")
	}
}

func TestComputeAllocationsCostInvertsWeights(t *testing.T) {
	configs := map[string]*channels.Config{
		"hi": configWith("high", []string{"youtube"}, nil),
		"lo": configWith("low", []string{"youtube"}, nil),
	}
	allocations := ComputeAllocations(configs, 20, "cost", 5, 20)
	// Cost strategy weights low channels 3 and high channels 1, so the low
	// channel takes the single worker the budget allows.
	if len(allocations) != 1 {
		t.Fatalf("allocations = %d channels, want 1", len(allocations))
	}
	if _, ok := allocations["lo"]; !ok {
		t.Errorf("allocations = %v, want the low priority channel first", allocations)
	}
}

func TestComputeAllocationsMinimumOneWorker(t *testing.T) {
	configs := map[string]*channels.Config{
		"only": configWith("medium", []string{"youtube"}, nil),
	}
	allocations := ComputeAllocations(configs, 5, "balanced", 5, 20)
	if allocations["only"].Workers != 1 {
		t.Errorf("workers = %d, want at least 1", allocations["only"].Workers)
	}

	if got := ComputeAllocations(nil, 100, "balanced", 5, 20); len(got) != 0 {
		t.Errorf("no channels should yield no allocations, got %v", got)
	}
	if got := ComputeAllocations(configs, 0, "balanced", 5, 20); len(got) != 0 {
		t.Errorf("zero target should yield no allocations, got %v", got)
	}
}

const orchestratorChannel = `channel_id: tech_daily
channel_name: Tech Daily
platform:
  youtube:
    enabled: true
    channel_id: UCabc123
content:
  niche: technology
  target_audience: developers
  content_types: [educational]
compliance:
  content_policy:
    copyright_check: true
scaling:
  worker_config:
    queue_priority: high
`

func newTestOrchestrator(t *testing.T) (*Orchestrator, *tasks.Manager) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tech_daily.yaml"), []byte(orchestratorChannel), 0o644); err != nil {
		t.Fatalf("write channel config: %v", err)
	}
	channelMgr, err := channels.NewManager(dir)
	if err != nil {
		t.Fatalf("channel manager: %v", err)
	}
	taskMgr := tasks.NewManager(tasks.NewMemoryBackend(), "test-host")
	return New(channelMgr, taskMgr, Options{EnableCompliance: true}), taskMgr
}

func TestScaleSystemRunsTasks(t *testing.T) {
	o, taskMgr := newTestOrchestrator(t)
	ctx := context.Background()

	done := make(chan string, 4)
	handler := func(_ context.Context, task tasks.Task) (json.RawMessage, error) {
		done <- task.Name
		return nil, nil
	}
	taskMgr.Register(TaskContentGenerate, handler)
	taskMgr.Register(TaskComplianceCheck, handler)

	result, err := o.ScaleSystem(ctx, 10, "balanced")
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if result.WorkersStarted != 1 {
		t.Errorf("workers started = %d, want 1", result.WorkersStarted)
	}
	if len(result.Channels) != 1 || result.Channels[0].TasksScheduled != 2 {
		t.Errorf("channels = %+v, want one channel with 2 tasks", result.Channels)
	}

	seen := map[string]bool{}
	deadline := time.After(3 * time.Second)
	for len(seen) < 2 {
		select {
		case name := <-done:
			seen[name] = true
		case <-deadline:
			t.Fatalf("timed out, processed = %v", seen)
		}
	}

	metrics, err := o.Metrics(ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if metrics.ActiveChannels != 1 {
		t.Errorf("active channels = %d, want 1", metrics.ActiveChannels)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := o.Shutdown(shutdownCtx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestScheduleAllContent(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()

	scheduled, err := o.ScheduleAllContent(ctx)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if scheduled != 2 {
		t.Errorf("scheduled = %d, want content plus compliance", scheduled)
	}
}

func TestMetricsRates(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()

	o.RecordCompletion(2 * time.Second)
	o.RecordCompletion(4 * time.Second)
	o.RecordCompliance(true)
	o.RecordCompliance(false)

	m, err := o.Metrics(ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.CompletedLastHour != 2 || m.ThroughputPerHour != 2 {
		t.Errorf("completed = %d throughput = %d, want 2/2", m.CompletedLastHour, m.ThroughputPerHour)
	}
	if m.AverageTaskDuration != 3 {
		t.Errorf("avg duration = %f, want 3", m.AverageTaskDuration)
	}
	if m.CompliancePassRate != 50 {
		t.Errorf("pass rate = %f, want 50", m.CompliancePassRate)
	}
	if m.ErrorRate != 5 {
		t.Errorf("error rate = %f, want 5", m.ErrorRate)
	}
}

func TestStartScheduleRejectsBadSpec(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if err := o.StartSchedule("not a cron spec"); err == nil {
		t.Error("expected error for an invalid cron expression")
	}
	if err := o.StartSchedule("0 * * * *"); err != nil {
		t.Fatalf("start schedule: %v", err)
	}
	if err := o.StartSchedule("0 * * * *"); err == nil {
		t.Error("expected error when the schedule is already running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := o.Shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
