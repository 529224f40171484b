package orchestrator

import (
	"sort"

	"viralops/manager-go/internal/channels"
	"viralops/manager-go/internal/tasks"
)

// Allocation is the computed worker assignment for one channel.
type Allocation struct {
	ChannelID           string   `json:"channel_id"`
	Platforms           []string `json:"platforms"`
	Workers             int      `json:"workers"`
	Lanes               []string `json:"lanes"`
	PriorityLevel       int      `json:"priority_level"`
	EstimatedThroughput int      `json:"estimated_throughput"`
}

// strategyWeights maps a channel's queue priority to a relative weight.
// "performance" favors high-priority channels, "cost" inverts that, and
// "balanced" treats everything equally.
func strategyWeights(strategy string) map[string]int {
	switch strategy {
	case "performance":
		return map[string]int{"high": 3, "medium": 2, "low": 1}
	case "cost":
		return map[string]int{"high": 1, "medium": 2, "low": 3}
	default:
		return map[string]int{"high": 2, "medium": 2, "low": 2}
	}
}

func weightFor(weights map[string]int, priority string) int {
	// Urgent channels score like high; anything unrecognized scores medium.
	if priority == "urgent" {
		priority = "high"
	}
	if w, ok := weights[priority]; ok {
		return w
	}
	return weights["medium"]
}

// priorityScore ranks a channel for allocation. Channels with more enabled
// platforms and more content types get a proportionally larger share.
func priorityScore(cfg *channels.Config, weights map[string]int) float64 {
	platformCount := len(cfg.EnabledPlatforms())
	contentTypes := len(cfg.Content.ContentTypes)
	return float64(weightFor(weights, cfg.QueuePriority())) *
		float64(platformCount) *
		(1 + float64(contentTypes)*0.1)
}

// laneAssignment picks the lanes a channel's workers should drain. Each
// priority covers its own lane plus the one below it; multi-platform
// channels additionally drain the high lane. Lanes come back in drain order.
func laneAssignment(priority string, multiPlatform bool) []string {
	var assigned []string
	switch priority {
	case "urgent":
		assigned = []string{tasks.LaneUrgent, tasks.LaneHigh}
	case "high":
		assigned = []string{tasks.LaneHigh, tasks.LaneMedium}
	case "low":
		assigned = []string{tasks.LaneLow}
	default:
		assigned = []string{tasks.LaneMedium, tasks.LaneLow}
	}
	if multiPlatform {
		assigned = append([]string{tasks.LaneHigh}, assigned...)
	}

	seen := make(map[string]bool, len(assigned))
	for _, lane := range assigned {
		seen[lane] = true
	}
	var ordered []string
	for _, lane := range tasks.Lanes() {
		if seen[lane] {
			ordered = append(ordered, lane)
		}
	}
	return ordered
}

// ComputeAllocations divides a target hourly throughput across channels.
// Each channel's share follows its priority score; shares convert to worker
// counts at tasksPerWorkerHour per worker, clamped to [1, maxWorkersPerChannel].
// Channels are served in score order and allocation stops once the target
// throughput is covered.
func ComputeAllocations(configs map[string]*channels.Config, targetThroughput int, strategy string, maxWorkersPerChannel, tasksPerWorkerHour int) map[string]Allocation {
	allocations := make(map[string]Allocation, len(configs))
	if len(configs) == 0 || targetThroughput <= 0 {
		return allocations
	}
	if maxWorkersPerChannel <= 0 {
		maxWorkersPerChannel = 1
	}
	if tasksPerWorkerHour <= 0 {
		tasksPerWorkerHour = 20
	}

	weights := strategyWeights(strategy)

	scores := make(map[string]float64, len(configs))
	var total float64
	for channelID, cfg := range configs {
		score := priorityScore(cfg, weights)
		scores[channelID] = score
		total += score
	}
	if total == 0 {
		return allocations
	}

	ordered := make([]string, 0, len(configs))
	for channelID := range configs {
		ordered = append(ordered, channelID)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if scores[ordered[i]] != scores[ordered[j]] {
			return scores[ordered[i]] > scores[ordered[j]]
		}
		return ordered[i] < ordered[j]
	})

	remaining := targetThroughput
	for _, channelID := range ordered {
		if remaining <= 0 {
			break
		}
		cfg := configs[channelID]

		share := int(float64(targetThroughput) * scores[channelID] / total)
		workers := (share + tasksPerWorkerHour - 1) / tasksPerWorkerHour
		if workers > maxWorkersPerChannel {
			workers = maxWorkersPerChannel
		}
		if workers < 1 {
			workers = 1
		}

		platforms := cfg.EnabledPlatforms()
		priority := cfg.QueuePriority()
		allocations[channelID] = Allocation{
			ChannelID:           channelID,
			Platforms:           platforms,
			Workers:             workers,
			Lanes:               laneAssignment(priority, len(platforms) > 1),
			PriorityLevel:       weightFor(weights, priority),
			EstimatedThroughput: workers * tasksPerWorkerHour,
		}
		remaining -= workers * tasksPerWorkerHour
	}
	return allocations
}
