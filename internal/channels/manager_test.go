package channels

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `channel_id: tech_daily
channel_name: Tech Daily
platform:
  youtube:
    enabled: true
    channel_id: UCabc123
    upload_defaults:
      privacy: public
      language: en
    scheduling:
      upload_time: "10:00"
      frequency: daily
      max_uploads_per_day: 2
  tiktok:
    enabled: false
content:
  niche: technology
  target_audience: developers
  content_types: [educational, news]
seo:
  hashtags:
    youtube: ["#tech", "#news"]
compliance:
  content_policy:
    copyright_check: true
scaling:
  worker_config:
    queue_priority: high
    retry_attempts: 3
`

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestManagerGet(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "tech_daily.yaml", sampleConfig)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	cfg, err := m.Get("tech_daily")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.ChannelName != "Tech Daily" {
		t.Errorf("channel name = %q", cfg.ChannelName)
	}
	if got := cfg.EnabledPlatforms(); len(got) != 1 || got[0] != "youtube" {
		t.Errorf("enabled platforms = %v, want [youtube]", got)
	}
	if cfg.QueuePriority() != "high" {
		t.Errorf("queue priority = %q, want high", cfg.QueuePriority())
	}
	if cfg.Platforms["youtube"].Scheduling.MaxUploadsPerDay != 2 {
		t.Errorf("max uploads = %d, want 2", cfg.Platforms["youtube"].Scheduling.MaxUploadsPerDay)
	}
}

func TestManagerGetMissingChannel(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Get("ghost"); err == nil {
		t.Error("expected error for a missing channel")
	}
}

func TestManagerGetDefaultsIDAndName(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "minimal.yml", "platform:\n  youtube:\n    enabled: true\n")

	m, _ := NewManager(dir)
	cfg, err := m.Get("minimal")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.ChannelID != "minimal" {
		t.Errorf("channel id = %q, want file stem", cfg.ChannelID)
	}
	if cfg.ChannelName != "Channel minimal" {
		t.Errorf("channel name = %q", cfg.ChannelName)
	}
}

func TestManagerReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "tech_daily.yaml", sampleConfig)

	m, _ := NewManager(dir)
	if _, err := m.Get("tech_daily"); err != nil {
		t.Fatalf("get: %v", err)
	}

	writeConfig(t, dir, "tech_daily.yaml", sampleConfig+"\n# tuned\n")

	cfg, err := m.Get("tech_daily")
	if err != nil {
		t.Fatalf("get after change: %v", err)
	}
	if cfg.ChannelID != "tech_daily" {
		t.Errorf("channel id = %q", cfg.ChannelID)
	}
}

func TestManagerByPlatform(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "tech_daily.yaml", sampleConfig)
	writeConfig(t, dir, "clips.yaml", `channel_id: clips
channel_name: Clips
platform:
  tiktok:
    enabled: true
    username: clipsofficial
content:
  niche: entertainment
`)

	m, _ := NewManager(dir)
	yt, err := m.ByPlatform("youtube")
	if err != nil {
		t.Fatalf("by platform: %v", err)
	}
	if len(yt) != 1 {
		t.Fatalf("youtube channels = %d, want 1", len(yt))
	}
	if _, ok := yt["tech_daily"]; !ok {
		t.Error("expected tech_daily in youtube channels")
	}

	tk, _ := m.ByPlatform("tiktok")
	if len(tk) != 1 {
		t.Errorf("tiktok channels = %d, want 1", len(tk))
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		ChannelID:   "c1",
		ChannelName: "C1",
		Platforms: map[string]Platform{
			"youtube": {Enabled: true},
		},
	}
	v := cfg.Validate()
	if !v.OK() {
		t.Fatalf("unexpected errors: %v", v.Errors)
	}
	found := map[string]bool{}
	for _, w := range v.Warnings {
		found[w] = true
	}
	if !found["youtube channel_id missing for c1"] {
		t.Errorf("missing youtube id warning, got %v", v.Warnings)
	}
	if !found["no content niche specified"] {
		t.Errorf("missing niche warning, got %v", v.Warnings)
	}
	if !found["copyright checking is disabled"] {
		t.Errorf("missing copyright warning, got %v", v.Warnings)
	}
}

func TestValidateNoPlatforms(t *testing.T) {
	cfg := &Config{ChannelID: "c1", ChannelName: "C1"}
	v := cfg.Validate()
	if v.OK() {
		t.Fatal("expected errors for config with no platforms")
	}
}

func TestCreateTemplate(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManager(dir)

	path, err := m.CreateTemplate("newchan", "youtube", "gaming")
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	if filepath.Base(path) != "newchan.yaml" {
		t.Errorf("template path = %s", path)
	}

	cfg, err := m.Get("newchan")
	if err != nil {
		t.Fatalf("get created template: %v", err)
	}
	if cfg.Content.Niche != "gaming" {
		t.Errorf("niche = %q, want gaming", cfg.Content.Niche)
	}
	if v := cfg.Validate(); !v.OK() {
		t.Errorf("template should validate cleanly, got %v", v.Errors)
	}

	if _, err := m.CreateTemplate("newchan", "youtube", "gaming"); err == nil {
		t.Error("expected error when the config already exists")
	}
}

func TestSummary(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "tech_daily.yaml", sampleConfig)

	m, _ := NewManager(dir)
	s, err := m.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalChannels != 1 {
		t.Errorf("total = %d, want 1", s.TotalChannels)
	}
	if s.Platforms["youtube"] != 1 {
		t.Errorf("youtube count = %d, want 1", s.Platforms["youtube"])
	}
	if s.Niches["technology"] != 1 {
		t.Errorf("niche count = %v", s.Niches)
	}
}
