package channels

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"viralops/manager-go/internal/utils"
)

const cacheTTL = 5 * time.Minute

type cacheEntry struct {
	config   *Config
	checksum string
	loadedAt time.Time
}

// Manager loads and caches per-channel YAML configs from a directory.
// Files are re-read when their checksum changes or the cache entry ages out.
type Manager struct {
	dir string

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create channels dir %s: %w", dir, err)
	}
	m := &Manager{dir: dir, cache: map[string]cacheEntry{}}
	if err := m.loadAll(); err != nil {
		return nil, err
	}
	utils.Info("channel configs loaded", "dir", dir, "channels", len(m.cache))
	return m, nil
}

func (m *Manager) loadAll() error {
	ids, err := m.list()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := m.Get(id); err != nil {
			utils.Error("channel config failed to load", "channel", id, "err", err)
		}
	}
	return nil
}

func (m *Manager) list() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Manager) path(channelID string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(m.dir, channelID+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no config file for channel %q in %s", channelID, m.dir)
}

// Get returns the config for a channel, reloading the file if it changed
// since the last read.
func (m *Manager) Get(channelID string) (*Config, error) {
	path, err := m.path(channelID)
	if err != nil {
		return nil, err
	}
	checksum, err := utils.SHA256File(path)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	entry, ok := m.cache[channelID]
	m.mu.RUnlock()
	if ok && entry.checksum == checksum && time.Since(entry.loadedAt) < cacheTTL {
		return entry.config, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.ChannelID == "" {
		cfg.ChannelID = channelID
	}
	if cfg.ChannelName == "" {
		cfg.ChannelName = "Channel " + channelID
	}

	m.mu.Lock()
	m.cache[channelID] = cacheEntry{config: &cfg, checksum: checksum, loadedAt: time.Now()}
	m.mu.Unlock()

	utils.Debug("channel config loaded", "channel", channelID, "path", path)
	return &cfg, nil
}

// All returns every loadable channel config keyed by channel id.
func (m *Manager) All() (map[string]*Config, error) {
	ids, err := m.list()
	if err != nil {
		return nil, err
	}
	configs := make(map[string]*Config, len(ids))
	for _, id := range ids {
		cfg, err := m.Get(id)
		if err != nil {
			utils.Warn("skipping channel", "channel", id, "err", err)
			continue
		}
		configs[id] = cfg
	}
	return configs, nil
}

// ByPlatform returns the channels that have the given platform enabled.
func (m *Manager) ByPlatform(platform string) (map[string]*Config, error) {
	all, err := m.All()
	if err != nil {
		return nil, err
	}
	filtered := map[string]*Config{}
	for id, cfg := range all {
		if p, ok := cfg.Platforms[platform]; ok && p.Enabled {
			filtered[id] = cfg
		}
	}
	return filtered, nil
}

// Validate loads a channel config and checks it.
func (m *Manager) Validate(channelID string) (Validation, error) {
	cfg, err := m.Get(channelID)
	if err != nil {
		return Validation{Errors: []string{err.Error()}}, err
	}
	return cfg.Validate(), nil
}

// Reload drops the cache so the next access re-reads every file.
func (m *Manager) Reload() {
	m.mu.Lock()
	m.cache = map[string]cacheEntry{}
	m.mu.Unlock()
	utils.Info("channel config cache cleared", "dir", m.dir)
}

// Summary aggregates loaded channels by platform and niche.
type Summary struct {
	TotalChannels int            `json:"total_channels"`
	Platforms     map[string]int `json:"platforms"`
	Niches        map[string]int `json:"niches"`
	Directory     string         `json:"directory"`
}

func (m *Manager) Summary() (Summary, error) {
	all, err := m.All()
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		TotalChannels: len(all),
		Platforms:     map[string]int{},
		Niches:        map[string]int{},
		Directory:     m.dir,
	}
	for _, cfg := range all {
		for _, platform := range cfg.EnabledPlatforms() {
			s.Platforms[platform]++
		}
		niche := cfg.Content.Niche
		if niche == "" {
			niche = "unknown"
		}
		s.Niches[niche]++
	}
	return s, nil
}

// CreateTemplate writes a starter config for a new channel and returns the
// file path. It refuses to overwrite an existing config.
func (m *Manager) CreateTemplate(channelID, platform, niche string) (string, error) {
	if niche == "" {
		niche = "general"
	}
	if existing, err := m.path(channelID); err == nil {
		return "", fmt.Errorf("channel %q already has a config at %s", channelID, existing)
	}

	cfg := Config{
		ChannelID:   channelID,
		ChannelName: "Channel " + titleCase(channelID),
		Platforms: map[string]Platform{
			platform: {
				Enabled: true,
				UploadDefaults: map[string]string{
					"privacy":  "public",
					"language": "en",
				},
				Scheduling: Scheduling{
					UploadTime:       "10:00",
					Frequency:        "daily",
					MaxUploadsPerDay: 1,
				},
			},
		},
		Content: Content{
			Niche:          niche,
			TargetAudience: "general",
			ContentTypes:   []string{"educational", "entertainment"},
		},
		SEO: SEO{
			Keywords: map[string][]string{
				"primary":   {niche},
				"secondary": {"content", "videos"},
			},
			Hashtags: map[string][]string{
				platform: {"#" + niche, "#content"},
			},
		},
		Compliance: Compliance{
			ContentPolicy: map[string]bool{
				"copyright_check":     true,
				"profanity_filter":    true,
				"coppa_compliant":     true,
				"advertiser_friendly": true,
			},
			SafetyChecks: []string{"copyright_detection", "profanity_check"},
		},
		Scaling: Scaling{
			Worker: WorkerConfig{
				MaxConcurrentUploads: 1,
				QueuePriority:        "medium",
				RetryAttempts:        2,
				TimeoutSeconds:       300,
			},
		},
	}

	raw, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", err
	}
	path := filepath.Join(m.dir, channelID+".yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	utils.Info("channel template created", "channel", channelID, "path", path)
	return path, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
