package channels

import (
	"fmt"
	"sort"
)

// Config is a per-channel configuration loaded from a YAML file in the
// channels directory. The file stem is the channel id.
type Config struct {
	ChannelID   string              `yaml:"channel_id"`
	ChannelName string              `yaml:"channel_name"`
	Platforms   map[string]Platform `yaml:"platform"`
	Content     Content             `yaml:"content"`
	SEO         SEO                 `yaml:"seo"`
	Compliance  Compliance          `yaml:"compliance"`
	Scaling     Scaling             `yaml:"scaling"`
}

type Platform struct {
	Enabled bool `yaml:"enabled"`

	// ChannelID identifies the account on platforms that use ids (youtube);
	// Username covers the ones that use handles (tiktok, instagram).
	ChannelID string `yaml:"channel_id,omitempty"`
	Username  string `yaml:"username,omitempty"`

	UploadDefaults map[string]string `yaml:"upload_defaults,omitempty"`
	Scheduling     Scheduling        `yaml:"scheduling,omitempty"`
}

type Scheduling struct {
	UploadTime       string `yaml:"upload_time,omitempty"`
	Frequency        string `yaml:"frequency,omitempty"`
	MaxUploadsPerDay int    `yaml:"max_uploads_per_day,omitempty"`
}

type Content struct {
	Niche          string   `yaml:"niche"`
	TargetAudience string   `yaml:"target_audience"`
	ContentTypes   []string `yaml:"content_types"`
}

type SEO struct {
	Keywords map[string][]string `yaml:"keywords,omitempty"`
	Hashtags map[string][]string `yaml:"hashtags,omitempty"`
}

type Compliance struct {
	ContentPolicy map[string]bool `yaml:"content_policy,omitempty"`
	SafetyChecks  []string        `yaml:"safety_checks,omitempty"`
}

type Scaling struct {
	Worker WorkerConfig `yaml:"worker_config,omitempty"`
}

type WorkerConfig struct {
	MaxConcurrentUploads int    `yaml:"max_concurrent_uploads,omitempty"`
	QueuePriority        string `yaml:"queue_priority,omitempty"`
	RetryAttempts        int    `yaml:"retry_attempts,omitempty"`
	TimeoutSeconds       int    `yaml:"timeout,omitempty"`
}

// EnabledPlatforms returns the names of enabled platforms, sorted.
func (c *Config) EnabledPlatforms() []string {
	var names []string
	for name, p := range c.Platforms {
		if p.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// QueuePriority returns the channel's configured lane, defaulting to medium.
func (c *Config) QueuePriority() string {
	if c.Scaling.Worker.QueuePriority != "" {
		return c.Scaling.Worker.QueuePriority
	}
	return "medium"
}

// Validation holds the outcome of a config check. Errors make a channel
// unusable; warnings are advisory.
type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Validate checks the config for structural problems and weak spots.
func (c *Config) Validate() Validation {
	var v Validation

	if c.ChannelID == "" {
		v.Errors = append(v.Errors, "channel_id is missing")
	}
	if c.ChannelName == "" {
		v.Errors = append(v.Errors, "channel_name is missing")
	}
	if len(c.EnabledPlatforms()) == 0 {
		v.Errors = append(v.Errors, "no platforms are enabled")
	}

	for _, name := range c.EnabledPlatforms() {
		p := c.Platforms[name]
		switch name {
		case "youtube":
			if p.ChannelID == "" {
				v.Warnings = append(v.Warnings, fmt.Sprintf("youtube channel_id missing for %s", c.ChannelID))
			}
		case "tiktok":
			if p.Username == "" {
				v.Warnings = append(v.Warnings, fmt.Sprintf("tiktok username missing for %s", c.ChannelID))
			}
		}
	}

	if c.Content.Niche == "" {
		v.Warnings = append(v.Warnings, "no content niche specified")
	}
	if c.Content.TargetAudience == "" {
		v.Warnings = append(v.Warnings, "no target audience specified")
	}
	if !c.Compliance.ContentPolicy["copyright_check"] {
		v.Warnings = append(v.Warnings, "copyright checking is disabled")
	}

	return v
}
