package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
}

func TestLoadDefaults(t *testing.T) {
	writeConfig(t, `[app]
hostname = worker-1
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Hostname != "worker-1" {
		t.Errorf("hostname = %q", cfg.Hostname)
	}
	if cfg.AppEnv != "production" {
		t.Errorf("env = %q, want production default", cfg.AppEnv)
	}
	if cfg.QueueBackend != "memory" {
		t.Errorf("queue backend = %q, want memory default", cfg.QueueBackend)
	}
	if cfg.DBPath != filepath.Join("data", "viralops.db") {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.ChannelsDir != "channels" {
		t.Errorf("channels dir = %q", cfg.ChannelsDir)
	}
	if cfg.MaxWorkersPerChannel != 5 || cfg.TasksPerWorkerHour != 20 {
		t.Errorf("scaling defaults = %d/%d", cfg.MaxWorkersPerChannel, cfg.TasksPerWorkerHour)
	}
	if cfg.ScheduleCron != "0 * * * *" {
		t.Errorf("cron = %q", cfg.ScheduleCron)
	}
	if cfg.PolicyPassThreshold != 70 {
		t.Errorf("policy threshold = %f", cfg.PolicyPassThreshold)
	}
	if cfg.YouTubeCategoryID != "28" || cfg.YouTubePrivacy != "public" {
		t.Errorf("youtube defaults = %q/%q", cfg.YouTubeCategoryID, cfg.YouTubePrivacy)
	}
}

func TestLoadFullConfig(t *testing.T) {
	writeConfig(t, `[app]
hostname = box
env = staging
db_path = /tmp/test.db
channels_dir = /etc/channels

[queue]
backend = redis

[redis]
addr = 10.0.0.5:6379
password = "secret"
db = 2

[rabbitmq]
host = mq.internal
port = 5671
user = viralops
password = 'pw'
vhost = /prod

[youtube]
upload_command = youtube-upload
category_id = 27

[content]
generate_command = scriptgen --model local

[scaling]
max_workers_per_channel = 3
tasks_per_worker_hour = 10
schedule_cron = */30 * * * *

[policy]
pass_threshold = 85
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.QueueBackend != "redis" || cfg.RedisAddr != "10.0.0.5:6379" || cfg.RedisPassword != "secret" || cfg.RedisDB != 2 {
		t.Errorf("redis config = %+v", cfg)
	}
	want := "amqp://viralops:pw@mq.internal:5671/prod"
	if got := cfg.RabbitMQURL(); got != want {
		t.Errorf("rabbitmq url = %q, want %q", got, want)
	}
	if cfg.YouTubeUploadCommand != "youtube-upload" || cfg.YouTubeCategoryID != "27" {
		t.Errorf("youtube config = %q/%q", cfg.YouTubeUploadCommand, cfg.YouTubeCategoryID)
	}
	if cfg.ContentGenerateCommand != "scriptgen --model local" {
		t.Errorf("generate command = %q", cfg.ContentGenerateCommand)
	}
	if cfg.MaxWorkersPerChannel != 3 || cfg.TasksPerWorkerHour != 10 {
		t.Errorf("scaling = %d/%d", cfg.MaxWorkersPerChannel, cfg.TasksPerWorkerHour)
	}
	if cfg.ScheduleCron != "*/30 * * * *" {
		t.Errorf("cron = %q", cfg.ScheduleCron)
	}
	if cfg.PolicyPassThreshold != 85 {
		t.Errorf("policy threshold = %f", cfg.PolicyPassThreshold)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	writeConfig(t, `[queue]
backend = kafka
`)
	if _, err := Load(); err == nil {
		t.Error("expected error for unsupported queue backend")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "nope.ini"))
	if _, err := Load(); err == nil {
		t.Error("expected error when the config file does not exist")
	}
}
