package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	defaultConfigPath = "/etc/viralops/config.ini"
	configPathEnv     = "VIRALOPS_CONFIG"
)

type Config struct {
	Hostname string
	AppEnv   string

	// Storage and channel configuration locations.
	DataDir     string
	DBPath      string
	ChannelsDir string

	// Task queue backend selection: "redis", "amqp" or "memory".
	QueueBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQHost     string
	RabbitMQPort     int
	RabbitMQUser     string
	RabbitMQPassword string
	RabbitMQVHost    string

	// YouTube upload settings. UploadCommand is the external uploader
	// invocation; when empty the Data API uploader is used instead.
	YouTubeUploadCommand string
	YouTubeClientID      string
	YouTubeClientSecret  string
	YouTubeRefreshToken  string
	YouTubeCategoryID    string
	YouTubePrivacy       string

	// ContentGenerateCommand is the external script generator invocation.
	// Empty disables content generation tasks on this host.
	ContentGenerateCommand string

	// Scaling parameters.
	MaxWorkersPerChannel int
	TasksPerWorkerHour   int
	ScheduleCron         string

	// Compliance.
	PolicyPassThreshold float64
}

func Load() (Config, error) {
	configPath := os.Getenv(configPathEnv)
	if configPath == "" {
		configPath = defaultConfigPath
	}

	ini, err := readINI(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", configPath, err)
	}

	cfg := Config{}
	cfg.Hostname = ini.get("app", "hostname")
	if cfg.Hostname == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Hostname = host
		}
	}
	cfg.AppEnv = ini.getDefault("app", "env", "production")

	cfg.DataDir = ini.getDefault("app", "data_dir", "data")
	cfg.DBPath = ini.get("app", "db_path")
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "viralops.db")
	}
	cfg.ChannelsDir = ini.getDefault("app", "channels_dir", "channels")

	cfg.QueueBackend = strings.ToLower(ini.getDefault("queue", "backend", "memory"))
	switch cfg.QueueBackend {
	case "redis", "amqp", "memory":
	default:
		return cfg, fmt.Errorf("queue.backend must be redis, amqp or memory, got %q", cfg.QueueBackend)
	}

	cfg.RedisAddr = firstNonEmpty(ini.get("redis", "addr"), os.Getenv("REDIS_ADDR"))
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "127.0.0.1:6379"
	}
	cfg.RedisPassword = firstNonEmpty(ini.get("redis", "password"), os.Getenv("REDIS_PASSWORD"))
	cfg.RedisDB = ini.getIntDefault("redis", "db", 0)

	cfg.RabbitMQHost = ini.getDefault("rabbitmq", "host", "127.0.0.1")
	cfg.RabbitMQPort = ini.getIntDefault("rabbitmq", "port", 5672)
	cfg.RabbitMQUser = ini.getDefault("rabbitmq", "user", "guest")
	cfg.RabbitMQPassword = ini.getDefault("rabbitmq", "password", "guest")
	cfg.RabbitMQVHost = ini.getDefault("rabbitmq", "vhost", "/")

	cfg.YouTubeUploadCommand = ini.get("youtube", "upload_command")
	cfg.YouTubeClientID = firstNonEmpty(ini.get("youtube", "client_id"), os.Getenv("YOUTUBE_CLIENT_ID"))
	cfg.YouTubeClientSecret = firstNonEmpty(ini.get("youtube", "client_secret"), os.Getenv("YOUTUBE_CLIENT_SECRET"))
	cfg.YouTubeRefreshToken = firstNonEmpty(ini.get("youtube", "refresh_token"), os.Getenv("YOUTUBE_REFRESH_TOKEN"))
	cfg.YouTubeCategoryID = ini.getDefault("youtube", "category_id", "28")
	cfg.YouTubePrivacy = ini.getDefault("youtube", "privacy_status", "public")

	cfg.ContentGenerateCommand = ini.get("content", "generate_command")

	cfg.MaxWorkersPerChannel = ini.getIntDefault("scaling", "max_workers_per_channel", 5)
	cfg.TasksPerWorkerHour = ini.getIntDefault("scaling", "tasks_per_worker_hour", 20)
	cfg.ScheduleCron = ini.getDefault("scaling", "schedule_cron", "0 * * * *")

	cfg.PolicyPassThreshold = ini.getFloatDefault("policy", "pass_threshold", 70)

	if cfg.MaxWorkersPerChannel < 1 {
		return cfg, errors.New("scaling.max_workers_per_channel must be at least 1")
	}
	if cfg.TasksPerWorkerHour < 1 {
		return cfg, errors.New("scaling.tasks_per_worker_hour must be at least 1")
	}

	return cfg, nil
}

func (c Config) RabbitMQURL() string {
	vhost := strings.TrimPrefix(c.RabbitMQVHost, "/")
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d/%s",
		c.RabbitMQUser,
		c.RabbitMQPassword,
		c.RabbitMQHost,
		c.RabbitMQPort,
		vhost,
	)
}

type iniData struct {
	sections map[string]map[string]string
}

func readINI(path string) (iniData, error) {
	file, err := os.Open(path)
	if err != nil {
		return iniData{}, err
	}
	defer file.Close()

	data := iniData{sections: map[string]map[string]string{}}
	section := "default"
	data.sections[section] = map[string]string{}

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			if section == "" {
				return iniData{}, fmt.Errorf("invalid section header at line %d", lineNo)
			}
			if _, ok := data.sections[section]; !ok {
				data.sections[section] = map[string]string{}
			}
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return iniData{}, fmt.Errorf("invalid line %d: %q", lineNo, line)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return iniData{}, fmt.Errorf("empty key at line %d", lineNo)
		}
		data.sections[section][key] = trimQuotes(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return iniData{}, err
	}
	return data, nil
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if value[0] == '"' && value[len(value)-1] == '"' {
		return value[1 : len(value)-1]
	}
	if value[0] == '\'' && value[len(value)-1] == '\'' {
		return value[1 : len(value)-1]
	}
	return value
}

func (ini iniData) get(section, key string) string {
	if len(ini.sections) == 0 {
		return ""
	}
	section = strings.ToLower(section)
	if section == "" {
		section = "default"
	}
	if values, ok := ini.sections[section]; ok {
		return values[strings.ToLower(key)]
	}
	return ""
}

func (ini iniData) getDefault(section, key, fallback string) string {
	value := ini.get(section, key)
	if value == "" {
		return fallback
	}
	return value
}

func (ini iniData) getIntDefault(section, key string, fallback int) int {
	value := ini.get(section, key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (ini iniData) getFloatDefault(section, key string, fallback float64) float64 {
	value := ini.get(section, key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
