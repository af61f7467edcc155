// Package config loads and holds the runtime configuration for the
// execution plane: storage locations, concurrency limits, timeouts, and
// webhook delivery parameters.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Config holds every tunable recognized by the core engine: storage and
// delivery endpoints, concurrency and timeout knobs, webhook delivery
// parameters, and batching limits.
type Config struct {
	StorageRoot    string `json:"storageRoot"`
	PublicBaseURL  string `json:"publicBaseUrl"`
	SigningSecret  string `json:"signingSecret"`

	DownloaderBinaryPath string `json:"downloaderBinaryPath"`
	FFmpegPath           string `json:"ffmpegPath"`

	WorkerCount             int     `json:"workerCount"`
	MaxConcurrentDownloads  int     `json:"maxConcurrentDownloads"`
	DefaultJobTimeoutSec    int     `json:"defaultJobTimeoutSec"`
	ProgressStallTimeoutSec int     `json:"progressStallTimeoutSec"`
	FileRetentionHours      float64 `json:"fileRetentionHours"`

	WebhookTimeoutSec  int  `json:"webhookTimeoutSec"`
	WebhookMaxRetries  int  `json:"webhookMaxRetries"`
	WebhookEnable      bool `json:"webhookEnable"`

	MaxBatchSize         int     `json:"maxBatchSize"`
	ProgressThrottleSec  float64 `json:"progressThrottleSec"`

	LogDir string `json:"logDir"`

	mu       sync.RWMutex
	filePath string
}

// Default returns a Config populated with conservative baseline values
// suitable for a single-node deployment.
func Default() *Config {
	return &Config{
		StorageRoot:             "",
		PublicBaseURL:           "",
		SigningSecret:           "",
		DownloaderBinaryPath:    "yt-dlp",
		FFmpegPath:              "ffmpeg",
		WorkerCount:             4,
		MaxConcurrentDownloads:  4,
		DefaultJobTimeoutSec:    3600,
		ProgressStallTimeoutSec: 120,
		FileRetentionHours:      24,
		WebhookTimeoutSec:       10,
		WebhookMaxRetries:       3,
		WebhookEnable:           true,
		MaxBatchSize:            100,
		ProgressThrottleSec:     1.0,
		LogDir:                  "",
	}
}

// Load reads the config file from the given directory (e.g. a data dir),
// applying defaults for anything missing and environment overrides on top.
func Load(configDir string) (*Config, error) {
	filePath := filepath.Join(configDir, "downcore.json")
	cfg := Default()
	cfg.filePath = filePath

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		// Corrupted config: fall back to defaults rather than fail startup.
		cfg = Default()
		cfg.filePath = filePath
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	cfg.filePath = filePath // Unmarshal zeroes unexported fields; restore it.
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides lets deployment environments override file-based
// config without editing it.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOWNCORE_STORAGE_ROOT"); v != "" {
		cfg.StorageRoot = v
	}
	if v := os.Getenv("DOWNCORE_PUBLIC_BASE_URL"); v != "" {
		cfg.PublicBaseURL = v
	}
	if v := os.Getenv("DOWNCORE_SIGNING_SECRET"); v != "" {
		cfg.SigningSecret = v
	}
	if v := os.Getenv("DOWNCORE_DOWNLOADER_BINARY"); v != "" {
		cfg.DownloaderBinaryPath = v
	}
	if v := os.Getenv("DOWNCORE_FFMPEG_PATH"); v != "" {
		cfg.FFmpegPath = v
	}
	if v := os.Getenv("DOWNCORE_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkerCount = n
		}
	}
	if v := os.Getenv("DOWNCORE_MAX_CONCURRENT_DOWNLOADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrentDownloads = n
		}
	}
	if v := os.Getenv("DOWNCORE_WEBHOOK_ENABLE"); v != "" {
		cfg.WebhookEnable = v == "1" || v == "true"
	}
}

// Save writes the current config to disk.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(c.filePath, data, 0644)
}

// Update executes fn with the mutex held, for atomic read-modify-write.
func (c *Config) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

// Get returns a copy of the config safe to read without holding the lock.
func (c *Config) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Config{
		StorageRoot:             c.StorageRoot,
		PublicBaseURL:           c.PublicBaseURL,
		SigningSecret:           c.SigningSecret,
		DownloaderBinaryPath:    c.DownloaderBinaryPath,
		FFmpegPath:              c.FFmpegPath,
		WorkerCount:             c.WorkerCount,
		MaxConcurrentDownloads:  c.MaxConcurrentDownloads,
		DefaultJobTimeoutSec:    c.DefaultJobTimeoutSec,
		ProgressStallTimeoutSec: c.ProgressStallTimeoutSec,
		FileRetentionHours:      c.FileRetentionHours,
		WebhookTimeoutSec:       c.WebhookTimeoutSec,
		WebhookMaxRetries:       c.WebhookMaxRetries,
		WebhookEnable:           c.WebhookEnable,
		MaxBatchSize:            c.MaxBatchSize,
		ProgressThrottleSec:     c.ProgressThrottleSec,
		LogDir:                  c.LogDir,
	}
}
