// Package config loads foreman's layered YAML configuration, grounded on
// the teacher's internal/config/config.go: defaults first, then a YAML
// file overlay, then environment variable overrides for the values an
// operator most often needs to flip without editing a file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreConfig points at the sqlite database backing internal/store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// OrchestratorConfig holds agent caps and the heartbeat threshold. They
// are loaded and overlaid like every other field, but serve does not pass
// them on: the orchestrator's stuck-agent sweep uses its own fixed
// threshold.
type OrchestratorConfig struct {
	MaxGlobalAgents    int           `yaml:"max_global_agents"`
	DefaultListAgents  int           `yaml:"default_list_agents"`
	HeartbeatThreshold time.Duration `yaml:"heartbeat_threshold"`
}

// ChatConfig configures the outbound chat dispatcher (§4.7).
type ChatConfig struct {
	MessagesPerMinute int           `yaml:"messages_per_minute"`
	DedupWindow       time.Duration `yaml:"dedup_window"`
	HealthInterval    time.Duration `yaml:"health_interval"`
	ChunkSize         int           `yaml:"chunk_size"`
}

// FailureConfig configures the retry bound (§4.5). MaxConsecutiveFailures
// is passed to the orchestrator; BackoffBase and BackoffCeiling are loaded
// but not read elsewhere, since failure.Delay uses its own constants.
type FailureConfig struct {
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
	BackoffBase            time.Duration `yaml:"backoff_base"`
	BackoffCeiling         time.Duration `yaml:"backoff_ceiling"`
}

// GroupingConfig configures the clustering engine (§4.3).
type GroupingConfig struct {
	Threshold    float64 `yaml:"threshold"`
	MinGroupSize int     `yaml:"min_group_size"`
	MaxGroupSize int     `yaml:"max_group_size"`
}

// ApprovalConfig holds the confirmation-gate timeout (§4.6, §3
// PendingApproval). It is loaded but not passed on: the orchestrator's
// approval timer uses its own fixed timeout.
type ApprovalConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// TelegramConfig holds per-bot-type credentials and the reception-mode
// settings §6 names as environment variables; it has no YAML fields of
// its own since credentials never belong in a checked-in file.
type TelegramConfig struct {
	BotTokens      map[string]string `yaml:"-"` // bot type -> token, from TELEGRAM_BOT_<TYPE>
	AdminChatID    string            `yaml:"-"`
	WebhookSecret  string            `yaml:"-"`
	PrimaryUserID  string            `yaml:"-"`
	WebhookURL     string            `yaml:"webhook_url"`
	UseWebhook     bool              `yaml:"use_webhook"`
}

// Config is foreman's top-level, per-concern configuration tree.
type Config struct {
	LogLevel string `yaml:"log_level"`
	LogDir   string `yaml:"log_dir"`

	Store        StoreConfig        `yaml:"store"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Chat         ChatConfig         `yaml:"chat"`
	Failure      FailureConfig      `yaml:"failure"`
	Grouping     GroupingConfig     `yaml:"grouping"`
	Approval     ApprovalConfig     `yaml:"approval"`
	Telegram     TelegramConfig     `yaml:"telegram"`
}

// Default returns a Config with sensible defaults, matching the values
// documented in SPEC_FULL.md where the spec states them explicitly.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		LogDir:   ".foreman/logs",
		Store: StoreConfig{
			Path: ".foreman/foreman.db",
		},
		Orchestrator: OrchestratorConfig{
			MaxGlobalAgents:    10,
			DefaultListAgents:  3,
			HeartbeatThreshold: 90 * time.Second,
		},
		Chat: ChatConfig{
			MessagesPerMinute: 10,
			DedupWindow:       60 * time.Second,
			HealthInterval:    5 * time.Minute,
			ChunkSize:         4000,
		},
		Failure: FailureConfig{
			MaxConsecutiveFailures: 3,
			BackoffBase:            time.Second,
			BackoffCeiling:         30 * time.Second,
		},
		Grouping: GroupingConfig{
			Threshold:    0.6,
			MinGroupSize: 2,
			MaxGroupSize: 20,
		},
		Approval: ApprovalConfig{
			Timeout: 5 * time.Minute,
		},
		Telegram: TelegramConfig{
			BotTokens: make(map[string]string),
		},
	}
}

// Load reads path, merging it over Default(); a missing file is not an
// error (the defaults are returned as-is), matching the teacher's
// LoadConfig "defaults if absent, error if malformed" contract.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	mergeOverrides(cfg, &file)

	applyEnvOverrides(cfg)
	return cfg, nil
}

// mergeOverrides copies every non-zero field of file onto cfg; zero
// values in the YAML file are treated as "not specified", same as the
// teacher's field-by-field merge in LoadConfig.
func mergeOverrides(cfg, file *Config) {
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.LogDir != "" {
		cfg.LogDir = file.LogDir
	}
	if file.Store.Path != "" {
		cfg.Store.Path = file.Store.Path
	}
	if file.Orchestrator.MaxGlobalAgents != 0 {
		cfg.Orchestrator.MaxGlobalAgents = file.Orchestrator.MaxGlobalAgents
	}
	if file.Orchestrator.DefaultListAgents != 0 {
		cfg.Orchestrator.DefaultListAgents = file.Orchestrator.DefaultListAgents
	}
	if file.Orchestrator.HeartbeatThreshold != 0 {
		cfg.Orchestrator.HeartbeatThreshold = file.Orchestrator.HeartbeatThreshold
	}
	if file.Chat.MessagesPerMinute != 0 {
		cfg.Chat.MessagesPerMinute = file.Chat.MessagesPerMinute
	}
	if file.Chat.DedupWindow != 0 {
		cfg.Chat.DedupWindow = file.Chat.DedupWindow
	}
	if file.Chat.HealthInterval != 0 {
		cfg.Chat.HealthInterval = file.Chat.HealthInterval
	}
	if file.Chat.ChunkSize != 0 {
		cfg.Chat.ChunkSize = file.Chat.ChunkSize
	}
	if file.Failure.MaxConsecutiveFailures != 0 {
		cfg.Failure.MaxConsecutiveFailures = file.Failure.MaxConsecutiveFailures
	}
	if file.Failure.BackoffBase != 0 {
		cfg.Failure.BackoffBase = file.Failure.BackoffBase
	}
	if file.Failure.BackoffCeiling != 0 {
		cfg.Failure.BackoffCeiling = file.Failure.BackoffCeiling
	}
	if file.Grouping.Threshold != 0 {
		cfg.Grouping.Threshold = file.Grouping.Threshold
	}
	if file.Grouping.MinGroupSize != 0 {
		cfg.Grouping.MinGroupSize = file.Grouping.MinGroupSize
	}
	if file.Grouping.MaxGroupSize != 0 {
		cfg.Grouping.MaxGroupSize = file.Grouping.MaxGroupSize
	}
	if file.Approval.Timeout != 0 {
		cfg.Approval.Timeout = file.Approval.Timeout
	}
	if file.Telegram.WebhookURL != "" {
		cfg.Telegram.WebhookURL = file.Telegram.WebhookURL
	}
	if file.Telegram.UseWebhook {
		cfg.Telegram.UseWebhook = file.Telegram.UseWebhook
	}
}

// applyEnvOverrides reads a small set of env vars the way the teacher's
// internal/claude/env.go does: plain os.Getenv calls, no reflection-based
// binder, documented one by one.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FOREMAN_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("FOREMAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FOREMAN_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}

	for _, botType := range []string{"system", "monitor", "orchestrator", "build", "spec", "validation", "sia", "planning", "clarification", "human"} {
		envName := "TELEGRAM_BOT_" + strings.ToUpper(botType)
		if token := os.Getenv(envName); token != "" {
			cfg.Telegram.BotTokens[botType] = token
		}
	}
	if v := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); v != "" {
		cfg.Telegram.AdminChatID = v
	}
	if v := os.Getenv("TELEGRAM_WEBHOOK_SECRET"); v != "" {
		cfg.Telegram.WebhookSecret = v
	}
	if v := os.Getenv("PRIMARY_USER_ID"); v != "" {
		cfg.Telegram.PrimaryUserID = v
	}
}
