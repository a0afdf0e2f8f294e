// Package config defines the pool configuration surface: agent bounds,
// monitor intervals, scaling thresholds, health tuning, and logging.
// Configuration is loaded through viper and validated before the pool
// accepts it.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AgentCeiling is the hard upper bound on max_agents. No configuration can
// size the pool past this.
const AgentCeiling = 10

// Pool is the complete agent pool configuration.
// It is immutable once handed to a pool.
type Pool struct {
	// MinAgents is the number of agents created at startup and the floor
	// the autoscaler will never shrink below.
	MinAgents int `mapstructure:"min_agents"`
	// MaxAgents is the registry capacity. Must not exceed AgentCeiling.
	MaxAgents int `mapstructure:"max_agents"`

	// HealthCheckIntervalMs is the period of the health monitor and
	// autoscaler loops, in milliseconds.
	HealthCheckIntervalMs int `mapstructure:"health_check_interval_ms"`
	// HeartbeatTimeoutMs is how long an agent may go without a heartbeat
	// before the health monitor penalizes it, in milliseconds.
	HeartbeatTimeoutMs int `mapstructure:"heartbeat_timeout_ms"`
	// GracefulShutdownTimeoutMs bounds the drain wait during Shutdown and
	// non-forced removal of a busy agent, in milliseconds.
	GracefulShutdownTimeoutMs int `mapstructure:"graceful_shutdown_timeout_ms"`

	Scaling ScalingConfig `mapstructure:"scaling"`
	Health  HealthConfig  `mapstructure:"health"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScalingConfig selects and tunes the autoscaling policy.
type ScalingConfig struct {
	// Policy is the autoscaling trigger: "occupancy" scales on busy/idle
	// ratios, "queue_depth" scales on pending queue length.
	Policy string `mapstructure:"policy"`
	// ScaleUpThreshold is the busy share of working (non-quarantined)
	// agents at or above which the occupancy policy adds one agent.
	// Range (0, 1].
	ScaleUpThreshold float64 `mapstructure:"scale_up_threshold"`
	// ScaleDownThreshold is the idle share of working agents at or above
	// which the occupancy policy removes one idle agent. Range (0, 1];
	// must sum with ScaleUpThreshold to more than 1.
	ScaleDownThreshold float64 `mapstructure:"scale_down_threshold"`
	// QueueScaleUpDepth is the pending queue length at or above which the
	// queue_depth policy adds one agent.
	QueueScaleUpDepth int `mapstructure:"queue_scale_up_depth"`
}

// HealthConfig tunes the agent health model. All values are points on the
// [0, 100] health scale.
type HealthConfig struct {
	// DispatchMinHealth is the minimum health an idle agent needs to
	// receive work.
	DispatchMinHealth int `mapstructure:"dispatch_min_health"`
	// ErrorFloor is the health at or below which a failing agent becomes
	// Error instead of returning to Idle.
	ErrorFloor int `mapstructure:"error_floor"`
	// FailurePenalty is subtracted from health on a reported task failure.
	FailurePenalty int `mapstructure:"failure_penalty"`
	// HeartbeatPenalty is subtracted from health when a heartbeat is overdue.
	HeartbeatPenalty int `mapstructure:"heartbeat_penalty"`
	// HeartbeatRecovery is added to health on each received heartbeat.
	HeartbeatRecovery int `mapstructure:"heartbeat_recovery"`
}

// QueueConfig tunes the task queue.
type QueueConfig struct {
	// CompletedHistoryLimit caps how many terminal tasks are retained for
	// inspection before oldest-first eviction.
	CompletedHistoryLimit int `mapstructure:"completed_history_limit"`
}

// LoggingConfig controls structured logging behavior.
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for the pool log file; empty logs to stderr.
	Dir string `mapstructure:"dir"`
}

// Default returns a Pool config with sensible default values.
func Default() *Pool {
	return &Pool{
		MinAgents:                 1,
		MaxAgents:                 5,
		HealthCheckIntervalMs:     1000,
		HeartbeatTimeoutMs:        30000,
		GracefulShutdownTimeoutMs: 10000,
		Scaling: ScalingConfig{
			Policy:             "occupancy",
			ScaleUpThreshold:   0.8,
			ScaleDownThreshold: 0.5,
			QueueScaleUpDepth:  3,
		},
		Health: HealthConfig{
			DispatchMinHealth: 50,
			ErrorFloor:        30,
			FailurePenalty:    20,
			HeartbeatPenalty:  20,
			HeartbeatRecovery: 10,
		},
		Queue: QueueConfig{
			CompletedHistoryLimit: 100,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
	}
}

// HealthCheckInterval returns the monitor period as a time.Duration.
func (p *Pool) HealthCheckInterval() time.Duration {
	return time.Duration(p.HealthCheckIntervalMs) * time.Millisecond
}

// HeartbeatTimeout returns the heartbeat deadline as a time.Duration.
func (p *Pool) HeartbeatTimeout() time.Duration {
	return time.Duration(p.HeartbeatTimeoutMs) * time.Millisecond
}

// GracefulShutdownTimeout returns the drain bound as a time.Duration.
func (p *Pool) GracefulShutdownTimeout() time.Duration {
	return time.Duration(p.GracefulShutdownTimeoutMs) * time.Millisecond
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("min_agents", defaults.MinAgents)
	viper.SetDefault("max_agents", defaults.MaxAgents)
	viper.SetDefault("health_check_interval_ms", defaults.HealthCheckIntervalMs)
	viper.SetDefault("heartbeat_timeout_ms", defaults.HeartbeatTimeoutMs)
	viper.SetDefault("graceful_shutdown_timeout_ms", defaults.GracefulShutdownTimeoutMs)

	viper.SetDefault("scaling.policy", defaults.Scaling.Policy)
	viper.SetDefault("scaling.scale_up_threshold", defaults.Scaling.ScaleUpThreshold)
	viper.SetDefault("scaling.scale_down_threshold", defaults.Scaling.ScaleDownThreshold)
	viper.SetDefault("scaling.queue_scale_up_depth", defaults.Scaling.QueueScaleUpDepth)

	viper.SetDefault("health.dispatch_min_health", defaults.Health.DispatchMinHealth)
	viper.SetDefault("health.error_floor", defaults.Health.ErrorFloor)
	viper.SetDefault("health.failure_penalty", defaults.Health.FailurePenalty)
	viper.SetDefault("health.heartbeat_penalty", defaults.Health.HeartbeatPenalty)
	viper.SetDefault("health.heartbeat_recovery", defaults.Health.HeartbeatRecovery)

	viper.SetDefault("queue.completed_history_limit", defaults.Queue.CompletedHistoryLimit)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Pool struct and validates it.
func Load() (*Pool, error) {
	var cfg Pool
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function).
// Falls back to defaults if loading fails.
func Get() *Pool {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Watch registers a callback invoked when the config file changes on disk.
// A running pool keeps its construction-time configuration; the callback is
// for operator surfaces to report drift.
func Watch(onChange func(fsnotify.Event)) {
	viper.OnConfigChange(onChange)
	viper.WatchConfig()
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentpool")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentpool"
	}
	return filepath.Join(home, ".config", "agentpool")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidScalingPolicies returns the list of valid scaling policy values.
func ValidScalingPolicies() []string {
	return []string{"occupancy", "queue_depth"}
}

// IsValidScalingPolicy checks if the given policy is valid.
func IsValidScalingPolicy(policy string) bool {
	for _, valid := range ValidScalingPolicies() {
		if policy == valid {
			return true
		}
	}
	return false
}
