package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loomworks/agentpool/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or validate agentpool configuration",
	Long: `View or validate agentpool configuration.

Without arguments, displays the current configuration.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current configuration",
	RunE:  runConfigValidate,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/agentpool/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Printf("min_agents: %d\n", cfg.MinAgents)
	fmt.Printf("max_agents: %d\n", cfg.MaxAgents)
	fmt.Printf("health_check_interval_ms: %d\n", cfg.HealthCheckIntervalMs)
	fmt.Printf("heartbeat_timeout_ms: %d\n", cfg.HeartbeatTimeoutMs)
	fmt.Printf("graceful_shutdown_timeout_ms: %d\n", cfg.GracefulShutdownTimeoutMs)

	fmt.Println("scaling:")
	fmt.Printf("  policy: %s\n", cfg.Scaling.Policy)
	fmt.Printf("  scale_up_threshold: %.2f\n", cfg.Scaling.ScaleUpThreshold)
	fmt.Printf("  scale_down_threshold: %.2f\n", cfg.Scaling.ScaleDownThreshold)
	fmt.Printf("  queue_scale_up_depth: %d\n", cfg.Scaling.QueueScaleUpDepth)

	fmt.Println("health:")
	fmt.Printf("  dispatch_min_health: %d\n", cfg.Health.DispatchMinHealth)
	fmt.Printf("  error_floor: %d\n", cfg.Health.ErrorFloor)
	fmt.Printf("  failure_penalty: %d\n", cfg.Health.FailurePenalty)
	fmt.Printf("  heartbeat_penalty: %d\n", cfg.Health.HeartbeatPenalty)
	fmt.Printf("  heartbeat_recovery: %d\n", cfg.Health.HeartbeatRecovery)

	fmt.Println("queue:")
	fmt.Printf("  completed_history_limit: %d\n", cfg.Queue.CompletedHistoryLimit)

	fmt.Println("logging:")
	fmt.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Printf("  level: %s\n", cfg.Logging.Level)
	fmt.Printf("  dir: %s\n", cfg.Logging.Dir)

	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	verrs := cfg.Validate()
	if len(verrs) == 0 {
		fmt.Println("Configuration is valid")
		return nil
	}
	for _, verr := range verrs {
		fmt.Fprintf(os.Stderr, "%s\n", verr.Error())
	}
	return fmt.Errorf("invalid configuration (%d errors)", len(verrs))
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configContent := `# Agentpool configuration

# Agent count bounds. max_agents may not exceed the hard ceiling of 10.
min_agents: 1
max_agents: 5

# Background loop timing (milliseconds).
health_check_interval_ms: 1000
heartbeat_timeout_ms: 30000
graceful_shutdown_timeout_ms: 10000

scaling:
  # occupancy: scale on busy/idle ratio. queue_depth: scale on backlog.
  policy: occupancy
  scale_up_threshold: 0.8
  scale_down_threshold: 0.5
  queue_scale_up_depth: 3

health:
  dispatch_min_health: 50
  error_floor: 30
  failure_penalty: 20
  heartbeat_penalty: 20
  heartbeat_recovery: 10

queue:
  completed_history_limit: 100

logging:
  enabled: true
  level: info
  # dir: /var/log/agentpool  # empty logs to stderr
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(config.ConfigFile())
	return nil
}
