// Package main implements the Lockstep CLI tool (lockstepctl).
//
// lockstepctl talks to a running Lockstep daemon over its REST API and
// provides commands for inspecting scheduler health and metrics, managing
// sync groups, and submitting or cancelling sync operations. It follows
// kubectl-style patterns: resource-oriented subcommands, a global --output
// flag for JSON, and a global --api flag for remote daemons.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/concave-dev/lockstep/cmd/lockstepctl/client"
	"github.com/concave-dev/lockstep/cmd/lockstepctl/display"
	"github.com/concave-dev/lockstep/internal/config"
	"github.com/concave-dev/lockstep/internal/logging"
	"github.com/spf13/cobra"
)

const (
	DefaultAPIAddr = "127.0.0.1:7600" // Default daemon API address
	DefaultTimeout = 10               // Connection timeout in seconds
)

// Global CLI configuration
var global struct {
	APIAddr  string // Address of the Lockstep daemon API
	Timeout  int    // Connection timeout in seconds
	Output   string // Output format: table, json
	LogLevel string // Log level for CLI operations
}

// Root command
var rootCmd = &cobra.Command{
	Use:   "lockstepctl",
	Short: "CLI tool for managing Lockstep viewport synchronization",
	Long: `Lockstep CLI (lockstepctl) is a command-line tool for inspecting and
managing a running Lockstep daemon: scheduler metrics, adaptive tuning state,
sync groups, and manual operation submission.`,
	Version:           config.Version,
	SilenceUsage:      true,
	PersistentPreRunE: validateGlobalFlags,
	Example: `  # Show daemon health
  lockstepctl health

  # Show scheduler metrics
  lockstepctl metrics

  # List sync groups
  lockstepctl group ls

  # Create a sync group linking two viewports for pan and zoom
  lockstepctl group create --id=grp-mpr --viewports=viewport-1,viewport-2 --types=pan,zoom

  # Submit a pan operation and wait for the result
  lockstepctl submit --type=pan --source=viewport-1 --targets=viewport-2 --wait

  # Connect to a remote daemon with JSON output
  lockstepctl --api=192.168.1.50:7600 -o json metrics`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&global.APIAddr, "api", DefaultAPIAddr,
		"Address of Lockstep daemon API server")
	rootCmd.PersistentFlags().IntVar(&global.Timeout, "timeout", DefaultTimeout,
		"Connection timeout in seconds")
	rootCmd.PersistentFlags().StringVarP(&global.Output, "output", "o", "table",
		"Output format: table, json")
	rootCmd.PersistentFlags().StringVar(&global.LogLevel, "log-level", "ERROR",
		"Log level: DEBUG, INFO, WARN, ERROR")

	configSetCmd.Flags().IntVar(&configSetFlags.MaxConcurrent, "max-concurrent", 0,
		"Maximum concurrent dispatch operations")
	configSetCmd.Flags().DurationVar(&configSetFlags.Timeout, "op-timeout", 0,
		"Per-target operation timeout (e.g. 250ms)")
	configSetCmd.Flags().DurationVar(&configSetFlags.BatchDelay, "batch-delay", 0,
		"Batching window for same-key operations (e.g. 16ms)")
	configSetCmd.Flags().DurationVar(&configSetFlags.ThrottleThreshold, "throttle-threshold", 0,
		"Minimum inter-operation interval before admission delays (e.g. 33ms)")
	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(configCmd)
	setupGroupCommands()
	setupOperationCommands()
}

// Validates global flags before any command runs
func validateGlobalFlags(cmd *cobra.Command, args []string) error {
	if global.Output != "table" && global.Output != "json" {
		return fmt.Errorf("invalid output format: %s (must be table or json)", global.Output)
	}
	if global.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", global.Timeout)
	}
	if err := logging.ValidateLogLevel(global.LogLevel); err != nil {
		return err
	}

	logging.SetLevel(global.LogLevel)
	display.JSONOutput = global.Output == "json"
	return nil
}

// apiClient creates an API client from the global flags.
func apiClient() *client.LockstepAPIClient {
	return client.NewLockstepAPIClient(global.APIAddr, global.Timeout, config.Version)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show daemon health status",
	RunE: func(cmd *cobra.Command, args []string) error {
		health, err := apiClient().GetHealth()
		if err != nil {
			return err
		}
		display.ShowHealth(health)
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show scheduler metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		metrics, err := apiClient().GetMetrics()
		if err != nil {
			return err
		}
		display.ShowMetrics(metrics)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the engine's live tuning configuration",
	Long: `Show the engine's current tuning configuration. Values drift over time
as the adaptive controller retunes batching, throttling, and concurrency
from observed latency and error rates.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := apiClient().GetConfig()
		if err != nil {
			return err
		}
		display.ShowConfig(cfg)
		return nil
	},
}

// Flags for config set
var configSetFlags struct {
	MaxConcurrent     int
	Timeout           time.Duration
	BatchDelay        time.Duration
	ThrottleThreshold time.Duration
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Override engine tuning parameters",
	Long: `Override one or more engine tuning parameters. Unset flags keep their
current values. The adaptive controller keeps tuning from the new values, so
overrides drift again unless resubmitted.`,
	Example: `  # Raise the concurrency budget
  lockstepctl config set --max-concurrent=8

  # Widen the batching window and per-target timeout
  lockstepctl config set --batch-delay=24ms --op-timeout=500ms`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := apiClient().UpdateConfig(client.EngineConfig{
			MaxConcurrentOperations: configSetFlags.MaxConcurrent,
			OperationTimeout:        int64(configSetFlags.Timeout),
			BatchDelay:              int64(configSetFlags.BatchDelay),
			ThrottleThreshold:       int64(configSetFlags.ThrottleThreshold),
		})
		if err != nil {
			return err
		}
		display.ShowConfig(cfg)
		return nil
	},
}

// Main entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
