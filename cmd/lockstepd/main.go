// Package main implements the Lockstep daemon (lockstepd).
// Lockstep is a synchronization optimizer for multi-viewport medical image
// viewing: it schedules pan/zoom/window-level/scroll/crosshair/orientation
// sync operations across linked viewports with priority ordering, batching,
// throttling, and adaptive concurrency control.
//
// The daemon runs one engine against a simulated render collaborator and
// exposes it over a REST API for CLI tools and embedding applications.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/concave-dev/lockstep/internal/api"
	"github.com/concave-dev/lockstep/internal/config"
	"github.com/concave-dev/lockstep/internal/logging"
	"github.com/concave-dev/lockstep/internal/syncer"
	"github.com/concave-dev/lockstep/internal/validate"
	"github.com/concave-dev/lockstep/internal/viewport"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const (
	DefaultBind      = "127.0.0.1:7600" // Default API bind address
	DefaultViewports = 4                // Default simulated viewport count (2x2 layout)
)

// Global configuration
var daemonConfig struct {
	BindAddr    string  // API bind address
	BindPort    int     // API bind port
	ConfigFile  string  // Optional YAML configuration file
	Viewports   int     // Number of simulated viewports
	FailureRate float64 // Simulated apply failure probability
	LogLevel    string  // Log level: DEBUG, INFO, WARN, ERROR
}

// Root command
var rootCmd = &cobra.Command{
	Use:   "lockstepd",
	Short: "Lockstep viewport synchronization daemon",
	Long: `Lockstep daemon (lockstepd) schedules synchronization operations across
linked image viewports: priority ordering, gesture batching, burst throttling,
and adaptive concurrency control, exposed over a REST API.`,
	Version: config.Version,
	Example: `  # Start with a simulated 2x2 viewport layout
  lockstepd

  # Start with an explicit layout and failure injection
  lockstepd --viewports=6 --failure-rate=0.05

  # Start from a configuration file with preconfigured sync groups
  lockstepd --config=lockstep.yaml --bind=0.0.0.0:7600`,
	PreRunE: validateDaemonConfig,
	RunE:    runDaemon,
}

func init() {
	// Network flags
	rootCmd.Flags().StringVar(&daemonConfig.BindAddr, "bind", DefaultBind,
		"API address and port to bind to (e.g., 0.0.0.0:7600)")

	// Simulation flags
	rootCmd.Flags().IntVar(&daemonConfig.Viewports, "viewports", DefaultViewports,
		"Number of simulated viewports (ignored when --config lists explicit IDs)")
	rootCmd.Flags().Float64Var(&daemonConfig.FailureRate, "failure-rate", 0,
		"Probability [0,1] that a simulated apply fails")

	// Operational flags
	rootCmd.Flags().StringVar(&daemonConfig.ConfigFile, "config", "",
		"Path to YAML configuration file")
	rootCmd.Flags().StringVar(&daemonConfig.LogLevel, "log-level", config.DefaultLogLevel,
		"Log level: DEBUG, INFO, WARN, ERROR")
}

// Validates configuration before running
func validateDaemonConfig(cmd *cobra.Command, args []string) error {
	netAddr, err := validate.ParseBindAddress(daemonConfig.BindAddr)
	if err != nil {
		return fmt.Errorf("invalid bind address: %w", err)
	}

	// Daemon requires non-zero ports (port 0 would let OS choose)
	if err := validate.ValidateField(netAddr.Port, "required,min=1,max=65535"); err != nil {
		return fmt.Errorf("daemon requires specific port (not 0): %w", err)
	}

	daemonConfig.BindAddr = netAddr.Host
	daemonConfig.BindPort = netAddr.Port

	if daemonConfig.Viewports < 2 {
		return fmt.Errorf("at least two viewports are required for synchronization, got %d",
			daemonConfig.Viewports)
	}
	if daemonConfig.FailureRate < 0 || daemonConfig.FailureRate > 1 {
		return fmt.Errorf("failure rate must be in [0,1], got %v", daemonConfig.FailureRate)
	}

	validLogLevels := map[string]bool{
		"DEBUG": true,
		"INFO":  true,
		"WARN":  true,
		"ERROR": true,
	}
	if !validLogLevels[daemonConfig.LogLevel] {
		return fmt.Errorf("invalid log level: %s", daemonConfig.LogLevel)
	}

	return nil
}

// buildSimConfig assembles the simulated renderer configuration from flags
// and the optional config file. Explicit viewport IDs in the file win over
// the --viewports count.
func buildSimConfig(fileCfg *FileConfig) *viewport.SimConfig {
	simCfg := viewport.DefaultSimConfig(daemonConfig.Viewports)
	simCfg.FailureRate = daemonConfig.FailureRate

	if fileCfg == nil {
		return simCfg
	}
	if len(fileCfg.Viewports.IDs) > 0 {
		simCfg.Viewports = fileCfg.Viewports.IDs
	} else if fileCfg.Viewports.Count > 0 {
		simCfg.Viewports = viewport.DefaultSimConfig(fileCfg.Viewports.Count).Viewports
	}
	if fileCfg.Viewports.FailureRate > 0 {
		simCfg.FailureRate = fileCfg.Viewports.FailureRate
	}
	if fileCfg.Viewports.LatencyScale > 0 {
		simCfg.LatencyScale = fileCfg.Viewports.LatencyScale
	}
	if fileCfg.Viewports.Seed != 0 {
		simCfg.Seed = fileCfg.Viewports.Seed
	}
	return simCfg
}

// Runs the daemon with graceful shutdown handling
func runDaemon(cmd *cobra.Command, args []string) error {
	logging.SetLevel(daemonConfig.LogLevel)

	logging.Info("Starting Lockstep daemon v%s", config.Version)
	logging.Info("Binding API to %s:%d", daemonConfig.BindAddr, daemonConfig.BindPort)

	var fileCfg *FileConfig
	if daemonConfig.ConfigFile != "" {
		var err error
		fileCfg, err = LoadFileConfig(daemonConfig.ConfigFile)
		if err != nil {
			return err
		}
		logging.Info("Loaded configuration from %s", daemonConfig.ConfigFile)
	}

	// Create the simulated render collaborator and the engine
	simCfg := buildSimConfig(fileCfg)
	sim := viewport.NewSimApplier(simCfg)
	logging.Info("Simulating %d viewports (failure rate: %.2f)",
		len(simCfg.Viewports), simCfg.FailureRate)

	engine, err := syncer.New(sim, fileCfg.engineConfig())
	if err != nil {
		return fmt.Errorf("failed to create sync engine: %w", err)
	}

	// Preconfigure sync groups from the config file
	if fileCfg != nil {
		for _, gc := range fileCfg.Groups {
			group, err := gc.group()
			if err != nil {
				return fmt.Errorf("invalid group in config file: %w", err)
			}
			if _, err := engine.ConfigureGroup(group); err != nil {
				return fmt.Errorf("failed to configure group: %w", err)
			}
		}
	}

	engine.Start()

	// Periodic scheduler telemetry at debug level
	engine.OnMetricsTick(func(m syncer.Metrics) {
		logging.Debug("Metrics: %s ops total, %s completed, %d queued, avg latency %v, %.1f ops/sec",
			humanize.Comma(int64(m.TotalOperations)), humanize.Comma(int64(m.CompletedOperations)),
			m.QueueLength, m.AverageLatency, m.Throughput)
	})

	// Start API server
	apiConfig := api.DefaultConfig()
	apiConfig.BindAddr = daemonConfig.BindAddr
	apiConfig.BindPort = daemonConfig.BindPort
	apiConfig.Engine = engine
	if err := apiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid API config: %w", err)
	}
	apiServer := api.NewServer(apiConfig)
	if err := apiServer.Start(); err != nil {
		engine.Stop()
		return fmt.Errorf("failed to start API server: %w", err)
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logging.Success("Lockstep daemon started successfully")
	logging.Info("Daemon running... Press Ctrl+C to shutdown")

	sig := <-sigCh
	logging.Info("Received signal: %v", sig)

	// Graceful shutdown
	logging.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("Error shutting down API server: %v", err)
	}

	engine.Stop()

	m := engine.GetMetrics()
	logging.Info("Session summary: %s operations, %s completed, %s batched, %s throttled",
		humanize.Comma(int64(m.TotalOperations)), humanize.Comma(int64(m.CompletedOperations)),
		humanize.Comma(int64(m.BatchedOperations)), humanize.Comma(int64(m.ThrottledOperations)))

	logging.Success("Lockstep daemon shutdown completed")
	return nil
}

// Main entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
