// File-based configuration for the Lockstep daemon. A YAML config file can
// override engine tuning defaults, describe the simulated viewport layout,
// and preconfigure sync groups so a viewer layout comes up linked without any
// API calls.
package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/concave-dev/lockstep/internal/syncer"
	"github.com/concave-dev/lockstep/internal/validate"
	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration file schema.
type FileConfig struct {
	Engine    EngineFileConfig `yaml:"engine"`
	Viewports ViewportsConfig  `yaml:"viewports"`
	Groups    []GroupConfig    `yaml:"groups"`
}

// EngineFileConfig overrides engine tuning defaults. Zero values keep the
// corresponding default.
type EngineFileConfig struct {
	MaxConcurrentOperations int           `yaml:"max_concurrent_operations"`
	OperationTimeout        time.Duration `yaml:"operation_timeout"`
	BatchDelay              time.Duration `yaml:"batch_delay"`
	ThrottleThreshold       time.Duration `yaml:"throttle_threshold"`
	AdaptInterval           time.Duration `yaml:"adapt_interval"`
}

// ViewportsConfig describes the simulated render collaborator.
type ViewportsConfig struct {
	IDs          []string `yaml:"ids"`           // Explicit viewport IDs; overrides Count
	Count        int      `yaml:"count"`         // Generate viewport-1..N when IDs empty
	FailureRate  float64  `yaml:"failure_rate"`  // Probability [0,1] of a simulated apply failure
	LatencyScale float64  `yaml:"latency_scale"` // Multiplier on modeled render cost
	Seed         int64    `yaml:"seed"`          // RNG seed for reproducible failure injection
}

// GroupConfig is a sync group preconfigured at startup.
type GroupConfig struct {
	ID          string                 `yaml:"id"`
	Name        string                 `yaml:"name"`
	ViewportIDs []string               `yaml:"viewport_ids"`
	SyncTypes   []string               `yaml:"sync_types"` // Operation types, or "all"
	Priority    int                    `yaml:"priority"`
	Inactive    bool                   `yaml:"inactive"` // Groups default to active
	Constraints GroupConstraintsConfig `yaml:"constraints"`
}

// GroupConstraintsConfig mirrors the engine's group delivery policy in YAML.
type GroupConstraintsConfig struct {
	MaxLatency       time.Duration `yaml:"max_latency"`
	TolerateFailures bool          `yaml:"tolerate_failures"`
	RequireConsensus bool          `yaml:"require_consensus"`
	NoBatching       bool          `yaml:"no_batching"` // Batching on unless opted out
}

// LoadFileConfig reads and parses a YAML configuration file. Unknown fields
// are rejected so typos surface at startup instead of silently using
// defaults.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// engineConfig merges file overrides onto engine defaults.
func (fc *FileConfig) engineConfig() *syncer.Config {
	cfg := syncer.DefaultConfig()
	if fc == nil {
		return cfg
	}
	if fc.Engine.MaxConcurrentOperations > 0 {
		cfg.MaxConcurrentOperations = fc.Engine.MaxConcurrentOperations
	}
	if fc.Engine.OperationTimeout > 0 {
		cfg.OperationTimeout = fc.Engine.OperationTimeout
	}
	if fc.Engine.BatchDelay > 0 {
		cfg.BatchDelay = fc.Engine.BatchDelay
	}
	if fc.Engine.ThrottleThreshold > 0 {
		cfg.ThrottleThreshold = fc.Engine.ThrottleThreshold
	}
	if fc.Engine.AdaptInterval > 0 {
		cfg.AdaptInterval = fc.Engine.AdaptInterval
	}
	return cfg
}

// group converts a file group entry to the engine's group type, expanding
// the "all" sync-type shorthand and validating IDs.
func (gc *GroupConfig) group() (syncer.Group, error) {
	if gc.ID != "" {
		if err := validate.GroupIDFormat(gc.ID); err != nil {
			return syncer.Group{}, err
		}
	}
	for _, id := range gc.ViewportIDs {
		if err := validate.ViewportIDFormat(id); err != nil {
			return syncer.Group{}, err
		}
	}

	var types []syncer.Type
	for _, t := range gc.SyncTypes {
		if t == "all" {
			types = syncer.AllTypes()
			break
		}
		types = append(types, syncer.Type(t))
	}

	return syncer.Group{
		ID:          gc.ID,
		Name:        gc.Name,
		ViewportIDs: gc.ViewportIDs,
		SyncTypes:   types,
		Priority:    gc.Priority,
		IsActive:    !gc.Inactive,
		Constraints: syncer.GroupConstraints{
			MaxLatency:       gc.Constraints.MaxLatency,
			TolerateFailures: gc.Constraints.TolerateFailures,
			RequireConsensus: gc.Constraints.RequireConsensus,
			BatchOperations:  !gc.Constraints.NoBatching,
		},
	}, nil
}
