// Package api provides HTTP API server configuration for Lockstep.
//
// This file defines configuration structures and validation logic for the REST
// API server that exposes the synchronization engine to external clients. The
// configuration manages network binding parameters and the reference to the
// engine instance whose scheduling surface the endpoints expose.
//
// The API configuration is the bridge between the in-process scheduler and
// external tools like lockstepctl: it provides structured access to operation
// submission, cancellation, group management, and scheduler metrics through a
// standardized REST interface.
//
// TODO: Add support for TLS/HTTPS configuration (cert/key files)
// TODO: Add support for authentication/authorization middleware
package api

import (
	"fmt"

	"github.com/concave-dev/lockstep/internal/config"
	"github.com/concave-dev/lockstep/internal/syncer"
	"github.com/concave-dev/lockstep/internal/validate"
)

// Config holds all configuration parameters required for running the HTTP API
// server alongside a Lockstep engine.
//
// The Config struct serves as a dependency injection container: the server
// reaches the scheduler exclusively through the Engine reference, which keeps
// the API layer free of scheduling state of its own and facilitates testing
// with mock engine implementations behind the handlers' interfaces.
type Config struct {
	BindAddr string         // HTTP server bind address (e.g., "127.0.0.1")
	BindPort int            // HTTP server bind port
	Engine   *syncer.Engine // Reference to the synchronization engine
}

// DefaultConfig creates a new Config instance with sensible default values
// for local development and testing environments. Binds to loopback so a
// workstation viewer never exposes its scheduler unintentionally.
func DefaultConfig() *Config {
	return &Config{
		BindAddr: config.DefaultBindAddr,
		BindPort: config.DefaultAPIPort,
		Engine:   nil, // Must be set by caller
	}
}

// Validate performs validation of all configuration parameters to ensure the
// API server can start successfully and operate correctly.
func (c *Config) Validate() error {
	if err := validate.ValidateRequiredString(c.BindAddr, "bind address"); err != nil {
		return err
	}
	if err := validate.ValidatePortRange(c.BindPort); err != nil {
		return fmt.Errorf("bind port validation failed: %w", err)
	}
	if c.Engine == nil {
		return fmt.Errorf("sync engine cannot be nil")
	}
	return nil
}
