// Package config provides common default configuration values shared across
// Lockstep components (sync engine, HTTP API, CLI). This centralizes
// configuration management and ensures consistency across the viewer session.
package config

const (
	// Version is the release version reported by the daemon, the API, and
	// the CLI. Single definition so the three surfaces can never disagree.
	Version = "0.1.0-dev"

	// DefaultBindAddr is the default bind address for the HTTP API.
	// Loopback by default: the engine serves a local viewer session and
	// is not meant to be reachable from other hosts unless opted in.
	DefaultBindAddr = "127.0.0.1"

	// DefaultAPIPort is the default port for the HTTP API server
	DefaultAPIPort = 7600

	// DefaultLogLevel is the default log level for all components
	// INFO provides good balance of visibility without verbose debug output
	DefaultLogLevel = "INFO"
)
