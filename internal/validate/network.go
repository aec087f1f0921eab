// Package validate provides network validation utilities for the Lockstep
// HTTP API, ensuring proper network configuration for the viewer session.
//
// Implements IP address, port range, and address format validation using the
// go-playground/validator library. Prevents network configuration errors that
// could cause API startup failures or unreachable endpoints.
//
// VALIDATION FEATURES:
//   - IP Address: IPv4 and IPv6 format validation
//   - Port Range: Valid port numbers (0-65535)
//   - Format: Proper "host:port" address formatting
//
// Used for validating bind addresses and API endpoints during daemon startup
// and CLI flag processing.
package validate

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var (
	// Global validator instance using built-in validations
	validate *validator.Validate
)

func init() {
	validate = validator.New()
	// Using built-in validators: ip, min, max - no custom registration needed
}

// NetworkAddress represents a validated network address with host and port
// components for API endpoints. Provides a standardized structure for network
// addresses with built-in validation tags.
//
// Uses struct tags for automatic validation via the go-playground/validator
// library, ensuring addresses are checked before being used for API binding
// or client connections.
type NetworkAddress struct {
	Host string `validate:"required,ip"`              // Built-in IP validator
	Port int    `validate:"required,min=0,max=65535"` // Built-in range validator
}

// String returns the network address in standard "host:port" format suitable
// for network connections, configuration display, and logging.
func (na NetworkAddress) String() string {
	return fmt.Sprintf("%s:%d", na.Host, na.Port)
}

// ParseBindAddress parses and validates a "host:port" address string for API
// binding and client endpoints. Provides comprehensive validation including
// format checking, IP address validation, and port range verification.
//
// Essential for processing user-provided network addresses from configuration
// files, CLI arguments, and API requests. Ensures all network endpoints are
// properly formatted and valid before attempting network operations, preventing
// runtime failures and providing clear error messages for troubleshooting.
func ParseBindAddress(addr string) (*NetworkAddress, error) {
	if addr == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address format '%s': %w", addr, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port '%s': %w", portStr, err)
	}

	netAddr := &NetworkAddress{
		Host: host,
		Port: port,
	}

	// Validate using struct tags
	if err := validate.Struct(netAddr); err != nil {
		return nil, fmt.Errorf("invalid address '%s': %w", addr, err)
	}

	return netAddr, nil
}

// ValidateField validates a single value against a validator tag expression.
// Thin wrapper around the library's Var call so callers outside this package
// can reuse the shared validator instance.
func ValidateField(value interface{}, tag string) error {
	return validate.Var(value, tag)
}

// ValidateStruct validates a tagged struct using the shared validator instance.
// Used by config packages to validate their configuration structures without
// each creating their own validator.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
