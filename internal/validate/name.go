// Package validate provides input validation utilities for Lockstep sync
// operations, ensuring data integrity across the submission API and
// configuration management.
//
// Implements validation rules for viewport identifiers, sync group names, and
// configuration parameters. Prevents malformed data from entering the
// scheduling pipeline where it would surface as confusing dispatch failures.
//
// VALIDATION COVERAGE:
//   - Viewport IDs: Format validation for viewport identifiers used as map keys
//   - Group Names: Format validation for sync group identifiers
//   - Network Addresses: IP and port validation for the API endpoint
//   - Configuration: Parameter validation for engine tuning settings
//
// Used throughout CLI tools, API handlers, and configuration processing to
// ensure consistent input validation across all system entry points.

package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRegex matches lowercase letters, numbers, hyphens, and underscores.
// Viewport and group IDs become composite map keys inside the engine
// (`type-source` batch keys), so the character set is restricted to keep those
// keys unambiguous and safe for logs, URLs, and config files.
var identifierRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ViewportIDFormat validates viewport identifiers against engine naming
// requirements. Ensures IDs contain only [a-z0-9_-] and don't start/end with
// special characters.
//
// Necessary because viewport IDs are embedded in batch and throttle keys and
// must round-trip through the HTTP API and CLI without escaping.
func ViewportIDFormat(id string) error {
	if id == "" {
		return fmt.Errorf("viewport id cannot be empty")
	}

	if !identifierRegex.MatchString(id) {
		return fmt.Errorf("viewport id '%s' must contain only lowercase letters [a-z], numbers [0-9], hyphens (-), and underscores (_)", id)
	}

	// Ensure it starts and ends with alphanumeric (not - or _)
	if strings.HasPrefix(id, "-") || strings.HasPrefix(id, "_") ||
		strings.HasSuffix(id, "-") || strings.HasSuffix(id, "_") {
		return fmt.Errorf("viewport id '%s' cannot start or end with hyphen (-) or underscore (_)", id)
	}

	return nil
}

// GroupIDFormat validates sync group identifiers using the same character
// rules as viewport IDs. Group IDs appear in API paths and configuration
// files, so the restricted character set keeps both unescaped.
func GroupIDFormat(id string) error {
	if id == "" {
		return fmt.Errorf("group id cannot be empty")
	}

	if !identifierRegex.MatchString(id) {
		return fmt.Errorf("group id '%s' must contain only lowercase letters [a-z], numbers [0-9], hyphens (-), and underscores (_)", id)
	}

	if strings.HasPrefix(id, "-") || strings.HasPrefix(id, "_") ||
		strings.HasSuffix(id, "-") || strings.HasSuffix(id, "_") {
		return fmt.Errorf("group id '%s' cannot start or end with hyphen (-) or underscore (_)", id)
	}

	return nil
}
