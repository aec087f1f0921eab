// Package logging provides ID formatting utilities for consistent ID display
// across all logging contexts in the Lockstep synchronization engine.
//
// Implements intelligent ID truncation that preserves full IDs in debug contexts
// while providing user-friendly short IDs in info/warning contexts, improving
// log readability without sacrificing traceability when detailed debugging is
// needed.
//
// ID FORMATTING STRATEGY:
//   - Debug logs: Full UUIDs for complete traceability
//   - Info/Warn/Error/Success logs: Truncated 12-character IDs for readability
//   - Consistent formatting across all engine components
//
// USAGE PATTERNS:
//   - FormatOperationID: Format sync operation IDs with context-aware truncation
//   - FormatViewportID: Format viewport IDs with context-aware truncation
//   - FormatGroupID: Format sync group IDs with context-aware truncation
//   - FormatID: Generic ID formatting for any resource type
package logging

import (
	"github.com/charmbracelet/log"
	"github.com/concave-dev/lockstep/internal/utils"
)

// FormatID formats an ID for logging based on the current log level context.
// Returns the full ID for debug logging to ensure complete traceability during
// troubleshooting, while returning a truncated 12-character ID for other log
// levels to improve readability in operational logs.
func FormatID(id string) string {
	// If debug level is enabled, show full IDs for complete traceability
	// Use stderr logger since debug messages go to stderr
	if stderrLogger.GetLevel() <= log.DebugLevel {
		return id
	}

	// For info/warn/error/success contexts, use truncated IDs for readability
	return utils.TruncateIDSafe(id)
}

// FormatOperationID formats a sync operation ID for logging with context-aware
// truncation. Provides a semantic wrapper around FormatID for operation UUIDs.
//
// Usage: logging.Info("Dispatching operation %s", logging.FormatOperationID(opID))
func FormatOperationID(opID string) string {
	return FormatID(opID)
}

// FormatViewportID formats a viewport ID for logging with context-aware
// truncation. Provides a semantic wrapper around FormatID for viewport
// identifiers.
//
// Usage: logging.Info("Applied update to viewport %s", logging.FormatViewportID(vpID))
func FormatViewportID(vpID string) string {
	return FormatID(vpID)
}

// FormatGroupID formats a sync group ID for logging with context-aware
// truncation. Provides a semantic wrapper around FormatID for group
// identifiers.
//
// Usage: logging.Info("Configured group %s", logging.FormatGroupID(groupID))
func FormatGroupID(groupID string) string {
	return FormatID(groupID)
}
