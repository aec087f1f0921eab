// Package utils provides common utility functions for the Lockstep viewport
// synchronization engine.
//
// This file implements unified ID generation and truncation functionality used
// across the engine for creating and displaying unique identifiers. Provides
// consistent ID formats for sync groups and other engine resources while
// eliminating code duplication.
//
// ID GENERATION STRATEGY:
// Uses crypto/rand for high-quality random data generation to ensure uniqueness
// within and across viewer sessions. Generated IDs follow a 12-character
// hexadecimal format for consistency and readability.
//
// USAGE PATTERNS:
// - Group IDs: Unique sync group identification for configuration and metrics
// - Display truncation: Shortening long operation UUIDs in logs and CLI output
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ShortIDLength is the display length used when truncating long identifiers
// for logs and tables. Matches the generated short ID format so truncated
// UUIDs and native short IDs line up in columnar output.
const ShortIDLength = 12

// GenerateID creates a unique 12-character hex identifier for engine resources.
// Uses crypto/rand to ensure uniqueness and prevent collisions between
// concurrently created resources.
//
// Essential for resource identification, logging correlation, and API operations
// where resources need to be uniquely referenced. The 12-character format
// balances uniqueness with human readability in logs and interfaces.
//
// Returns format: "a1b2c3d4e5f6" (12 hex characters, similar to Docker short IDs)
func GenerateID() (string, error) {
	// Generate 6 bytes of random data (12 hex characters)
	bytes := make([]byte, 6)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// TruncateID shortens an identifier to ShortIDLength characters for display.
// Returns an error for identifiers shorter than the display length since
// truncating them would produce ambiguous output.
func TruncateID(id string) (string, error) {
	if len(id) < ShortIDLength {
		return "", fmt.Errorf("id too short to truncate: %q", id)
	}
	return id[:ShortIDLength], nil
}

// TruncateIDSafe shortens an identifier for display, returning the input
// unchanged when it is already at or below the display length. Never fails,
// making it suitable for log formatting paths where an error would be noise.
func TruncateIDSafe(id string) string {
	if len(id) <= ShortIDLength {
		return id
	}
	return id[:ShortIDLength]
}
