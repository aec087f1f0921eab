package validate

import (
	"testing"
	"time"
)

// TestParseBindAddress tests parsing and validation of host:port strings
func TestParseBindAddress(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
		wantHost    string
		wantPort    int
	}{
		{name: "loopback with port", input: "127.0.0.1:7600", expectError: false, wantHost: "127.0.0.1", wantPort: 7600},
		{name: "all interfaces", input: "0.0.0.0:8080", expectError: false, wantHost: "0.0.0.0", wantPort: 8080},
		{name: "empty address", input: "", expectError: true},
		{name: "missing port", input: "127.0.0.1", expectError: true},
		{name: "non-numeric port", input: "127.0.0.1:http", expectError: true},
		{name: "hostname rejected", input: "localhost:7600", expectError: true},
		{name: "port out of range", input: "127.0.0.1:70000", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseBindAddress(tt.input)
			if (err != nil) != tt.expectError {
				t.Fatalf("ParseBindAddress(%q) error = %v, expectError %v", tt.input, err, tt.expectError)
			}
			if err != nil {
				return
			}
			if addr.Host != tt.wantHost || addr.Port != tt.wantPort {
				t.Errorf("ParseBindAddress(%q) = %s:%d, want %s:%d",
					tt.input, addr.Host, addr.Port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

// TestValidatePortRange tests the port range helper
func TestValidatePortRange(t *testing.T) {
	tests := []struct {
		name        string
		port        int
		expectError bool
	}{
		{name: "valid port", port: 7600, expectError: false},
		{name: "minimum port", port: 1, expectError: false},
		{name: "maximum port", port: 65535, expectError: false},
		{name: "zero port rejected", port: 0, expectError: true},
		{name: "negative port", port: -1, expectError: true},
		{name: "too large", port: 65536, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePortRange(tt.port)
			if (err != nil) != tt.expectError {
				t.Errorf("ValidatePortRange(%d) error = %v, expectError %v", tt.port, err, tt.expectError)
			}
		})
	}
}

// TestValidatePositiveTimeout tests timeout validation
func TestValidatePositiveTimeout(t *testing.T) {
	if err := ValidatePositiveTimeout(50*time.Millisecond, "dispatch timeout"); err != nil {
		t.Errorf("ValidatePositiveTimeout(50ms) unexpected error: %v", err)
	}
	if err := ValidatePositiveTimeout(0, "dispatch timeout"); err == nil {
		t.Error("ValidatePositiveTimeout(0) expected error, got nil")
	}
	if err := ValidatePositiveTimeout(-time.Second, "dispatch timeout"); err == nil {
		t.Error("ValidatePositiveTimeout(-1s) expected error, got nil")
	}
}
