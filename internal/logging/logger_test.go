package logging

import (
	"strings"
	"testing"
)

// TestValidateLogLevel tests log level validation for all supported levels
func TestValidateLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "debug level", level: "DEBUG", wantErr: false},
		{name: "info level", level: "INFO", wantErr: false},
		{name: "warn level", level: "WARN", wantErr: false},
		{name: "error level", level: "ERROR", wantErr: false},
		{name: "lowercase rejected", level: "info", wantErr: true},
		{name: "unknown level", level: "TRACE", wantErr: true},
		{name: "empty level", level: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

// TestLevelWriterReportsFullWrite verifies the io.Writer contract: the writer
// must report consuming the full input even when lines are filtered or empty.
func TestLevelWriterReportsFullWrite(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "single line", input: "gin started\n"},
		{name: "multiple lines", input: "line one\nline two\n"},
		{name: "blank lines only", input: "\n\n\n"},
		{name: "empty input", input: ""},
	}

	// Suppress output so the test does not spam stderr
	SuppressOutput()
	defer RestoreOutput()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewLevelWriter("INFO", "test")
			n, err := w.Write([]byte(tt.input))
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if n != len(tt.input) {
				t.Errorf("Write() n = %d, want %d", n, len(tt.input))
			}
		})
	}
}

// TestFormatIDTruncation verifies that IDs are truncated for non-debug levels
func TestFormatIDTruncation(t *testing.T) {
	SetLevel("INFO")
	defer SetLevel("INFO")

	longID := "0a1b2c3d-4e5f-6789-abcd-ef0123456789"
	got := FormatID(longID)
	if len(got) != 12 {
		t.Errorf("FormatID(%q) = %q, want 12-character prefix", longID, got)
	}
	if !strings.HasPrefix(longID, got) {
		t.Errorf("FormatID(%q) = %q, want prefix of input", longID, got)
	}

	shortID := "viewport-1"
	if got := FormatID(shortID); got != shortID {
		t.Errorf("FormatID(%q) = %q, want unchanged", shortID, got)
	}
}

// TestFormatIDDebugKeepsFullID verifies debug contexts preserve full IDs
func TestFormatIDDebugKeepsFullID(t *testing.T) {
	SetLevel("DEBUG")
	defer SetLevel("INFO")

	longID := "0a1b2c3d-4e5f-6789-abcd-ef0123456789"
	if got := FormatID(longID); got != longID {
		t.Errorf("FormatID(%q) in debug mode = %q, want full ID", longID, got)
	}
}
