package ot

import (
	"errors"
	"testing"
)

// TestErrorSeverity verifies the ErrorSeverity String() method.
func TestErrorSeverity(t *testing.T) {
	tests := []struct {
		severity ErrorSeverity
		expected string
	}{
		{SeverityCritical, "CRITICAL"},
		{SeverityMajor, "MAJOR"},
		{SeverityMinor, "MINOR"},
		{ErrorSeverity(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		result := tt.severity.String()
		if result != tt.expected {
			t.Errorf("ErrorSeverity(%d).String() = %q; want %q", tt.severity, result, tt.expected)
		}
	}
}

// TestSentinelWrapping verifies that the error helpers stay matchable
// through errors.Is after adding context.
func TestSentinelWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"container", errMalformed("font header"), ErrMalformedContainer},
		{"container formatted", errMalformedf("table %s truncated", T("glyf")), ErrMalformedContainer},
		{"table", errTable(T("name"), "storage out of bounds"), ErrMalformedTable},
		{"unsupported", errUnsupported("WOFF2 transformed glyf stream"), ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("expected %v to match its sentinel", tt.err)
			}
		})
	}
}

// TestFontError verifies FontError formatting.
func TestFontError(t *testing.T) {
	tests := []struct {
		name     string
		err      FontError
		expected string
	}{
		{
			name: "Error with offset",
			err: FontError{
				Table:    T("glyf"),
				Section:  "glyph 17",
				Issue:    "contour end points not ascending",
				Severity: SeverityCritical,
				Offset:   1234,
			},
			expected: "[CRITICAL] glyf/glyph 17 at offset 1234: contour end points not ascending",
		},
		{
			name: "Error without offset",
			err: FontError{
				Table:    T("name"),
				Section:  "payload",
				Issue:    "string storage out of bounds",
				Severity: SeverityMajor,
				Offset:   0,
			},
			expected: "[MAJOR] name/payload: string storage out of bounds",
		},
		{
			name: "Minor error",
			err: FontError{
				Table:    T("head"),
				Section:  "payload",
				Issue:    "magic number mismatch",
				Severity: SeverityMinor,
				Offset:   0,
			},
			expected: "[MINOR] head/payload: magic number mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("FontError.Error() = %q; want %q", result, tt.expected)
			}
		})
	}
}

// TestFontWarning verifies FontWarning formatting.
func TestFontWarning(t *testing.T) {
	tests := []struct {
		name     string
		warning  FontWarning
		expected string
	}{
		{
			name: "Warning with offset",
			warning: FontWarning{
				Table:  T("loca"),
				Issue:  "table size mismatch",
				Offset: 5678,
			},
			expected: "[WARNING] loca at offset 5678: table size mismatch",
		},
		{
			name: "Warning without offset",
			warning: FontWarning{
				Table:  T("hmtx"),
				Issue:  "checksum mismatch",
				Offset: 0,
			},
			expected: "[WARNING] hmtx: checksum mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.warning.String()
			if result != tt.expected {
				t.Errorf("FontWarning.String() = %q; want %q", result, tt.expected)
			}
		})
	}
}

// TestErrorCollector verifies the errorCollector helper type.
func TestErrorCollector(t *testing.T) {
	ec := &errorCollector{}

	// Initially empty
	if ec.hasErrors() {
		t.Error("errorCollector should not have errors initially")
	}
	if ec.hasWarnings() {
		t.Error("errorCollector should not have warnings initially")
	}
	if ec.hasCriticalErrors() {
		t.Error("errorCollector should not have critical errors initially")
	}

	// Add a minor error
	ec.addError(T("head"), "payload", "magic number mismatch", SeverityMinor, 100)
	if !ec.hasErrors() {
		t.Error("errorCollector should have errors after adding one")
	}
	if ec.hasCriticalErrors() {
		t.Error("errorCollector should not have critical errors yet")
	}
	if len(ec.errors) != 1 {
		t.Errorf("errorCollector should have 1 error; got %d", len(ec.errors))
	}

	// Add a critical error
	ec.addError(T(""), "TableRecords", "duplicate table tag", SeverityCritical, 200)
	if !ec.hasCriticalErrors() {
		t.Error("errorCollector should have critical errors after adding one")
	}
	if len(ec.errors) != 2 {
		t.Errorf("errorCollector should have 2 errors; got %d", len(ec.errors))
	}

	// Add a major error
	ec.addError(T("name"), "payload", "string storage out of bounds", SeverityMajor, 300)
	if len(ec.errors) != 3 {
		t.Errorf("errorCollector should have 3 errors; got %d", len(ec.errors))
	}

	// Check critical errors filtering
	criticalErrs := ec.criticalErrors()
	if len(criticalErrs) != 1 {
		t.Errorf("errorCollector should have 1 critical error; got %d", len(criticalErrs))
	}
	if criticalErrs[0].Severity != SeverityCritical {
		t.Error("criticalErrors() should return only critical severity errors")
	}

	// Add a warning
	ec.addWarning(T("hmtx"), "checksum mismatch", 400)
	if !ec.hasWarnings() {
		t.Error("errorCollector should have warnings after adding one")
	}
	if len(ec.warnings) != 1 {
		t.Errorf("errorCollector should have 1 warning; got %d", len(ec.warnings))
	}
}

// TestFontErrorMethods verifies Font error inspection methods.
func TestFontErrorMethods(t *testing.T) {
	font := &Font{
		parseErrors: []FontError{
			{
				Table:    T("head"),
				Section:  "payload",
				Issue:    "magic number mismatch",
				Severity: SeverityMinor,
				Offset:   100,
			},
			{
				Table:    T(""),
				Section:  "TableRecords",
				Issue:    "duplicate table tag",
				Severity: SeverityCritical,
				Offset:   200,
			},
			{
				Table:    T("hhea"),
				Section:  "payload",
				Issue:    "36 bytes expected",
				Severity: SeverityMajor,
				Offset:   300,
			},
		},
		parseWarnings: []FontWarning{
			{
				Table:  T("hmtx"),
				Issue:  "checksum mismatch",
				Offset: 400,
			},
		},
	}

	if len(font.Errors()) != 3 {
		t.Errorf("Font.Errors() should return 3 errors; got %d", len(font.Errors()))
	}
	if len(font.Warnings()) != 1 {
		t.Errorf("Font.Warnings() should return 1 warning; got %d", len(font.Warnings()))
	}

	criticalErrs := font.CriticalErrors()
	if len(criticalErrs) != 1 {
		t.Errorf("Font.CriticalErrors() should return 1 critical error; got %d", len(criticalErrs))
	}
	if criticalErrs[0].Severity != SeverityCritical {
		t.Error("Font.CriticalErrors() should return only critical severity errors")
	}
	if !font.HasCriticalErrors() {
		t.Error("Font.HasCriticalErrors() should return true")
	}

	// Empty font
	emptyFont := &Font{}
	if len(emptyFont.Errors()) != 0 {
		t.Error("Empty font should return empty errors slice")
	}
	if len(emptyFont.Warnings()) != 0 {
		t.Error("Empty font should return empty warnings slice")
	}
	if len(emptyFont.CriticalErrors()) != 0 {
		t.Error("Empty font should return empty critical errors slice")
	}
	if emptyFont.HasCriticalErrors() {
		t.Error("Empty font should not have critical errors")
	}
}
