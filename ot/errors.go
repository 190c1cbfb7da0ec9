package ot

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions clients are expected to distinguish.
// Functions of this module wrap them with context; test with errors.Is.
var (
	// ErrMalformedContainer indicates structural damage at the container
	// level: unrecognized magic, a directory that disagrees with the number
	// of available bytes, or tables pointing outside the file.
	ErrMalformedContainer = errors.New("malformed font container")

	// ErrMalformedTable indicates a structurally invalid table payload.
	// During parsing the affected table degrades to its opaque form and an
	// error entry is recorded; the condition becomes fatal only when the
	// structured form of that table was explicitly requested.
	ErrMalformedTable = errors.New("malformed font table")

	// ErrMissingDependency indicates that structured access to a table
	// requires a sibling table which is absent, e.g. 'glyf' without 'loca'.
	ErrMissingDependency = errors.New("missing dependency table")

	// ErrInvalidFontIndex indicates a font index outside a collection's
	// declared range.
	ErrInvalidFontIndex = errors.New("font index out of range")

	// ErrUnsupportedFormat indicates input whose format was recognized but
	// cannot be processed, or not recognized at all where processing was
	// requested.
	ErrUnsupportedFormat = errors.New("unsupported font format")

	// ErrInvalidFieldValue indicates a field value that cannot be encoded,
	// typically from a hand-edited text document.
	ErrInvalidFieldValue = errors.New("invalid field value")

	// ErrOutOfRange indicates a value outside its representable or
	// specified range, e.g. unitsPerEm outside [16,16384].
	ErrOutOfRange = errors.New("value out of range")
)

// errMalformed wraps ErrMalformedContainer with a description.
func errMalformed(msg string) error {
	return fmt.Errorf("%w: %s", ErrMalformedContainer, msg)
}

// errMalformedf wraps ErrMalformedContainer with a formatted description.
func errMalformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedContainer, fmt.Sprintf(format, args...))
}

// errTable wraps ErrMalformedTable with a description.
func errTable(tag Tag, msg string) error {
	return fmt.Errorf("%w %s: %s", ErrMalformedTable, tag, msg)
}

// errUnsupported wraps ErrUnsupportedFormat with a description.
func errUnsupported(msg string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, msg)
}

// ErrorSeverity represents the severity level of a font parsing error.
type ErrorSeverity int

const (
	// SeverityCritical indicates a severe error that makes the font unusable or unreliable.
	SeverityCritical ErrorSeverity = iota
	// SeverityMajor indicates a significant error that may affect functionality but doesn't prevent usage.
	SeverityMajor
	// SeverityMinor indicates a minor issue that can be safely ignored in most cases.
	SeverityMinor
)

// String returns a human-readable representation of the error severity.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityMajor:
		return "MAJOR"
	case SeverityMinor:
		return "MINOR"
	default:
		return "UNKNOWN"
	}
}

// FontError represents an error encountered during font parsing.
// Errors are accumulated during initial parsing and can be inspected after parsing completes.
type FontError struct {
	Table    Tag           // The table where the error occurred (e.g., "glyf", "name")
	Section  string        // Specific section within the table (e.g., "directory", "glyph 17")
	Issue    string        // Human-readable description of the issue
	Severity ErrorSeverity // Severity level of the error
	Offset   uint32        // Byte offset in the font file where the error occurred (0 if unknown)
}

// Error implements the error interface.
func (e FontError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("[%s] %s/%s at offset %d: %s", e.Severity, e.Table, e.Section, e.Offset, e.Issue)
	}
	return fmt.Sprintf("[%s] %s/%s: %s", e.Severity, e.Table, e.Section, e.Issue)
}

// FontWarning represents a non-critical issue encountered during font parsing.
// Warnings indicate potential problems but do not prevent font usage.
// Checksum mismatches always surface here, never as errors.
type FontWarning struct {
	Table  Tag    // The table where the warning occurred
	Issue  string // Human-readable description of the warning
	Offset uint32 // Byte offset in the font file where the warning occurred (0 if unknown)
}

// String returns a human-readable representation of the warning.
func (w FontWarning) String() string {
	if w.Offset > 0 {
		return fmt.Sprintf("[WARNING] %s at offset %d: %s", w.Table, w.Offset, w.Issue)
	}
	return fmt.Sprintf("[WARNING] %s: %s", w.Table, w.Issue)
}

// errorCollector accumulates errors and warnings during font parsing.
// This is an internal helper used by the parser to collect issues as they are discovered.
type errorCollector struct {
	errors   []FontError
	warnings []FontWarning
}

// addError records a parsing error.
func (ec *errorCollector) addError(table Tag, section string, issue string, severity ErrorSeverity, offset uint32) {
	ec.errors = append(ec.errors, FontError{
		Table:    table,
		Section:  section,
		Issue:    issue,
		Severity: severity,
		Offset:   offset,
	})
}

// addWarning records a parsing warning.
func (ec *errorCollector) addWarning(table Tag, issue string, offset uint32) {
	ec.warnings = append(ec.warnings, FontWarning{
		Table:  table,
		Issue:  issue,
		Offset: offset,
	})
}

// hasErrors returns true if any errors have been recorded.
func (ec *errorCollector) hasErrors() bool {
	return len(ec.errors) > 0
}

// hasWarnings returns true if any warnings have been recorded.
func (ec *errorCollector) hasWarnings() bool {
	return len(ec.warnings) > 0
}

// criticalErrors returns all errors with critical severity.
func (ec *errorCollector) criticalErrors() []FontError {
	critical := make([]FontError, 0)
	for _, err := range ec.errors {
		if err.Severity == SeverityCritical {
			critical = append(critical, err)
		}
	}
	return critical
}

// hasCriticalErrors returns true if any critical errors have been recorded.
func (ec *errorCollector) hasCriticalErrors() bool {
	for _, err := range ec.errors {
		if err.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
