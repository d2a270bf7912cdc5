package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Row error codes reported in the load summary.
const (
	ErrCodeRequiredField = "ERR_DATASET_REQUIRED_FIELD"
	ErrCodeInvalidType   = "ERR_DATASET_INVALID_TYPE"
	ErrCodeInvalidRange  = "ERR_DATASET_INVALID_RANGE"
	ErrCodeMalformedRow  = "ERR_DATASET_MALFORMED_ROW"
)

var (
	// ErrEmptyFile is returned when the CSV file has no content at all.
	ErrEmptyFile = errors.New("dataset file is empty")

	// ErrInvalidEncoding is returned when the file is not valid UTF-8.
	ErrInvalidEncoding = errors.New("dataset file is not valid UTF-8")

	// ErrMissingHeader is returned when the CSV file has no header row.
	ErrMissingHeader = errors.New("dataset file missing header row")

	// ErrNoDataRows is returned when the file holds a header but no rows.
	ErrNoDataRows = errors.New("dataset file contains no data rows")
)

// MissingHeadersError reports required columns absent from the header row.
type MissingHeadersError struct {
	Missing []string
}

func (e *MissingHeadersError) Error() string {
	return fmt.Sprintf("dataset file missing required columns: %s", strings.Join(e.Missing, ", "))
}

// RowError describes why a single row (or one of its fields) was rejected.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection gathers row errors during a load. The slice is capped at
// maxErrors but totalCount keeps the exact number, so reported counts never
// drift from reality.
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a collection retaining at most maxErrors entries.
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0, maxErrors),
		maxErrors: maxErrors,
	}
}

// Add records an error.
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequired records a missing required field.
func (ec *ErrorCollection) AddRequired(row int, column string) {
	ec.Add(RowError{
		Row:     row,
		Column:  column,
		Code:    ErrCodeRequiredField,
		Message: fmt.Sprintf("field %q is required", column),
	})
}

// AddType records a value that failed to parse as the expected type.
func (ec *ErrorCollection) AddType(row int, column, expected, value string) {
	ec.Add(RowError{
		Row:     row,
		Column:  column,
		Code:    ErrCodeInvalidType,
		Message: fmt.Sprintf("expected %s", expected),
		Value:   value,
	})
}

// AddRange records a value outside its allowed range.
func (ec *ErrorCollection) AddRange(row int, column, value string, lo, hi int) {
	ec.Add(RowError{
		Row:     row,
		Column:  column,
		Code:    ErrCodeInvalidRange,
		Message: fmt.Sprintf("value must be between %d and %d", lo, hi),
		Value:   value,
	})
}

// Errors returns the retained errors (up to the cap).
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the exact number of recorded errors.
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors reports whether anything was recorded.
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated reports whether errors beyond the cap were dropped.
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// Summary returns recorded error counts keyed by code.
func (ec *ErrorCollection) Summary() map[string]int {
	summary := make(map[string]int)
	for _, err := range ec.errors {
		summary[err.Code]++
	}
	return summary
}

func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s)", ec.totalCount)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", ec.maxErrors)
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}
