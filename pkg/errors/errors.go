package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryValidation           ErrorCategory = "validation"
	CategoryMatchValidation      ErrorCategory = "match_validation"
	CategoryResolutionValidation ErrorCategory = "resolution_validation"
	CategoryApply                ErrorCategory = "apply"
	CategoryConfiguration        ErrorCategory = "configuration"
	CategoryInternal             ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Record validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"
	CodeOutOfRange    ErrorCode = "out_of_range"

	// Match validation errors
	CodeInvalidMatch      ErrorCode = "invalid_match"
	CodeInvalidConfidence ErrorCode = "invalid_confidence"

	// Resolution validation errors
	CodeInvalidAction     ErrorCode = "invalid_action"
	CodeUnknownActionType ErrorCode = "unknown_action_type"

	// Apply errors
	CodeJournalRejected ErrorCode = "journal_rejected"
	CodeApplyFailed     ErrorCode = "apply_failed"

	// Configuration errors
	CodeInvalidConfig  ErrorCode = "invalid_config"
	CodeMissingConfig  ErrorCode = "missing_config"
	CodeConfigConflict ErrorCode = "config_conflict"

	// Internal errors
	CodeUnexpectedError   ErrorCode = "unexpected_error"
	CodeResourceExhausted ErrorCode = "resource_exhausted"
)

// EngineError is the base error type for all application errors
type EngineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *EngineError) GetExitCode() int {
	switch e.Category {
	case CategoryValidation, CategoryMatchValidation, CategoryResolutionValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryApply, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new EngineError
func New(category ErrorCategory, code ErrorCode, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with EngineError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// RecordValidationError reports a malformed transaction record. The record
// is excluded from matching; the run continues.
func RecordValidationError(code ErrorCode, externalID string, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("record %q has an invalid amount", externalID)
		suggestion = "ensure amounts are valid decimal numbers"
	case CodeInvalidDate:
		message = fmt.Sprintf("record %q has an invalid date", externalID)
		suggestion = "use date format YYYY-MM-DD"
	case CodeMissingField:
		message = fmt.Sprintf("record %q is missing a required field", externalID)
		suggestion = "provide amount and a 3-letter currency code"
	case CodeOutOfRange:
		message = fmt.Sprintf("record %q has a value out of range", externalID)
		suggestion = "ensure the value is within the acceptable range"
	default:
		message = fmt.Sprintf("record %q failed validation", externalID)
		suggestion = "check the record fields and formats"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("external_id", externalID)
}

// MatchValidationError reports a malformed match record. The match is
// dropped and recorded; the run continues.
func MatchValidationError(code ErrorCode, matchID string, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfidence:
		message = fmt.Sprintf("match %q has a confidence score outside [0,1]", matchID)
		suggestion = "check the scorer weights and threshold configuration"
	default:
		message = fmt.Sprintf("match %q failed validation", matchID)
		suggestion = "check that both sides of the match are present"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryMatchValidation, code, message)
	} else {
		result = New(CategoryMatchValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("match_id", matchID)
}

// ActionValidationError reports a malformed proposed action. The action is
// rejected and recorded; the run continues.
func ActionValidationError(code ErrorCode, breakID string, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeUnknownActionType:
		message = fmt.Sprintf("action for break %q has an unknown action type", breakID)
		suggestion = "check the action generation table for supported types"
	default:
		message = fmt.Sprintf("action for break %q failed validation", breakID)
		suggestion = "ensure the action carries a type, description, and parameters"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryResolutionValidation, code, message)
	} else {
		result = New(CategoryResolutionValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("break_id", breakID)
}

// ApplyError reports a failure while applying a validated action. It is
// caught per-action, recorded, and never aborts the run.
func ApplyError(code ErrorCode, actionID string, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeJournalRejected:
		message = fmt.Sprintf("journal entry for action %q was rejected", actionID)
		suggestion = "check the underlying record's amount and currency"
	default:
		message = fmt.Sprintf("failed to apply action %q", actionID)
		suggestion = "review the break and retry the resolution"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryApply, code, message)
	} else {
		result = New(CategoryApply, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("action_id", actionID)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	case CodeConfigConflict:
		message = fmt.Sprintf("configuration conflict with setting '%s': %v", setting, value)
		suggestion = "resolve the conflicting settings or use default values"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeUnexpectedError:
		message = fmt.Sprintf("unexpected error during %s", operation)
		suggestion = "this is likely a bug - please report it with the error details"
	case CodeResourceExhausted:
		message = fmt.Sprintf("resource exhausted during %s", operation)
		suggestion = "try reducing batch size or increasing system resources"
	default:
		message = fmt.Sprintf("internal error during %s", operation)
		suggestion = "try again or contact support if the problem persists"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*EngineError        `json:"errors"`
	SampleErrors []*EngineError        `json:"sample_errors,omitempty"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errors []*EngineError) *ErrorSummary {
	if len(errors) == 0 {
		return &ErrorSummary{
			Total:      0,
			ByCategory: make(map[ErrorCategory]int),
			ByCode:     make(map[ErrorCode]int),
			Errors:     []*EngineError{},
		}
	}

	summary := &ErrorSummary{
		Total:      len(errors),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errors,
	}

	// Count by category and code
	for _, err := range errors {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	// Include sample errors (max 5)
	maxSamples := 5
	if len(errors) > maxSamples {
		summary.SampleErrors = errors[:maxSamples]
	} else {
		summary.SampleErrors = errors
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	count, exists := es.ByCategory[category]
	return exists && count > 0
}

// HasCode checks if the summary contains errors with the given code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	count, exists := es.ByCode[code]
	return exists && count > 0
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// Utility functions

// IsEngineError checks if an error is an EngineError
func IsEngineError(err error) bool {
	_, ok := err.(*EngineError)
	return ok
}

// AsEngineError extracts an EngineError from an error chain
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already an EngineError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	if engineErr, ok := AsEngineError(err); ok {
		return engineErr
	}

	return Wrap(err, category, code, message)
}
