package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a pipeline failure
type ErrorCode string

const (
	CodeInvalidRequest            ErrorCode = "invalid_request"
	CodeDatasetNotFound           ErrorCode = "dataset_not_found"
	CodeTargetNotFound            ErrorCode = "target_not_found"
	CodeNoNumericFeatures         ErrorCode = "no_numeric_features"
	CodeWrongModelForTask         ErrorCode = "wrong_model_for_task"
	CodeInsufficientTargetVariety ErrorCode = "insufficient_target_variety"
	CodeInsufficientClassSamples  ErrorCode = "insufficient_class_samples"
	CodeConstantTarget            ErrorCode = "constant_target"
	CodeUnknownModelType          ErrorCode = "unknown_model_type"
	CodeMissingValues             ErrorCode = "missing_values"
	CodeInsufficientRows          ErrorCode = "insufficient_rows"
	CodeInternal                  ErrorCode = "internal"
)

// PipelineError is the error value every pipeline stage returns. Validation
// codes are user-correctable; CodeInternal marks a fault.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether the caller can fix the failure
func (e *PipelineError) IsValidation() bool {
	return e.Code != CodeInternal
}

// NewValidationError creates a user-facing validation error
func NewValidationError(code ErrorCode, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewInternalError wraps an unexpected failure
func NewInternalError(err error) *PipelineError {
	return &PipelineError{
		Code:    CodeInternal,
		Message: fmt.Sprintf("Prediction failed: %v", err),
		Err:     err,
	}
}

// AsPipelineError extracts a PipelineError from an error chain
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// HasCode reports whether err is a PipelineError with the given code
func HasCode(err error, code ErrorCode) bool {
	pe, ok := AsPipelineError(err)
	return ok && pe.Code == code
}
