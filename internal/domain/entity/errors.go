package entity

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	FailureValidation FailureKind = "VALIDATION_ERROR"
	FailureCompletion FailureKind = "LLM_PROVIDER_ERROR"
	FailureInternal   FailureKind = "INTERNAL_ERROR"

	// Routing failures, produced by the router before any operation runs.
	FailureNotFound         FailureKind = "NOT_FOUND"
	FailureMethodNotAllowed FailureKind = "METHOD_NOT_ALLOWED"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError reports a malformed or incomplete request body.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request parameters"
	}
	return fmt.Sprintf("invalid request parameters: %s", e.Fields[0].Message)
}

type CompletionReason string

const (
	ReasonEmptyResponse CompletionReason = "EmptyResponse"
	ReasonUpstreamError CompletionReason = "UpstreamError"
)

// CompletionError is the single failure signal of the completion gateway.
type CompletionError struct {
	Reason  CompletionReason
	Message string
	Err     error
}

func (e *CompletionError) Error() string {
	return e.Message
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

func NewEmptyResponseError() *CompletionError {
	return &CompletionError{Reason: ReasonEmptyResponse, Message: "LLM returned an empty response."}
}

func NewUpstreamError(err error) *CompletionError {
	return &CompletionError{
		Reason:  ReasonUpstreamError,
		Message: fmt.Sprintf("completion provider error: %v", err),
		Err:     err,
	}
}

// Classify maps any error returned by the pipeline onto the client-visible taxonomy.
func Classify(err error) FailureKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return FailureValidation
	}
	var ce *CompletionError
	if errors.As(err, &ce) {
		return FailureCompletion
	}
	return FailureInternal
}
