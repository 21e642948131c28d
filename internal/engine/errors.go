package engine

import (
	"fmt"
	"net/http"

	"github.com/elicitlabs/elicit/internal/usage"
)

// Error codes surfaced to API callers. Each code carries a distinct
// user-facing message so clients can render guidance without parsing
// free text.
const (
	CodeDomainRequired       = "DOMAIN_REQUIRED"
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthenticated      = "UNAUTHENTICATED"
	CodeNotFound             = "NOT_FOUND"
	CodeSessionCompleted     = "SESSION_COMPLETED"
	CodeMinQuestionsNotMet   = "MIN_QUESTIONS_NOT_MET"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeHistoryRetrieval     = "HISTORY_RETRIEVAL_ERROR"
	CodeMissingAPIKey        = "MISSING_API_KEY"
	CodeAuthError            = "AUTH_ERROR"
	CodeProviderRateLimit    = "RATE_LIMIT_ERROR"
	CodeGenerationTimeout    = "GENERATION_TIMEOUT"
	CodeSynthesisFailed      = "SYNTHESIS_FAILED"
	CodeGenerationFailed     = "GENERATION_FAILED"
	CodeStoreError           = "STORE_ERROR"
	CodeGenerationInProgress = "GENERATION_IN_PROGRESS"
	CodeInternal             = "INTERNAL_ERROR"
)

// Error is a classified orchestration failure with its HTTP mapping.
type Error struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    string

	// Quota is populated on CodeRateLimitExceeded so the transport can
	// emit limit/remaining/tier headers.
	Quota *usage.Decision

	err error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(code string, status int, message string, cause error) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: status, err: cause}
}

func validationError(message string, cause error) *Error {
	return newError(CodeValidation, http.StatusBadRequest, message, cause)
}

func storeError(message string, cause error) *Error {
	return newError(CodeStoreError, http.StatusInternalServerError, message, cause)
}

func rateLimitError(d usage.Decision) *Error {
	e := newError(CodeRateLimitExceeded, http.StatusTooManyRequests,
		"session quota exhausted for your tier", nil)
	e.Quota = &d
	return e
}
