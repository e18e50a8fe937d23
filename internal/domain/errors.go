package domain

import (
	"fmt"
	"strings"
)

// DomainError is an error with a stable machine-readable code. Handlers map
// the code to an HTTP status, so services can signal outcomes without
// knowing about HTTP.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError returns an error carrying code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause wraps err so callers can still reach the cause
// through errors.Is and errors.As.
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Error codes carried in API responses.
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeTenantNotFound         = "TENANT_NOT_FOUND"
	ErrCodeAlreadyExists          = "ALREADY_EXISTS"
	ErrCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeEmbeddingFailure       = "EMBEDDING_SERVICE_FAILURE"
	ErrCodePartialIngestion       = "PARTIAL_INGESTION_FAILURE"
	ErrCodeInternalError          = "INTERNAL_ERROR"
	ErrCodeInvalidOperation       = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidFileKind           = NewDomainError(ErrCodeValidation, "unsupported file kind")
	ErrInvalidOnboardingState    = NewDomainError(ErrCodeValidation, "invalid onboarding state")
	ErrInvalidEmbeddingJobStatus = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrMissingCourseTag          = NewDomainError(ErrCodeValidation, "course tag is required")
	ErrEmptyDocument             = NewDomainError(ErrCodeValidation, "document has no extractable text")
	ErrFileTooLarge              = NewDomainError(ErrCodeValidation, "file exceeds the maximum upload size")
)

// Not found errors
var (
	ErrTenantNotFound   = NewDomainError(ErrCodeTenantNotFound, "tenant not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "document chunk not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrAPIKeyNotFound   = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrTenantAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "tenant already exists")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authentication errors
var (
	ErrAuthenticationRequired = NewDomainError(ErrCodeAuthenticationRequired, "authentication required")
	ErrInvalidAPIKey          = NewDomainError(ErrCodeAuthenticationRequired, "invalid api key")
	ErrAPIKeyRevoked          = NewDomainError(ErrCodeAuthenticationRequired, "api key has been revoked")
)

// Authorization errors
var (
	ErrForbidden = NewDomainError(ErrCodeForbidden, "operation not permitted on this resource")
)

// Upstream service errors
var (
	ErrEmbeddingServiceFailure = NewDomainError(ErrCodeEmbeddingFailure, "embedding service call failed")
	ErrStorageOperationFail    = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// ChunkFailure records the failure of a single chunk during ingestion.
type ChunkFailure struct {
	Index  int
	Reason string
}

// PartialIngestionError reports an ingestion where some chunks were embedded
// and committed while others failed. Committed chunks are never rolled back;
// failed chunks are persisted without an embedding and queued for retry.
type PartialIngestionError struct {
	FileName  string
	Committed int
	Failed    []ChunkFailure
}

func (e *PartialIngestionError) Error() string {
	indexes := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		indexes[i] = fmt.Sprintf("%d", f.Index)
	}
	return fmt.Sprintf("[%s] ingestion of %q incomplete: %d chunks committed, embedding failed for chunks [%s]",
		ErrCodePartialIngestion, e.FileName, e.Committed, strings.Join(indexes, ", "))
}

// FailedIndexes returns the chunk indexes that failed to embed.
func (e *PartialIngestionError) FailedIndexes() []int {
	indexes := make([]int, len(e.Failed))
	for i, f := range e.Failed {
		indexes[i] = f.Index
	}
	return indexes
}
