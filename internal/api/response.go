package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/studyhall-hq/studyhall/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorBody is the payload of an error API response. Details is only set for
// errors that carry structured per-item information, such as partial
// ingestion failures.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ChunkFailureDetail names one chunk that failed to embed during ingestion.
type ChunkFailureDetail struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// PartialIngestionDetails is the Details payload of a
// PARTIAL_INGESTION_FAILURE response.
type PartialIngestionDetails struct {
	FileName     string               `json:"file_name"`
	Committed    int                  `json:"committed"`
	FailedChunks []ChunkFailureDetail `json:"failed_chunks"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response. The error code is derived from the
// status; handlers that know the exact domain code go through HandleError.
func Error(w http.ResponseWriter, status int, message string) {
	ErrorWithCode(w, status, codeForStatus(status), message)
}

// ErrorWithCode writes an error JSON response with an explicit error code.
func ErrorWithCode(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrCodeValidation
	case http.StatusUnauthorized:
		return domain.ErrCodeAuthenticationRequired
	case http.StatusForbidden:
		return domain.ErrCodeForbidden
	case http.StatusNotFound:
		return domain.ErrCodeNotFound
	case http.StatusConflict:
		return domain.ErrCodeAlreadyExists
	case http.StatusRequestEntityTooLarge:
		return domain.ErrCodeValidation
	default:
		return domain.ErrCodeInternalError
	}
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var partialErr *domain.PartialIngestionError
	if errors.As(err, &partialErr) {
		return http.StatusBadGateway
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeInvalidOperation:
		return http.StatusBadRequest
	case domain.ErrCodeAuthenticationRequired:
		return http.StatusUnauthorized
	case domain.ErrCodeForbidden:
		return http.StatusForbidden
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeTenantNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists:
		return http.StatusConflict
	case domain.ErrCodeEmbeddingFailure:
		return http.StatusBadGateway
	case domain.ErrCodePartialIngestion:
		return http.StatusBadGateway
	case domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type.
// Partial ingestion failures carry their per-chunk detail so callers can tell
// which chunks need attention.
func HandleError(w http.ResponseWriter, err error) {
	var partialErr *domain.PartialIngestionError
	if errors.As(err, &partialErr) {
		failed := make([]ChunkFailureDetail, len(partialErr.Failed))
		for i, f := range partialErr.Failed {
			failed[i] = ChunkFailureDetail{Index: f.Index, Reason: f.Reason}
		}
		JSON(w, http.StatusBadGateway, ErrorResponse{Error: ErrorBody{
			Code: domain.ErrCodePartialIngestion,
			Message: fmt.Sprintf("ingestion of %q incomplete: %d chunks committed, %d failed",
				partialErr.FileName, partialErr.Committed, len(partialErr.Failed)),
			Details: PartialIngestionDetails{
				FileName:     partialErr.FileName,
				Committed:    partialErr.Committed,
				FailedChunks: failed,
			},
		}})
		return
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		ErrorWithCode(w, DomainErrorToHTTP(err), domainErr.Code, domainErr.Message)
		return
	}

	ErrorWithCode(w, http.StatusInternalServerError, domain.ErrCodeInternalError, err.Error())
}
