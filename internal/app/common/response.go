package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

// ErrorResponse is the JSON body of every failed API call. Code is stable and
// lets clients choose an affordance (sign-up prompt, retry button).
type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Details   map[string]string `json:"details,omitempty"`
	Remaining *int              `json:"remaining,omitempty"`
}

// Error codes returned to clients.
const (
	CodeInvalidInput    = "invalid_input"
	CodeQuotaExceeded   = "quota_exceeded"
	CodeRateLimited     = "rate_limited"
	CodeGeneration      = "generation_failed"
	CodeMisconfigured   = "service_misconfigured"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeInternal        = "internal_error"
)

// RespondError maps a domain error onto a status code and JSON body.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	status, body := Classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("code", body.Code), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

// Classify returns the status and response body for err.
func Classify(err error) (int, ErrorResponse) {
	var (
		verr  *models.ValidationError
		quota *models.QuotaError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid input", Code: CodeInvalidInput, Details: verr.Fields}
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidInput}
	case errors.As(err, &quota):
		zero := 0
		return http.StatusTooManyRequests, ErrorResponse{
			Error:     "Trip generation limit reached. Please sign up to continue.",
			Code:      CodeQuotaExceeded,
			Remaining: &zero,
		}
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests. Please slow down.", Code: CodeRateLimited}
	case errors.Is(err, models.ErrConfiguration):
		return http.StatusInternalServerError, ErrorResponse{Error: "Trip generation is temporarily unavailable.", Code: CodeMisconfigured}
	case errors.Is(err, models.ErrGeneration):
		return http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate trip. Please try again.", Code: CodeGeneration}
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Code: CodeUnauthenticated}
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: "Forbidden", Code: CodeForbidden}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Not found", Code: CodeNotFound}
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeConflict}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Code: CodeInternal}
	}
}
