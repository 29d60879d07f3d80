// internal/api/error_codes.go
package api

import (
	"errors"
	"net/http"

	apperrors "github.com/Corphon/Chronicle/internal/errors"
	"github.com/Corphon/Chronicle/internal/llm"
)

// API错误代码常量
const (
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorUpstream      = "UPSTREAM_ERROR"
)

// statusFor maps an error to the HTTP status and error code of the response.
func statusFor(err error) (int, string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			return http.StatusBadRequest, appErr.Code
		case apperrors.ErrorTypeNotFound:
			return http.StatusNotFound, appErr.Code
		case apperrors.ErrorTypeBusy, apperrors.ErrorTypeConflict:
			return http.StatusConflict, appErr.Code
		case apperrors.ErrorTypePrecondition:
			return http.StatusPreconditionFailed, appErr.Code
		case apperrors.ErrorTypeThrottled:
			return http.StatusServiceUnavailable, appErr.Code
		case apperrors.ErrorTypeParse:
			return http.StatusBadGateway, appErr.Code
		case apperrors.ErrorTypeUnauthorized:
			return http.StatusUnauthorized, appErr.Code
		case apperrors.ErrorTypeForbidden:
			return http.StatusForbidden, appErr.Code
		case apperrors.ErrorTypeTimeout:
			return http.StatusGatewayTimeout, appErr.Code
		default:
			return http.StatusInternalServerError, appErr.Code
		}
	}

	var upstream *llm.APIError
	if errors.As(err, &upstream) {
		return http.StatusBadGateway, ErrorUpstream
	}
	return http.StatusInternalServerError, ErrorInternalError
}
