package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "truthlens/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteRawJSON writes an already encoded JSON document without touching its bytes.
func WriteRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body) //nolint:errcheck // headers already sent
}

// WriteError centralizes domain error translation to HTTP responses.
// Collaborator rejections keep the collaborator's status; everything else is
// mapped from the domain code.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		status := DomainCodeToHTTPStatus(domainErr.Code)
		if domainErr.Code == dErrors.CodeBackendRejected && domainErr.UpstreamStatus >= 400 {
			status = domainErr.UpstreamStatus
		}
		WriteJSON(w, status, ErrorResponse{
			Error:   domainErr.Error(),
			Details: domainErr.Details,
		})
		return
	}

	// Fallback for unexpected errors
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "Gateway processing error",
		Details: errorDetails(err),
	})
}

func errorDetails(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidRequest:
		return http.StatusBadRequest
	case dErrors.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case dErrors.CodeBackendRejected, dErrors.CodeBadGateway:
		return http.StatusBadGateway
	case dErrors.CodeBackendUnreachable:
		return http.StatusServiceUnavailable
	case dErrors.CodeBackendTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
