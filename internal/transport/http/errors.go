package httptransport

import (
	"net/http"

	dErrors "kycd/pkg/domain-errors"
)

// statusFor maps domain error codes to HTTP status. Verification
// failures are 400s: the request was understood, the verdict was
// negative. Lockouts use 423 so clients can distinguish "retry later"
// from "fix your input".
func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeLocked:
		return http.StatusLocked
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput,
		dErrors.CodePrecondition, dErrors.CodeVerificationFailed,
		dErrors.CodeSessionInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError translates a domain error into the JSON error envelope.
// Internal errors hide their detail from the client.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: string(code), Message: message})
}
