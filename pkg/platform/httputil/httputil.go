package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "mediguard/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code; the body may be
	// incomplete but headers are already sent.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response := map[string]string{
			"error": DomainCodeToHTTPCode(domainErr.Code),
		}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), response)
		return
	}

	WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": DomainCodeToHTTPCode(dErrors.CodeInternal),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeInvariantViolation,
		dErrors.CodeUnknownPredicateKind, dErrors.CodeInvalidCredential,
		dErrors.CodeMalformedCode, dErrors.CodeWrongScheme, dErrors.CodeUnknownIntent,
		dErrors.CodeMissingField, dErrors.CodeMalformedPayload:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the JSON "error" field.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return "bad_request"
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return "validation_error"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeTimeout:
		return "timeout"
	case dErrors.CodeUnknownPredicateKind, dErrors.CodeInvalidCredential,
		dErrors.CodeMalformedCode, dErrors.CodeWrongScheme, dErrors.CodeUnknownIntent,
		dErrors.CodeMissingField, dErrors.CodeMalformedPayload, dErrors.CodeBackendUnavailable,
		dErrors.CodePayloadTooLarge:
		return string(code)
	default:
		return "internal_error"
	}
}

// HTTPStatusToDomainCode is the inverse used by HTTP clients of this API to
// turn an error response back into a domain error.
func HTTPStatusToDomainCode(status int, errorField string) dErrors.Code {
	switch errorField {
	case "not_found":
		return dErrors.CodeNotFound
	case "bad_request":
		return dErrors.CodeBadRequest
	case "validation_error":
		return dErrors.CodeValidation
	case "conflict":
		return dErrors.CodeConflict
	case string(dErrors.CodeUnknownPredicateKind), string(dErrors.CodeInvalidCredential),
		string(dErrors.CodeMalformedCode), string(dErrors.CodeWrongScheme), string(dErrors.CodeUnknownIntent),
		string(dErrors.CodeMissingField), string(dErrors.CodeMalformedPayload), string(dErrors.CodePayloadTooLarge):
		return dErrors.Code(errorField)
	}
	switch {
	case status == http.StatusNotFound:
		return dErrors.CodeNotFound
	case status >= 500:
		return dErrors.CodeBackendUnavailable
	case status >= 400:
		return dErrors.CodeBadRequest
	default:
		return dErrors.CodeInternal
	}
}
