package domainerrors

import "errors"

// Code is a transport-neutral failure category. httputil maps codes to
// statuses on the way out and back again in the clients.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodePayloadTooLarge    Code = "payload_too_large"

	// Scan and code scheme failures. These are recovered at the scan dispatcher.
	CodeMalformedCode    Code = "malformed_code"    // Not a URI or not a mediguard code at all
	CodeWrongScheme      Code = "wrong_scheme"      // Well-formed URI under another scheme
	CodeUnknownIntent    Code = "unknown_intent"    // mediguard scheme, unrecognized action token
	CodeMissingField     Code = "missing_field"     // Required query parameter absent
	CodeMalformedPayload Code = "malformed_payload" // Credential JSON unparseable or incomplete

	// Predicate and credential failures.
	CodeUnknownPredicateKind Code = "unknown_predicate_kind"
	CodeInvalidCredential    Code = "invalid_credential"

	// Backend unreachable or answering with 5xx, as seen by the clients.
	CodeBackendUnavailable Code = "backend_unavailable"
)

// Error carries a Code through service, store and client layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap adds context to err. A code already present in the chain wins over
// code, so a store's not_found survives a service-level Wrap.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Recode wraps err under code regardless of any code already in the chain.
// Use it at a boundary where the inner code means something else to the
// caller, such as a parse failure inside a scanned payload.
func Recode(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error in the chain, or
// CodeInternal when err carries no domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
