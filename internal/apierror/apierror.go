// Package apierror implements the error taxonomy every handler in the API
// and static servers returns through, modelled on the teacher's
// internal/errors package but with the status/body contract fixed to the
// mealpedant wire format: {"response": ...} on success, {"response": "<msg>"}
// on error.
package apierror

import (
	"fmt"
	"net/http"
)

// Kind is the machine-readable error category.
type Kind int

const (
	KindAuthentication Kind = iota // no/invalid session cookie where one is required
	KindAuthorization               // credential check failed (bad password/token/unknown user)
	KindInvalidValue
	KindMissingKey
	KindConflict
	KindRateLimited
	KindBodySize
	KindInternal
	KindIO
	KindSerde
	KindImage
	KindReqwest
	KindSQL
	KindThread
	KindTime
)

// APIError is the single error type returned by every component in this
// module. It carries enough to render the exact HTTP status + body spec §7
// requires without the handler needing to know the mapping.
type APIError struct {
	Kind    Kind
	Message string
	Seconds int // only meaningful for KindRateLimited
	cause   error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.cause }

// StatusCode returns the HTTP status spec §7 assigns to this error kind.
func (e *APIError) StatusCode() int {
	switch e.Kind {
	case KindAuthentication:
		return http.StatusForbidden
	case KindAuthorization:
		return http.StatusUnauthorized
	case KindInvalidValue, KindMissingKey:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindBodySize:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Body is the human-readable string spec §7 puts under the "response" key.
func (e *APIError) Body() string {
	switch e.Kind {
	case KindAuthentication:
		return "Invalid Authentication"
	case KindAuthorization:
		return "Invalid email address and/or password and/or token"
	case KindRateLimited:
		return fmt.Sprintf("rate limited for %d seconds", e.Seconds)
	case KindBodySize:
		return "body too large"
	case KindInvalidValue, KindMissingKey, KindConflict:
		return e.Message
	default:
		return e.kindString()
	}
}

func (e *APIError) kindString() string {
	switch e.Kind {
	case KindInternal:
		return "Internal"
	case KindIO:
		return "Io"
	case KindSerde:
		return "Serde"
	case KindImage:
		return "Image"
	case KindReqwest:
		return "Reqwest"
	case KindSQL:
		return "Sqlx"
	case KindThread:
		return "Thread"
	case KindTime:
		return "Time"
	default:
		return "Internal"
	}
}

// IsServerError reports whether this error is a 5xx-class failure that
// should be logged with its cause, per §7 propagation policy.
func (e *APIError) IsServerError() bool { return e.StatusCode() >= 500 }

func New(kind Kind, message string) *APIError {
	return &APIError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *APIError {
	return &APIError{Kind: kind, Message: message, cause: cause}
}

func Authentication() *APIError { return New(KindAuthentication, "Invalid Authentication") }

func Authorization() *APIError {
	return New(KindAuthorization, "Invalid email address and/or password and/or token")
}

func InvalidValue(msg string) *APIError { return New(KindInvalidValue, msg) }

func MissingKey(field string) *APIError {
	return New(KindMissingKey, fmt.Sprintf("missing %s", field))
}

func Conflict(msg string) *APIError { return New(KindConflict, msg) }

func RateLimited(seconds int) *APIError {
	return &APIError{Kind: KindRateLimited, Seconds: seconds}
}

func BodySize() *APIError { return New(KindBodySize, "body too large") }

func Internal(msg string) *APIError { return New(KindInternal, msg) }

func IO(err error) *APIError { return Wrap(KindIO, "io error", err) }

func Serde(err error) *APIError { return Wrap(KindSerde, "serde error", err) }

func Image(err error) *APIError { return Wrap(KindImage, "image error", err) }

func Reqwest(err error) *APIError { return Wrap(KindReqwest, "reqwest error", err) }

func SQL(err error) *APIError { return Wrap(KindSQL, "sqlx error", err) }

// As extracts an *APIError from err, falling back to wrapping it as Internal
// so callers never have to type-switch manually.
func As(err error) *APIError {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*APIError); ok {
		return ae
	}
	return Wrap(KindInternal, "internal error", err)
}
