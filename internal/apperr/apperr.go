// Package apperr holds the error taxonomy shared by the server and the client.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Unknown Kind = iota
	InvalidCredentials
	MissingToken
	InvalidToken
	Forbidden
	NotFound
	ValidationError
	NetworkError
	ServerError
)

func (k Kind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid_credentials"
	case MissingToken:
		return "missing_token"
	case InvalidToken:
		return "invalid_token"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case ValidationError:
		return "validation_error"
	case NetworkError:
		return "network_error"
	case ServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Status is the HTTP status a server responds with for k. NetworkError never
// comes from a response, so it reports 0.
func (k Kind) Status() int {
	switch k {
	case InvalidCredentials, MissingToken, InvalidToken:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case ValidationError:
		return http.StatusBadRequest
	case NetworkError:
		return 0
	case ServerError, Unknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is the concrete error every layer returns. Message is safe to show to
// callers; Err is the internal cause and is never written to a response.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, apperr.E(apperr.NotFound, ""))
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Status: kind.Status(), Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Status: kind.Status(), Message: msg, Err: err}
}

func Validation(msg string) *Error { return E(ValidationError, msg) }
func Forbid(msg string) *Error { return E(Forbidden, msg) }

// KindOf reports the kind of err, or Unknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Retryable is true only for transport failures. Auth and authorization
// failures are never retried automatically.
func Retryable(err error) bool {
	return KindOf(err) == NetworkError
}

// FromStatus classifies a received HTTP status.
func FromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return InvalidToken
	case status == http.StatusForbidden:
		return Forbidden
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity,
		status == http.StatusConflict, status == http.StatusRequestEntityTooLarge:
		return ValidationError
	case status >= 500:
		return ServerError
	default:
		return Unknown
	}
}
