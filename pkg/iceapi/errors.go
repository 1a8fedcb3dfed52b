package iceapi

import "fmt"

// ErrorKind classifies an APIError.
type ErrorKind string

const (
	// KindTransient covers 5xx responses and connection-level failures that
	// survived the retry budget.
	KindTransient ErrorKind = "transient"
	// KindRequest covers 4xx responses caused by the request shape.
	KindRequest ErrorKind = "request"
	// KindAuth covers 401 session expiry.
	KindAuth ErrorKind = "auth"
	// KindDecode covers malformed JSON on an otherwise successful response.
	KindDecode ErrorKind = "decode"
)

// SessionExpiredMessage is the fixed message carried by session-expiry errors.
const SessionExpiredMessage = "session expired"

// APIError is the single error variant surfaced by the client. It is
// constructed once at the response boundary and propagated unchanged.
type APIError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Cause      error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("iceapi: %s (%s, status %d)", e.Message, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("iceapi: %s (%s)", e.Message, e.Kind)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsSessionExpired reports whether err is the session-expiry error.
func IsSessionExpired(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == KindAuth
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	for err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return apiErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// ErrorText returns the message a UI surface should show for err: the
// APIError message when present, the raw error text otherwise.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Message
	}
	return err.Error()
}
