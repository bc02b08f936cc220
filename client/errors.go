package client

import (
	"errors"
	"fmt"

	"github.com/guseggert/obsws/client/transport"
)

var (
	// ErrTimeout is wrapped by errors from requests or handshake steps that did not complete in time.
	ErrTimeout = transport.ErrTimeout
	// ErrClosed is wrapped by errors caused by the connection closing, locally or by the server.
	ErrClosed = transport.ErrClosed
	// ErrAuthConfig is returned when the server requires authentication but no password was given.
	ErrAuthConfig = errors.New("authentication enabled but no password provided")
)

// ConnectionError is returned when the connection to the server cannot be established.
type ConnectionError = transport.ConnectionError

// AuthFailedError is returned when the server did not accept the Identify message,
// or when the handshake messages could not be understood.
type AuthFailedError struct {
	Reason string
	Err    error
}

func (e *AuthFailedError) Error() string {
	msg := "failed to identify client with the server"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthFailedError) Unwrap() error { return e.Err }

// RequestError is returned when the server processed a request and reported a failure.
// The session remains usable.
type RequestError struct {
	RequestType string
	Code        int
	Comment     string
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("request %s returned code %d", e.RequestType, e.Code)
	if e.Comment != "" {
		msg += ": " + e.Comment
	}
	return msg
}
