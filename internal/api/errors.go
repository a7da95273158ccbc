package api

import (
	"errors"
	"fmt"
)

// TransportError indicates the request never completed: DNS, connect,
// timeout, or a body that could not be read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BackendError is a non-2xx response, or a 2xx response whose body is an
// error object carrying a detail field.
type BackendError struct {
	Op     string
	Status int
	Detail string
}

func (e *BackendError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.Status, e.Detail)
}

// MalformedError is a response body that is not the expected JSON shape.
type MalformedError struct {
	Op   string
	Body string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsBackend reports whether err is a backend-reported error.
func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// IsMalformed reports whether err is a malformed response.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// Describe renders err as a short message for the learner.
func Describe(err error) string {
	var (
		te *TransportError
		be *BackendError
		me *MalformedError
	)
	switch {
	case errors.As(err, &te):
		return "Could not reach the server. Check your connection and try again."
	case errors.As(err, &be):
		if be.Detail != "" {
			return be.Detail
		}
		return fmt.Sprintf("The server returned an error (status %d).", be.Status)
	case errors.As(err, &me):
		return "The server sent an unexpected response."
	case err != nil:
		return err.Error()
	}
	return ""
}
