package render

import (
	"errors"
	"fmt"
)

// ErrSuperseded resolves a session that a newer render, or Stop, replaced.
var ErrSuperseded = errors.New("render superseded")

// TransportError means the report could not be fetched or decoded.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch report: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError means the server answered with success=false.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return "report service: " + e.Message
}

// userMessage is the text shown on the surface for err.
func userMessage(err error) string {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	var tErr *TransportError
	if errors.As(err, &tErr) && tErr.Err != nil {
		return tErr.Err.Error()
	}
	return err.Error()
}
