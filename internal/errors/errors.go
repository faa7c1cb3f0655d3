package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is the status-carrying error used wherever the core crosses an HTTP
// boundary: the remote gateway normalizes API failures into it, and the
// control server renders it back out as JSON.
type Error struct {
	Status int
	Err    error // The error this wraps
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth another replay attempt.
// Client errors (4xx) and Not Implemented are permanent: retrying an action
// the remote will never accept only burns queue budget before it gets
// dropped anyway.
func (e *Error) Retryable() bool {
	switch {
	case e.Status == http.StatusNotImplemented:
		return false
	case e.Status >= http.StatusInternalServerError:
		return true
	case e.Status >= http.StatusBadRequest:
		return false
	}

	return true
}

type transport struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(transport{
		Message: e.Err.Error(),
		Status:  e.Status,
	})
}

func (e *Error) UnmarshalJSON(byts []byte) error {
	t := transport{}
	if err := json.Unmarshal(byts, &t); err != nil {
		return err
	}

	e.Err = errors.New(t.Message)
	e.Status = t.Status
	return nil
}

func E(args ...any) *Error {
	ret := &Error{
		Status: http.StatusInternalServerError,
		Err:    nil,
	}

	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			ret.Err = errors.New(arg)
		case error:
			ret.Err = arg
		case int:
			ret.Status = arg
		}
	}

	return ret
}
