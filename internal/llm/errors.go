package llm

import (
	"errors"
	"fmt"
	"net"
)

var (
	ErrOllamaUnavailable = errors.New("ollama server unavailable")
	ErrTimeout           = errors.New("llm request timed out")
	// ErrEmptyResponse means the server answered 200 with no text. It is
	// retried like any other failed attempt.
	ErrEmptyResponse = errors.New("llm returned an empty response")
	// ErrInvalidOutput means the text could not be read as the expected JSON.
	ErrInvalidOutput  = errors.New("invalid llm output format")
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")
)

// classify maps the last attempt's error onto the package sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrTimeout):
		return ErrTimeout
	case isConnectionError(err):
		return ErrOllamaUnavailable
	default:
		return fmt.Errorf("%w: %w", ErrRetryExhausted, err)
	}
}

func isConnectionError(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

// errorCode is the stable label recorded on failed call events.
func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrOllamaUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrEmptyResponse):
		return "EMPTY"
	case errors.Is(err, ErrInvalidOutput):
		return "INVALID_OUTPUT"
	default:
		return "UNKNOWN"
	}
}
