package domain

import (
	"errors"
	"fmt"
)

// Retrieval error kinds. Every retrieval error matches exactly one of these
// via errors.Is; the concrete types carry the details.
var (
	ErrTimeout         = errors.New("retrieval timed out")
	ErrExternalFailure = errors.New("retrieval tool failed")
	ErrNoData          = errors.New("no data available")
	ErrMalformedOutput = errors.New("malformed retrieval output")
)

// TimeoutError reports a tool invocation that exceeded its wall-clock limit.
// The process has been killed and reaped by the time this is returned.
type TimeoutError struct {
	Command string
}

func (e *TimeoutError) Error() string {
	return "timeout expired for process " + e.Command
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// ExternalFailureError reports a non-zero exit of the retrieval tool.
// Stderr is the tool's standard error, unmodified.
type ExternalFailureError struct {
	Stderr   string
	ExitCode int
}

func (e *ExternalFailureError) Error() string {
	return fmt.Sprintf("retrieval tool exited with status %d: %s", e.ExitCode, e.Stderr)
}

func (e *ExternalFailureError) Is(target error) bool { return target == ErrExternalFailure }

// NoDataError reports a well-formed response without any data rows.
type NoDataError struct {
	Period string
}

func (e *NoDataError) Error() string {
	return "no data available for " + e.Period
}

func (e *NoDataError) Is(target error) bool { return target == ErrNoData }

// MalformedOutputError reports tool output that does not follow the
// header/separator/rows/footer contract. Line is 1-based within stdout,
// or 0 when the problem is not tied to a line.
type MalformedOutputError struct {
	Line   int
	Reason string
}

func (e *MalformedOutputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed retrieval output at line %d: %s", e.Line, e.Reason)
	}
	return "malformed retrieval output: " + e.Reason
}

func (e *MalformedOutputError) Is(target error) bool { return target == ErrMalformedOutput }

// ErrorKind maps a retrieval error onto a short label used for metrics and
// logs: ok, timeout, external_failure, no_data, malformed or error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrExternalFailure):
		return "external_failure"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed"
	default:
		return "error"
	}
}
