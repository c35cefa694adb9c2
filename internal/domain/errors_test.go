package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		kind     string
		message  string
	}{
		{&TimeoutError{Command: "retrieve -t x"}, ErrTimeout, "timeout", "timeout expired for process retrieve -t x"},
		{&ExternalFailureError{Stderr: "bad station id", ExitCode: 2}, ErrExternalFailure, "external_failure", "bad station id"},
		{&NoDataError{Period: "20210912000000"}, ErrNoData, "no_data", "no data available for 20210912000000"},
		{&MalformedOutputError{Line: 4, Reason: "got 2 fields"}, ErrMalformedOutput, "malformed", "line 4"},
	}
	all := []error{ErrTimeout, ErrExternalFailure, ErrNoData, ErrMalformedOutput}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			for _, s := range all {
				assert.Equal(t, s == tt.sentinel, errors.Is(tt.err, s), "errors.Is(%T, %v)", tt.err, s)
			}
			assert.Equal(t, tt.kind, ErrorKind(tt.err))
			assert.Equal(t, tt.kind, ErrorKind(fmt.Errorf("wrapped: %w", tt.err)))
			assert.Contains(t, tt.err.Error(), tt.message)
		})
	}

	assert.Equal(t, "ok", ErrorKind(nil))
	assert.Equal(t, "error", ErrorKind(errors.New("boom")))
	assert.Equal(t, "malformed retrieval output: empty", (&MalformedOutputError{Reason: "empty"}).Error())
}
