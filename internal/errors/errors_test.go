package errors_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	huberrs "contenthub/internal/errors"
)

func TestEConstructor(t *testing.T) {
	got := huberrs.E(
		"something went wrong",
		http.StatusBadRequest,
	)
	want := &huberrs.Error{
		Err:    errors.New("something went wrong"),
		Status: http.StatusBadRequest,
	}

	assert.Equal(t, want, got)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected bool
	}{
		{
			name:     "server error is retryable",
			status:   http.StatusInternalServerError,
			expected: true,
		},
		{
			name:     "bad gateway is retryable",
			status:   http.StatusBadGateway,
			expected: true,
		},
		{
			name:     "conflict is permanent",
			status:   http.StatusConflict,
			expected: false,
		},
		{
			name:     "not found is permanent",
			status:   http.StatusNotFound,
			expected: false,
		},
		{
			name:     "not implemented is permanent",
			status:   http.StatusNotImplemented,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := huberrs.E("boom", tt.status)
			assert.Equal(t, tt.expected, err.Retryable())
		})
	}
}
