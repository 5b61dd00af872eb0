package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, CodeNetwork, "fetch issues")

	assert.Equal(t, "NETWORK_ERROR: fetch issues: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, New(CodeNetwork, "other message"))
	assert.NotErrorIs(t, err, New(CodeNotFound, ""))
	assert.Equal(t, "NOT_FOUND: release", New(CodeNotFound, "release").Error())
	assert.Nil(t, Wrap(nil, CodeInternal, "nothing"))
	assert.Equal(t, "INVALID_INPUT: key QA-1: x", Wrapf(stderrors.New("x"), CodeInvalidInput, "key %s", "QA-1").Error())
}

func TestCodeForStatus(t *testing.T) {
	tests := map[int]ErrorCode{
		http.StatusNotFound:            CodeNotFound,
		http.StatusUnauthorized:        CodeUnauthorized,
		http.StatusForbidden:           CodeForbidden,
		http.StatusBadRequest:          CodeInvalidInput,
		http.StatusTooManyRequests:     CodeRateLimit,
		http.StatusGatewayTimeout:      CodeTimeout,
		http.StatusServiceUnavailable:  CodeUnavailable,
		http.StatusInternalServerError: CodeInternal,
		http.StatusTeapot:              CodeUnknown,
	}
	for status, want := range tests {
		assert.Equal(t, want, CodeForStatus(status), "status %d", status)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limit", err: New(CodeRateLimit, "slow down"), want: true},
		{name: "wrapped unavailable", err: fmt.Errorf("batch 3: %w", New(CodeUnavailable, "503")), want: true},
		{name: "not found", err: New(CodeNotFound, "issue"), want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "canceled", err: Wrap(context.Canceled, CodeNetwork, "request"), want: false},
		{name: "net error", err: &net.OpError{Op: "dial", Err: timeoutErr{}}, want: true},
		{name: "plain", err: stderrors.New("plain"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
