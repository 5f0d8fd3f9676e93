package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdErrorFormatting(t *testing.T) {
	testCases := []struct {
		name     string
		err      *MarkdError
		expected string
	}{
		{
			name:     "code and message",
			err:      NewSecurityError(ErrCodePathTraversal, "path resolves outside the served root"),
			expected: "[ERR_PATH_TRAVERSAL] path resolves outside the served root",
		},
		{
			name:     "with component",
			err:      NewBridgeError(ErrCodeBridgeTimeout, "scheduler did not accept event in time").WithComponent("bridge"),
			expected: "[ERR_BRIDGE_TIMEOUT] component:bridge scheduler did not accept event in time",
		},
		{
			name:     "with path",
			err:      NewNotFoundError(ErrCodePathNotFound, "path not found").WithPath("notes/missing.md"),
			expected: "[ERR_PATH_NOT_FOUND] notes/missing.md path not found",
		},
		{
			name:     "with cause",
			err:      NewIOError(ErrCodeWatchFailed, "cannot watch path", fmt.Errorf("no such device")),
			expected: "[ERR_WATCH_FAILED] cannot watch path: no such device",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestMarkdErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := NewIOError(ErrCodeWatchFailed, "cannot watch path", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestMarkdErrorIs(t *testing.T) {
	a := NewSecurityError(ErrCodePathTraversal, "escape attempt")
	b := NewSecurityError(ErrCodePathTraversal, "different message")
	c := NewSecurityError(ErrCodeInvalidOrigin, "bad origin")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestErrorPredicates(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		security    bool
		notFound    bool
		bridge      bool
		recoverable bool
	}{
		{
			name:        "security",
			err:         ErrPathTraversal("../../etc/passwd"),
			security:    true,
			recoverable: false,
		},
		{
			name:        "not found",
			err:         ErrPathNotFound("notes/missing.md"),
			notFound:    true,
			recoverable: true,
		},
		{
			name:        "bridge timeout",
			err:         ErrBridgeTimeout("notes/readme.md"),
			bridge:      true,
			recoverable: true,
		},
		{
			name: "plain error",
			err:  fmt.Errorf("plain"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.security, IsSecurityError(tc.err))
			assert.Equal(t, tc.notFound, IsNotFoundError(tc.err))
			assert.Equal(t, tc.bridge, IsBridgeError(tc.err))
			assert.Equal(t, tc.recoverable, IsRecoverable(tc.err))
		})
	}
}

func TestErrorPredicatesOnWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("handling request: %w", ErrPathTraversal("../secret"))

	assert.True(t, IsSecurityError(wrapped))
	assert.False(t, IsNotFoundError(wrapped))
}

func TestSecurityErrorDoesNotLeakPath(t *testing.T) {
	err := ErrPathTraversal("/home/user/notes/../../../etc/shadow")

	// The requested path lives in context for logging, never in the message.
	assert.NotContains(t, err.Message, "etc/shadow")
	require.NotNil(t, err.Context)
	assert.Equal(t, "/home/user/notes/../../../etc/shadow", err.Context["requested"])
}

func TestWithContext(t *testing.T) {
	err := ErrFileTooLarge("big.md", 20<<20, 10<<20)

	require.NotNil(t, err.Context)
	assert.Equal(t, int64(20<<20), err.Context["size"])
	assert.Equal(t, int64(10<<20), err.Context["limit"])
	assert.Equal(t, "big.md", err.Path)
}
