package sferrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindValidation:      "ValidationError",
		KindNotInitialized:  "NotInitialized",
		KindAuth:            "AuthError",
		KindTransport:       "TransportError",
		KindUpstream:        "UpstreamError",
		KindCLI:             "CliError",
		KindCancelled:       "UserCancelled",
		KindInternal:        "InternalError",
		Kind(99):            "UnknownError",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestNewAndError(t *testing.T) {
	err := New(KindValidation, "bad query")
	assert.Equal(t, "ValidationError: bad query", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindTransport, cause, "calling salesforce")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIs(t *testing.T) {
	err := New(KindAuth, "invalid session id")
	wrapped := fmt.Errorf("calling gateway: %w", err)

	assert.True(t, Is(wrapped, KindAuth))
	assert.False(t, Is(wrapped, KindUpstream))
	assert.False(t, Is(errors.New("plain"), KindAuth))
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindInternal, KindOf(errors.New("plain")))
	require.Equal(t, KindCLI, KindOf(New(KindCLI, "exit 1")))
}
