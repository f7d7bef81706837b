package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParseRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	token, exp, err := Generate(opts, "user1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))

	sub, err := Parse(opts, token)
	require.NoError(t, err)
	assert.Equal(t, "user1", sub)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := Generate(DefaultOptions([]byte("secret-a")), "user1")
	require.NoError(t, err)

	_, err = Parse(DefaultOptions([]byte("secret-b")), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsTampered(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	token, _, err := Generate(opts, "user1")
	require.NoError(t, err)

	_, err = Parse(opts, token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(DefaultOptions([]byte("test-secret")), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
