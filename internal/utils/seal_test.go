package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	sealed, err := s.Seal("+7 900 123-45-67")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "900")

	again, err := s.Seal("+7 900 123-45-67")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "+7 900 123-45-67", plain)
}

func TestSealer_Empty(t *testing.T) {
	s, err := NewSealer(bytes.Repeat([]byte{1}, 16))
	require.NoError(t, err)

	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := s.Open("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestSealer_Rejects(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	assert.Error(t, err)

	s, err := NewSealer(bytes.Repeat([]byte{1}, 24))
	require.NoError(t, err)
	other, err := NewSealer(bytes.Repeat([]byte{2}, 24))
	require.NoError(t, err)

	sealed, err := s.Seal("Main street 1")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.Error(t, err, "wrong key")
	_, err = s.Open("zz")
	assert.Error(t, err, "not hex")
	_, err = s.Open("abcd")
	assert.Error(t, err, "too short")
}
