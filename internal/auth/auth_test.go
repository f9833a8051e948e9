package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-tracker/internal/apperr"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	id := uuid.New()

	tok, err := tokens.Issue(id)
	require.NoError(t, err)

	got, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	tok, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	other := NewTokens("other-secret", time.Hour)
	_, err = other.Parse(tok)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))

	expired := NewTokens("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(tok)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))

	_, err = tokens.Parse("not-a-jwt")
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestUserIDFromContext(t *testing.T) {
	_, err := UserIDFromContext(context.Background())
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))

	id := uuid.New()
	got, err := UserIDFromContext(WithUserID(context.Background(), id))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}
