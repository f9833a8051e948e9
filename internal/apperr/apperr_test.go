package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("create loan: %w", New(Validation, "principal must be positive"))

	assert.Equal(t, Validation, KindOf(wrapped))
	assert.Equal(t, "principal must be positive", MessageOf(wrapped))
	assert.True(t, Is(wrapped, Validation))
	assert.False(t, Is(wrapped, Conflict))

	plain := errors.New("connection refused")
	assert.Equal(t, DependencyFailure, KindOf(plain))
	assert.Equal(t, "internal error", MessageOf(plain))
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(NotFound, sql.ErrNoRows, "loan not found")

	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, "loan not found: sql: no rows in result set", err.Error())
	assert.Equal(t, "payment 7 not found", Newf(NotFound, "payment %d not found", 7).Error())
}
