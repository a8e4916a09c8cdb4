package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("signup: %w", Conflict("identity already exists"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "identity_exists", CodeOf(err))
}

func TestInvalidTokenIsNotFoundWithCode(t *testing.T) {
	err := InvalidToken()

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, &Error{Kind: KindNotFound, Code: "invalid_token"}))
	assert.False(t, errors.Is(err, &Error{Kind: KindNotFound, Code: "not_found"}))
	assert.Equal(t, "invalid_token: invalid or expired token", err.Error())
}

func TestTransientUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transient("get item", cause)

	assert.True(t, errors.Is(err, ErrTransient))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
}
