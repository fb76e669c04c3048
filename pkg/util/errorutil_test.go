package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes domain errors through", func(t *testing.T) {
		in := NewForbidden("nope")
		got := ToDomainError(fmt.Errorf("wrapped: %w", in))
		require.NotNil(t, got)
		assert.Equal(t, CodeForbidden, got.Code)
		assert.Equal(t, http.StatusForbidden, got.HTTPStatus)
	})

	t.Run("maps missing rows to not found", func(t *testing.T) {
		got := ToDomainError(pgx.ErrNoRows)
		assert.Equal(t, CodeNotFound, got.Code)
		assert.Equal(t, http.StatusNotFound, got.HTTPStatus)
	})

	t.Run("hides unknown errors", func(t *testing.T) {
		cause := errors.New("boom")
		got := ToDomainError(cause)
		assert.Equal(t, CodeInternal, got.Code)
		assert.Equal(t, "internal server error", got.Message)
		assert.ErrorIs(t, got, cause)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})
}

func TestDomainErrorBody(t *testing.T) {
	err := NewTooManyRequests("slow down", 42).(*DomainError)
	body := err.Body()

	assert.Equal(t, false, body["success"])
	assert.Equal(t, "slow down", body["error"])
	assert.Equal(t, CodeRateLimitExceeded, body["errorCode"])
	assert.Equal(t, 42, body["retryAfter"])
}
