package authentic_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-authentic"
	"github.com/stretchr/testify/assert"
)

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"nil", nil, 200},
		{"invalid email", authentic.ErrInvalidEmail, 400},
		{"invalid password", authentic.ErrInvalidPassword, 400},
		{"user exists", authentic.ErrUserExists, 400},
		{"user not found", authentic.ErrUserNotFound, 401},
		{"password mismatch", authentic.ErrPasswordMismatch, 401},
		{"not confirmed", authentic.ErrUserNotConfirmed, 401},
		{"already confirmed", authentic.ErrAlreadyConfirmed, 400},
		{"token mismatch", authentic.ErrTokenMismatch, 401},
		{"token expired", authentic.ErrTokenExpired, 400},
		{"token malformed", authentic.ErrTokenMalformed, 401},
		{"plain error", errors.New("boom"), 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, authentic.StatusFromError(tc.err))
		})
	}
}

func TestIsTokenExpiredError(t *testing.T) {
	assert.False(t, authentic.IsTokenExpiredError(nil))
	assert.True(t, authentic.IsTokenExpiredError(authentic.ErrTokenExpired))
	assert.True(t, authentic.IsTokenExpiredError(errors.New("token is expired by 1h")))
	assert.False(t, authentic.IsTokenExpiredError(errors.New("boom")))
}

func TestIsMalformedError(t *testing.T) {
	assert.False(t, authentic.IsMalformedError(nil))
	assert.True(t, authentic.IsMalformedError(errors.New("token is malformed")))
	assert.True(t, authentic.IsMalformedError(errors.New("missing or malformed JWT")))
	assert.False(t, authentic.IsMalformedError(errors.New("boom")))
}
