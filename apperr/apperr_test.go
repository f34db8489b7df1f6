package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation(Field("email", "bad")), http.StatusBadRequest},
		{Conflict("exists"), http.StatusBadRequest},
		{InvalidToken("expired"), http.StatusBadRequest},
		{Auth("bad credentials"), http.StatusUnauthorized},
		{Forbidden("inactive"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Upstream("mail down", errors.New("dial tcp")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Status(), tt.err.Error())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("login: %w", Forbidden("inactive"))

	e, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, KindForbidden, e.Kind)
	assert.True(t, Is(err, KindForbidden))
	assert.False(t, Is(err, KindAuth))
	assert.False(t, Is(errors.New("plain"), KindAuth))
}

func TestUpstreamUnwrap(t *testing.T) {
	cause := errors.New("status 401")
	err := Upstream("Failed to send email.", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to send email.: status 401", err.Error())
}
