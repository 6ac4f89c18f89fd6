package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := Conflictf("reviews.MarkHelpful", "already voted")
	wrapped := fmt.Errorf("handler: %w", base)

	assert.True(t, Is(wrapped, Conflict))
	assert.False(t, Is(wrapped, NotFound))
	assert.Equal(t, "already voted", Message(wrapped))
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))
}

func TestPlainErrorsAreInternal(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.False(t, Is(nil, Internal))
}

func TestErrorString(t *testing.T) {
	err := Wrap(Transient, "notify.Send", "email provider unavailable", errors.New("timeout"))
	assert.Equal(t, "notify.Send: email provider unavailable: timeout", err.Error())
	assert.ErrorIs(t, err, err.Err)
}
