package validation

import (
	"testing"

	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
	Rating int    `json:"rating" validate:"min=1,max=5"`
}

func TestCheckUsesJSONNames(t *testing.T) {
	err := Check(New(), "test", sample{Email: "nope", Rating: 9})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))
	msg := apperr.Message(err)
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "email must be a valid email address")
	assert.Contains(t, msg, "rating must be at most 5")
}

func TestCheckPasses(t *testing.T) {
	assert.NoError(t, Check(New(), "test", sample{Name: "a", Rating: 3}))
}
