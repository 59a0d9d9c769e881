package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ProtheticGlitch/Enterra/internal/store"
)

func TestError_ErrorWithCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := &store.Error{Code: http.StatusInternalServerError, Message: "write post", Err: cause}

	assert.Equal(t, "write post: disk I/O error", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestError_IsMatchesCopies(t *testing.T) {
	err := store.ErrNotFound.WithMessage("post not found")

	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("get post: %w", err), store.ErrNotFound)
	assert.NotErrorIs(t, err, store.ErrAlreadyExists)
	assert.Equal(t, "post not found", err.Error())
}

func TestError_HTTPCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, store.ErrNotFound.HTTPCode())
	assert.Equal(t, http.StatusConflict, store.ErrAlreadyExists.HTTPCode())
}
