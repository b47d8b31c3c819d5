package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("db down")
	err := Wrap(CodeDependency, cause, "load request")

	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "load request", err.Message())
	assert.ErrorIs(t, err, cause)
}

func TestAsFindsTypedError(t *testing.T) {
	inner := New(CodeStateConflict, "transition disallowed")
	wrapped := Wrap(CodeDependency, inner, "outer")

	typed := As(wrapped)
	assert.NotNil(t, typed)
	assert.Equal(t, CodeDependency, typed.Code())

	assert.Nil(t, As(errors.New("plain")))
	assert.Nil(t, As(nil))
}

func TestIsCode(t *testing.T) {
	err := New(CodeConflict, "cas mismatch")
	assert.True(t, IsCode(err, CodeConflict))
	assert.False(t, IsCode(err, CodeValidation))
	assert.False(t, IsCode(errors.New("plain"), CodeConflict))
}

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestConflictIsRetryable(t *testing.T) {
	meta := MetadataFor(CodeConflict)
	assert.True(t, meta.Retryable)
	assert.Equal(t, http.StatusConflict, meta.HTTPStatus)
}
