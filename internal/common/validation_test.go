package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_CollectsAllFailures(t *testing.T) {
	v := NewValidator().
		Field("document_id", "not-a-uuid", Required, UUID).
		Field("output_language", "klingon", OneOf("english", "french")).
		Field("user_role", "tenant", MaxLength(3))

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 3)

	err := ValidateAndReturnError(v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	assert.Contains(t, err.Error(), "must be a valid UUID")
}

func TestValidator_EmptyOneOfIsAccepted(t *testing.T) {
	v := NewValidator().Field("output_language", "", OneOf("english"))
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFoundError("run")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(WrapError(ErrNotFound, "get run")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(NewAppError(CodeConflict, "dup", nil)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
}
