package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidationCarriesDetails(t *testing.T) {
	err := NewValidation("Title is required", "Region is required")

	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, []string{"Title is required", "Region is required"}, err.Details)
	assert.Equal(t, "validation failed: Title is required; Region is required", err.Error())
	assert.Empty(t, ErrValidation.Details, "template must not be mutated")
	assert.True(t, IsValidation(err))
	assert.False(t, IsNotFound(err))
}

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrNotFound, "roadwork not found")
	wrapped := fmt.Errorf("load: %w", err)

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "roadwork not found", FromError(wrapped).Message)
}

func TestOperationFailedKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := OperationFailed(cause, "failed to create roadwork")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, ErrOperationFailed.Code, err.Code)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Nil(t, FromError(nil))
}
