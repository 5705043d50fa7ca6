package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("coded error keeps its code through wrapping", func(t *testing.T) {
		err := fmt.Errorf("create claim: %w", New(CodeNotFound, "claim not found"))
		assert.Equal(t, CodeNotFound, CodeOf(err))
		assert.True(t, HasCode(err, CodeNotFound))
	})

	t.Run("plain error is internal", func(t *testing.T) {
		err := errors.New("connection reset")
		assert.Equal(t, CodeInternal, CodeOf(err))
		assert.False(t, HasCode(err, CodeNotFound))
	})
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := Wrap(cause, CodeTimeout, "transaction aborted")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "transaction aborted")
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation(map[string]string{"confidence": "must be between 0 and 1"})

	de, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, CodeValidation, de.Code)
	assert.Equal(t, "must be between 0 and 1", de.Fields["confidence"])
}
