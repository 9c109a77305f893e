package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	err := NewError(KindNotFound, "file.getCategory", "category %s not found", "go")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)

	wrapped := fmt.Errorf("handler: %w", err)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestError_Message(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(KindBackend, "file.write", cause, "failed to write data file")

	assert.Equal(t, "file.write: failed to write data file: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := &Error{Kind: KindHasDependents}
	assert.Equal(t, "HAS_DEPENDENTS", bare.Error())
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.False(t, IsKind(errors.New("boom"), KindBackend))
}
