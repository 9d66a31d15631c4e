package result

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errMissing = errors.New("missing")

func TestSuccess(t *testing.T) {
	r := Success(42)

	assert.True(t, r.IsSuccess())
	assert.False(t, r.IsFailure())
	assert.Equal(t, 42, r.Value())
	assert.Empty(t, r.Message())
	assert.Nil(t, r.Kind())
	assert.False(t, r.FailedWith(errMissing))
}

func TestOk(t *testing.T) {
	r := Ok()

	assert.True(t, r.IsSuccess())
	assert.Equal(t, Nothing{}, r.Value())
}

func TestFailure(t *testing.T) {
	r := Failure[string](errMissing, "Thing not found.")

	assert.True(t, r.IsFailure())
	assert.Equal(t, "Thing not found.", r.Message())
	assert.Empty(t, r.Value())
	assert.True(t, r.FailedWith(errMissing))
	assert.False(t, r.FailedWith(errors.New("other")))
}

func TestFailure_WrappedKind(t *testing.T) {
	r := Failure[int](fmt.Errorf("lookup: %w", errMissing), "Thing not found.")

	assert.True(t, r.FailedWith(errMissing))
}

func TestCast(t *testing.T) {
	failed := Cast[int](Failure[Nothing](errMissing, "Thing not found."))

	assert.True(t, failed.IsFailure())
	assert.Equal(t, "Thing not found.", failed.Message())
	assert.True(t, failed.FailedWith(errMissing))
}
