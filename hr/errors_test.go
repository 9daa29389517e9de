package hr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmployeeNotFound(t *testing.T) {
	err := fmt.Errorf("load employee: %w", EmployeeNotFound(404))

	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsClientError(err))
	assert.Equal(t, "load employee: employee 404 not found in authoritative system", err.Error())
}

func TestIsNotFound_OtherErrors(t *testing.T) {
	assert.False(t, IsNotFound(ErrStoreUnavailable))
	assert.False(t, IsNotFound(nil))
	assert.True(t, IsClientError(ErrEmptyRequest))
}
