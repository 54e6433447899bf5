package ingest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("bare \" in non-quoted field")
	err := fmt.Errorf("parse upload: %w", malformedError(cause))

	ingestErr, ok := GetError(err)
	require.True(t, ok)
	assert.Equal(t, CodeMalformed, ingestErr.Code)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsCode(err, CodeMalformed))
	assert.False(t, IsCode(err, CodeDecode))
}

func TestGetErrorOnForeignError(t *testing.T) {
	_, ok := GetError(errors.New("other"))
	assert.False(t, ok)
	assert.False(t, IsCode(nil, CodeDecode))
}

func TestMissingFieldMessage(t *testing.T) {
	err := missingFieldError(3, []string{"name", "address"})

	assert.Equal(t, "Missing required fields in row 3: name, address", err.Error())
	assert.Equal(t, 3, err.RowNo)
}
