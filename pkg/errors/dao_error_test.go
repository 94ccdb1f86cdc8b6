package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDaoError(t *testing.T) {
	err := DaoError{
		Message: "could not save file record",
	}
	assert.Equal(t, "could not save file record", err.Error())
	err.Wrap(errors.New("connection reset"))
	assert.Equal(t, "could not save file record: connection reset", err.Error())
	assert.EqualError(t, errors.Unwrap(&err), "connection reset")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&DaoError{NotFound: true}))
	assert.True(t, IsNotFound(fmt.Errorf("fetching: %w", &DaoError{NotFound: true})))
	assert.False(t, IsNotFound(&DaoError{BadValidation: true}))
	assert.False(t, IsNotFound(errors.New("not found")))
	assert.False(t, IsNotFound(nil))
}
