package errors

import (
	"errors"
	"fmt"
)

// DaoError is returned by the file records layer
type DaoError struct {
	Err           error
	Message       string
	NotFound      bool
	BadValidation bool
}

func (e *DaoError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%v: %v", e.Message, e.Err.Error())
}

func (e *DaoError) Unwrap() error {
	return e.Err
}

func (e *DaoError) Wrap(err error) {
	e.Err = err
}

// IsNotFound reports whether err carries a DaoError for a missing record
func IsNotFound(err error) bool {
	var daoErr *DaoError
	return errors.As(err, &daoErr) && daoErr.NotFound
}
