package store

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

type NotFoundError struct {
	Kind string
	ID   int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Kind, e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvalidError is a rejected write (bad reference, constraint violation).
type InvalidError struct {
	Reason string
}

func (e InvalidError) Error() string { return e.Reason }
