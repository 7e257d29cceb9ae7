package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a conditional update matched no
	// rows because the entity's status changed underneath it.
	ErrConflict = errors.New("conditional update matched no rows")
)
